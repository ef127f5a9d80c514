package review

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
	"github.com/quorumhq/nameplate/pkg/learned"
	"github.com/quorumhq/nameplate/pkg/resolve"
)

// capturePublisher records every published event.
type capturePublisher struct {
	channels []string
	events   []Event
}

func (p *capturePublisher) Publish(_ context.Context, channel string, event Event) error {
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return nil
}

func reviewResult(projectID, mention string) *resolve.Result {
	return &resolve.Result{
		Mention:        mention,
		ProjectID:      projectID,
		Confidence:     0.75,
		Source:         resolve.SourceFuzzy,
		RequiresReview: true,
		Alternatives: []resolve.Alternative{
			{Email: "john.smith@corp.com", DisplayName: "John Smith", Score: 0.75},
			{Email: "john.davis@corp.com", DisplayName: "John Davis", Score: 0.40},
		},
	}
}

func newTestWorkflow(t *testing.T) (*Workflow, *MemoryRepository, *learned.MemoryStore, *capturePublisher) {
	t.Helper()

	repo := NewMemoryRepository()
	mappings := learned.NewMemoryStore()
	pub := &capturePublisher{}
	return NewWorkflow(repo, mappings, pub, 0, nil), repo, mappings, pub
}

func TestRegisterCreatesPendingItem(t *testing.T) {
	ctx := context.Background()
	w, repo, _, pub := newTestWorkflow(t)

	item, err := w.Register(ctx, reviewResult("proj-1", "John"))
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, StatusPending, item.Status)
	assert.Len(t, item.Candidates, 2)

	n, err := repo.CountPending(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, pub.channels, 1)
	assert.Equal(t, ChannelReviewCreated, pub.channels[0])
	assert.Equal(t, "John", pub.events[0].Mention)
}

func TestRegisterKeepsWeakMatchAsCandidate(t *testing.T) {
	ctx := context.Background()
	w, _, _, _ := newTestWorkflow(t)

	// A below-threshold match against a one-person roster: the matched entry
	// itself is the only candidate and must survive into the item.
	res := &resolve.Result{
		Mention:        "Jon Smit",
		ProjectID:      "proj-1",
		MatchedEmail:   "john.smith@corp.com",
		Confidence:     0.80,
		Source:         resolve.SourceFuzzy,
		RequiresReview: true,
		Alternatives: []resolve.Alternative{
			{Email: "john.smith@corp.com", DisplayName: "John Smith", Score: 0.80},
		},
	}

	item, err := w.Register(ctx, res)
	require.NoError(t, err)
	require.NotEmpty(t, item.Candidates)
	assert.Equal(t, "john.smith@corp.com", item.Candidates[0].Email)
}

func TestRegisterRejectsResolvedResult(t *testing.T) {
	w, _, _, _ := newTestWorkflow(t)

	res := reviewResult("proj-1", "Sarah Chen")
	res.RequiresReview = false

	_, err := w.Register(context.Background(), res)
	require.ErrorIs(t, err, nperrors.ErrValidation)
}

func TestRegisterDeduplicatesOpenItems(t *testing.T) {
	ctx := context.Background()
	w, repo, _, _ := newTestWorkflow(t)

	first, err := w.Register(ctx, reviewResult("proj-1", "John"))
	require.NoError(t, err)

	// Mention variants normalize to the same key.
	second, err := w.Register(ctx, reviewResult("proj-1", "JOHN"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	n, err := repo.CountPending(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A different project gets its own item.
	_, err = w.Register(ctx, reviewResult("proj-2", "John"))
	require.NoError(t, err)
}

func TestConfirmWritesMappingAndTransitions(t *testing.T) {
	ctx := context.Background()
	w, repo, mappings, pub := newTestWorkflow(t)

	item, err := w.Register(ctx, reviewResult("proj-1", "John"))
	require.NoError(t, err)

	require.NoError(t, w.Confirm(ctx, "proj-1", "John", "john.davis@corp.com", "reviewer@corp.com"))

	m, err := mappings.Get(ctx, "proj-1", "John")
	require.NoError(t, err)
	assert.Equal(t, "john.davis@corp.com", m.ResolvedEmail)

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, "john.davis@corp.com", got.ResolvedEmail)
	assert.Equal(t, "reviewer@corp.com", got.DecidedBy)
	assert.NotNil(t, got.DecidedAt)

	assert.Equal(t, ChannelReviewConfirmed, pub.channels[len(pub.channels)-1])
}

func TestConfirmWithoutTrackedItemStillWritesMapping(t *testing.T) {
	ctx := context.Background()
	w, _, mappings, _ := newTestWorkflow(t)

	require.NoError(t, w.Confirm(ctx, "proj-1", "Jon", "john.smith@corp.com", ""))

	m, err := mappings.Get(ctx, "proj-1", "Jon")
	require.NoError(t, err)
	assert.Equal(t, "john.smith@corp.com", m.ResolvedEmail)
}

func TestConfirmRequiresEmail(t *testing.T) {
	w, _, _, _ := newTestWorkflow(t)

	err := w.Confirm(context.Background(), "proj-1", "John", "", "")
	require.ErrorIs(t, err, nperrors.ErrValidation)
}

func TestRejectLeavesNoMapping(t *testing.T) {
	ctx := context.Background()
	w, repo, mappings, _ := newTestWorkflow(t)

	item, err := w.Register(ctx, reviewResult("proj-1", "John"))
	require.NoError(t, err)

	require.NoError(t, w.Reject(ctx, "proj-1", "John", "reviewer@corp.com"))

	got, err := repo.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Empty(t, got.ResolvedEmail)

	_, err = mappings.Get(ctx, "proj-1", "John")
	require.ErrorIs(t, err, nperrors.ErrNotFound)
}

func TestDecisionOnTerminalItemFails(t *testing.T) {
	ctx := context.Background()
	w, _, _, _ := newTestWorkflow(t)

	item, err := w.Register(ctx, reviewResult("proj-1", "John"))
	require.NoError(t, err)
	require.NoError(t, w.ConfirmItem(ctx, item.ID, "john.smith@corp.com", ""))

	err = w.RejectItem(ctx, item.ID, "")
	require.ErrorIs(t, err, nperrors.ErrInvalidState)

	err = w.ConfirmItem(ctx, item.ID, "john.davis@corp.com", "")
	require.ErrorIs(t, err, nperrors.ErrInvalidState)
}

func TestSweepExpiresOnlyStaleItems(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	pub := &capturePublisher{}
	w := NewWorkflow(repo, learned.NewMemoryStore(), pub, 7*24*time.Hour, nil)

	stale := &Item{
		ID:        "stale",
		ProjectID: "proj-1",
		Mention:   "Old Bob",
		Status:    StatusPending,
		CreatedAt: time.Now().UTC().Add(-8 * 24 * time.Hour),
	}
	fresh := &Item{
		ID:        "fresh",
		ProjectID: "proj-1",
		Mention:   "New Bob",
		Status:    StatusPending,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))

	n, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	got, err = repo.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	require.Len(t, pub.channels, 1)
	assert.Equal(t, ChannelReviewExpired, pub.channels[0])

	// Expired items never block downstream processing.
	blocking, err := w.BlockingCount(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, 1, blocking)
}

func TestWorkflowMetricsTrackQueueDepth(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	w := NewWorkflow(repo, learned.NewMemoryStore(), nil, 0, nil)
	w.RegisterMetrics(prometheus.NewRegistry())

	_, err := w.Register(ctx, reviewResult("proj-1", "John"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.pendingGauge))

	require.NoError(t, w.Confirm(ctx, "proj-1", "John", "john.davis@corp.com", ""))
	assert.Equal(t, 0.0, testutil.ToFloat64(w.pendingGauge))

	require.NoError(t, repo.Create(ctx, &Item{
		ID:        "stale",
		ProjectID: "proj-1",
		Mention:   "Old Bob",
		Status:    StatusPending,
		CreatedAt: time.Now().UTC().Add(-8 * 24 * time.Hour),
	}))
	n, err := w.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.expiredTotal))
}

func TestListPendingOldestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	w := NewWorkflow(repo, learned.NewMemoryStore(), nil, 0, nil)

	now := time.Now().UTC()
	for i, m := range []string{"First", "Second", "Third"} {
		require.NoError(t, repo.Create(ctx, &Item{
			ID:        m,
			ProjectID: "proj-1",
			Mention:   m,
			Status:    StatusPending,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	items, err := w.ListPending(ctx, "proj-1", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "First", items[0].Mention)
	assert.Equal(t, "Second", items[1].Mention)
}
