package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
	"github.com/quorumhq/nameplate/pkg/learned"
	"github.com/quorumhq/nameplate/pkg/logging"
	"github.com/quorumhq/nameplate/pkg/resolve"
)

// Workflow drives the pending-review state machine. Confirmations write into
// the learned-mapping store so the identical mention short-circuits at the
// learned stage next time; rejections leave no mapping, and the caller is
// expected to present the full searchable roster for manual selection since
// the original candidate set was apparently wrong.
type Workflow struct {
	repo      Repository
	mappings  learned.Store
	publisher EventPublisher
	log       logging.Logger
	window    time.Duration

	pendingGauge prometheus.Gauge
	expiredTotal prometheus.Counter
}

// NewWorkflow creates a workflow over the given repository and learned
// store. The publisher is optional. A zero window uses the default 7 days.
func NewWorkflow(repo Repository, mappings learned.Store, publisher EventPublisher, window time.Duration, log logging.Logger) *Workflow {
	if window <= 0 {
		window = DefaultExpiryWindow
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &Workflow{
		repo:      repo,
		mappings:  mappings,
		publisher: publisher,
		log:       log,
		window:    window,
	}
}

// RegisterMetrics attaches Prometheus metrics for the review queue.
func (w *Workflow) RegisterMetrics(reg prometheus.Registerer) {
	factory := promauto.With(reg)
	w.pendingGauge = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "nameplate",
		Name:      "reviews_pending",
		Help:      "Review items currently awaiting a human decision.",
	})
	w.expiredTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "nameplate",
		Name:      "reviews_expired_total",
		Help:      "Review items expired by the sweep.",
	})
}

// Register tracks a resolution that requires review. Results that do not
// require review are rejected with ErrValidation; callers decide per result
// whether to track it.
func (w *Workflow) Register(ctx context.Context, res *resolve.Result) (*Item, error) {
	if res == nil || !res.RequiresReview {
		return nil, fmt.Errorf("%w: result does not require review", nperrors.ErrValidation)
	}

	// One open item per (project, mention): a meeting that repeats the same
	// unresolvable name should not fan out into duplicate review work.
	if existing, err := w.repo.FindPending(ctx, res.ProjectID, res.Mention); err == nil {
		return existing, nil
	} else if !nperrors.IsNotFound(err) {
		return nil, err
	}

	item := &Item{
		ID:                uuid.New().String(),
		ProjectID:         res.ProjectID,
		Mention:           res.Mention,
		Candidates:        res.Alternatives,
		ExternalCandidate: res.ExternalCandidate,
		Reasoning:         res.Reasoning,
		Status:            StatusPending,
		CreatedAt:         time.Now().UTC(),
	}

	if err := w.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	if w.pendingGauge != nil {
		w.pendingGauge.Inc()
	}
	w.publish(ctx, ChannelReviewCreated, item)

	w.log.Info("review item registered",
		logging.F("item_id", item.ID),
		logging.F("project_id", item.ProjectID),
		logging.F("mention", item.Mention),
		logging.F("candidates", len(item.Candidates)))
	return item, nil
}

// Confirm records a human decision that the mention refers to chosenEmail.
// The learned mapping is written first: losing a human correction is a
// correctness bug, so any persistence failure surfaces before the item
// transitions. A confirmation for a mention with no tracked item still
// writes the mapping.
func (w *Workflow) Confirm(ctx context.Context, projectID, mention, chosenEmail, decidedBy string) error {
	if chosenEmail == "" {
		return fmt.Errorf("%w: chosen email is required", nperrors.ErrValidation)
	}

	if w.mappings != nil {
		if err := w.mappings.Upsert(ctx, projectID, mention, chosenEmail); err != nil {
			return err
		}
	}

	item, err := w.repo.FindPending(ctx, projectID, mention)
	if nperrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return w.decide(ctx, item, StatusConfirmed, chosenEmail, decidedBy, ChannelReviewConfirmed)
}

// Reject records a human decision that none of the candidates is right. No
// learned mapping is written; the caller presents the full roster for manual
// selection.
func (w *Workflow) Reject(ctx context.Context, projectID, mention, decidedBy string) error {
	item, err := w.repo.FindPending(ctx, projectID, mention)
	if err != nil {
		return err
	}
	return w.decide(ctx, item, StatusRejected, "", decidedBy, ChannelReviewRejected)
}

// ConfirmItem confirms a specific item by ID.
func (w *Workflow) ConfirmItem(ctx context.Context, itemID, chosenEmail, decidedBy string) error {
	if chosenEmail == "" {
		return fmt.Errorf("%w: chosen email is required", nperrors.ErrValidation)
	}

	item, err := w.repo.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Status.Terminal() {
		return fmt.Errorf("%w: review item is %s", nperrors.ErrInvalidState, item.Status)
	}

	if w.mappings != nil {
		if err := w.mappings.Upsert(ctx, item.ProjectID, item.Mention, chosenEmail); err != nil {
			return err
		}
	}
	return w.decide(ctx, item, StatusConfirmed, chosenEmail, decidedBy, ChannelReviewConfirmed)
}

// RejectItem rejects a specific item by ID.
func (w *Workflow) RejectItem(ctx context.Context, itemID, decidedBy string) error {
	item, err := w.repo.Get(ctx, itemID)
	if err != nil {
		return err
	}
	return w.decide(ctx, item, StatusRejected, "", decidedBy, ChannelReviewRejected)
}

func (w *Workflow) decide(ctx context.Context, item *Item, status Status, resolvedEmail, decidedBy, channel string) error {
	if item.Status.Terminal() {
		return fmt.Errorf("%w: review item is %s", nperrors.ErrInvalidState, item.Status)
	}

	now := time.Now().UTC()
	if err := w.repo.UpdateStatus(ctx, item.ID, status, resolvedEmail, decidedBy, now); err != nil {
		return err
	}

	item.Status = status
	item.ResolvedEmail = resolvedEmail
	item.DecidedBy = decidedBy
	item.DecidedAt = &now

	if w.pendingGauge != nil {
		w.pendingGauge.Dec()
	}
	w.publish(ctx, channel, item)

	w.log.Info("review item decided",
		logging.F("item_id", item.ID),
		logging.F("status", string(status)),
		logging.F("resolved_email", resolvedEmail))
	return nil
}

// Sweep expires every pending item older than the window. Expiry is terminal
// and deliberate: downstream systems waiting on a resolution get an explicit
// "unresolved" signal instead of hanging indefinitely. Returns the number of
// items expired.
func (w *Workflow) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-w.window)

	expired, err := w.repo.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for i := range expired {
		if w.pendingGauge != nil {
			w.pendingGauge.Dec()
		}
		if w.expiredTotal != nil {
			w.expiredTotal.Inc()
		}
		w.publish(ctx, ChannelReviewExpired, &expired[i])
	}

	if len(expired) > 0 {
		w.log.Info("review sweep expired items",
			logging.F("count", len(expired)),
			logging.F("cutoff", cutoff))
	}
	return len(expired), nil
}

// BlockingCount reports how many items are still awaiting a decision for a
// project. Expired items are excluded: they must never block downstream
// processing.
func (w *Workflow) BlockingCount(ctx context.Context, projectID string) (int, error) {
	return w.repo.CountPending(ctx, projectID)
}

// ListPending returns the open review queue for a project, oldest first.
func (w *Workflow) ListPending(ctx context.Context, projectID string, limit int) ([]Item, error) {
	return w.repo.ListPending(ctx, projectID, limit)
}

// publish emits an event if a publisher is configured. Event delivery is
// best-effort; the state transition has already been persisted.
func (w *Workflow) publish(ctx context.Context, channel string, item *Item) {
	if w.publisher == nil {
		return
	}
	event := newEvent(string(item.Status), item)
	if err := w.publisher.Publish(ctx, channel, event); err != nil {
		w.log.Warn("review event publish failed",
			logging.F("channel", channel),
			logging.F("item_id", item.ID),
			logging.Err(err))
	}
}
