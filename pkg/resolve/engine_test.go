package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumhq/nameplate/pkg/inference"
	"github.com/quorumhq/nameplate/pkg/learned"
	"github.com/quorumhq/nameplate/pkg/roster"
	"github.com/quorumhq/nameplate/pkg/verify"
)

const testProject = "proj-1"

func testRoster() []roster.Entry {
	return []roster.Entry{
		{DisplayName: "John Smith", Email: "john.smith@corp.com", Aliases: []string{"Jon", "Johnny"}},
		{DisplayName: "John Davis", Email: "john.davis@corp.com"},
		{DisplayName: "Sarah Chen", Email: "sarah.chen@corp.com", Aliases: []string{"Dr. Chen"}},
		{DisplayName: "Robert Wilson", Email: "robert.wilson@corp.com"},
	}
}

// fakeProvider returns a canned inference.
type fakeProvider struct {
	inf   *inference.Inference
	err   error
	calls int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Infer(_ context.Context, _ inference.Request) (*inference.Inference, error) {
	p.calls++
	return p.inf, p.err
}

func (p *fakeProvider) IsAvailable(_ context.Context) bool { return true }
func (p *fakeProvider) Close() error                       { return nil }

func newTestEngine(t *testing.T, store learned.Store, provider inference.Provider, verifiers ...verify.Verifier) *Engine {
	t.Helper()
	return NewEngine(DefaultConfig(), store, provider, verifiers, nil)
}

func alwaysVerifier(name string, ok bool) verify.Verifier {
	return verify.Func{
		SourceName: name,
		VerifyFn: func(context.Context, string, string) (bool, error) {
			return ok, nil
		},
	}
}

func failingVerifier(name string) verify.Verifier {
	return verify.Func{
		SourceName: name,
		VerifyFn: func(context.Context, string, string) (bool, error) {
			return false, errors.New("unreachable")
		},
	}
}

func TestResolveExactMatch(t *testing.T) {
	e := newTestEngine(t, nil, nil, alwaysVerifier("chat", true))

	res, err := e.Resolve(context.Background(), "Sarah Chen", testRoster(), testProject)
	require.NoError(t, err)

	assert.Equal(t, "sarah.chen@corp.com", res.MatchedEmail)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, SourceExact, res.Source)
	assert.False(t, res.RequiresReview)
	// Exact matches skip verification, so no corroboration is recorded.
	assert.Empty(t, res.CorroboratedBy)
}

func TestResolveExactMatchViaAlias(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	res, err := e.Resolve(context.Background(), "Dr. Chen", testRoster(), testProject)
	require.NoError(t, err)
	assert.Equal(t, "sarah.chen@corp.com", res.MatchedEmail)
	assert.Equal(t, SourceExact, res.Source)
}

func TestResolveExactMatchNormalizesAccents(t *testing.T) {
	entries := []roster.Entry{
		{DisplayName: "José García", Email: "jose.garcia@corp.com"},
	}
	e := newTestEngine(t, nil, nil)

	res, err := e.Resolve(context.Background(), "jose garcia", entries, testProject)
	require.NoError(t, err)
	assert.Equal(t, "jose.garcia@corp.com", res.MatchedEmail)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestResolveDuplicateExactNamesForceReview(t *testing.T) {
	entries := []roster.Entry{
		{DisplayName: "Alex Kim", Email: "alex.kim@corp.com"},
		{DisplayName: "Alex Kim", Email: "akim@corp.com"},
	}
	e := newTestEngine(t, nil, nil)

	res, err := e.Resolve(context.Background(), "Alex Kim", entries, testProject)
	require.NoError(t, err)

	assert.True(t, res.RequiresReview)
	assert.Empty(t, res.MatchedEmail)
	assert.Equal(t, SourceExact, res.Source)
	require.Len(t, res.Alternatives, 2)
	assert.Equal(t, "alex.kim@corp.com", res.Alternatives[0].Email)
	assert.Equal(t, "akim@corp.com", res.Alternatives[1].Email)
}

func TestResolveLearnedMapping(t *testing.T) {
	store := learned.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), testProject, "John", "john.davis@corp.com"))

	e := newTestEngine(t, store, nil, alwaysVerifier("chat", true))

	res, err := e.Resolve(context.Background(), "John", testRoster(), testProject)
	require.NoError(t, err)

	assert.Equal(t, "john.davis@corp.com", res.MatchedEmail)
	assert.Equal(t, LearnedConfidence, res.Confidence)
	assert.Equal(t, SourceLearned, res.Source)
	assert.False(t, res.RequiresReview)
	assert.Empty(t, res.CorroboratedBy)
}

func TestResolveLearnedMappingScopedPerProject(t *testing.T) {
	store := learned.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), "other-project", "John", "john.davis@corp.com"))

	e := newTestEngine(t, store, nil)

	res, err := e.Resolve(context.Background(), "John", testRoster(), testProject)
	require.NoError(t, err)
	assert.NotEqual(t, SourceLearned, res.Source)
}

func TestResolveLearnedMappingOutsideRosterFallsThrough(t *testing.T) {
	store := learned.NewMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), testProject, "Jon Smith", "departed@corp.com"))

	e := newTestEngine(t, store, nil)

	// The confirmed person left the roster, so the live stages take over.
	res, err := e.Resolve(context.Background(), "Jon Smith", testRoster(), testProject)
	require.NoError(t, err)
	assert.Equal(t, SourceFuzzy, res.Source)
	assert.Equal(t, "john.smith@corp.com", res.MatchedEmail)
}

func TestResolveFuzzyConclusive(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	res, err := e.Resolve(context.Background(), "Jon Smith", testRoster(), testProject)
	require.NoError(t, err)

	assert.Equal(t, "john.smith@corp.com", res.MatchedEmail)
	assert.Equal(t, SourceFuzzy, res.Source)
	// Raw score 90/100 is capped at the single-source ceiling, which is
	// exactly the auto-resolve threshold.
	assert.Equal(t, SingleSourceCap, res.Confidence)
	assert.False(t, res.RequiresReview)
}

func TestResolveFuzzyWithCorroboration(t *testing.T) {
	e := newTestEngine(t, nil, nil, alwaysVerifier("chat", true), alwaysVerifier("calendar", false))

	res, err := e.Resolve(context.Background(), "Jon Smith", testRoster(), testProject)
	require.NoError(t, err)

	assert.InDelta(t, 0.90, res.Confidence, 1e-9)
	assert.Equal(t, []string{"chat"}, res.CorroboratedBy)
	assert.False(t, res.RequiresReview)
}

func TestResolveVerifierFailureIsNotConsulted(t *testing.T) {
	e := newTestEngine(t, nil, nil, failingVerifier("chat"))

	res, err := e.Resolve(context.Background(), "Jon Smith", testRoster(), testProject)
	require.NoError(t, err)

	// Identical outcome to having no verifier at all.
	assert.Equal(t, SingleSourceCap, res.Confidence)
	assert.Empty(t, res.CorroboratedBy)
	assert.False(t, res.RequiresReview)
}

func TestResolveBelowThresholdRequiresReviewWithAlternatives(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	// "John" matches the alias "Jon" at 75, conclusive but uncorroborated.
	res, err := e.Resolve(context.Background(), "John", testRoster(), testProject)
	require.NoError(t, err)

	assert.True(t, res.RequiresReview)
	assert.Equal(t, SourceFuzzy, res.Source)

	// Both Johns are offered so the reviewer never sees a bare rejection,
	// with the matched entry at the head.
	require.NotEmpty(t, res.Alternatives)
	assert.Equal(t, "john.smith@corp.com", res.Alternatives[0].Email)
	emails := make([]string, 0, len(res.Alternatives))
	for _, a := range res.Alternatives {
		emails = append(emails, a.Email)
	}
	assert.Contains(t, emails, "john.davis@corp.com")
}

func TestResolveSingleCandidateReviewKeepsMatch(t *testing.T) {
	entries := []roster.Entry{
		{DisplayName: "John Smith", Email: "john.smith@corp.com"},
	}
	e := newTestEngine(t, nil, nil)

	// Scores 80: a match, but below the auto-resolve threshold.
	res, err := e.Resolve(context.Background(), "Jon Smit", entries, testProject)
	require.NoError(t, err)

	assert.True(t, res.RequiresReview)
	assert.Equal(t, "john.smith@corp.com", res.MatchedEmail)
	require.Len(t, res.Alternatives, 1)
	assert.Equal(t, "john.smith@corp.com", res.Alternatives[0].Email)
	assert.InDelta(t, 0.80, res.Alternatives[0].Score, 1e-9)
}

func TestResolveGenerativeReviewKeepsMatch(t *testing.T) {
	provider := &fakeProvider{inf: &inference.Inference{
		CandidateEmail: "robert.wilson@corp.com",
		Confidence:     0.5,
		Reasoning:      "weak nickname signal",
	}}
	e := newTestEngine(t, nil, provider)

	res, err := e.Resolve(context.Background(), "Bob", testRoster(), testProject)
	require.NoError(t, err)

	assert.True(t, res.RequiresReview)
	require.NotEmpty(t, res.Alternatives)
	assert.Equal(t, "robert.wilson@corp.com", res.Alternatives[0].Email)
}

func TestResolveAmbiguousTieForcesReview(t *testing.T) {
	entries := []roster.Entry{
		{DisplayName: "Chris Park", Email: "chris.park@corp.com"},
		{DisplayName: "Chris Parks", Email: "chris.parks@corp.com"},
	}
	e := newTestEngine(t, nil, nil)

	res, err := e.Resolve(context.Background(), "Chris Parkz", entries, testProject)
	require.NoError(t, err)

	assert.True(t, res.RequiresReview)
	assert.Empty(t, res.MatchedEmail)
	assert.Equal(t, SourceFuzzy, res.Source)
	require.Len(t, res.Alternatives, 2)
}

func TestResolveGenerativeBreaksNickname(t *testing.T) {
	provider := &fakeProvider{inf: &inference.Inference{
		CandidateEmail: "robert.wilson@corp.com",
		Confidence:     0.9,
		Reasoning:      "Bob is a common nickname for Robert",
	}}
	e := newTestEngine(t, nil, provider)

	res, err := e.Resolve(context.Background(), "Bob", testRoster(), testProject)
	require.NoError(t, err)

	assert.Equal(t, "robert.wilson@corp.com", res.MatchedEmail)
	assert.Equal(t, SourceGenerative, res.Source)
	assert.Equal(t, SingleSourceCap, res.Confidence)
	assert.False(t, res.RequiresReview)
	assert.Equal(t, "Bob is a common nickname for Robert", res.Reasoning)
	assert.Equal(t, 1, provider.calls)
}

func TestResolveGenerativeNotConsultedAfterConclusiveFuzzy(t *testing.T) {
	provider := &fakeProvider{inf: &inference.Inference{
		CandidateEmail: "john.davis@corp.com",
		Confidence:     0.9,
	}}
	e := newTestEngine(t, nil, provider)

	res, err := e.Resolve(context.Background(), "Jon Smith", testRoster(), testProject)
	require.NoError(t, err)

	assert.Equal(t, SourceFuzzy, res.Source)
	assert.Zero(t, provider.calls)
}

func TestResolveGenerativeDecline(t *testing.T) {
	e := newTestEngine(t, nil, &fakeProvider{})

	res, err := e.Resolve(context.Background(), "Zzyzx", testRoster(), testProject)
	require.NoError(t, err)

	assert.True(t, res.RequiresReview)
	assert.Empty(t, res.MatchedEmail)
	assert.Equal(t, SourceNone, res.Source)
}

func TestResolveGenerativeAnswerOutsideRosterDiscarded(t *testing.T) {
	provider := &fakeProvider{inf: &inference.Inference{
		CandidateEmail: "stranger@elsewhere.com",
		Confidence:     0.9,
	}}
	e := newTestEngine(t, nil, provider)

	res, err := e.Resolve(context.Background(), "Bob", testRoster(), testProject)
	require.NoError(t, err)

	assert.True(t, res.RequiresReview)
	assert.Empty(t, res.MatchedEmail)
}

func TestResolveGenerativeFailureFallsThroughToReview(t *testing.T) {
	provider := &fakeProvider{err: errors.New("provider down")}
	e := newTestEngine(t, nil, provider)

	res, err := e.Resolve(context.Background(), "Bob", testRoster(), testProject)
	require.NoError(t, err)
	assert.True(t, res.RequiresReview)
}

func TestResolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, nil, nil)
	_, err := e.Resolve(ctx, "Sarah Chen", testRoster(), testProject)
	require.ErrorIs(t, err, context.Canceled)
}

// listingVerifier implements both Verifier and ParticipantLister.
type listingVerifier struct {
	name         string
	participants []string
}

func (v listingVerifier) Name() string { return v.name }

func (v listingVerifier) Verify(context.Context, string, string) (bool, error) {
	return false, nil
}

func (v listingVerifier) Participants(context.Context, string) ([]string, error) {
	return v.participants, nil
}

func TestExternalCandidates(t *testing.T) {
	v := listingVerifier{
		name:         "chat",
		participants: []string{"sarah.chen@corp.com", "outsider@vendor.com", "OUTSIDER@vendor.com"},
	}
	e := newTestEngine(t, nil, nil, v)

	out, err := e.ExternalCandidates(context.Background(), testRoster(), testProject)
	require.NoError(t, err)

	// Roster members and duplicates are filtered out.
	require.Len(t, out, 1)
	assert.Equal(t, "outsider@vendor.com", out[0].MatchedEmail)
	assert.True(t, out[0].ExternalCandidate)
	assert.True(t, out[0].RequiresReview)
	assert.Equal(t, []string{"chat"}, out[0].CorroboratedBy)
}

func TestExternalCandidatesSkipsPlainVerifiers(t *testing.T) {
	e := newTestEngine(t, nil, nil, alwaysVerifier("calendar", true))

	out, err := e.ExternalCandidates(context.Background(), testRoster(), testProject)
	require.NoError(t, err)
	assert.Empty(t, out)
}
