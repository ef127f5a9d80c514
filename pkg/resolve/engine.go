package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
	"github.com/quorumhq/nameplate/pkg/inference"
	"github.com/quorumhq/nameplate/pkg/learned"
	"github.com/quorumhq/nameplate/pkg/logging"
	"github.com/quorumhq/nameplate/pkg/roster"
	"github.com/quorumhq/nameplate/pkg/verify"
)

// Engine orchestrates the resolution pipeline. Stage order per mention is
// strict: exact, learned, fuzzy, generative, verification. Later stages
// assume earlier ones failed to resolve, so the order is never changed or
// parallelized within one mention. Mentions in a batch are independent and
// run concurrently up to the configured bound.
//
// The learned store is the only shared mutable resource, and the engine only
// reads it; writes happen through the review workflow on explicit human
// confirmation.
type Engine struct {
	cfg       Config
	store     learned.Store
	provider  inference.Provider
	verifiers []verify.Verifier
	log       logging.Logger
	metrics   *Metrics
	tracer    *tracer
}

// NewEngine creates an engine. The learned store, inference provider, and
// verifiers are all optional: with a nil store the learned stage is skipped,
// with a nil provider the generative stage is skipped, and with no verifiers
// confidence simply never exceeds the single-source cap.
func NewEngine(
	cfg Config,
	store learned.Store,
	provider inference.Provider,
	verifiers []verify.Verifier,
	log logging.Logger,
) *Engine {
	if err := cfg.Validate(); err != nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logging.NewNop()
	}

	return &Engine{
		cfg:       cfg,
		store:     store,
		provider:  provider,
		verifiers: verifiers,
		log:       log,
		tracer:    newTracer(),
	}
}

// SetMetrics attaches Prometheus metrics. Safe to leave unset.
func (e *Engine) SetMetrics(m *Metrics) {
	e.metrics = m
}

// Resolve resolves one mention against the roster for a project.
//
// A "no match" outcome is not an error: it comes back as a Result with
// RequiresReview set and alternatives populated. The returned error is
// non-nil only for cancellation, so a resolution either completes with a
// full Result or was not attempted.
func (e *Engine) Resolve(ctx context.Context, mention string, entries []roster.Entry, projectID string) (*Result, error) {
	ctx, span := e.tracer.startResolve(ctx, projectID, mention)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := e.resolveStages(ctx, mention, entries, projectID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.RequiresReview = res.Confidence < AutoResolveThreshold
	if res.RequiresReview && len(res.Alternatives) == 0 {
		res.Alternatives = e.alternativesFor(mention, res.MatchedEmail, entries)
	}

	annotateResult(span, res)
	e.metrics.observeResult(res)
	e.log.Debug("mention resolved",
		logging.F("project_id", projectID),
		logging.F("mention", mention),
		logging.F("source", string(res.Source)),
		logging.F("confidence", res.Confidence),
		logging.F("requires_review", res.RequiresReview))

	return res, nil
}

// resolveStages runs stages 1-5 and returns a result with Confidence and
// Source set; the caller applies the review decision.
func (e *Engine) resolveStages(ctx context.Context, mention string, entries []roster.Entry, projectID string) *Result {
	res := &Result{
		Mention:   mention,
		ProjectID: projectID,
		Source:    SourceNone,
	}

	// Stage 1: exact. Certainty from the canonical roster itself needs no
	// corroboration, so an exact hit skips verification entirely.
	if matches := exactMatches(mention, entries); len(matches) == 1 {
		res.MatchedEmail = matches[0].Email
		res.Confidence = 1.0
		res.Source = SourceExact
		return res
	} else if len(matches) > 1 {
		// Two roster entries carry the same name. Never pick one silently.
		res.Source = SourceExact
		for _, m := range matches {
			res.Alternatives = append(res.Alternatives, Alternative{
				Email:       m.Email,
				DisplayName: m.DisplayName,
				Score:       1.0,
			})
		}
		return res
	}

	// Stage 2: learned. A prior human confirmation for this exact mention in
	// this project short-circuits everything below.
	if m := e.lookupLearned(ctx, projectID, mention); m != nil {
		if entry := roster.FindByEmail(entries, m.ResolvedEmail); entry != nil {
			res.MatchedEmail = entry.Email
			res.Confidence = LearnedConfidence
			res.Source = SourceLearned
			return res
		}
		// The confirmed person is no longer on the roster, which is always
		// authoritative at call time. Fall through to the live stages.
		e.log.Warn("learned mapping points outside roster",
			logging.F("project_id", projectID),
			logging.F("mention", mention),
			logging.F("resolved_email", m.ResolvedEmail))
	}

	// Stage 3: fuzzy.
	candidates := fuzzyCandidates(mention, entries)
	top, second := topTwo(candidates)

	conclusive := top != nil && top.score >= e.cfg.FuzzyThreshold &&
		(second == nil || top.score-second.score > e.cfg.AmbiguityMargin)
	ambiguous := top != nil && top.score >= e.cfg.FuzzyThreshold && !conclusive

	if conclusive {
		res.MatchedEmail = top.entry.Email
		res.Confidence = capSingleSource(float64(top.score) / 100)
		res.Source = SourceFuzzy
	} else {
		// Stage 4: generative, only when fuzzy was inconclusive or ambiguous
		// and a provider was supplied.
		if inf := e.infer(ctx, mention, entries, candidates, ambiguous); inf != nil {
			res.MatchedEmail = inf.CandidateEmail
			res.Confidence = capSingleSource(inf.Confidence)
			res.Source = SourceGenerative
			res.Reasoning = inf.Reasoning
		} else if ambiguous {
			// Near-tied candidates with nothing to break the tie: review
			// with both surfaced rather than silently picking one.
			res.Source = SourceFuzzy
			res.Alternatives = e.tiedAlternatives(candidates)
			return res
		} else {
			return res
		}
	}

	// Stage 5: verification fan-out, only for results from stages 3-4.
	corroborated := e.verifyFanOut(ctx, projectID, res.MatchedEmail)
	if len(corroborated) > 0 {
		res.Confidence = boost(res.Confidence, len(corroborated))
		res.CorroboratedBy = corroborated
	}

	return res
}

// exactMatches returns every roster entry whose display name or alias equals
// the mention after normalization.
func exactMatches(mention string, entries []roster.Entry) []roster.Entry {
	want := roster.Normalize(mention)
	if want == "" {
		return nil
	}

	var matches []roster.Entry
	for _, entry := range entries {
		for _, name := range entry.Names() {
			if roster.Normalize(name) == want {
				matches = append(matches, entry)
				break
			}
		}
	}
	return matches
}

// lookupLearned consults the learned-mapping store. Read failures degrade to
// a miss with a warning; only writes are load-bearing for correctness.
func (e *Engine) lookupLearned(ctx context.Context, projectID, mention string) *learned.Mapping {
	if e.store == nil {
		return nil
	}

	m, err := e.store.Get(ctx, projectID, mention)
	if err != nil {
		if !nperrors.IsNotFound(err) {
			e.log.Warn("learned store lookup failed",
				logging.F("project_id", projectID),
				logging.F("mention", mention),
				logging.Err(err))
		}
		return nil
	}
	return m
}

// infer consults the generative provider. Any failure, decline, or answer
// outside the roster yields nil, which the pipeline treats as "fall through
// to review", never as an unsupported resolution.
func (e *Engine) infer(ctx context.Context, mention string, entries []roster.Entry, candidates []scoredEntry, ambiguous bool) *inference.Inference {
	if e.provider == nil {
		return nil
	}

	ctx, span := e.tracer.startInference(ctx, e.provider.Name())
	defer span.End()

	req := inference.Request{
		Mention: mention,
		Roster:  entries,
		Context: disambiguationContext(candidates, ambiguous),
	}

	inf, err := e.provider.Infer(ctx, req)
	if err != nil {
		e.metrics.observeInferenceFailure()
		e.log.Warn("generative inference failed",
			logging.F("mention", mention),
			logging.F("provider", e.provider.Name()),
			logging.Err(err))
		return nil
	}
	if inf == nil {
		e.metrics.observeInferenceFailure()
		return nil
	}

	if roster.FindByEmail(entries, inf.CandidateEmail) == nil {
		e.log.Warn("inference answered outside roster",
			logging.F("mention", mention),
			logging.F("candidate", inf.CandidateEmail))
		return nil
	}
	return inf
}

// disambiguationContext summarizes the fuzzy stage's findings for the
// inference provider.
func disambiguationContext(candidates []scoredEntry, ambiguous bool) []string {
	var out []string
	if ambiguous {
		out = append(out, "fuzzy matching found near-tied candidates; break the tie or decline")
	}
	for i, c := range candidates {
		if i >= 3 || c.score == 0 {
			break
		}
		out = append(out, fmt.Sprintf("fuzzy candidate %q scored %d/100", c.entry.DisplayName, c.score))
	}
	return out
}

// verifyFanOut queries every configured verifier concurrently and returns
// the names of those that corroborated the match. Failures and timeouts are
// "not consulted": the result is identical whether a verifier is absent or
// unreachable.
func (e *Engine) verifyFanOut(ctx context.Context, projectID, email string) []string {
	if len(e.verifiers) == 0 || email == "" {
		return nil
	}

	ctx, span := e.tracer.startVerification(ctx, len(e.verifiers))
	defer span.End()

	results := make([]bool, len(e.verifiers))
	var wg sync.WaitGroup
	for i, v := range e.verifiers {
		wg.Add(1)
		go func(i int, v verify.Verifier) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, e.cfg.VerifyTimeout)
			defer cancel()

			ok, err := v.Verify(callCtx, projectID, email)
			if err != nil {
				e.metrics.observeVerifierFailure(v.Name())
				e.log.Debug("verifier not consulted",
					logging.F("verifier", v.Name()),
					logging.F("email", email),
					logging.Err(err))
				return
			}
			results[i] = ok
		}(i, v)
	}
	wg.Wait()

	var corroborated []string
	for i, ok := range results {
		if ok {
			corroborated = append(corroborated, e.verifiers[i].Name())
		}
	}
	return corroborated
}

// topTwo returns the two highest-scoring candidates, either of which may be
// nil.
func topTwo(candidates []scoredEntry) (top, second *scoredEntry) {
	if len(candidates) > 0 {
		top = &candidates[0]
	}
	if len(candidates) > 1 {
		second = &candidates[1]
	}
	return top, second
}

// tiedAlternatives returns every candidate within the ambiguity margin of
// the leader, ordered by score.
func (e *Engine) tiedAlternatives(candidates []scoredEntry) []Alternative {
	if len(candidates) == 0 {
		return nil
	}

	leader := candidates[0].score
	var out []Alternative
	for _, c := range candidates {
		if leader-c.score > e.cfg.AmbiguityMargin {
			break
		}
		out = append(out, Alternative{
			Email:       c.entry.Email,
			DisplayName: c.entry.DisplayName,
			Score:       float64(c.score) / 100,
		})
		if len(out) >= e.cfg.MaxAlternatives {
			break
		}
	}
	return out
}

// alternativesFor assembles the candidates for a review result: the matched
// entry first when one exists, then fuzzy candidates with a nonzero score and
// roster entries sharing the mention's first token, so a human is never
// presented a bare rejection.
func (e *Engine) alternativesFor(mention, matchedEmail string, entries []roster.Entry) []Alternative {
	candidates := fuzzyCandidates(mention, entries)

	firstToken := ""
	if tokens := roster.Tokens(mention); len(tokens) > 0 {
		firstToken = tokens[0]
	}

	seen := make(map[string]bool)
	var out []Alternative
	if entry := roster.FindByEmail(entries, matchedEmail); entry != nil {
		seen[strings.ToLower(matchedEmail)] = true
		score := 0
		for _, c := range candidates {
			if strings.EqualFold(c.entry.Email, matchedEmail) {
				score = c.score
				break
			}
		}
		out = append(out, Alternative{
			Email:       entry.Email,
			DisplayName: entry.DisplayName,
			Score:       float64(score) / 100,
		})
	}

	for _, c := range candidates {
		if len(out) >= e.cfg.MaxAlternatives {
			break
		}
		key := strings.ToLower(c.entry.Email)
		if seen[key] {
			continue
		}

		sharesToken := false
		if firstToken != "" {
			for _, name := range c.entry.Names() {
				for _, t := range roster.Tokens(name) {
					if t == firstToken {
						sharesToken = true
						break
					}
				}
				if sharesToken {
					break
				}
			}
		}
		if !sharesToken && c.score < e.cfg.FuzzyThreshold/2 {
			continue
		}

		seen[key] = true
		out = append(out, Alternative{
			Email:       c.entry.Email,
			DisplayName: c.entry.DisplayName,
			Score:       float64(c.score) / 100,
		})
	}
	return out
}
