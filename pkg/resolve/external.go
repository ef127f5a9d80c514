package resolve

import (
	"context"
	"strings"

	"github.com/quorumhq/nameplate/pkg/logging"
	"github.com/quorumhq/nameplate/pkg/roster"
	"github.com/quorumhq/nameplate/pkg/verify"
)

// ExternalCandidates asks every participant-listing verifier who it has seen
// on the project and reports the people absent from the roster. These are
// roster-hygiene findings for the project owner, not resolution failures:
// each comes back as an external-candidate result requiring review.
func (e *Engine) ExternalCandidates(ctx context.Context, entries []roster.Entry, projectID string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Result

	for _, v := range e.verifiers {
		lister, ok := v.(verify.ParticipantLister)
		if !ok {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, e.cfg.VerifyTimeout)
		participants, err := lister.Participants(callCtx, projectID)
		cancel()
		if err != nil {
			// Same degradation as verification: an unreachable source is
			// "not consulted".
			e.log.Debug("participant listing not consulted",
				logging.F("verifier", v.Name()),
				logging.Err(err))
			continue
		}

		for _, email := range participants {
			key := strings.ToLower(strings.TrimSpace(email))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true

			if roster.FindByEmail(entries, email) != nil {
				continue
			}
			out = append(out, Result{
				Mention:           email,
				ProjectID:         projectID,
				MatchedEmail:      email,
				Source:            SourceNone,
				RequiresReview:    true,
				ExternalCandidate: true,
				CorroboratedBy:    []string{v.Name()},
			})
		}
	}

	return out, nil
}
