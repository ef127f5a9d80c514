// Package resolve implements the mention-resolution pipeline. It combines
// exact roster matching, learned human corrections, fuzzy string similarity,
// and optional generative inference into a single calibrated confidence
// score, and routes anything below the auto-resolve threshold to human
// review instead of guessing.
package resolve

// Source indicates which pipeline stage produced a resolution. The values
// are ordered the way the stages run: cheap, high-certainty checks first.
type Source string

const (
	SourceExact      Source = "exact"
	SourceLearned    Source = "learned"
	SourceFuzzy      Source = "fuzzy"
	SourceGenerative Source = "generative"

	// SourceNone tags results where no stage produced a candidate.
	SourceNone Source = "none"
)

// Alternative is a runner-up candidate surfaced for disambiguation.
type Alternative struct {
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
}

// Result is one resolution attempt for one mention.
type Result struct {
	// Mention is the raw text that was resolved.
	Mention string `json:"mention"`

	// ProjectID scopes the resolution.
	ProjectID string `json:"project_id"`

	// MatchedEmail names the matched roster entry. Empty when nothing
	// matched. Non-empty values always name an entry in the roster supplied
	// to Resolve, unless ExternalCandidate is set.
	MatchedEmail string `json:"matched_email,omitempty"`

	// Confidence is the calibrated score in [0,1].
	Confidence float64 `json:"confidence"`

	// Source tags the stage that produced the match.
	Source Source `json:"source"`

	// RequiresReview is true exactly when Confidence is below the
	// auto-resolve threshold.
	RequiresReview bool `json:"requires_review"`

	// ExternalCandidate marks a person seen via corroboration but absent
	// from the roster, pending project-owner confirmation.
	ExternalCandidate bool `json:"external_candidate,omitempty"`

	// Alternatives are the review candidates, ordered by score with the
	// matched entry first when one exists, so a human reviewing the result
	// is never presented a bare rejection.
	Alternatives []Alternative `json:"alternatives,omitempty"`

	// Reasoning is free text from the generative stage, surfaced for review
	// only. It never affects Confidence.
	Reasoning string `json:"reasoning,omitempty"`

	// CorroboratedBy lists the verification sources that confirmed the
	// match.
	CorroboratedBy []string `json:"corroborated_by,omitempty"`
}
