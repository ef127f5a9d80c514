// Package inference defines the boundary to an external generative reasoning
// service. The pipeline consults it only when cheaper stages are inconclusive:
// initials, heavy nicknames ("Bob" for "Robert"), and transcription typos are
// the cases it exists to catch. Its answer is one uncorroborated signal; the
// pipeline caps its confidence exactly like a fuzzy match, and any failure
// here falls through to human review rather than an unsupported resolution.
package inference

import (
	"context"

	"github.com/quorumhq/nameplate/pkg/roster"
)

// Request carries everything a provider needs to reason about one mention.
type Request struct {
	// Mention is the raw text being resolved.
	Mention string `json:"mention"`

	// Roster is the full candidate roster for the project.
	Roster []roster.Entry `json:"roster"`

	// Context carries disambiguation hints, such as alternate spellings
	// already ruled out or near-tied fuzzy candidates.
	Context []string `json:"context,omitempty"`
}

// Inference is a provider's answer for one mention.
type Inference struct {
	// CandidateEmail names the roster entry the provider believes the
	// mention refers to. Empty means the provider declined to answer.
	CandidateEmail string `json:"candidate_email"`

	// Confidence is the provider's own estimate in [0,1]. The pipeline caps
	// it before use; a provider can never authorize an unreviewed action on
	// its own.
	Confidence float64 `json:"confidence"`

	// Reasoning is free text surfaced to reviewers. It never affects the
	// numeric confidence calculation.
	Reasoning string `json:"reasoning,omitempty"`
}

// Provider is the interface to a generative inference backend.
type Provider interface {
	// Name returns the provider identifier for logs and traces.
	Name() string

	// Infer asks the backend which roster entry the mention refers to.
	// A nil Inference with nil error means the provider declined.
	Infer(ctx context.Context, req Request) (*Inference, error)

	// IsAvailable checks whether the backend is currently reachable.
	IsAvailable(ctx context.Context) bool

	// Close releases provider resources.
	Close() error
}
