// Package review tracks resolutions awaiting a human decision. Every item
// moves through an explicit state machine, pending to confirmed, rejected,
// or expired, so the transitions are independently testable and an untouched
// item can never block downstream processing forever.
package review

import (
	"time"

	"github.com/quorumhq/nameplate/pkg/resolve"
)

// Status is the review state of an item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// DefaultExpiryWindow is how long an item may sit pending before the sweep
// marks it expired.
const DefaultExpiryWindow = 7 * 24 * time.Hour

// Item is a mention awaiting human decision.
type Item struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	// Mention is the raw text that could not be auto-resolved.
	Mention string `json:"mention"`

	// Candidates are the ranked alternatives surfaced by the pipeline.
	Candidates []resolve.Alternative `json:"candidates,omitempty"`

	// ExternalCandidate marks roster-hygiene items: a person seen via
	// corroboration but absent from the roster.
	ExternalCandidate bool `json:"external_candidate,omitempty"`

	// Reasoning is generative-stage free text, shown to the reviewer.
	Reasoning string `json:"reasoning,omitempty"`

	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`

	// ResolvedEmail is set on confirmation.
	ResolvedEmail string `json:"resolved_email,omitempty"`

	// DecidedBy records who confirmed or rejected the item.
	DecidedBy string `json:"decided_by,omitempty"`
}
