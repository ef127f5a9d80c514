// Package learned persists human-confirmed mention corrections. A mapping is
// created or overwritten only on explicit confirmation and is scoped per
// project: the same spoken name may resolve differently across projects.
// Mappings never auto-expire; a newer confirmation for the same key fully
// supersedes the prior one.
package learned

import (
	"context"
	"time"

	"github.com/quorumhq/nameplate/pkg/roster"
)

// Mapping is a persisted human-confirmed correction.
type Mapping struct {
	ProjectID     string    `json:"project_id"`
	MentionText   string    `json:"mention_text"` // normalized
	ResolvedEmail string    `json:"resolved_email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store is the key-value interface for learned mappings, keyed by
// (project_id, normalized mention text).
type Store interface {
	// Get returns the mapping for the key, or pkg/errors.ErrNotFound.
	Get(ctx context.Context, projectID, mentionText string) (*Mapping, error)

	// Upsert records a confirmation, replacing any prior mapping for the
	// key. Failures must be surfaced to the caller: a silently-lost human
	// correction is a correctness bug.
	Upsert(ctx context.Context, projectID, mentionText, resolvedEmail string) error
}

// Key normalizes a mention into the store's lookup key.
func Key(mentionText string) string {
	return roster.Normalize(mentionText)
}
