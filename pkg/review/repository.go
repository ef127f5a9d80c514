package review

import (
	"context"
	"time"
)

// Repository is the data access interface for review items.
type Repository interface {
	// Create stores a new pending item.
	Create(ctx context.Context, item *Item) error

	// Get retrieves an item by ID, or pkg/errors.ErrNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// FindPending returns the pending item for (projectID, normalized
	// mention), or pkg/errors.ErrNotFound.
	FindPending(ctx context.Context, projectID, mention string) (*Item, error)

	// ListPending returns pending items for a project, oldest first. A
	// zero limit means no limit.
	ListPending(ctx context.Context, projectID string, limit int) ([]Item, error)

	// UpdateStatus transitions an item. Implementations persist the new
	// status, decision time, and resolved email as given; state-machine
	// rules are enforced by the workflow.
	UpdateStatus(ctx context.Context, id string, status Status, resolvedEmail, decidedBy string, decidedAt time.Time) error

	// ExpireOlderThan marks every pending item created before the cutoff
	// as expired and returns the items it transitioned.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]Item, error)

	// CountPending returns the number of pending items for a project.
	// Expired items are terminal and never counted.
	CountPending(ctx context.Context, projectID string) (int, error)
}
