package review

import (
	"context"
	"sort"
	"sync"
	"time"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
	"github.com/quorumhq/nameplate/pkg/roster"
)

// MemoryRepository implements Repository in memory. Used by tests and by the
// CLI when no database is configured.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*Item)}
}

// Create stores a new pending item.
func (r *MemoryRepository) Create(_ context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *item
	r.items[item.ID] = &cp
	return nil
}

// Get retrieves an item by ID.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, nperrors.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

// FindPending returns the pending item for (projectID, normalized mention).
func (r *MemoryRepository) FindPending(_ context.Context, projectID, mention string) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := roster.Normalize(mention)
	for _, item := range r.items {
		if item.Status == StatusPending && item.ProjectID == projectID &&
			roster.Normalize(item.Mention) == want {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nperrors.ErrNotFound
}

// ListPending returns pending items for a project, oldest first.
func (r *MemoryRepository) ListPending(_ context.Context, projectID string, limit int) ([]Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Item
	for _, item := range r.items {
		if item.Status == StatusPending && item.ProjectID == projectID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateStatus transitions an item.
func (r *MemoryRepository) UpdateStatus(_ context.Context, id string, status Status, resolvedEmail, decidedBy string, decidedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nperrors.ErrNotFound
	}
	item.Status = status
	item.ResolvedEmail = resolvedEmail
	item.DecidedBy = decidedBy
	item.DecidedAt = &decidedAt
	return nil
}

// ExpireOlderThan marks stale pending items expired.
func (r *MemoryRepository) ExpireOlderThan(_ context.Context, cutoff time.Time) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var expired []Item
	for _, item := range r.items {
		if item.Status == StatusPending && item.CreatedAt.Before(cutoff) {
			item.Status = StatusExpired
			item.DecidedAt = &now
			expired = append(expired, *item)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].CreatedAt.Before(expired[j].CreatedAt)
	})
	return expired, nil
}

// CountPending returns the number of pending items for a project.
func (r *MemoryRepository) CountPending(_ context.Context, projectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, item := range r.items {
		if item.Status == StatusPending && item.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}
