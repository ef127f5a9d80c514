package learned

import (
	"context"
	"sync"
	"time"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
)

// MemoryStore implements Store in memory. Used by tests and by the CLI when
// no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]Mapping
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mappings: make(map[string]Mapping)}
}

func storeKey(projectID, mentionText string) string {
	return projectID + "\x00" + Key(mentionText)
}

// Get retrieves the mapping for (projectID, mentionText).
func (s *MemoryStore) Get(_ context.Context, projectID, mentionText string) (*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[storeKey(projectID, mentionText)]
	if !ok {
		return nil, nperrors.ErrNotFound
	}
	out := m
	return &out, nil
}

// Upsert records a confirmation, replacing any prior mapping for the key.
func (s *MemoryStore) Upsert(_ context.Context, projectID, mentionText, resolvedEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := storeKey(projectID, mentionText)
	m, ok := s.mappings[key]
	if !ok {
		m = Mapping{
			ProjectID:   projectID,
			MentionText: Key(mentionText),
			CreatedAt:   now,
		}
	}
	m.ResolvedEmail = resolvedEmail
	m.UpdatedAt = now
	s.mappings[key] = m
	return nil
}
