package learned

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "proj-1", "Jon", "john.smith@corp.com"))

	m, err := s.Get(ctx, "proj-1", "Jon")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", m.ProjectID)
	assert.Equal(t, "jon", m.MentionText)
	assert.Equal(t, "john.smith@corp.com", m.ResolvedEmail)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestMemoryStoreGetMiss(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "proj-1", "nobody")
	require.ErrorIs(t, err, nperrors.ErrNotFound)
}

func TestMemoryStoreKeyNormalization(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "proj-1", "José", "jose.garcia@corp.com"))

	// Variants of the same spoken name hit the same mapping.
	for _, mention := range []string{"jose", "JOSÉ", "  Jose  "} {
		m, err := s.Get(ctx, "proj-1", mention)
		require.NoError(t, err, "mention %q", mention)
		assert.Equal(t, "jose.garcia@corp.com", m.ResolvedEmail)
	}
}

func TestMemoryStoreUpsertSupersedes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "proj-1", "Jon", "john.smith@corp.com"))
	require.NoError(t, s.Upsert(ctx, "proj-1", "Jon", "john.davis@corp.com"))

	m, err := s.Get(ctx, "proj-1", "Jon")
	require.NoError(t, err)
	assert.Equal(t, "john.davis@corp.com", m.ResolvedEmail)
}

func TestMemoryStoreProjectScoping(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, "proj-1", "Jon", "john.smith@corp.com"))
	require.NoError(t, s.Upsert(ctx, "proj-2", "Jon", "jon.ng@corp.com"))

	m1, err := s.Get(ctx, "proj-1", "Jon")
	require.NoError(t, err)
	m2, err := s.Get(ctx, "proj-2", "Jon")
	require.NoError(t, err)
	assert.NotEqual(t, m1.ResolvedEmail, m2.ResolvedEmail)
}
