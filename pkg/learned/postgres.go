package learned

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get retrieves the mapping for (projectID, mentionText).
func (s *PostgresStore) Get(ctx context.Context, projectID, mentionText string) (*Mapping, error) {
	query := `
		SELECT project_id, mention_text, resolved_email, created_at, updated_at
		FROM learned_mappings
		WHERE project_id = $1 AND mention_text = $2
	`

	var m Mapping
	err := s.db.QueryRow(ctx, query, projectID, Key(mentionText)).Scan(
		&m.ProjectID, &m.MentionText, &m.ResolvedEmail, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting learned mapping: %w", err)
	}
	return &m, nil
}

// Upsert records a confirmation, replacing any prior mapping for the key.
func (s *PostgresStore) Upsert(ctx context.Context, projectID, mentionText, resolvedEmail string) error {
	query := `
		INSERT INTO learned_mappings (project_id, mention_text, resolved_email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (project_id, mention_text)
		DO UPDATE SET resolved_email = EXCLUDED.resolved_email, updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.Exec(ctx, query, projectID, Key(mentionText), resolvedEmail, time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: upserting learned mapping: %v", nperrors.ErrPersistence, err)
	}
	return nil
}
