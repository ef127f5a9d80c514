package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	nperrors "github.com/quorumhq/nameplate/pkg/errors"
	"github.com/quorumhq/nameplate/pkg/roster"
)

// PostgresRepository implements Repository using PostgreSQL. Candidates are
// stored as a JSONB column; the normalized mention is stored alongside the
// raw one so pending lookups hit an index instead of normalizing in SQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const itemColumns = `
	id, project_id, mention, candidates, external_candidate,
	reasoning, status, created_at, decided_at, resolved_email, decided_by
`

// Create stores a new pending item.
func (r *PostgresRepository) Create(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO review_items (
			id, project_id, mention, mention_norm, candidates,
			external_candidate, reasoning, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	candidates, err := json.Marshal(item.Candidates)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		item.ID,
		item.ProjectID,
		item.Mention,
		roster.Normalize(item.Mention),
		candidates,
		item.ExternalCandidate,
		item.Reasoning,
		string(item.Status),
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: creating review item: %v", nperrors.ErrPersistence, err)
	}
	return nil
}

// Get retrieves an item by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items WHERE id = $1`
	return scanItem(r.db.QueryRow(ctx, query, id))
}

// FindPending returns the pending item for (projectID, normalized mention).
func (r *PostgresRepository) FindPending(ctx context.Context, projectID, mention string) (*Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM review_items
		WHERE project_id = $1 AND mention_norm = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanItem(r.db.QueryRow(ctx, query, projectID, roster.Normalize(mention)))
}

// ListPending returns pending items for a project, oldest first.
func (r *PostgresRepository) ListPending(ctx context.Context, projectID string, limit int) ([]Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM review_items
		WHERE project_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`
	args := []interface{}{projectID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing review items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateStatus transitions an item.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status, resolvedEmail, decidedBy string, decidedAt time.Time) error {
	query := `
		UPDATE review_items
		SET status = $2, resolved_email = NULLIF($3, ''), decided_by = NULLIF($4, ''), decided_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, string(status), resolvedEmail, decidedBy, decidedAt)
	if err != nil {
		return fmt.Errorf("%w: updating review item: %v", nperrors.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return nperrors.ErrNotFound
	}
	return nil
}

// ExpireOlderThan marks stale pending items expired.
func (r *PostgresRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) ([]Item, error) {
	query := `
		UPDATE review_items
		SET status = 'expired', decided_at = $2
		WHERE status = 'pending' AND created_at < $1
		RETURNING ` + itemColumns

	rows, err := r.db.Query(ctx, query, cutoff, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: expiring review items: %v", nperrors.ErrPersistence, err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountPending returns the number of pending items for a project.
func (r *PostgresRepository) CountPending(ctx context.Context, projectID string) (int, error) {
	query := `SELECT COUNT(*) FROM review_items WHERE project_id = $1 AND status = 'pending'`

	var count int
	if err := r.db.QueryRow(ctx, query, projectID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting pending reviews: %w", err)
	}
	return count, nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var (
		item          Item
		candidates    []byte
		status        string
		decidedAt     *time.Time
		resolvedEmail *string
		decidedBy     *string
	)

	err := row.Scan(
		&item.ID, &item.ProjectID, &item.Mention, &candidates,
		&item.ExternalCandidate, &item.Reasoning, &status,
		&item.CreatedAt, &decidedAt, &resolvedEmail, &decidedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning review item: %w", err)
	}

	if len(candidates) > 0 {
		if err := json.Unmarshal(candidates, &item.Candidates); err != nil {
			return nil, fmt.Errorf("unmarshal candidates: %w", err)
		}
	}
	item.Status = Status(status)
	item.DecidedAt = decidedAt
	if resolvedEmail != nil {
		item.ResolvedEmail = *resolvedEmail
	}
	if decidedBy != nil {
		item.DecidedBy = *decidedBy
	}
	return &item, nil
}
