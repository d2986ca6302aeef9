package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/yaxxsin/task-management-prod-sub001/internal/errs"
	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// StateRepo implements StateRepository using PostgreSQL.
type StateRepo struct{ db *DB }

// NewStateRepo constructs a state-blob repository.
func NewStateRepo(db *DB) *StateRepo { return &StateRepo{db: db} }

// Get loads a single blob by key.
func (r *StateRepo) Get(ctx context.Context, key string) (*model.StateBlob, error) {
	const q = `
SELECT key, document, created_at, updated_at
FROM state_blobs WHERE key=$1`
	row := r.db.Pool.QueryRow(ctx, q, key)
	var b model.StateBlob
	if err := row.Scan(&b.Key, &b.Document, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Set upserts the full document for a key. Last write wins at the row level;
// there is no document-level lock or version token here.
func (r *StateRepo) Set(ctx context.Context, key string, document json.RawMessage) error {
	const q = `
INSERT INTO state_blobs (key, document, created_at, updated_at)
VALUES ($1, $2, now(), now())
ON CONFLICT (key) DO UPDATE SET document=EXCLUDED.document, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, key, document)
	return err
}

// GetAll returns every stored blob ordered by key.
func (r *StateRepo) GetAll(ctx context.Context) ([]model.StateBlob, error) {
	const q = `
SELECT key, document, created_at, updated_at
FROM state_blobs ORDER BY key`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StateBlob
	for rows.Next() {
		var b model.StateBlob
		if err = rows.Scan(&b.Key, &b.Document, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
