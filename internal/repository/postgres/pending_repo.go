package postgres

import (
	"context"
	"encoding/json"

	"github.com/gofrs/uuid/v5"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// PendingRepo implements PendingRepository using PostgreSQL.
type PendingRepo struct{ db *DB }

// NewPendingRepo constructs a pending-update repository.
func NewPendingRepo(db *DB) *PendingRepo { return &PendingRepo{db: db} }

// Enqueue appends a delta destined for an owner's document.
func (r *PendingRepo) Enqueue(ctx context.Context, ownerID uuid.UUID, itemType string, payload json.RawMessage) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	const q = `
INSERT INTO pending_updates (id, owner_id, item_type, payload)
VALUES ($1,$2,$3,$4)`
	if _, err := r.db.Pool.Exec(ctx, q, id, ownerID, itemType, payload); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ListFor returns the owner's unconsumed deltas, oldest first.
func (r *PendingRepo) ListFor(ctx context.Context, ownerID uuid.UUID) ([]model.PendingUpdate, error) {
	const q = `
SELECT id, owner_id, item_type, payload, created_at
FROM pending_updates WHERE owner_id=$1 ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PendingUpdate
	for rows.Next() {
		var p model.PendingUpdate
		if err = rows.Scan(&p.ID, &p.OwnerID, &p.ItemType, &p.Payload, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Consume deletes an incorporated delta. Deleting an already-consumed id is
// not an error.
func (r *PendingRepo) Consume(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM pending_updates WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}
