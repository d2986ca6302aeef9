package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/yaxxsin/task-management-prod-sub001/internal/errs"
	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// GrantRepo implements GrantRepository using PostgreSQL.
type GrantRepo struct{ db *DB }

// NewGrantRepo constructs a grant repository.
func NewGrantRepo(db *DB) *GrantRepo { return &GrantRepo{db: db} }

const grantCols = `id, resource_type, resource_id, owner_id, invited_email, status, permission, created_at`

// Create inserts a grant row. The unique index on the
// (resource_type, resource_id, invited_email) tuple is the conflict check.
func (r *GrantRepo) Create(ctx context.Context, g *model.ShareGrant) error {
	const q = `
INSERT INTO share_grants (id, resource_type, resource_id, owner_id, invited_email, status, permission)
VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.db.Pool.Exec(ctx, q,
		g.ID, g.ResourceType, g.ResourceID, g.OwnerID, g.InvitedEmail, g.Status, g.Permission)
	if isUniqueViolation(err) {
		return errs.ErrGrantConflict
	}
	return err
}

// GetForInvitee lists grants addressed to email with the given status.
func (r *GrantRepo) GetForInvitee(ctx context.Context, email, status string) ([]model.ShareGrant, error) {
	const q = `SELECT ` + grantCols + ` FROM share_grants WHERE invited_email=$1 AND status=$2 ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, email, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

// GetForResource lists all grants on one resource.
func (r *GrantRepo) GetForResource(ctx context.Context, resourceType, resourceID string) ([]model.ShareGrant, error) {
	const q = `
SELECT ` + grantCols + `
FROM share_grants WHERE resource_type=$1 AND resource_id=$2 ORDER BY created_at`
	rows, err := r.db.Pool.Query(ctx, q, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

// Accept flips a pending grant to accepted for its invitee.
func (r *GrantRepo) Accept(ctx context.Context, id uuid.UUID, email string) error {
	const q = `UPDATE share_grants SET status='accepted' WHERE id=$1 AND invited_email=$2`
	tag, err := r.db.Pool.Exec(ctx, q, id, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the invitee's grant on a resource ("leave").
func (r *GrantRepo) Delete(ctx context.Context, resourceType, resourceID, email string) error {
	const q = `DELETE FROM share_grants WHERE resource_type=$1 AND resource_id=$2 AND invited_email=$3`
	tag, err := r.db.Pool.Exec(ctx, q, resourceType, resourceID, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanGrants(rows pgx.Rows) ([]model.ShareGrant, error) {
	var out []model.ShareGrant
	for rows.Next() {
		var g model.ShareGrant
		if err := rows.Scan(&g.ID, &g.ResourceType, &g.ResourceID, &g.OwnerID,
			&g.InvitedEmail, &g.Status, &g.Permission, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
