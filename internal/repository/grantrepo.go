package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// GrantRepository stores share grants. At most one grant exists per
// (resourceType, resourceID, invitedEmail) tuple, enforced by the store.
type GrantRepository interface {
	// Create inserts a grant. Returns errs.ErrGrantConflict when the tuple
	// already has one.
	Create(ctx context.Context, g *model.ShareGrant) error
	// GetForInvitee lists grants addressed to an email with the given
	// status, in insertion order.
	GetForInvitee(ctx context.Context, email, status string) ([]model.ShareGrant, error)
	// GetForResource lists all grants on a resource in insertion order.
	GetForResource(ctx context.Context, resourceType, resourceID string) ([]model.ShareGrant, error)
	// Accept flips the invitee's grant to accepted. Returns errs.ErrNotFound
	// when no pending grant matches (id, email).
	Accept(ctx context.Context, id uuid.UUID, email string) error
	// Delete removes the invitee's grant on a resource. Returns
	// errs.ErrNotFound when nothing matched.
	Delete(ctx context.Context, resourceType, resourceID, email string) error
}
