package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// UserRepository provides CRUD access for user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns errs.ErrAlreadyExists on a
	// duplicate email.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}
