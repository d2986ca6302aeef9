package repository

import (
	"context"
	"encoding/json"

	"github.com/gofrs/uuid/v5"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// PendingRepository is the durable queue of collaborator deltas awaiting
// incorporation into an owner's document. Entries are retained until consumed.
type PendingRepository interface {
	// Enqueue appends a delta for an owner and returns its id.
	Enqueue(ctx context.Context, ownerID uuid.UUID, itemType string, payload json.RawMessage) (uuid.UUID, error)
	// ListFor returns all unconsumed deltas for an owner, oldest first.
	ListFor(ctx context.Context, ownerID uuid.UUID) ([]model.PendingUpdate, error)
	// Consume deletes a delta after the owner has incorporated it.
	Consume(ctx context.Context, id uuid.UUID) error
}
