// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"encoding/json"

	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// StateRepository is the durable key->document store. Writes are full-document
// upserts; concurrent writers to one key race and the last Set wins at the
// row level. Item-level safety lives in the client merge, not here.
type StateRepository interface {
	// Get loads the blob for a key. Returns errs.ErrNotFound when absent.
	Get(ctx context.Context, key string) (*model.StateBlob, error)
	// Set upserts the document for a key and touches updated_at.
	Set(ctx context.Context, key string, document json.RawMessage) error
	// GetAll returns every stored blob (admin/debug, not the hot path).
	GetAll(ctx context.Context) ([]model.StateBlob, error)
}
