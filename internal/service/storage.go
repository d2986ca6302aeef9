package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/yaxxsin/task-management-prod-sub001/internal/errs"
	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
	"github.com/yaxxsin/task-management-prod-sub001/internal/repository"
)

// StorageService exposes the identity-namespaced document store, weaving the
// pending-update queue into reads (transient overlay) and writes (consumption).
type StorageService interface {
	// Load returns the stored document for the caller's key, nil when absent.
	Load(ctx context.Context, callerID uuid.UUID, name string) (json.RawMessage, error)
	// Save upserts the caller's document and consumes incorporated pendings.
	Save(ctx context.Context, callerID uuid.UUID, name string, document json.RawMessage) error
	// All returns every stored blob (admin/debug).
	All(ctx context.Context) ([]model.StateBlob, error)
}

type StorageServiceImpl struct {
	states  repository.StateRepository
	pending repository.PendingRepository
	log     *zap.Logger
}

// NewStorageService constructs StorageService.
func NewStorageService(states repository.StateRepository, pending repository.PendingRepository, log *zap.Logger) *StorageServiceImpl {
	return &StorageServiceImpl{states: states, pending: pending, log: log}
}

// Load fetches the blob for the caller's namespaced key. When the caller is
// authenticated and the document carries a state, unconsumed pending updates
// are overlaid into the returned collections without persisting.
func (s *StorageServiceImpl) Load(ctx context.Context, callerID uuid.UUID, name string) (json.RawMessage, error) {
	if name == "" {
		return nil, errors.New("validation: empty key")
	}
	key := model.NamespacedKey(callerID, name)
	blob, err := s.states.Get(ctx, key)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if callerID == uuid.Nil {
		return blob.Document, nil
	}

	doc, ok := model.ParseDocument(blob.Document)
	if !ok || doc.State == nil {
		return blob.Document, nil
	}
	pendings, err := s.pending.ListFor(ctx, callerID)
	if err != nil {
		// overlay is best-effort; the stored document is still authoritative
		s.log.Warn("pending overlay skipped", zap.String("key", key), zap.Error(err))
		return blob.Document, nil
	}
	changed := false
	for _, p := range pendings {
		collection, ok := model.CollectionForType(p.ItemType)
		if !ok {
			s.log.Warn("pending with unmapped item type", zap.String("type", p.ItemType))
			continue
		}
		var item model.Item
		if err := json.Unmarshal(p.Payload, &item); err != nil || item.ID() == "" {
			continue
		}
		if !doc.Contains(collection, item.ID()) {
			doc.State[collection] = append(doc.State[collection], item)
			changed = true
		}
	}
	if !changed {
		return blob.Document, nil
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal overlaid document: %w", err)
	}
	return out, nil
}

// Save upserts the caller's document. For authenticated callers any pending
// update whose payload id now appears in the matching collection of the saved
// body is consumed: the owner has incorporated it.
func (s *StorageServiceImpl) Save(ctx context.Context, callerID uuid.UUID, name string, document json.RawMessage) error {
	if name == "" {
		return errors.New("validation: empty key")
	}
	if !json.Valid(document) {
		return errors.New("validation: document is not valid JSON")
	}
	key := model.NamespacedKey(callerID, name)
	if err := s.states.Set(ctx, key, document); err != nil {
		return err
	}
	if callerID == uuid.Nil {
		return nil
	}

	doc, ok := model.ParseDocument(document)
	if !ok || doc.State == nil {
		return nil
	}
	pendings, err := s.pending.ListFor(ctx, callerID)
	if err != nil {
		s.log.Warn("pending consumption skipped", zap.String("key", key), zap.Error(err))
		return nil
	}
	for _, p := range pendings {
		collection, ok := model.CollectionForType(p.ItemType)
		if !ok {
			continue
		}
		var item model.Item
		if err := json.Unmarshal(p.Payload, &item); err != nil || item.ID() == "" {
			continue
		}
		if doc.Contains(collection, item.ID()) {
			if err := s.pending.Consume(ctx, p.ID); err != nil {
				s.log.Warn("pending consume failed", zap.String("id", p.ID.String()), zap.Error(err))
			}
		}
	}
	return nil
}

// All returns every stored blob.
func (s *StorageServiceImpl) All(ctx context.Context) ([]model.StateBlob, error) {
	return s.states.GetAll(ctx)
}
