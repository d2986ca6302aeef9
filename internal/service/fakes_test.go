package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/yaxxsin/task-management-prod-sub001/internal/errs"
	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
	"github.com/yaxxsin/task-management-prod-sub001/internal/repository"
)

type fakeStateRepo struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
	sets int
}

var _ repository.StateRepository = (*fakeStateRepo)(nil)

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{docs: map[string]json.RawMessage{}}
}

func (f *fakeStateRepo) Get(_ context.Context, key string) (*model.StateBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &model.StateBlob{Key: key, Document: doc, UpdatedAt: time.Now()}, nil
}

func (f *fakeStateRepo) Set(_ context.Context, key string, document json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[key] = append(json.RawMessage(nil), document...)
	f.sets++
	return nil
}

func (f *fakeStateRepo) GetAll(_ context.Context) ([]model.StateBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.StateBlob
	for k, d := range f.docs {
		out = append(out, model.StateBlob{Key: k, Document: d})
	}
	return out, nil
}

type fakePendingRepo struct {
	mu      sync.Mutex
	entries []model.PendingUpdate
}

var _ repository.PendingRepository = (*fakePendingRepo)(nil)

func (f *fakePendingRepo) Enqueue(_ context.Context, ownerID uuid.UUID, itemType string, payload json.RawMessage) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.Must(uuid.NewV4())
	f.entries = append(f.entries, model.PendingUpdate{
		ID: id, OwnerID: ownerID, ItemType: itemType,
		Payload: append(json.RawMessage(nil), payload...), CreatedAt: time.Now(),
	})
	return id, nil
}

func (f *fakePendingRepo) ListFor(_ context.Context, ownerID uuid.UUID) ([]model.PendingUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PendingUpdate
	for _, p := range f.entries {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePendingRepo) Consume(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.entries {
		if p.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeGrantRepo struct {
	mu     sync.Mutex
	grants []model.ShareGrant
}

var _ repository.GrantRepository = (*fakeGrantRepo)(nil)

func (f *fakeGrantRepo) Create(_ context.Context, g *model.ShareGrant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.grants {
		if e.ResourceType == g.ResourceType && e.ResourceID == g.ResourceID && e.InvitedEmail == g.InvitedEmail {
			return errs.ErrGrantConflict
		}
	}
	g.CreatedAt = time.Now()
	f.grants = append(f.grants, *g)
	return nil
}

func (f *fakeGrantRepo) GetForInvitee(_ context.Context, email, status string) ([]model.ShareGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ShareGrant
	for _, g := range f.grants {
		if g.InvitedEmail == email && g.Status == status {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantRepo) GetForResource(_ context.Context, resourceType, resourceID string) ([]model.ShareGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ShareGrant
	for _, g := range f.grants {
		if g.ResourceType == resourceType && g.ResourceID == resourceID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGrantRepo) Accept(_ context.Context, id uuid.UUID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.grants {
		if g.ID == id && g.InvitedEmail == email {
			f.grants[i].Status = model.GrantAccepted
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeGrantRepo) Delete(_ context.Context, resourceType, resourceID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.grants {
		if g.ResourceType == resourceType && g.ResourceID == resourceID && g.InvitedEmail == email {
			f.grants = append(f.grants[:i], f.grants[i+1:]...)
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users []model.User
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.users {
		if e.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	f.users = append(f.users, *u)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			out := u
			return &out, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, errs.ErrNotFound
}

type fakeNotifier struct {
	mu     sync.Mutex
	rooms  []string
	events []any
}

func (f *fakeNotifier) Notify(room string, event any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, room)
	f.events = append(f.events, event)
}

type fakeLimiter struct {
	allowed  bool
	failures int
}

func (f *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	return f.allowed, 0, nil
}

func (f *fakeLimiter) Success(context.Context, string, []byte) error { return nil }

func (f *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	f.failures++
	return false, 0, nil
}
