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

// Identity is the resolved caller of a sharing operation.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// Notification is a best-effort real-time event. Receivers must still re-load
// to get authoritative content.
type Notification struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Notifier fans an event out to a room. Delivery is unordered and
// best-effort; implementations must not block the caller on slow receivers.
type Notifier interface {
	Notify(room string, event any)
}

// SharedView is the computed subset of other owners' documents granted to a
// collaborator: each granted space plus its descendants.
type SharedView struct {
	Spaces  []model.Item `json:"spaces"`
	Folders []model.Item `json:"folders"`
	Lists   []model.Item `json:"lists"`
	Tasks   []model.Item `json:"tasks"`
}

// ShareService implements grant lifecycle, collaborator propagation, and the
// shared-view computation.
type ShareService interface {
	Invite(ctx context.Context, owner Identity, email, resourceType, resourceID, permission string) (*model.ShareGrant, error)
	Invitations(ctx context.Context, email string) ([]model.ShareGrant, error)
	Accept(ctx context.Context, grantID uuid.UUID, email string) error
	Members(ctx context.Context, resourceType, resourceID string) ([]model.Member, error)
	Leave(ctx context.Context, email, resourceType, resourceID string) error
	Propagate(ctx context.Context, caller Identity, ownerID uuid.UUID, itemType string, item model.Item) error
	View(ctx context.Context, email string) (*SharedView, error)
}

type ShareServiceImpl struct {
	grants   repository.GrantRepository
	users    repository.UserRepository
	states   repository.StateRepository
	pending  repository.PendingRepository
	notifier Notifier
	log      *zap.Logger
}

// NewShareService constructs ShareService.
func NewShareService(
	grants repository.GrantRepository,
	users repository.UserRepository,
	states repository.StateRepository,
	pending repository.PendingRepository,
	notifier Notifier,
	log *zap.Logger,
) *ShareServiceImpl {
	return &ShareServiceImpl{grants: grants, users: users, states: states, pending: pending, notifier: notifier, log: log}
}

// Invite creates a pending grant. Tuple uniqueness is enforced by the store,
// so a duplicate surfaces as errs.ErrGrantConflict with no pre-check race.
func (s *ShareServiceImpl) Invite(ctx context.Context, owner Identity, email, resourceType, resourceID, permission string) (*model.ShareGrant, error) {
	if email == "" || resourceType == "" || resourceID == "" {
		return nil, errors.New("validation: email/resourceType/resourceId required")
	}
	if permission == "" {
		permission = model.PermissionView
	}
	if permission != model.PermissionView && permission != model.PermissionEdit {
		return nil, fmt.Errorf("validation: bad permission %q", permission)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	g := &model.ShareGrant{
		ID:           id,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OwnerID:      owner.ID,
		InvitedEmail: email,
		Status:       model.GrantPending,
		Permission:   permission,
	}
	if err := s.grants.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Invitations lists pending grants addressed to the caller.
func (s *ShareServiceImpl) Invitations(ctx context.Context, email string) ([]model.ShareGrant, error) {
	return s.grants.GetForInvitee(ctx, email, model.GrantPending)
}

// Accept flips the caller's grant to accepted. The only authorization is the
// identity match on the invited email.
func (s *ShareServiceImpl) Accept(ctx context.Context, grantID uuid.UUID, email string) error {
	return s.grants.Accept(ctx, grantID, email)
}

// Members returns all grants on a resource plus a synthesized owner
// pseudo-member resolved from any grant row's owner id. Ownership is inferred
// transitively from grants: a never-shared resource resolves no owner here.
func (s *ShareServiceImpl) Members(ctx context.Context, resourceType, resourceID string) ([]model.Member, error) {
	gs, err := s.grants.GetForResource(ctx, resourceType, resourceID)
	if err != nil {
		return nil, err
	}
	var out []model.Member
	if len(gs) > 0 {
		m := model.Member{Role: "owner", Status: model.GrantAccepted}
		if owner, err := s.users.GetByID(ctx, gs[0].OwnerID); err == nil {
			m.Email = owner.Email
			m.DisplayName = owner.DisplayName
		}
		out = append(out, m)
	}
	for _, g := range gs {
		m := model.Member{
			Email:      g.InvitedEmail,
			Role:       "member",
			Status:     g.Status,
			Permission: g.Permission,
		}
		if u, err := s.users.GetByEmail(ctx, g.InvitedEmail); err == nil {
			m.DisplayName = u.DisplayName
		}
		out = append(out, m)
	}
	return out, nil
}

// Leave deletes the caller's grant on a resource.
func (s *ShareServiceImpl) Leave(ctx context.Context, email, resourceType, resourceID string) error {
	return s.grants.Delete(ctx, resourceType, resourceID, email)
}

// Propagate applies a collaborator's edit directly into the owner's document,
// enqueues a pending update, and emits best-effort notifications. The write
// is a whole-document read-modify-write and can race an owner save; a later
// client load reconciles either outcome.
func (s *ShareServiceImpl) Propagate(ctx context.Context, caller Identity, ownerID uuid.UUID, itemType string, item model.Item) error {
	if ownerID == uuid.Nil {
		return errors.New("validation: empty ownerId")
	}
	if item.ID() == "" {
		return errors.New("validation: item without id")
	}
	collection, ok := model.CollectionForType(itemType)
	if !ok {
		return fmt.Errorf("%w: %q", errs.ErrUnknownItemType, itemType)
	}
	if err := s.authorizePropagate(ctx, caller, ownerID, item); err != nil {
		return err
	}

	key := model.NamespacedKey(ownerID, model.PrimaryDocumentName)
	doc := &model.Document{}
	if blob, err := s.states.Get(ctx, key); err == nil {
		if parsed, ok := model.ParseDocument(blob.Document); ok {
			doc = parsed
		}
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	doc.Upsert(collection, item)

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal owner document: %w", err)
	}
	if err := s.states.Set(ctx, key, raw); err != nil {
		return err
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal pending payload: %w", err)
	}
	if _, err := s.pending.Enqueue(ctx, ownerID, itemType, payload); err != nil {
		// the document write already landed; the owner just won't see the
		// transient overlay for this edit
		s.log.Warn("enqueue pending failed", zap.String("owner", ownerID.String()), zap.Error(err))
	}

	n := Notification{Type: itemType + "_updated", Data: item}
	s.notifier.Notify(ownerID.String(), n)
	if spaceID := item.StringField("spaceId"); spaceID != "" {
		s.notifier.Notify("space:"+spaceID, n)
	}
	return nil
}

// authorizePropagate is deliberately lenient: the owner always passes, a
// payload without a spaceId skips the check entirely, otherwise the caller
// needs an accepted grant on the parent space.
func (s *ShareServiceImpl) authorizePropagate(ctx context.Context, caller Identity, ownerID uuid.UUID, item model.Item) error {
	if caller.ID == ownerID {
		return nil
	}
	spaceID := item.StringField("spaceId")
	if spaceID == "" {
		return nil
	}
	gs, err := s.grants.GetForResource(ctx, "space", spaceID)
	if err != nil {
		return err
	}
	for _, g := range gs {
		if g.InvitedEmail == caller.Email && g.Status == model.GrantAccepted {
			return nil
		}
	}
	return errs.ErrUnauthorized
}

// View computes the shared view for a collaborator. Only space grants are
// resolved; directly shared tasks/lists/folders are stored but not surfaced
// by this path. Emission follows grant-iteration order.
func (s *ShareServiceImpl) View(ctx context.Context, email string) (*SharedView, error) {
	gs, err := s.grants.GetForInvitee(ctx, email, model.GrantAccepted)
	if err != nil {
		return nil, err
	}
	view := &SharedView{
		Spaces:  []model.Item{},
		Folders: []model.Item{},
		Lists:   []model.Item{},
		Tasks:   []model.Item{},
	}
	for _, g := range gs {
		if g.ResourceType != "space" {
			continue
		}
		key := model.NamespacedKey(g.OwnerID, model.PrimaryDocumentName)
		blob, err := s.states.Get(ctx, key)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				continue
			}
			return nil, err
		}
		doc, ok := model.ParseDocument(blob.Document)
		if !ok || doc.State == nil {
			continue
		}

		var space model.Item
		for _, it := range doc.Collection("spaces") {
			if it.ID() == g.ResourceID {
				space = it
				break
			}
		}
		if space == nil {
			continue
		}

		ownerName := g.OwnerID.String()
		if owner, err := s.users.GetByID(ctx, g.OwnerID); err == nil {
			ownerName = owner.DisplayName
			if ownerName == "" {
				ownerName = owner.Email
			}
		}

		shared := space.Clone()
		shared["isShared"] = true
		shared["ownerId"] = g.OwnerID.String()
		shared["ownerName"] = ownerName
		shared["permission"] = g.Permission
		if name := space.StringField("name"); name != "" {
			shared["name"] = name + " (" + ownerName + ")"
		}
		view.Spaces = append(view.Spaces, shared)

		listIDs := map[string]bool{}
		for _, it := range doc.Collection("folders") {
			if it.StringField("spaceId") == g.ResourceID {
				view.Folders = append(view.Folders, it)
			}
		}
		for _, it := range doc.Collection("lists") {
			if it.StringField("spaceId") == g.ResourceID {
				view.Lists = append(view.Lists, it)
				if id := it.ID(); id != "" {
					listIDs[id] = true
				}
			}
		}
		for _, it := range doc.Collection("tasks") {
			if listIDs[it.StringField("listId")] || it.StringField("spaceId") == g.ResourceID {
				view.Tasks = append(view.Tasks, it)
			}
		}
	}
	return view, nil
}
