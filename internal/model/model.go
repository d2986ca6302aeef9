// Package model defines domain entities used by services and repositories.
package model

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server.
type User struct {
	ID                 uuid.UUID // PK
	Email              string    // unique
	CredentialHash     []byte    // Argon2id(password, SaltAuth); empty for social providers
	SaltAuth           []byte    // per-user auth salt
	DisplayName        string
	Provider           string // "local", "google", ...
	ProviderExternalID string
	AvatarURL          string
	CreatedAt          time.Time
}

// StateBlob is the stored envelope for one key of the document store.
// The document payload is opaque to the server except for overlay/propagate,
// which parse it on demand.
type StateBlob struct {
	Key       string
	Document  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Grant status values.
const (
	GrantPending  = "pending"
	GrantAccepted = "accepted"
)

// Grant permission levels.
const (
	PermissionView = "view"
	PermissionEdit = "edit"
)

// ShareGrant links an owner's resource to an invited identity.
type ShareGrant struct {
	ID           uuid.UUID
	ResourceType string // "space" | "list" | "folder" | "task"
	ResourceID   string
	OwnerID      uuid.UUID
	InvitedEmail string
	Status       string // GrantPending | GrantAccepted
	Permission   string // PermissionView | PermissionEdit
	CreatedAt    time.Time
}

// PendingUpdate is a collaborator-authored delta awaiting incorporation
// into an owner's document.
type PendingUpdate struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	ItemType  string
	Payload   json.RawMessage // Item-shaped JSON
	CreatedAt time.Time
}

// Member is one row of a resource's member list. The owner appears as a
// synthesized pseudo-member with role "owner".
type Member struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Role        string `json:"role"` // "owner" | "member"
	Status      string `json:"status"`
	Permission  string `json:"permission,omitempty"`
}

// collectionForType maps an item type to its document collection. Explicit so
// that unknown types fail loudly instead of writing to a concatenated name.
var collectionForType = map[string]string{
	"space":        "spaces",
	"folder":       "folders",
	"list":         "lists",
	"task":         "tasks",
	"doc":          "docs",
	"notification": "notifications",
}

// CollectionForType resolves the document collection holding items of the
// given type. ok is false for unmapped types.
func CollectionForType(itemType string) (string, bool) {
	c, ok := collectionForType[itemType]
	return c, ok
}

// NamespacedKey prefixes a logical name with the caller identity. Anonymous
// callers use the bare (legacy/global) name.
func NamespacedKey(callerID uuid.UUID, name string) string {
	if callerID == uuid.Nil {
		return name
	}
	return "identity:" + callerID.String() + ":" + name
}
