package model

import (
	"encoding/json"
	"time"
)

// PrimaryDocumentName is the logical name of the application's working
// document; only this key gets shared-view folding and reconciliation.
const PrimaryDocumentName = "taskdeck-state"

// TrackedCollections are reconciled item-by-item during a client merge.
var TrackedCollections = []string{"spaces", "folders", "lists", "tasks", "docs"}

// SharedCollections are folded from the shared view into the remote document.
var SharedCollections = []string{"spaces", "folders", "lists", "tasks"}

// StickyOverlayFields is shared-membership metadata that survives any merge
// outcome: once a remote item is marked shared, these fields always win.
var StickyOverlayFields = []string{"isShared", "ownerId", "ownerName", "permission", "name", "color", "icon"}

// Item is a single record inside a document collection, identified by "id".
// Domain fields beyond id/updatedAt are opaque.
type Item map[string]any

// ID returns the item id, or "" when absent/non-string.
func (it Item) ID() string {
	s, _ := it["id"].(string)
	return s
}

// StringField returns a string field value, or "" when absent/non-string.
func (it Item) StringField(key string) string {
	s, _ := it[key].(string)
	return s
}

// updatedAtLayouts are tried in order. Clients normally write full RFC3339
// stamps but date-only values occur and must still order correctly.
var updatedAtLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// UpdatedAt parses the item's updatedAt timestamp. A missing or malformed
// value is the zero time, which always loses to a timestamped peer.
func (it Item) UpdatedAt() time.Time {
	s, ok := it["updatedAt"].(string)
	if !ok {
		return time.Time{}
	}
	for _, layout := range updatedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// IsShared reports whether the item carries the shared-overlay marker.
func (it Item) IsShared() bool {
	b, _ := it["isShared"].(bool)
	return b
}

// Assign shallow-copies all fields of src onto it, overwriting shared keys.
func (it Item) Assign(src Item) {
	for k, v := range src {
		it[k] = v
	}
}

// Clone returns a shallow copy of the item.
func (it Item) Clone() Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

// Document is the application state envelope: named collections of items plus
// an advisory version counter. Cross-collection references are soft; this
// layer enforces only per-collection id uniqueness.
type Document struct {
	State   map[string][]Item `json:"state,omitempty"`
	Version int64             `json:"version,omitempty"`
}

// ParseDocument decodes a stored document payload. A string-typed payload is
// treated as double-encoded JSON and re-parsed once; any parse failure yields
// (nil, false) so callers degrade to "no document" instead of erroring.
func ParseDocument(raw json.RawMessage) (*Document, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// Collection returns the named collection, never nil for reading.
func (d *Document) Collection(name string) []Item {
	if d.State == nil {
		return nil
	}
	return d.State[name]
}

// Upsert inserts or replaces-in-place the item with the same id in the named
// collection, creating the collection as needed.
func (d *Document) Upsert(collection string, item Item) {
	if d.State == nil {
		d.State = map[string][]Item{}
	}
	items := d.State[collection]
	for i := range items {
		if items[i].ID() == item.ID() {
			items[i] = item
			return
		}
	}
	d.State[collection] = append(items, item)
}

// Contains reports whether the named collection holds an item with the id.
func (d *Document) Contains(collection, id string) bool {
	for _, it := range d.Collection(collection) {
		if it.ID() == id {
			return true
		}
	}
	return false
}
