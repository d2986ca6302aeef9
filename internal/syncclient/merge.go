package syncclient

import (
	"github.com/yaxxsin/task-management-prod-sub001/internal/model"
)

// foldSharedView merges the shared view into the remote document's state
// before reconciliation: an existing id has its fields shallowly overwritten
// by the shared version, a new id is appended.
func foldSharedView(remote *model.Document, view *SharedView) {
	if view == nil {
		return
	}
	fold := func(collection string, items []model.Item) {
		if len(items) == 0 {
			return
		}
		if remote.State == nil {
			remote.State = map[string][]model.Item{}
		}
		existing := remote.State[collection]
		index := make(map[string]int, len(existing))
		for i, it := range existing {
			index[it.ID()] = i
		}
		for _, shared := range items {
			if i, ok := index[shared.ID()]; ok {
				existing[i].Assign(shared)
			} else {
				existing = append(existing, shared)
				index[shared.ID()] = len(existing) - 1
			}
		}
		remote.State[collection] = existing
	}
	byCollection := map[string][]model.Item{
		"spaces":  view.Spaces,
		"folders": view.Folders,
		"lists":   view.Lists,
		"tasks":   view.Tasks,
	}
	for _, collection := range model.SharedCollections {
		fold(collection, byCollection[collection])
	}
}

// reconcile folds the remote document into the local one, collection by
// collection, and reports whether local changed.
//
// Per item: an id unknown locally is adopted; a known id is overwritten when
// the remote timestamp is strictly newer (last write wins); otherwise, if the
// remote copy is marked shared, the sticky overlay fields are copied onto the
// local item regardless of which side won — shared-membership metadata is
// monotonic and must never be lost to a newer local edit.
func reconcile(local, remote *model.Document) bool {
	changed := false
	for _, collection := range model.TrackedCollections {
		remoteItems := remote.Collection(collection)
		if len(remoteItems) == 0 {
			continue
		}
		localItems := local.Collection(collection)
		index := make(map[string]int, len(localItems))
		for i, it := range localItems {
			index[it.ID()] = i
		}
		for _, rit := range remoteItems {
			i, ok := index[rit.ID()]
			if !ok {
				localItems = append(localItems, rit)
				index[rit.ID()] = len(localItems) - 1
				changed = true
				continue
			}
			lit := localItems[i]
			if rit.UpdatedAt().After(lit.UpdatedAt()) {
				lit.Assign(rit)
				changed = true
			} else if rit.IsShared() {
				if copyStickyFields(lit, rit) {
					changed = true
				}
			}
		}
		if local.State == nil {
			local.State = map[string][]model.Item{}
		}
		local.State[collection] = localItems
	}
	return changed
}

// copyStickyFields copies the shared-overlay fields present on src onto dst.
func copyStickyFields(dst, src model.Item) bool {
	changed := false
	for _, k := range model.StickyOverlayFields {
		v, ok := src[k]
		if !ok {
			continue
		}
		dst[k] = v
		changed = true
	}
	return changed
}
