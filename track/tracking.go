// Package track implements MessageTracking (spec.md §3, §4.6):
// lock-free reference counts that let producers skip encoding work
// when no client is listening. Grounded on the usage contract visible
// in original_source/src/PipeThread.cpp and PipeHandler.cpp
// (trackEvent/untrackEvent by category, useProtocol/unuseProtocol,
// usingProtocol, isTrackingType) — the MessageTracking class
// definition itself was not present in the retrieved source, so the
// counters and their names follow spec.md §3's explicit
// {serialUsers, jsonUsers, perCategoryTrackers[3]} shape.
package track

import (
	"sync/atomic"

	"github.com/arcbridge/pipebridge/wire"
)

// categoryIndex maps a subscribable category to a perCategoryTrackers
// slot. Info is excluded: handshake messages are always delivered
// regardless of subscription.
func categoryIndex(cat wire.Category) int {
	switch cat {
	case wire.CategoryCombat:
		return 0
	case wire.CategoryExtras:
		return 1
	case wire.CategorySquad:
		return 2
	default:
		return -1
	}
}

// Tracking holds the process-wide reference counts.
type Tracking struct {
	serialUsers atomic.Int64
	jsonUsers   atomic.Int64
	perCategory [3]atomic.Int64
}

func New() *Tracking { return &Tracking{} }

// UseProtocol records one more client using proto.
func (t *Tracking) UseProtocol(proto wire.Protocol) {
	switch proto {
	case wire.ProtocolBinary:
		t.serialUsers.Add(1)
	case wire.ProtocolText:
		t.jsonUsers.Add(1)
	}
}

// UnuseProtocol records one fewer client using proto.
func (t *Tracking) UnuseProtocol(proto wire.Protocol) {
	switch proto {
	case wire.ProtocolBinary:
		t.serialUsers.Add(-1)
	case wire.ProtocolText:
		t.jsonUsers.Add(-1)
	}
}

// UsingProtocol reports whether any client currently uses proto.
func (t *Tracking) UsingProtocol(proto wire.Protocol) bool {
	switch proto {
	case wire.ProtocolBinary:
		return t.serialUsers.Load() > 0
	case wire.ProtocolText:
		return t.jsonUsers.Load() > 0
	default:
		return false
	}
}

// TrackEvent records one more client subscribed to cat.
func (t *Tracking) TrackEvent(cat wire.Category) {
	if i := categoryIndex(cat); i >= 0 {
		t.perCategory[i].Add(1)
	}
}

// UntrackEvent records one fewer client subscribed to cat.
func (t *Tracking) UntrackEvent(cat wire.Category) {
	if i := categoryIndex(cat); i >= 0 {
		t.perCategory[i].Add(-1)
	}
}

// IsTrackingCategory reports whether any client is currently
// subscribed to cat. Producers use this to skip encoding entirely.
func (t *Tracking) IsTrackingCategory(cat wire.Category) bool {
	i := categoryIndex(cat)
	if i < 0 {
		return false
	}
	return t.perCategory[i].Load() > 0
}

// IsTrackingType is IsTrackingCategory keyed by a message Type instead
// of a Category, matching the original's isTrackingType(MessageType).
func (t *Tracking) IsTrackingType(typ wire.Type) bool {
	return t.IsTrackingCategory(categoryOfType(typ))
}

func categoryOfType(typ wire.Type) wire.Category {
	switch {
	case typ == wire.TypeCombatEvent:
		return wire.CategoryCombat
	case typ >= wire.TypeExtrasSquadUpdate && typ <= wire.TypeExtrasChatMessage:
		return wire.CategoryExtras
	case typ >= wire.TypeSquadStatus && typ <= wire.TypeSquadRemove:
		return wire.CategorySquad
	default:
		return wire.CategoryInfo
	}
}
