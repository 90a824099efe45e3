// Package adapter maps the two host-callback streams — arcdps combat
// events and Unofficial Extras squad/chat/keybind/language events —
// into squad.Handler mutations and outbound wire.Message fan-out
// (spec.md §4.9). Grounded on original_source/src/Entry.cpp's
// mod_combat and squad_update_callback, the only place the original
// wires a host callback to both the squad container and the pipe
// server.
package adapter

import (
	"sync"

	"github.com/arcbridge/pipebridge/wire"
)

// Sink is the subset of pipe.Handler an adapter needs: skip encoding
// a category nobody subscribed to, and fan a built message out to
// matching clients.
type Sink interface {
	IsTrackingCategory(cat wire.Category) bool
	SendMessage(msg *wire.Message)
}

// Adapter holds the self-account name set by the extras subscriber
// handshake (original_source's AppData.Self, assigned from
// ExtrasAddonInfo.SelfAccountName at arcdps_unofficial_extras_subscriber_init).
type Adapter struct {
	squad Handler
	sink  Sink

	mu     sync.RWMutex
	self   string
	onSelf func(string)
}

// Handler is the squad-mutation surface an adapter drives; satisfied
// by *squad.Handler. Kept as an interface so adapter tests can run
// against a plain in-memory double instead of the full container.
type Handler interface {
	FindPlayer(accountName string) (wire.PlayerInfoEntry, bool)
	AddPlayer(player wire.PlayerInfo, onSuccess func(wire.PlayerInfoEntry), onFailed func())
	UpdatePlayer(existing wire.PlayerInfoEntry, mutate func(*wire.PlayerInfo), onSuccess func(wire.PlayerInfoEntry))
	RemovePlayer(accountName string, onSuccess func(wire.PlayerInfoEntry))
	Clear()
}

// New wires an adapter to the squad state and the message sink.
func New(h Handler, sink Sink) *Adapter {
	return &Adapter{squad: h, sink: sink}
}

// SetSelf records the local player's account name, reported once by
// the extras subscriber init (spec.md §4.9 "self leaves"). If
// OnSelfChange registered a callback, it is invoked with the new name
// so other components (the connection-handshake snapshotter) can
// mirror it without a second copy of the host-shim wiring.
func (a *Adapter) SetSelf(accountName string) {
	a.mu.Lock()
	a.self = accountName
	cb := a.onSelf
	a.mu.Unlock()
	if cb != nil {
		cb(accountName)
	}
}

// OnSelfChange registers fn to run every time SetSelf is called.
func (a *Adapter) OnSelfChange(fn func(string)) {
	a.mu.Lock()
	a.onSelf = fn
	a.mu.Unlock()
}

func (a *Adapter) isSelf(accountName string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.self != "" && a.self == accountName
}

// emitSquadDelta fans a roster change out as binary+text SquadAdd/
// Update/Remove messages, skipping the work entirely when nobody is
// subscribed to the Squad category (spec.md §4.9 "if the squad
// category has any subscribers").
func (a *Adapter) emitSquadDelta(trigger, source string, entry wire.PlayerInfoEntry) {
	if !a.sink.IsTrackingCategory(wire.CategorySquad) {
		return
	}
	typ := squadDeltaType(trigger)
	data := map[string]any{"trigger": trigger, "source": source, "member": entry.ToText()}
	a.sink.SendMessage(wire.NewSquadMessage(typ, wire.ProtocolBinary, entry.ToSerial(), nil))
	a.sink.SendMessage(wire.NewSquadMessage(typ, wire.ProtocolText, nil, data))
}

func squadDeltaType(trigger string) wire.SquadType {
	switch trigger {
	case "add":
		return wire.SquadAddType
	case "update":
		return wire.SquadUpdateType
	default:
		return wire.SquadRemoveType
	}
}
