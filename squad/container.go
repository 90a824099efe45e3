// Package squad synthesizes and serves the canonical squad roster
// (spec.md §3, §4.4, §4.5) out of information arriving from the
// combat and extras host callbacks. Grounded on
// original_source/src/PlayerContainer.{hpp,cpp}: a fixed-size slot
// array guarded by a single mutex, with an add/find/find_if/
// update/remove/clear surface and optimistic-concurrency validators.
package squad

import (
	"sync"

	"github.com/arcbridge/pipebridge/wire"
)

// Capacity is the fixed slot count, matching PlayerContainer.hpp's
// std::array<..., 65> (the error-log text there says "50", which the
// code itself does not enforce — the array bound is authoritative).
const Capacity = 65

// Status is the outcome of a PlayerContainer mutation (spec.md §4.4).
// Names follow spec.md's wording rather than the original's
// Invalid/ValidatorError, which it renames to NotFound/ValidatorMismatch.
type Status int

const (
	StatusInvalid           Status = iota
	StatusNotFound                 // update: no entry with that accountName
	StatusValidatorMismatch         // update: caller's validator is stale
	StatusExistsError               // add: accountName already present
	StatusCapacityError             // add: no free slot
	StatusEqual                     // update: no-op, value unchanged
	StatusSuccess                   // add/update: stored
)

type slot struct {
	occupied bool
	entry    wire.PlayerInfoEntry
}

// Container is the fixed-capacity roster (spec.md §3 PlayerContainer).
// Invariants I1-I4 are enforced entirely under mu.
type Container struct {
	mu    sync.Mutex
	slots [Capacity]slot
}

func New() *Container { return &Container{} }

func (c *Container) findLocked(accountName string) int {
	for i := range c.slots {
		if c.slots[i].occupied && c.slots[i].entry.Player.AccountName == accountName {
			return i
		}
	}
	return -1
}

// Add stores player with a fresh validator (I2 baseline). Fails
// StatusExistsError if accountName is already present, or
// StatusCapacityError if every slot is occupied.
func (c *Container) Add(player wire.PlayerInfo) (wire.PlayerInfoEntry, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.findLocked(player.AccountName) >= 0 {
		return wire.PlayerInfoEntry{}, StatusExistsError
	}
	for i := range c.slots {
		if !c.slots[i].occupied {
			entry := wire.PlayerInfoEntry{Player: player, Validator: wire.ValidatorStart}
			c.slots[i] = slot{occupied: true, entry: entry}
			return entry, StatusSuccess
		}
	}
	return wire.PlayerInfoEntry{}, StatusCapacityError
}

// Find returns a copy of the stored entry, if present.
func (c *Container) Find(accountName string) (wire.PlayerInfoEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.findLocked(accountName); i >= 0 {
		return c.slots[i].entry, true
	}
	return wire.PlayerInfoEntry{}, false
}

// FindIf returns the first occupied entry whose player satisfies pred.
func (c *Container) FindIf(pred func(wire.PlayerInfo) bool) (wire.PlayerInfoEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].occupied && pred(c.slots[i].entry.Player) {
			return c.slots[i].entry, true
		}
	}
	return wire.PlayerInfoEntry{}, false
}

// Update applies the optimistic-concurrency rule (I2, I3): it requires
// entry.Validator to equal the stored validator, then on a changed
// player stores and returns Success, or on an unchanged player returns
// Equal without rewriting the player. Both outcomes increment the
// stored validator and echo the new stored entry.
func (c *Container) Update(entry wire.PlayerInfoEntry) (wire.PlayerInfoEntry, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.findLocked(entry.Player.AccountName)
	if i < 0 {
		return wire.PlayerInfoEntry{}, StatusNotFound
	}
	stored := &c.slots[i].entry
	if stored.Validator != entry.Validator {
		return *stored, StatusValidatorMismatch
	}
	if stored.Player.Equal(entry.Player) {
		stored.Validator++
		return *stored, StatusEqual
	}
	stored.Player = entry.Player
	stored.Validator++
	return *stored, StatusSuccess
}

// Remove frees accountName's slot, if occupied, returning the entry it
// held.
func (c *Container) Remove(accountName string) (wire.PlayerInfoEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.findLocked(accountName)
	if i < 0 {
		return wire.PlayerInfoEntry{}, false
	}
	removed := c.slots[i].entry
	c.slots[i] = slot{}
	return removed, true
}

// Clear frees every slot (I4 "self leaves").
func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		c.slots[i] = slot{}
	}
}

// Snapshot returns a copy of every occupied entry, in slot order.
func (c *Container) Snapshot() []wire.PlayerInfoEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.PlayerInfoEntry, 0, Capacity)
	for i := range c.slots {
		if c.slots[i].occupied {
			out = append(out, c.slots[i].entry)
		}
	}
	return out
}

// ToSerial produces startPadding leading zero bytes, followed by a u64
// count and each occupied entry in slot order (spec.md §4.4
// toSerial(startPadding)). The header area the spec describes is
// filled in by the caller (PipeHandler), which owns message framing;
// this method only guarantees the padding is present and zeroed.
func (c *Container) ToSerial(startPadding int) []byte {
	entries := c.Snapshot()

	size := startPadding + 8
	serials := make([][]byte, len(entries))
	for i, e := range entries {
		serials[i] = e.ToSerial()
		size += len(serials[i])
	}

	buf := make([]byte, size)
	e := wire.NewEncoder(buf[startPadding:])
	e.WriteUint64(uint64(len(entries)))
	for _, s := range serials {
		e.WriteBytes(s)
	}
	return buf
}

// ToText renders every occupied entry's text form, in slot order.
func (c *Container) ToText() []map[string]any {
	entries := c.Snapshot()
	out := make([]map[string]any, len(entries))
	for i, e := range entries {
		out[i] = e.ToText()
	}
	return out
}
