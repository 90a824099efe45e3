package squad

import (
	"sync"

	"github.com/arcbridge/pipebridge/wire"
)

// Handler serializes squad mutations through a single lock so a
// composite "read, mutate, conditionally retry" operation is atomic
// with respect to other mutators (spec.md §4.5). Grounded on
// original_source/src/SquadModifyHandler.hpp.
type Handler struct {
	mu    sync.Mutex
	squad *Container
}

func NewHandler(c *Container) *Handler { return &Handler{squad: c} }

// FindPlayer exposes a Handler-locked read so a caller that needs to
// decide between AddPlayer and UpdatePlayer (the host-callback
// adapters, spec.md §4.9) observes a snapshot consistent with other
// Handler-serialized mutations.
func (h *Handler) FindPlayer(accountName string) (wire.PlayerInfoEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.squad.Find(accountName)
}

// AddPlayer calls Container.Add; onSuccess receives the freshly
// created entry on Success, onFailed is called otherwise (ExistsError
// or CapacityError).
func (h *Handler) AddPlayer(player wire.PlayerInfo, onSuccess func(wire.PlayerInfoEntry), onFailed func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, status := h.squad.Add(player)
	if status == StatusSuccess {
		onSuccess(entry)
		return
	}
	onFailed()
}

// UpdatePlayer repeatedly applies mutate to existing's player and
// submits the result to Container.Update; on StatusValidatorMismatch
// it retries against the freshly echoed stored entry. On Success or
// Equal it calls onSuccess once with the final stored entry (spec.md
// §4.5: both outcomes call onSuccess, unlike the original, which only
// calls its success callback on Success). On NotFound it exits
// silently.
func (h *Handler) UpdatePlayer(existing wire.PlayerInfoEntry, mutate func(*wire.PlayerInfo), onSuccess func(wire.PlayerInfoEntry)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	current := existing
	for {
		mutate(&current.Player)
		updated, status := h.squad.Update(current)
		switch status {
		case StatusValidatorMismatch:
			current = updated
			continue
		case StatusSuccess, StatusEqual:
			onSuccess(updated)
			return
		default: // StatusNotFound
			return
		}
	}
}

// RemovePlayer calls Container.Remove; onSuccess receives the removed
// entry if one was present.
func (h *Handler) RemovePlayer(accountName string, onSuccess func(wire.PlayerInfoEntry)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if removed, ok := h.squad.Remove(accountName); ok {
		onSuccess(removed)
	}
}

// Clear forwards to the container (I4 "self leaves").
func (h *Handler) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.squad.Clear()
}
