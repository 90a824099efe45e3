package adapter

import (
	"testing"

	"github.com/arcbridge/pipebridge/wire"
)

// fakeSquad is a minimal in-memory double for the Handler interface,
// letting adapter tests exercise find/add/update/remove without the
// full squad package.
type fakeSquad struct {
	byAccount map[string]wire.PlayerInfoEntry
	nextValid uint64
}

func newFakeSquad() *fakeSquad {
	return &fakeSquad{byAccount: map[string]wire.PlayerInfoEntry{}, nextValid: wire.ValidatorStart}
}

func (f *fakeSquad) FindPlayer(accountName string) (wire.PlayerInfoEntry, bool) {
	e, ok := f.byAccount[accountName]
	return e, ok
}

func (f *fakeSquad) AddPlayer(player wire.PlayerInfo, onSuccess func(wire.PlayerInfoEntry), onFailed func()) {
	if _, exists := f.byAccount[player.AccountName]; exists {
		onFailed()
		return
	}
	entry := wire.PlayerInfoEntry{Player: player, Validator: f.nextValid}
	f.nextValid++
	f.byAccount[player.AccountName] = entry
	onSuccess(entry)
}

func (f *fakeSquad) UpdatePlayer(existing wire.PlayerInfoEntry, mutate func(*wire.PlayerInfo), onSuccess func(wire.PlayerInfoEntry)) {
	current, ok := f.byAccount[existing.Player.AccountName]
	if !ok {
		return
	}
	mutate(&current.Player)
	current.Validator = f.nextValid
	f.nextValid++
	f.byAccount[current.Player.AccountName] = current
	onSuccess(current)
}

func (f *fakeSquad) RemovePlayer(accountName string, onSuccess func(wire.PlayerInfoEntry)) {
	e, ok := f.byAccount[accountName]
	if !ok {
		return
	}
	delete(f.byAccount, accountName)
	onSuccess(e)
}

func (f *fakeSquad) Clear() { f.byAccount = map[string]wire.PlayerInfoEntry{} }

type fakeSink struct {
	tracked  map[wire.Category]bool
	messages []*wire.Message
}

func newFakeSink(categories ...wire.Category) *fakeSink {
	s := &fakeSink{tracked: map[wire.Category]bool{}}
	for _, c := range categories {
		s.tracked[c] = true
	}
	return s
}

func (s *fakeSink) IsTrackingCategory(cat wire.Category) bool { return s.tracked[cat] }
func (s *fakeSink) SendMessage(msg *wire.Message)             { s.messages = append(s.messages, msg) }

func TestCombatIntroducesNewPlayerAndEmitsSquadAdd(t *testing.T) {
	sq := newFakeSquad()
	sink := newFakeSink(wire.CategorySquad)
	a := New(sq, sink)

	cb := wire.CombatCallback{
		Src: &wire.Agent{Name: "Char Name", Prof: 1, Elite: 0},
		Dst: &wire.Agent{Name: "account.1234", Prof: 5, Elite: 7},
	}
	a.Combat(cb)

	entry, found := sq.FindPlayer("account.1234")
	if !found {
		t.Fatalf("expected player to be added")
	}
	if entry.Player.CharacterName != "Char Name" || entry.Player.Profession != 5 || entry.Player.Elite != 7 {
		t.Fatalf("unexpected player state: %+v", entry.Player)
	}
	if len(sink.messages) != 2 {
		t.Fatalf("expected binary+text squad-add messages, got %d", len(sink.messages))
	}
	for _, m := range sink.messages {
		if m.Type != wire.TypeSquadAdd {
			t.Fatalf("expected SquadAdd type, got %v", m.Type)
		}
	}
}

func TestCombatUpdatesExistingPlayer(t *testing.T) {
	sq := newFakeSquad()
	sq.byAccount["account.1234"] = wire.PlayerInfoEntry{
		Player:    wire.PlayerInfo{AccountName: "account.1234", Role: wire.RoleLieutenant, Subgroup: 2},
		Validator: wire.ValidatorStart,
	}
	sink := newFakeSink(wire.CategorySquad)
	a := New(sq, sink)

	cb := wire.CombatCallback{
		Src: &wire.Agent{Name: "New Char", Prof: 1},
		Dst: &wire.Agent{Name: "account.1234", Prof: 9, Elite: 1},
	}
	a.Combat(cb)

	entry, _ := sq.FindPlayer("account.1234")
	if entry.Player.CharacterName != "New Char" || entry.Player.Profession != 9 || entry.Player.Elite != 1 {
		t.Fatalf("unexpected player state: %+v", entry.Player)
	}
	if entry.Player.Role != wire.RoleLieutenant || entry.Player.Subgroup != 2 {
		t.Fatalf("expected extras-supplied fields preserved: %+v", entry.Player)
	}
}

func TestCombatSkipsIdentityWhenEliteNonzero(t *testing.T) {
	sq := newFakeSquad()
	sink := newFakeSink(wire.CategorySquad, wire.CategoryCombat)
	a := New(sq, sink)

	cb := wire.CombatCallback{
		Src: &wire.Agent{Name: "x", Elite: 3, Prof: 1},
		Dst: &wire.Agent{Name: "account.9999"},
	}
	a.Combat(cb)

	if _, found := sq.FindPlayer("account.9999"); found {
		t.Fatalf("expected no player introduced when src.elite != 0")
	}
}

func TestCombatSuppressesSquadDeltaWithoutSubscribers(t *testing.T) {
	sq := newFakeSquad()
	sink := newFakeSink() // no category subscribed
	a := New(sq, sink)

	cb := wire.CombatCallback{
		Src: &wire.Agent{Name: "x", Prof: 1},
		Dst: &wire.Agent{Name: "account.1", Prof: 1},
	}
	a.Combat(cb)

	if len(sink.messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(sink.messages))
	}
	if _, found := sq.FindPlayer("account.1"); !found {
		t.Fatalf("expected player identity still applied even without subscribers")
	}
}

func TestCombatEmitsEventWhenSubscribed(t *testing.T) {
	sq := newFakeSquad()
	sink := newFakeSink(wire.CategoryCombat)
	a := New(sq, sink)

	ev := wire.CombatEvent{Time: 1}
	a.Combat(wire.CombatCallback{Ev: &ev, ID: 7, Revision: 1})

	if len(sink.messages) != 2 {
		t.Fatalf("expected binary+text combat messages, got %d", len(sink.messages))
	}
	for _, m := range sink.messages {
		if m.Category != wire.CategoryCombat || m.Type != wire.TypeCombatEvent {
			t.Fatalf("unexpected message %+v", m)
		}
	}
}

func TestSquadUpdateAddsNewMember(t *testing.T) {
	sq := newFakeSquad()
	sink := newFakeSink(wire.CategorySquad, wire.CategoryExtras)
	a := New(sq, sink)

	a.SquadUpdate([]wire.UserInfo{{AccountName: "account.5", Role: 1, Subgroup: 0, JoinTime: 100}})

	entry, found := sq.FindPlayer("account.5")
	if !found {
		t.Fatalf("expected member added")
	}
	if entry.Player.Role != wire.Role(1) || entry.Player.JoinTime != 100 {
		t.Fatalf("unexpected player state: %+v", entry.Player)
	}
	// one squad-add (binary+text) plus one extras echo (binary+text)
	if len(sink.messages) != 4 {
		t.Fatalf("expected 4 fanned-out messages, got %d", len(sink.messages))
	}
}

func TestSquadUpdateRemovesOnRoleNone(t *testing.T) {
	sq := newFakeSquad()
	sq.byAccount["account.5"] = wire.PlayerInfoEntry{Player: wire.PlayerInfo{AccountName: "account.5"}, Validator: 1}
	sink := newFakeSink(wire.CategorySquad)
	a := New(sq, sink)

	a.SquadUpdate([]wire.UserInfo{{AccountName: "account.5", Role: uint8(wire.RoleNone)}})

	if _, found := sq.FindPlayer("account.5"); found {
		t.Fatalf("expected member removed")
	}
}

func TestSquadUpdateSelfLeaveClearsRoster(t *testing.T) {
	sq := newFakeSquad()
	sq.byAccount["self.1"] = wire.PlayerInfoEntry{Player: wire.PlayerInfo{AccountName: "self.1"}, Validator: 1}
	sq.byAccount["other.1"] = wire.PlayerInfoEntry{Player: wire.PlayerInfo{AccountName: "other.1"}, Validator: 1}
	sink := newFakeSink()
	a := New(sq, sink)
	a.SetSelf("self.1")

	a.SquadUpdate([]wire.UserInfo{{AccountName: "self.1", Role: uint8(wire.RoleNone)}})

	if len(sq.byAccount) != 0 {
		t.Fatalf("expected roster cleared on self-leave, got %v", sq.byAccount)
	}
}

func TestSquadUpdatePreservesExistingCharacterData(t *testing.T) {
	sq := newFakeSquad()
	sq.byAccount["account.5"] = wire.PlayerInfoEntry{
		Player:    wire.PlayerInfo{AccountName: "account.5", CharacterName: "Already Set", Profession: 42},
		Validator: 1,
	}
	sink := newFakeSink()
	a := New(sq, sink)

	a.SquadUpdate([]wire.UserInfo{{AccountName: "account.5", Role: 3, Subgroup: 1}})

	entry, _ := sq.FindPlayer("account.5")
	if entry.Player.CharacterName != "Already Set" || entry.Player.Profession != 42 {
		t.Fatalf("expected combat-supplied fields untouched, got %+v", entry.Player)
	}
	if entry.Player.Role != wire.Role(3) || entry.Player.Subgroup != 1 {
		t.Fatalf("expected role/subgroup refreshed, got %+v", entry.Player)
	}
}
