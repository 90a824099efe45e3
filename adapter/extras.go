package adapter

import "github.com/arcbridge/pipebridge/wire"

// SquadUpdate implements the Unofficial Extras squad_update_callback
// mapping (spec.md §4.9): role==None removes the member (clearing the
// whole roster if the leaving account is self), anything else adds or
// updates, preferring character/profession data combat already
// supplied.
func (a *Adapter) SquadUpdate(users []wire.UserInfo) {
	for _, u := range users {
		if u.Role == uint8(wire.RoleNone) {
			a.removeSquadMember(u)
		} else {
			a.addOrUpdateSquadMember(u)
		}
		a.emitExtrasSquadUpdate(u)
	}
}

func (a *Adapter) removeSquadMember(u wire.UserInfo) {
	a.squad.RemovePlayer(u.AccountName, func(entry wire.PlayerInfoEntry) {
		a.emitSquadDelta("remove", "extra", entry)
	})
	if a.isSelf(u.AccountName) {
		a.squad.Clear()
	}
}

// addOrUpdateSquadMember mirrors the original's "ArcDPS might have
// added the player already" branch: a first sighting constructs a
// partial PlayerInfo from the extras fields alone; a repeat sighting
// only refreshes role/subgroup/joinTime, never overwriting
// characterName/profession/elite that combat may have already filled
// in.
func (a *Adapter) addOrUpdateSquadMember(u wire.UserInfo) {
	existing, found := a.squad.FindPlayer(u.AccountName)
	if !found {
		player := wire.PlayerInfo{
			AccountName: u.AccountName,
			Role:        wire.Role(u.Role),
			Subgroup:    u.Subgroup,
			JoinTime:    u.JoinTime,
		}
		a.squad.AddPlayer(player, func(entry wire.PlayerInfoEntry) {
			a.emitSquadDelta("add", "extra", entry)
		}, func() {})
		return
	}

	a.squad.UpdatePlayer(existing, func(p *wire.PlayerInfo) {
		p.Role = wire.Role(u.Role)
		p.Subgroup = u.Subgroup
		if u.JoinTime != 0 {
			p.JoinTime = u.JoinTime
		}
	}, func(entry wire.PlayerInfoEntry) {
		a.emitSquadDelta("update", "extra", entry)
	})
}

func (a *Adapter) emitExtrasSquadUpdate(u wire.UserInfo) {
	if !a.sink.IsTrackingCategory(wire.CategoryExtras) {
		return
	}
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasSquadUpdateType, wire.ProtocolBinary, u.ToSerial(), nil))
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasSquadUpdateType, wire.ProtocolText, nil, u.ToText()))
}

// LanguageChanged forwards the extras language-changed event verbatim
// (no squad mutation, spec.md §4.3 Language).
func (a *Adapter) LanguageChanged(lang wire.Language) {
	if !a.sink.IsTrackingCategory(wire.CategoryExtras) {
		return
	}
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasLanguageChangeType, wire.ProtocolBinary, lang.ToSerial(), nil))
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasLanguageChangeType, wire.ProtocolText, nil, lang.ToText()))
}

// KeyBindChanged forwards the extras keybind-changed event verbatim.
func (a *Adapter) KeyBindChanged(kb wire.KeyBindChanged) {
	if !a.sink.IsTrackingCategory(wire.CategoryExtras) {
		return
	}
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasKeyBindChangeType, wire.ProtocolBinary, kb.ToSerial(), nil))
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasKeyBindChangeType, wire.ProtocolText, nil, kb.ToText()))
}

// ChatMessage forwards the extras chat-message event verbatim.
func (a *Adapter) ChatMessage(msg wire.ChatMessageInfo) {
	if !a.sink.IsTrackingCategory(wire.CategoryExtras) {
		return
	}
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasChatMessageType, wire.ProtocolBinary, msg.ToSerial(), nil))
	a.sink.SendMessage(wire.NewExtrasMessage(wire.ExtrasChatMessageType, wire.ProtocolText, nil, msg.ToText()))
}
