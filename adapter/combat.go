package adapter

import "github.com/arcbridge/pipebridge/wire"

// Combat implements the arcdps combat callback mapping (spec.md §4.9,
// mod_combat). ev/src/dst/skillname are independently optional,
// mirroring arcdps's nullable parameters.
func (a *Adapter) Combat(cb wire.CombatCallback) {
	if cb.Ev == nil && cb.Src != nil && cb.Dst != nil && cb.Src.Elite == 0 && cb.Src.Prof != 0 {
		a.applyCombatIdentity(cb.Src, cb.Dst)
	}

	if !a.sink.IsTrackingCategory(wire.CategoryCombat) {
		return
	}
	a.sink.SendMessage(wire.NewCombatMessage(wire.CombatEventType, wire.ProtocolBinary, cb.ToSerial(), nil))
	a.sink.SendMessage(wire.NewCombatMessage(wire.CombatEventType, wire.ProtocolText, nil, cb.ToText()))
}

// applyCombatIdentity introduces or refreshes character name and
// profession/elite for dst's account, sourced from the src/dst agent
// pair the way the original reads them: characterName from src,
// profession/elite from dst (original_source/src/Entry.cpp mod_combat).
func (a *Adapter) applyCombatIdentity(src, dst *wire.Agent) {
	accountName := dst.Name
	if accountName == "" {
		return
	}

	if existing, found := a.squad.FindPlayer(accountName); found {
		a.squad.UpdatePlayer(existing, func(p *wire.PlayerInfo) {
			p.CharacterName = src.Name
			p.Profession = dst.Prof
			p.Elite = dst.Elite
		}, func(entry wire.PlayerInfoEntry) {
			a.emitSquadDelta("update", "combat", entry)
		})
		return
	}

	player := wire.PlayerInfo{
		AccountName:   accountName,
		CharacterName: src.Name,
		Profession:    dst.Prof,
		Elite:         dst.Elite,
	}
	a.squad.AddPlayer(player, func(entry wire.PlayerInfoEntry) {
		a.emitSquadDelta("add", "combat", entry)
	}, func() {})
}
