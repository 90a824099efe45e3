// Combat event and agent encoders, grounded on
// original_source/src/Combat.{hpp,cpp}: the host's arcdps combat
// callback delivers a cbtevent, two optional ag (agent) pointers, an
// optional skillname, and an id/revision pair. The composite serial
// layout is a leading presence bitmask (ev=1, src=2, dst=4) followed by
// each present part in order, then skillname, id, revision.
package wire

// CombatEvent mirrors arcdps's cbtevent (spec.md §4.3(a)). All fields
// are written in declaration order with no padding bytes serialized.
type CombatEvent struct {
	Time             uint64
	SrcAgent         uint64
	DstAgent         uint64
	Value            int32
	BuffDmg          int32
	OverstackValue   uint32
	SkillID          uint32
	SrcInstID        uint16
	DstInstID        uint16
	SrcMasterInstID  uint16
	DstMasterInstID  uint16
	IFF              uint8
	Buff             uint8
	Result           uint8
	IsActivation     uint8
	IsBuffRemove     uint8
	IsNinety         uint8
	IsFifty          uint8
	IsMoving         uint8
	IsStateChange    uint8
	IsFlanking       uint8
	IsShields        uint8
	IsOffCycle       uint8
}

// combatEventSize is the fixed wire size of a CombatEvent: 3 uint64 (24)
// + 2 int32 (8) + 2 uint32 (8) + 4 uint16 (8) + 12 uint8 (12) = 60,
// matching the original cbtevent's on-wire size (its 4 pad bytes are
// never serialized).
const combatEventSize = 8*3 + 4*2 + 4*2 + 2*4 + 12

func (ev CombatEvent) toJSON() map[string]any {
	return map[string]any{
		"time":              ev.Time,
		"src_agent":         ev.SrcAgent,
		"dst_agent":         ev.DstAgent,
		"value":             ev.Value,
		"buff_dmg":          ev.BuffDmg,
		"overstack_value":   ev.OverstackValue,
		"skillid":           ev.SkillID,
		"src_instid":        ev.SrcInstID,
		"dst_instid":        ev.DstInstID,
		"src_master_instid": ev.SrcMasterInstID,
		"dst_master_instid": ev.DstMasterInstID,
		"iff":               ev.IFF,
		"buff":              ev.Buff,
		"result":            ev.Result,
		"is_activation":     ev.IsActivation,
		"is_buffremove":     ev.IsBuffRemove,
		"is_ninety":         ev.IsNinety,
		"is_fifty":          ev.IsFifty,
		"is_moving":         ev.IsMoving,
		"is_statechange":    ev.IsStateChange,
		"is_flanking":       ev.IsFlanking,
		"is_shields":        ev.IsShields,
		"is_offcycle":       ev.IsOffCycle,
	}
}

// Agent mirrors arcdps's ag (spec.md §4.3(a)). Name may be empty,
// meaning "absent" in the original (a null char*); the wire encoding
// cannot distinguish absent from empty, which matches the original's
// own ambiguity.
type Agent struct {
	Name  string
	ID    uint64
	Prof  uint32
	Elite uint32
	Self  uint32
	Team  uint16
}

// agentPartialSize is every Agent field except Name: id(8) + prof(4) +
// elite(4) + self(4) + team(2).
const agentPartialSize = 8 + 4 + 4 + 4 + 2

func (a Agent) sizeOf() int { return SizeOfString(a.Name) + agentPartialSize }

func (a Agent) toSerial(e *Encoder) {
	e.WriteString(a.Name)
	e.WriteUint64(a.ID)
	e.WriteUint32(a.Prof)
	e.WriteUint32(a.Elite)
	e.WriteUint32(a.Self)
	e.WriteUint16(a.Team)
}

func (a Agent) toJSON() map[string]any {
	m := map[string]any{
		"name": any(nil), "id": a.ID, "prof": a.Prof, "elite": a.Elite, "self": a.Self, "team": a.Team,
	}
	if a.Name != "" {
		m["name"] = a.Name
	}
	return m
}

// CombatCallback is the bundle passed from one invocation of the
// host's combat callback (spec.md §4.9): ev, src, and dst are each
// independently optional, matching arcdps's nullable ag*/cbtevent*
// parameters.
type CombatCallback struct {
	Ev        *CombatEvent
	Src       *Agent
	Dst       *Agent
	SkillName string
	ID        uint64
	Revision  uint64
}

const (
	bitEvPresent  = 1 << 0
	bitSrcPresent = 1 << 1
	bitDstPresent = 1 << 2
)

// ToSerial builds the composite combat-arg payload: bitmask, then
// ev/src/dst (each present field in order), then skillname, id,
// revision.
func (c CombatCallback) ToSerial() []byte {
	size := 1
	if c.Ev != nil {
		size += combatEventSize
	}
	if c.Src != nil {
		size += c.Src.sizeOf()
	}
	if c.Dst != nil {
		size += c.Dst.sizeOf()
	}
	size += SizeOfString(c.SkillName)
	size += 8 + 8

	buf := make([]byte, size)
	e := NewEncoder(buf)

	var bits uint8
	if c.Ev != nil {
		bits |= bitEvPresent
	}
	if c.Src != nil {
		bits |= bitSrcPresent
	}
	if c.Dst != nil {
		bits |= bitDstPresent
	}
	e.WriteUint8(bits)

	if c.Ev != nil {
		writeCombatEvent(e, *c.Ev)
	}
	if c.Src != nil {
		c.Src.toSerial(e)
	}
	if c.Dst != nil {
		c.Dst.toSerial(e)
	}
	e.WriteString(c.SkillName)
	e.WriteUint64(c.ID)
	e.WriteUint64(c.Revision)
	return buf
}

// writeCombatEvent writes the 60-byte fixed CombatEvent layout. A free
// function rather than a method so 32-bit signed fields can be written
// via an explicit uint32 cast, matching the original's serial_w_integral
// on int32_t.
func writeCombatEvent(e *Encoder, ev CombatEvent) {
	e.WriteUint64(ev.Time)
	e.WriteUint64(ev.SrcAgent)
	e.WriteUint64(ev.DstAgent)
	e.WriteUint32(uint32(ev.Value))
	e.WriteUint32(uint32(ev.BuffDmg))
	e.WriteUint32(ev.OverstackValue)
	e.WriteUint32(ev.SkillID)
	e.WriteUint16(ev.SrcInstID)
	e.WriteUint16(ev.DstInstID)
	e.WriteUint16(ev.SrcMasterInstID)
	e.WriteUint16(ev.DstMasterInstID)
	e.WriteUint8(ev.IFF)
	e.WriteUint8(ev.Buff)
	e.WriteUint8(ev.Result)
	e.WriteUint8(ev.IsActivation)
	e.WriteUint8(ev.IsBuffRemove)
	e.WriteUint8(ev.IsNinety)
	e.WriteUint8(ev.IsFifty)
	e.WriteUint8(ev.IsMoving)
	e.WriteUint8(ev.IsStateChange)
	e.WriteUint8(ev.IsFlanking)
	e.WriteUint8(ev.IsShields)
	e.WriteUint8(ev.IsOffCycle)
}

// ToText mirrors CombatToJSON: absent ev/src/dst/skillname become
// null. encoding/json.Marshal escapes embedded quotes in skillname
// automatically, matching the original's manual `\"` replacement.
func (c CombatCallback) ToText() map[string]any {
	m := map[string]any{
		"id": c.ID, "revision": c.Revision,
		"ev": any(nil), "src": any(nil), "dst": any(nil), "skillname": any(nil),
	}
	if c.Ev != nil {
		m["ev"] = c.Ev.toJSON()
	}
	if c.Src != nil {
		m["src"] = c.Src.toJSON()
	}
	if c.Dst != nil {
		m["dst"] = c.Dst.toJSON()
	}
	if c.SkillName != "" {
		m["skillname"] = c.SkillName
	}
	return m
}
