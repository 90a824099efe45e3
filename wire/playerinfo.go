// PlayerInfo/PlayerInfoEntry domain encoders, grounded on
// original_source/src/PlayerContainer.{hpp,cpp}. Subgroup is 0-based in
// both the binary and text encodings (spec.md §9), matching
// wire/extras.go's UserInfo.ToText, the other squad-facing encoder.
package wire

// Role enumerates a squad member's role, None through Lieutenant
// (spec.md §3).
type Role uint8

const (
	RoleNone       Role = 0
	RoleLieutenant Role = 5
)

// PlayerInfo is one squad roster entry (spec.md §3).
type PlayerInfo struct {
	AccountName   string
	CharacterName string
	JoinTime      int64
	Profession    uint32
	Elite         uint32
	Role          Role
	Subgroup      uint8
	InInstance    bool
	Self          bool
	ReadyStatus   bool
}

// Equal mirrors PlayerContainer.cpp's operator==(PlayerInfo,PlayerInfo).
func (p PlayerInfo) Equal(o PlayerInfo) bool {
	return p.AccountName == o.AccountName && p.CharacterName == o.CharacterName &&
		p.JoinTime == o.JoinTime && p.Profession == o.Profession && p.Elite == o.Elite &&
		p.Role == o.Role && p.Subgroup == o.Subgroup && p.InInstance == o.InInstance
}

// playerInfoPartialSize is every PlayerInfo field but the two strings:
// joinTime(8) + profession(4) + elite(4) + role(1) + subgroup(1) +
// inInstance/self/readyStatus (1 each).
const playerInfoPartialSize = 8 + 4 + 4 + 1 + 1 + 1 + 1 + 1

func (p PlayerInfo) SizeOf() int {
	return SizeOfString(p.AccountName) + SizeOfString(p.CharacterName) + playerInfoPartialSize
}

func (p PlayerInfo) writeSerial(e *Encoder) {
	e.WriteString(p.AccountName)
	e.WriteString(p.CharacterName)
	e.WriteInt64(p.JoinTime)
	e.WriteUint32(p.Profession)
	e.WriteUint32(p.Elite)
	e.WriteUint8(uint8(p.Role))
	e.WriteUint8(p.Subgroup)
	e.WriteBool(p.InInstance)
	e.WriteBool(p.Self)
	e.WriteBool(p.ReadyStatus)
}

func (p PlayerInfo) ToSerial() []byte {
	buf := make([]byte, p.SizeOf())
	p.writeSerial(NewEncoder(buf))
	return buf
}

// ToText mirrors PlayerInfo::toJSON; characterName is null when empty.
// Subgroup is 0-based in both encodings (spec.md §9 resolves the
// original's text/binary inconsistency in favor of 0-based everywhere).
func (p PlayerInfo) ToText() map[string]any {
	m := map[string]any{
		"accountName":   p.AccountName,
		"characterName": any(nil),
		"joinTime":      p.JoinTime,
		"profession":    p.Profession,
		"elite":         p.Elite,
		"role":          uint8(p.Role),
		"subgroup":      p.Subgroup,
		"inInstance":    p.InInstance,
		"self":          p.Self,
		"readyStatus":   p.ReadyStatus,
	}
	if p.CharacterName != "" {
		m["characterName"] = p.CharacterName
	}
	return m
}

// PlayerInfoEntry pairs a PlayerInfo with its optimistic-concurrency
// validator (spec.md §3). ValidatorStart is the value a freshly added
// entry receives.
const ValidatorStart uint64 = 1

type PlayerInfoEntry struct {
	Player    PlayerInfo
	Validator uint64
}

func (e PlayerInfoEntry) SizeOf() int { return 8 + e.Player.SizeOf() }

func (e PlayerInfoEntry) ToSerial() []byte {
	buf := make([]byte, e.SizeOf())
	enc := NewEncoder(buf)
	enc.WriteUint64(e.Validator)
	e.Player.writeSerial(enc)
	return buf
}

func (e PlayerInfoEntry) ToText() map[string]any {
	m := e.Player.ToText()
	m["validator"] = e.Validator
	return m
}
