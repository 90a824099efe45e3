// Extras domain encoders, grounded on original_source/src/Extras.{hpp,cpp}
// (UserInfo, Language, KeyBindChanged, ChatMessageInfo) — the Unofficial
// Extras sibling module's callback payloads.
package wire

// UserInfo is the extras squad-update payload (spec.md §4.3). Subgroup
// is 0-based in both the binary and text encodings (spec.md §9),
// matching PlayerInfo's own convention in wire/playerinfo.go.
type UserInfo struct {
	AccountName string
	Role        uint8
	Subgroup    uint8
	JoinTime    int64
	ReadyStatus bool
}

const userInfoPartialSize = 8 + 1 + 1 + 1 // joinTime(8) + role(1) + subgroup(1) + readyStatus(1)

func (u UserInfo) SizeOf() int { return SizeOfString(u.AccountName) + userInfoPartialSize }

func (u UserInfo) ToSerial() []byte {
	buf := make([]byte, u.SizeOf())
	e := NewEncoder(buf)
	e.WriteString(u.AccountName)
	e.WriteInt64(u.JoinTime)
	e.WriteUint8(u.Role)
	e.WriteUint8(u.Subgroup)
	e.WriteBool(u.ReadyStatus)
	return buf
}

// ToText mirrors Extras.cpp's ToJSON(const UserInfo&): AccountName is
// null when empty, Subgroup is written 0-based (the original's inline
// to_json overload in Extras.hpp adds 1 here, but spec.md §9 mandates
// 0-based in every text encoder, not just this one).
func (u UserInfo) ToText() map[string]any {
	m := map[string]any{
		"AccountName": any(nil),
		"Role":        u.Role,
		"Subgroup":    u.Subgroup,
		"JoinTime":    u.JoinTime,
		"ReadyStatus": u.ReadyStatus,
	}
	if u.AccountName != "" {
		m["AccountName"] = u.AccountName
	}
	return m
}

// Language is the extras language-changed payload: a single enum value.
type Language uint32

func (l Language) SizeOf() int { return 4 }

func (l Language) ToSerial() []byte {
	buf := make([]byte, 4)
	NewEncoder(buf).WriteUint32(uint32(l))
	return buf
}

func (l Language) ToText() map[string]any {
	return map[string]any{"Language": uint32(l)}
}

// DeviceType/KeyControl mirror the Unofficial Extras KeyBinds
// namespace's enums; values are opaque pass-through integers from the
// host, not interpreted by the bridge.
type SingleKeyBind struct {
	DeviceType uint32
	Code       uint16
	Modifier   uint8
}

// KeyBindChanged is the extras keybind-changed payload.
type KeyBindChanged struct {
	KeyControl uint32
	KeyIndex   uint8
	SingleKey  SingleKeyBind
}

const keyBindChangedSize = 4 + 1 + 4 + 2 + 1 // keyControl + keyIndex + deviceType + code + modifier

func (k KeyBindChanged) SizeOf() int { return keyBindChangedSize }

func (k KeyBindChanged) ToSerial() []byte {
	buf := make([]byte, keyBindChangedSize)
	e := NewEncoder(buf)
	e.WriteUint32(k.KeyControl)
	e.WriteUint8(k.KeyIndex)
	e.WriteUint32(k.SingleKey.DeviceType)
	e.WriteUint16(k.SingleKey.Code)
	e.WriteUint8(k.SingleKey.Modifier)
	return buf
}

func (k KeyBindChanged) ToText() map[string]any {
	return map[string]any{
		"KeyControl": k.KeyControl,
		"KeyIndex":   k.KeyIndex,
		"SingleKey": map[string]any{
			"DeviceType": k.SingleKey.DeviceType,
			"Code":       k.SingleKey.Code,
			"Modifier":   k.SingleKey.Modifier,
		},
	}
}

// ChatMessageInfo is the extras chat-message payload. All four strings
// are independently nullable in the source (raw char* with a length);
// here an empty Go string plays the same role.
type ChatMessageInfo struct {
	ChannelID     uint64
	Type          uint8
	Subgroup      uint8
	IsBroadcast   bool
	Timestamp     string
	AccountName   string
	CharacterName string
	Text          string
}

const chatMessageInfoPartialSize = 8 + 1 + 1 + 1 // channelId + type + subgroup + isBroadcast

func (c ChatMessageInfo) SizeOf() int {
	return chatMessageInfoPartialSize +
		SizeOfString(c.Timestamp) + SizeOfString(c.AccountName) + SizeOfString(c.CharacterName) + SizeOfString(c.Text)
}

func (c ChatMessageInfo) ToSerial() []byte {
	buf := make([]byte, c.SizeOf())
	e := NewEncoder(buf)
	e.WriteUint64(c.ChannelID)
	e.WriteUint8(c.Type)
	e.WriteUint8(c.Subgroup)
	e.WriteBool(c.IsBroadcast)
	e.WriteString(c.Timestamp)
	e.WriteString(c.AccountName)
	e.WriteString(c.CharacterName)
	e.WriteString(c.Text)
	return buf
}

func (c ChatMessageInfo) ToText() map[string]any {
	m := map[string]any{
		"ChannelId":     c.ChannelID,
		"Type":          c.Type,
		"Subgroup":      c.Subgroup,
		"IsBroadcast":   c.IsBroadcast,
		"Timestamp":     any(nil),
		"AccountName":   any(nil),
		"CharacterName": any(nil),
		"Text":          any(nil),
	}
	if c.Timestamp != "" {
		m["Timestamp"] = c.Timestamp
	}
	if c.AccountName != "" {
		m["AccountName"] = c.AccountName
	}
	if c.CharacterName != "" {
		m["CharacterName"] = c.CharacterName
	}
	if c.Text != "" {
		m["Text"] = c.Text
	}
	return m
}
