package wire

import (
	"sync/atomic"
	"time"
)

// Category is the subscription-mask bit a message belongs to (spec.md
// §3, §6). Values are stable; adding one is a major-API change.
type Category uint8

const (
	CategoryInfo   Category = 1
	CategoryCombat Category = 2
	CategoryExtras Category = 4
	CategorySquad  Category = 8
)

func (c Category) String() string {
	switch c {
	case CategoryInfo:
		return "Info"
	case CategoryCombat:
		return "Combat"
	case CategoryExtras:
		return "Extras"
	case CategorySquad:
		return "Squad"
	default:
		return ""
	}
}

// Type is a message type value, unique within its Category (spec.md
// §6 table).
type Type uint8

const (
	TypeConnectionStatus Type = 1
	TypeBridgeInfo       Type = 2
	TypeStatus           Type = 3
	TypeClosing          Type = 4

	TypeCombatEvent Type = 5

	TypeExtrasSquadUpdate    Type = 6
	TypeExtrasLanguageChange Type = 7
	TypeExtrasKeyBindChange  Type = 8
	TypeExtrasChatMessage    Type = 9

	TypeSquadStatus Type = 10
	TypeSquadAdd    Type = 11
	TypeSquadUpdate Type = 12
	TypeSquadRemove Type = 13
)

func (t Type) String() string {
	switch t {
	case TypeConnectionStatus:
		return "ConnectionStatus"
	case TypeBridgeInfo:
		return "BridgeInfo"
	case TypeStatus:
		return "Status"
	case TypeClosing:
		return "Closing"
	case TypeCombatEvent:
		return "CombatEvent"
	case TypeExtrasSquadUpdate:
		return "ExtrasSquadUpdate"
	case TypeExtrasLanguageChange:
		return "ExtrasLanguageChanged"
	case TypeExtrasKeyBindChange:
		return "ExtrasKeyBindChanged"
	case TypeExtrasChatMessage:
		return "ExtrasChatMessage"
	case TypeSquadStatus:
		return "SquadStatus"
	case TypeSquadAdd:
		return "SquadAdd"
	case TypeSquadUpdate:
		return "SquadUpdate"
	case TypeSquadRemove:
		return "SquadRemove"
	default:
		return ""
	}
}

// AllTypeNames lists every type name in declaration order, used for the
// "types" field of the ConnectionStatus handshake message (spec.md §6).
func AllTypeNames() []string {
	return []string{
		TypeConnectionStatus.String(), TypeBridgeInfo.String(), TypeStatus.String(), TypeClosing.String(),
		TypeCombatEvent.String(),
		TypeExtrasSquadUpdate.String(), TypeExtrasLanguageChange.String(), TypeExtrasKeyBindChange.String(), TypeExtrasChatMessage.String(),
		TypeSquadStatus.String(), TypeSquadAdd.String(), TypeSquadUpdate.String(), TypeSquadRemove.String(),
	}
}

// Protocol selects the wire encoding a client subscribed with.
type Protocol uint8

const (
	ProtocolBinary Protocol = 1
	ProtocolText   Protocol = 2
)

func ParseProtocol(s string) (Protocol, bool) {
	switch s {
	case "Binary":
		return ProtocolBinary, true
	case "Text":
		return ProtocolText, true
	default:
		return 0, false
	}
}

func (p Protocol) String() string {
	switch p {
	case ProtocolBinary:
		return "Binary"
	case ProtocolText:
		return "Text"
	default:
		return ""
	}
}

// BinaryHeaderSize is the fixed 18-byte header preceding every binary
// payload: category(1) | type(1) | id(8) | timestamp(8) (spec.md §3, §6).
const BinaryHeaderSize = 1 + 1 + 8 + 8

var nextID atomic.Uint64

// NextID hands out the per-process monotonic message id (spec.md §3).
func NextID() uint64 { return nextID.Add(1) }

// TextPayload is whatever a domain encoder's ToText() produces: either
// a map, a slice, or a scalar, marshaled verbatim as the "data" member.
type TextPayload any

// TextEnvelope is the shape written for the text protocol (spec.md §6):
// header fields as named members plus a "data" member.
type TextEnvelope struct {
	Category  Category    `json:"category"`
	Type      Type        `json:"type"`
	ID        uint64      `json:"id"`
	Timestamp uint64      `json:"timestamp"`
	Data      TextPayload `json:"data"`
}

// Message is a tagged, dual-encoded value (spec.md §3). A message may
// carry a binary payload, a text payload, or both, depending on what
// the producer asked for.
type Message struct {
	Protocol  Protocol
	Category  Category
	Type      Type
	ID        uint64
	Timestamp uint64

	binary []byte       // full frame: 18-byte header + payload, or nil
	text   *TextEnvelope // or nil
}

// Valid mirrors the original's Message::empty(): both category and
// type must be non-zero.
func (m *Message) Valid() bool { return m != nil && m.Category != 0 && m.Type != 0 }

func (m *Message) HasBinary() bool { return m != nil && m.binary != nil }
func (m *Message) HasText() bool   { return m != nil && m.text != nil }

// Binary returns the full frame (header + payload) ready for a single
// write. Panics if the message carries no binary encoding.
func (m *Message) Binary() []byte {
	if !m.HasBinary() {
		panic("wire: message has no binary encoding")
	}
	return m.binary
}

// Text returns the envelope ready for JSON marshaling. Panics if the
// message carries no text encoding.
func (m *Message) Text() *TextEnvelope {
	if !m.HasText() {
		panic("wire: message has no text encoding")
	}
	return m.text
}

func now() uint64 { return uint64(time.Now().UnixMilli()) }

// newMessage writes the 18-byte binary header (when payload is
// non-nil) and/or seeds the text envelope (when data is non-nil),
// stamping a fresh id and timestamp shared by both encodings.
func newMessage(cat Category, typ Type, proto Protocol, payload []byte, data TextPayload) *Message {
	m := &Message{
		Protocol:  proto,
		Category:  cat,
		Type:      typ,
		ID:        NextID(),
		Timestamp: now(),
	}
	if payload != nil {
		frame := make([]byte, BinaryHeaderSize+len(payload))
		e := NewEncoder(frame)
		e.WriteUint8(uint8(cat))
		e.WriteUint8(uint8(typ))
		e.WriteUint64(m.ID)
		e.WriteUint64(m.Timestamp)
		e.WriteBytes(payload)
		m.binary = frame
	}
	if data != nil {
		m.text = &TextEnvelope{Category: cat, Type: typ, ID: m.ID, Timestamp: m.Timestamp, Data: data}
	}
	return m
}
