package wire

// The original bridge enforces (category,type) pairing with C++
// template static_asserts (one constructor template per category,
// each constrained to its own MessageType subset). Go has no
// static_assert, so the equivalent is four distinct parameter types —
// InfoType/CombatType/ExtrasType/SquadType — each a closed enum of its
// category's Type values. Passing e.g. a SquadType to NewCombatMessage
// is a compile error, which is the property spec.md §4.2 "compile-time
// matcher" asks for.

type InfoType Type

const (
	InfoConnectionStatus = InfoType(TypeConnectionStatus)
	InfoBridgeInfo       = InfoType(TypeBridgeInfo)
	InfoStatus           = InfoType(TypeStatus)
	InfoClosing          = InfoType(TypeClosing)
)

type CombatType Type

const (
	CombatEventType = CombatType(TypeCombatEvent)
)

type ExtrasType Type

const (
	ExtrasSquadUpdateType    = ExtrasType(TypeExtrasSquadUpdate)
	ExtrasLanguageChangeType = ExtrasType(TypeExtrasLanguageChange)
	ExtrasKeyBindChangeType  = ExtrasType(TypeExtrasKeyBindChange)
	ExtrasChatMessageType    = ExtrasType(TypeExtrasChatMessage)
)

type SquadType Type

const (
	SquadStatusType = SquadType(TypeSquadStatus)
	SquadAddType    = SquadType(TypeSquadAdd)
	SquadUpdateType = SquadType(TypeSquadUpdate)
	SquadRemoveType = SquadType(TypeSquadRemove)
)

func NewInfoMessage(typ InfoType, proto Protocol, payload []byte, data TextPayload) *Message {
	return newMessage(CategoryInfo, Type(typ), proto, payload, data)
}

func NewCombatMessage(typ CombatType, proto Protocol, payload []byte, data TextPayload) *Message {
	return newMessage(CategoryCombat, Type(typ), proto, payload, data)
}

func NewExtrasMessage(typ ExtrasType, proto Protocol, payload []byte, data TextPayload) *Message {
	return newMessage(CategoryExtras, Type(typ), proto, payload, data)
}

func NewSquadMessage(typ SquadType, proto Protocol, payload []byte, data TextPayload) *Message {
	return newMessage(CategorySquad, Type(typ), proto, payload, data)
}
