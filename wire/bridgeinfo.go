// BridgeInfo grounded on original_source/src/ApplicationData.hpp's
// BridgeInfo struct and ApplicationData.cpp's to_serial/to_json. The
// serial field order here follows spec.md §3 exactly: API version
// first, then validator, then the three version strings, then
// extrasInfoVersion, then the three booleans arcLoaded/extrasFound/
// extrasLoaded in that order, matching the original's to_serial.
package wire

// BridgeInfo is immutable-after-start metadata plus the mutable
// loaded/found flags and the monotonic validator, incremented on every
// observable change (spec.md §3).
type BridgeInfo struct {
	MajorAPIVersion uint32
	MinorAPIVersion uint32
	Validator       uint64

	Version       string
	ExtrasVersion string
	ArcVersion    string

	ExtrasInfoVersion uint32

	ArcLoaded    bool
	ExtrasFound  bool
	ExtrasLoaded bool
}

// SizeOf returns the exact serial encoding length for info.
func (info BridgeInfo) SizeOf() int {
	return 4 + 4 + 8 +
		SizeOfString(info.Version) + SizeOfString(info.ExtrasVersion) + SizeOfString(info.ArcVersion) +
		4 + 3
}

// ToSerial writes info per spec.md §3's BridgeInfo field order.
func (info BridgeInfo) ToSerial() []byte {
	buf := make([]byte, info.SizeOf())
	e := NewEncoder(buf)
	e.WriteUint32(info.MajorAPIVersion)
	e.WriteUint32(info.MinorAPIVersion)
	e.WriteUint64(info.Validator)
	e.WriteString(info.Version)
	e.WriteString(info.ExtrasVersion)
	e.WriteString(info.ArcVersion)
	e.WriteUint32(info.ExtrasInfoVersion)
	e.WriteBool(info.ArcLoaded)
	e.WriteBool(info.ExtrasFound)
	e.WriteBool(info.ExtrasLoaded)
	return buf
}

// ToText mirrors ApplicationData.cpp's to_json: empty version strings
// become nil (JSON null) rather than "", per spec.md §3.
func (info BridgeInfo) ToText() map[string]any {
	m := map[string]any{
		"version":           any(nil),
		"extrasVersion":     any(nil),
		"arcVersion":        any(nil),
		"arcLoaded":         info.ArcLoaded,
		"extrasFound":       info.ExtrasFound,
		"extrasLoaded":      info.ExtrasLoaded,
		"extrasInfoVersion": info.ExtrasInfoVersion,
		"validator":         info.Validator,
		"majorApiVersion":   info.MajorAPIVersion,
		"minorApiVersion":   info.MinorAPIVersion,
	}
	if info.Version != "" {
		m["version"] = info.Version
	}
	if info.ExtrasVersion != "" {
		m["extrasVersion"] = info.ExtrasVersion
	}
	if info.ArcVersion != "" {
		m["arcVersion"] = info.ArcVersion
	}
	return m
}
