// Package wire implements the bridge's serializer primitives (spec.md
// §4.1), message model (§4.2), compile-time (category,type) matcher
// (§6), and the domain encoders (§4.3) whose binary layout must stay
// bit-exact across versions. Grounded on the teacher's transport
// package (transport/pdu.go, transport/api.go): a fixed-layout binary
// header followed by a payload whose exact size is computed before any
// byte is written, so buffers are allocated once at the right size
// rather than grown.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import "encoding/binary"

// Encoder appends values into a preallocated byte slice, left to
// right, mirroring writeIntegral/writeString from spec.md §4.1: every
// compound SizeOf is the sum of its parts, so the destination is sized
// exactly once by the caller.
type Encoder struct {
	buf []byte
	off int
}

// NewEncoder wraps dst, which must already be exactly sized via the
// SizeOf* helpers below.
func NewEncoder(dst []byte) *Encoder { return &Encoder{buf: dst} }

func (e *Encoder) Bytes() []byte { return e.buf }
func (e *Encoder) Off() int      { return e.off }

func (e *Encoder) WriteUint8(v uint8) {
	e.buf[e.off] = v
	e.off++
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.WriteUint8(1)
	} else {
		e.WriteUint8(0)
	}
}

func (e *Encoder) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(e.buf[e.off:], v)
	e.off += 2
}

func (e *Encoder) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *Encoder) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[e.off:], v)
	e.off += 8
}

func (e *Encoder) WriteInt64(v int64) { e.WriteUint64(uint64(v)) }

// WriteString copies s and appends a trailing NUL, per spec.md §4.1
// writeString(dst, bytes, n).
func (e *Encoder) WriteString(s string) {
	n := copy(e.buf[e.off:], s)
	e.off += n
	e.buf[e.off] = 0
	e.off++
}

// WriteBytes copies a raw byte slice with no terminator, used for
// payloads that are already length-framed by an outer header.
func (e *Encoder) WriteBytes(b []byte) {
	n := copy(e.buf[e.off:], b)
	e.off += n
}

// SizeOfString is the exact byte count WriteString(s) will write.
func SizeOfString(s string) int { return len(s) + 1 }

// Decoder is the read-side counterpart, used by tests to verify
// round-trip fidelity (spec.md §8).
type Decoder struct {
	buf []byte
	off int
}

func NewDecoder(src []byte) *Decoder { return &Decoder{buf: src} }

func (d *Decoder) Off() int  { return d.off }
func (d *Decoder) Len() int  { return len(d.buf) }
func (d *Decoder) Rest() int { return len(d.buf) - d.off }

func (d *Decoder) ReadUint8() uint8 {
	v := d.buf[d.off]
	d.off++
	return v
}

func (d *Decoder) ReadBool() bool { return d.ReadUint8() != 0 }

func (d *Decoder) ReadUint16() uint16 {
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *Decoder) ReadUint32() uint32 {
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *Decoder) ReadUint64() uint64 {
	v := binary.LittleEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v
}

func (d *Decoder) ReadInt64() int64 { return int64(d.ReadUint64()) }

// ReadString reads bytes up to and consuming a trailing NUL.
func (d *Decoder) ReadString() string {
	start := d.off
	for d.buf[d.off] != 0 {
		d.off++
	}
	s := string(d.buf[start:d.off])
	d.off++ // consume NUL
	return s
}
