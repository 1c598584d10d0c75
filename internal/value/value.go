// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"encoding/binary"
	"math"
)

// Value is a decoded reading of a target byte range at one specific Width.
// It is scratch state: scan routines build one per (address, width) pair
// they compare, the way the teacher's arch.Architecture.Uint/Int decode a
// byte slice at a known size rather than keeping a persistent union.
type Value struct {
	Width Width
	bits  uint64 // raw bits; float payloads stored via math.Float{32,64}bits
}

// Decode reads a Value of width w from the front of buf using order for
// multi-byte widths. buf must contain at least w.Size() bytes.
func Decode(w Width, buf []byte, order binary.ByteOrder) Value {
	switch w {
	case U8, S8:
		return Value{Width: w, bits: uint64(buf[0])}
	case U16, S16:
		return Value{Width: w, bits: uint64(order.Uint16(buf))}
	case U32, S32:
		return Value{Width: w, bits: uint64(order.Uint32(buf))}
	case U64, S64:
		return Value{Width: w, bits: order.Uint64(buf)}
	case F32:
		return Value{Width: w, bits: uint64(order.Uint32(buf))}
	case F64:
		return Value{Width: w, bits: order.Uint64(buf)}
	default:
		panic("value: Decode of non-scalar width")
	}
}

// Encode writes v's bytes to buf (which must have at least v.Width.Size()
// bytes of capacity) in order, ready for a target I/O write.
func (v Value) Encode(buf []byte, order binary.ByteOrder) {
	switch v.Width {
	case U8, S8:
		buf[0] = byte(v.bits)
	case U16, S16:
		order.PutUint16(buf, uint16(v.bits))
	case U32, S32, F32:
		order.PutUint32(buf, uint32(v.bits))
	case U64, S64, F64:
		order.PutUint64(buf, v.bits)
	default:
		panic("value: Encode of non-scalar width")
	}
}

// Int64 interprets the value as a signed integer, sign-extending from its
// declared width.
func (v Value) Int64() int64 {
	switch v.Width {
	case S8:
		return int64(int8(v.bits))
	case S16:
		return int64(int16(v.bits))
	case S32:
		return int64(int32(v.bits))
	case S64:
		return int64(v.bits)
	default:
		return int64(v.bits)
	}
}

// Uint64 interprets the value as an unsigned integer of its declared width.
func (v Value) Uint64() uint64 {
	switch v.Width {
	case U8:
		return v.bits & 0xff
	case U16:
		return v.bits & 0xffff
	case U32:
		return v.bits & 0xffffffff
	default:
		return v.bits
	}
}

// Float64 interprets the value as a float, widening f32 to f64.
func (v Value) Float64() float64 {
	switch v.Width {
	case F32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case F64:
		return math.Float64frombits(v.bits)
	default:
		panic("value: Float64 of non-float width")
	}
}

// FromInt64 builds a Value of width w from a signed integer.
func FromInt64(w Width, n int64) Value {
	return Value{Width: w, bits: uint64(n)}
}

// FromUint64 builds a Value of width w from an unsigned integer.
func FromUint64(w Width, n uint64) Value {
	return Value{Width: w, bits: n}
}

// FromFloat64 builds a Value of width w (F32 or F64) from a float.
func FromFloat64(w Width, f float64) Value {
	switch w {
	case F32:
		return Value{Width: w, bits: uint64(math.Float32bits(float32(f)))}
	case F64:
		return Value{Width: w, bits: math.Float64bits(f)}
	default:
		panic("value: FromFloat64 of non-float width")
	}
}

// Reinterpret returns v's raw bits relabeled under width w, which must
// have the same byte size as v.Width (e.g. U32 <-> S32). Used by the
// detect_reverse_change option to compare the same bytes under both the
// signed and unsigned reading of a width.
func (v Value) Reinterpret(w Width) Value {
	return Value{Width: w, bits: v.bits}
}

// IsFloat reports whether v's width is floating point.
func (v Value) IsFloat() bool {
	return v.Width == F32 || v.Width == F64
}

// IsSigned reports whether v's width is a signed integer width.
func (v Value) IsSigned() bool {
	switch v.Width {
	case S8, S16, S32, S64:
		return true
	default:
		return false
	}
}

// Swap returns v with its bytes reversed, for targets whose declared
// endianness is the opposite of the host's. Single-byte widths are
// returned unchanged.
func Swap(v Value) Value {
	switch v.Width {
	case U8, S8:
		return v
	case U16, S16:
		return Value{Width: v.Width, bits: uint64(swap16(uint16(v.bits)))}
	case U32, S32, F32:
		return Value{Width: v.Width, bits: uint64(swap32(uint32(v.bits)))}
	case U64, S64, F64:
		return Value{Width: v.Width, bits: swap64(v.bits)}
	default:
		return v
	}
}

func swap16(v uint16) uint16 {
	return v<<8 | v>>8
}

func swap32(v uint32) uint32 {
	return v<<24 | (v&0xff00)<<8 | (v&0xff0000)>>8 | v>>24
}

func swap64(v uint64) uint64 {
	return uint64(swap32(uint32(v)))<<32 | uint64(swap32(uint32(v>>32)))
}
