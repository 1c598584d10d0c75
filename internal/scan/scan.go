// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package scan implements the scan routine family: predicates over
// (old_value, new_value, user_value) crossed with the scan data type /
// match type lattice from spec.md §4.2.
package scan

import (
	"bytes"
	"encoding/binary"

	"github.com/scanwright/memscan/internal/userval"
	"github.com/scanwright/memscan/internal/value"
)

// DataType restricts which widths a scan considers.
type DataType int

const (
	AnyNumber DataType = iota
	AnyInteger
	AnyFloat
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	ByteArray
	String
)

// MatchType is the comparison a scan applies.
type MatchType int

const (
	Any MatchType = iota
	EqualTo
	NotEqualTo
	GreaterThan
	LessThan
	Range
	Changed
	NotChanged
	Increased
	Decreased
	IncreasedBy
	DecreasedBy
)

// NeedsOldValue reports whether mt requires a prior scan, per spec.md
// §4.2's first-scan restriction.
func (mt MatchType) NeedsOldValue() bool {
	switch mt {
	case Changed, NotChanged, Increased, Decreased, IncreasedBy, DecreasedBy:
		return true
	default:
		return false
	}
}

// AdmissibleWidths returns the numeric widths a given DataType considers;
// it is empty for ByteArray/String, which are evaluated separately.
func AdmissibleWidths(dt DataType) value.Width {
	switch dt {
	case AnyNumber:
		return value.AllNumeric
	case AnyInteger:
		return value.AllIntegers
	case AnyFloat:
		return value.AllFloats
	case Int8:
		return value.U8 | value.S8
	case Int16:
		return value.U16 | value.S16
	case Int32:
		return value.U32 | value.S32
	case Int64:
		return value.U64 | value.S64
	case Float32:
		return value.F32
	case Float64:
		return value.F64
	default:
		return 0
	}
}

// Evaluate resolves and runs the scan routine for (dataType, matchType)
// against one candidate address: oldFlags and oldBytes describe the prior
// reading (oldBytes may be nil/empty on a first scan), newBytes is the
// freshly read target memory starting at the candidate address. A width,
// byte array or string longer than newBytes does not match. It returns the
// narrowed Flags and whether the candidate survives under any width.
func Evaluate(dt DataType, mt MatchType, oldFlags value.Flags, oldBytes, newBytes []byte, uv userval.UserValue, reverseEndian, detectReverseChange bool) (value.Flags, bool) {
	// Any carries no literal, so a byte-array or string candidate keeps its
	// recorded length (the no-op update of an existing match set).
	if mt == Any && (oldFlags.ByteArrayLen > 0 || oldFlags.StringLen > 0) {
		if len(newBytes) < oldFlags.ByteArrayLen+oldFlags.StringLen {
			return value.Flags{}, false
		}
		return value.Flags{ByteArrayLen: oldFlags.ByteArrayLen, StringLen: oldFlags.StringLen}, true
	}
	if dt == ByteArray {
		return evaluateByteArray(mt, oldBytes, newBytes, uv)
	}
	if dt == String {
		return evaluateString(mt, oldBytes, newBytes, uv)
	}

	// Per spec: a scan routine iterates the widths still viable from the
	// intersection of the prior match's flags and the widths admissible
	// for the requested scan data type.
	viable := oldFlags.Narrow(AdmissibleWidths(dt))

	var result value.Width
	viable.EachWidth(func(w value.Width) {
		sz := w.Size()
		if len(newBytes) < sz {
			return
		}
		if mt.NeedsOldValue() && len(oldBytes) < sz {
			return
		}
		if uv.Widths != 0 && uv.Widths&w == 0 && mt != Any && mt != Changed && mt != NotChanged {
			return
		}

		nv := value.Decode(w, newBytes, binary.LittleEndian)
		if reverseEndian {
			nv = value.Swap(nv)
		}
		var ov value.Value
		if mt.NeedsOldValue() || mt == Changed || mt == NotChanged {
			if len(oldBytes) < sz {
				return
			}
			ov = value.Decode(w, oldBytes, binary.LittleEndian)
		}

		if holds(mt, w, ov, nv, uv, detectReverseChange) {
			result |= w
		}
	})
	return value.Flags{Widths: result}, result != 0
}

func holds(mt MatchType, w value.Width, ov, nv value.Value, uv userval.UserValue, detectReverseChange bool) bool {
	switch mt {
	case Any:
		return true
	case EqualTo:
		return cmp(w, nv, widthAt(uv.Number, w)) == 0
	case NotEqualTo:
		return cmp(w, nv, widthAt(uv.Number, w)) != 0
	case GreaterThan:
		return cmp(w, nv, widthAt(uv.Number, w)) > 0
	case LessThan:
		return cmp(w, nv, widthAt(uv.Number, w)) < 0
	case Range:
		return cmp(w, nv, widthAt(uv.Lo, w)) >= 0 && cmp(w, nv, widthAt(uv.Hi, w)) <= 0
	case Changed:
		return cmp(w, nv, ov) != 0
	case NotChanged:
		return cmp(w, nv, ov) == 0
	case Increased:
		if cmp(w, nv, ov) > 0 {
			return true
		}
		return detectReverseChange && reinterpretedHolds(w, ov, nv, 1)
	case Decreased:
		if cmp(w, nv, ov) < 0 {
			return true
		}
		return detectReverseChange && reinterpretedHolds(w, ov, nv, -1)
	case IncreasedBy:
		return deltaEquals(w, nv, ov, widthAt(uv.Number, w), 1)
	case DecreasedBy:
		return deltaEquals(w, nv, ov, widthAt(uv.Number, w), -1)
	default:
		return false
	}
}

// cmp compares a to b under width w's own signedness: floats compare as
// float64, signed widths as int64, unsigned widths as uint64.
func cmp(w value.Width, a, b value.Value) int {
	switch {
	case w == value.F32 || w == value.F64:
		af, bf := a.Float64(), b.Float64()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case a.IsSigned():
		ai, bi := a.Int64(), b.Int64()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	default:
		au, bu := a.Uint64(), b.Uint64()
		switch {
		case au < bu:
			return -1
		case au > bu:
			return 1
		default:
			return 0
		}
	}
}

// deltaEquals reports whether (new-old)*sign == delta, computed in 64-bit
// arithmetic chosen by width w: float64 for float widths, int64 for signed
// widths, uint64 (wrapping at 64 bits, not at w's size) for unsigned widths.
func deltaEquals(w value.Width, nv, ov, delta value.Value, sign int64) bool {
	switch {
	case w == value.F32 || w == value.F64:
		got := (nv.Float64() - ov.Float64()) * float64(sign)
		return got == delta.Float64()
	case nv.IsSigned():
		got := (nv.Int64() - ov.Int64()) * sign
		return got == delta.Int64()
	default:
		got := (nv.Uint64() - ov.Uint64()) * uint64(sign)
		return got == delta.Uint64()
	}
}

// reinterpretedHolds backs the detect_reverse_change option: a raw byte
// pattern that looks decreased under w's own signedness can look increased
// (or vice versa) under the sibling signed/unsigned width of the same
// size, e.g. 0x7f -> 0x80 is +1 as u8 but -255 (127 -> -128) as s8. sign is
// +1 to test for an increase, -1 for a decrease.
func reinterpretedHolds(w value.Width, ov, nv value.Value, sign int) bool {
	w2 := opposite(w)
	if w2 == w {
		return false
	}
	c := cmp(w2, nv.Reinterpret(w2), ov.Reinterpret(w2))
	if sign > 0 {
		return c > 0
	}
	return c < 0
}

func opposite(w value.Width) value.Width {
	switch w {
	case value.U8:
		return value.S8
	case value.S8:
		return value.U8
	case value.U16:
		return value.S16
	case value.S16:
		return value.U16
	case value.U32:
		return value.S32
	case value.S32:
		return value.U32
	case value.U64:
		return value.S64
	case value.S64:
		return value.U64
	default:
		return w
	}
}

// widthAt reinterprets a generically-parsed user literal at a specific
// target width.
func widthAt(v value.Value, w value.Width) value.Value {
	switch {
	case w == value.F32 || w == value.F64:
		return value.FromFloat64(w, asFloat64(v))
	case w == value.U8 || w == value.U16 || w == value.U32 || w == value.U64:
		return value.FromUint64(w, asUint64(v))
	default:
		return value.FromInt64(w, asInt64(v))
	}
}

func asFloat64(v value.Value) float64 {
	if v.IsFloat() {
		return v.Float64()
	}
	return float64(v.Int64())
}

func asInt64(v value.Value) int64 {
	if v.IsFloat() {
		return int64(v.Float64())
	}
	return v.Int64()
}

func asUint64(v value.Value) uint64 {
	if v.IsFloat() {
		return uint64(v.Float64())
	}
	return uint64(v.Int64())
}

func evaluateByteArray(mt MatchType, oldBytes, newBytes []byte, uv userval.UserValue) (value.Flags, bool) {
	n := len(uv.Bytes)
	if n == 0 || len(newBytes) < n {
		return value.Flags{}, false
	}
	matches := func(buf []byte) bool {
		for i, tok := range uv.Bytes {
			if !tok.Wildcard && buf[i] != tok.Value {
				return false
			}
		}
		return true
	}
	var ok bool
	switch mt {
	case Any:
		ok = true
	case Changed:
		ok = len(oldBytes) >= n && !bytes.Equal(oldBytes[:n], newBytes[:n])
	case NotChanged:
		ok = len(oldBytes) >= n && bytes.Equal(oldBytes[:n], newBytes[:n])
	case NotEqualTo:
		ok = !matches(newBytes)
	default: // EqualTo and anything else defaults to the literal match
		ok = matches(newBytes)
	}
	if !ok {
		return value.Flags{}, false
	}
	return value.Flags{ByteArrayLen: n}, true
}

func evaluateString(mt MatchType, oldBytes, newBytes []byte, uv userval.UserValue) (value.Flags, bool) {
	lit := []byte(uv.Str)
	n := len(lit)
	if n == 0 || len(newBytes) < n {
		return value.Flags{}, false
	}
	var ok bool
	switch mt {
	case Any:
		ok = true
	case Changed:
		ok = len(oldBytes) >= n && !bytes.Equal(oldBytes[:n], newBytes[:n])
	case NotChanged:
		ok = len(oldBytes) >= n && bytes.Equal(oldBytes[:n], newBytes[:n])
	case NotEqualTo:
		ok = !bytes.Equal(newBytes[:n], lit)
	default:
		ok = bytes.Equal(newBytes[:n], lit)
	}
	if !ok {
		return value.Flags{}, false
	}
	return value.Flags{StringLen: n}, true
}
