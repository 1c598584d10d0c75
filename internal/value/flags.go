// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value implements the polymorphic numeric/float/string/byte-array
// value model: the per-byte match_flags width-capability set, and the
// tagged scratch union used to decode and compare candidate bytes.
package value

// Width is one bit of the match_flags width-capability set.
type Width uint16

const (
	U8 Width = 1 << iota
	S8
	U16
	S16
	U32
	S32
	U64
	S64
	F32
	F64
)

// AllNumeric is every numeric/float width.
const AllNumeric = U8 | S8 | U16 | S16 | U32 | S32 | U64 | S64 | F32 | F64

// AllIntegers is every fixed-point width.
const AllIntegers = U8 | S8 | U16 | S16 | U32 | S32 | U64 | S64

// AllFloats is every floating-point width.
const AllFloats = F32 | F64

// Size returns the width's size in bytes, or 0 if w has more than one (or
// zero) bits set.
func (w Width) Size() int {
	switch w {
	case U8, S8:
		return 1
	case U16, S16:
		return 2
	case U32, S32, F32:
		return 4
	case U64, S64, F64:
		return 8
	default:
		return 0
	}
}

func (w Width) String() string {
	switch w {
	case U8:
		return "u8"
	case S8:
		return "s8"
	case U16:
		return "u16"
	case S16:
		return "s16"
	case U32:
		return "u32"
	case S32:
		return "s32"
	case U64:
		return "u64"
	case S64:
		return "s64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "none"
	}
}

// widths is the iteration order used whenever all set bits of a Width mask
// need visiting: the integer widths in ascending size, then F32 and F64.
var widths = [...]Width{U8, S8, U16, S16, U32, S32, U64, S64, F32, F64}

// Flags is the match_flags compact flag set for one target byte: which
// numeric/float width interpretations are still viable, plus the two
// mutually-exclusive aggregate lengths (byte-array, string). At most one
// of ByteArrayLen/StringLen may be non-zero.
type Flags struct {
	Widths       Width
	ByteArrayLen int
	StringLen    int
}

// IsMatch reports whether the byte this Flags describes is still a viable
// candidate under any interpretation.
func (f Flags) IsMatch() bool {
	return f.MaxWidthBytes() > 0
}

// MaxWidthBytes is the largest of the still-viable widths, in bytes.
func (f Flags) MaxWidthBytes() int {
	max := 0
	for _, w := range widths {
		if f.Widths&w != 0 {
			if s := w.Size(); s > max {
				max = s
			}
		}
	}
	if f.ByteArrayLen > max {
		max = f.ByteArrayLen
	}
	if f.StringLen > max {
		max = f.StringLen
	}
	return max
}

// Clear deletes the match: per spec, clearing the flags is equivalent to
// deleting the entry.
func (f *Flags) Clear() {
	*f = Flags{}
}

// Narrow returns Flags holding only those of f's widths that are in keep;
// the aggregate ByteArrayLen/StringLen are not carried over.
func (f Flags) Narrow(keep Width) Flags {
	return Flags{Widths: f.Widths & keep}
}

// WidestWidth returns the largest still-viable numeric width, or 0 if
// f.Widths has no bits set (e.g. an aggregate byte-array/string match).
func (f Flags) WidestWidth() Width {
	var best Width
	bestSize := 0
	for _, w := range widths {
		if f.Widths&w != 0 {
			if s := w.Size(); s >= bestSize {
				bestSize = s
				best = w
			}
		}
	}
	return best
}

// EachWidth calls fn for every width bit set in f.Widths, in the order of
// widths (integers ascending by size, then F32, F64).
func (f Flags) EachWidth(fn func(Width)) {
	for _, w := range widths {
		if f.Widths&w != 0 {
			fn(w)
		}
	}
}
