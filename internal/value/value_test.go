// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import (
	"encoding/binary"
	"testing"
)

func TestDecodeEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		w   Width
		buf []byte
	}{
		{U8, []byte{0xff}},
		{S8, []byte{0x80}},
		{U16, []byte{0x34, 0x12}},
		{S16, []byte{0x00, 0x80}},
		{U32, []byte{0x78, 0x56, 0x34, 0x12}},
		{S64, []byte{1, 0, 0, 0, 0, 0, 0, 0x80}},
		{F32, []byte{0, 0, 0x80, 0x3f}}, // 1.0f little-endian
		{F64, []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}}, // 1.0 little-endian
	}
	for _, c := range cases {
		v := Decode(c.w, c.buf, binary.LittleEndian)
		out := make([]byte, len(c.buf))
		v.Encode(out, binary.LittleEndian)
		for i := range c.buf {
			if out[i] != c.buf[i] {
				t.Errorf("width %v: round trip byte %d = %#x, want %#x", c.w, i, out[i], c.buf[i])
			}
		}
	}
}

func TestInt64SignExtends(t *testing.T) {
	v := Decode(S8, []byte{0x80}, binary.LittleEndian)
	if got := v.Int64(); got != -128 {
		t.Errorf("S8 0x80 as Int64 = %d, want -128", got)
	}
	v16 := Decode(S16, []byte{0x00, 0x80}, binary.LittleEndian)
	if got := v16.Int64(); got != -32768 {
		t.Errorf("S16 0x8000 as Int64 = %d, want -32768", got)
	}
}

func TestFloat64Widens(t *testing.T) {
	v := FromFloat64(F32, 1.5)
	if got := v.Float64(); got != 1.5 {
		t.Errorf("F32(1.5).Float64() = %v, want 1.5", got)
	}
}

func TestSwapSingleByteNoop(t *testing.T) {
	v := FromInt64(S8, -1)
	if got := Swap(v); got.Int64() != v.Int64() {
		t.Errorf("Swap changed a single-byte value")
	}
}

func TestSwapRoundTrip(t *testing.T) {
	v := FromUint64(U32, 0x01020304)
	got := Swap(Swap(v))
	if got.Uint64() != v.Uint64() {
		t.Errorf("Swap(Swap(v)) = %#x, want %#x", got.Uint64(), v.Uint64())
	}
	swapped := Swap(v)
	if swapped.Uint64() != 0x04030201 {
		t.Errorf("Swap(0x01020304) = %#x, want 0x04030201", swapped.Uint64())
	}
}

func TestReinterpretSameBits(t *testing.T) {
	v := FromUint64(U8, 0x80)
	r := v.Reinterpret(S8)
	if r.Int64() != -128 {
		t.Errorf("Reinterpret(u8 0x80, s8).Int64() = %d, want -128", r.Int64())
	}
}
