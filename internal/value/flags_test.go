// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package value

import "testing"

func TestFlagsIsMatch(t *testing.T) {
	cases := []struct {
		name string
		f    Flags
		want bool
	}{
		{"empty", Flags{}, false},
		{"one width", Flags{Widths: U8}, true},
		{"bytearray", Flags{ByteArrayLen: 4}, true},
		{"string", Flags{StringLen: 1}, true},
	}
	for _, c := range cases {
		if got := c.f.IsMatch(); got != c.want {
			t.Errorf("%s: IsMatch() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFlagsMaxWidthBytes(t *testing.T) {
	cases := []struct {
		name string
		f    Flags
		want int
	}{
		{"u8 only", Flags{Widths: U8}, 1},
		{"u8 and u64", Flags{Widths: U8 | U64}, 8},
		{"f32 and s16", Flags{Widths: F32 | S16}, 4},
		{"bytearray wins", Flags{Widths: U8, ByteArrayLen: 16}, 16},
		{"none", Flags{}, 0},
	}
	for _, c := range cases {
		if got := c.f.MaxWidthBytes(); got != c.want {
			t.Errorf("%s: MaxWidthBytes() = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestFlagsClear(t *testing.T) {
	f := Flags{Widths: U8 | U16, ByteArrayLen: 4}
	f.Clear()
	if f.IsMatch() {
		t.Errorf("Clear left a match: %+v", f)
	}
}

func TestFlagsNarrow(t *testing.T) {
	f := Flags{Widths: U8 | U16 | U32}
	got := f.Narrow(U16 | U32 | U64)
	want := Width(U16 | U32)
	if got.Widths != want {
		t.Errorf("Narrow = %v, want %v", got.Widths, want)
	}
}

func TestFlagsWidestWidth(t *testing.T) {
	cases := []struct {
		name string
		w    Width
		want Width
	}{
		{"none", 0, 0},
		{"u8 alone", U8, U8},
		{"u8 and u64", U8 | U64, U64},
		{"s32 and f64", S32 | F64, F64},
	}
	for _, c := range cases {
		f := Flags{Widths: c.w}
		if got := f.WidestWidth(); got != c.want {
			t.Errorf("%s: WidestWidth() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFlagsEachWidth(t *testing.T) {
	f := Flags{Widths: U8 | U64 | F32}
	var got []Width
	f.EachWidth(func(w Width) { got = append(got, w) })
	want := []Width{U8, U64, F32}
	if len(got) != len(want) {
		t.Fatalf("EachWidth visited %d widths, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("EachWidth()[%d] = %v, want %v", i, got[i], w)
		}
	}
}
