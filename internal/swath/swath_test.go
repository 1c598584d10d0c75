// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package swath

import (
	"testing"

	"github.com/scanwright/memscan/internal/addr"
	"github.com/scanwright/memscan/internal/region"
	"github.com/scanwright/memscan/internal/value"
)

func matchEntry(w value.Width) Entry {
	return Entry{OldValue: 1, Flags: value.Flags{Widths: w}}
}

func TestAddElementAscendingOrder(t *testing.T) {
	s := Allocate(64, 4096)
	cur := s.Root()
	var err error
	cur, err = AddElement(s, cur, addr.Address(100), matchEntry(value.U8))
	if err != nil {
		t.Fatalf("AddElement(100): %v", err)
	}
	cur, err = AddElement(s, cur, addr.Address(200), matchEntry(value.U8))
	if err != nil {
		t.Fatalf("AddElement(200): %v", err)
	}
	if err := s.NullTerminate(cur); err != nil {
		t.Fatalf("NullTerminate: %v", err)
	}

	loc0, ok := s.NthMatch(0)
	if !ok {
		t.Fatalf("NthMatch(0) not found")
	}
	loc1, ok := s.NthMatch(1)
	if !ok {
		t.Fatalf("NthMatch(1) not found")
	}
	if got := s.Address(loc0); got != addr.Address(100) {
		t.Errorf("match 0 address = %v, want 100", got)
	}
	if got := s.Address(loc1); got != addr.Address(200) {
		t.Errorf("match 1 address = %v, want 200", got)
	}
	if _, ok := s.NthMatch(2); ok {
		t.Errorf("NthMatch(2) unexpectedly found")
	}
}

func TestAddElementRejectsNonIncreasingAddress(t *testing.T) {
	s := Allocate(64, 4096)
	cur := s.Root()
	cur, err := AddElement(s, cur, addr.Address(100), matchEntry(value.U8))
	if err != nil {
		t.Fatalf("AddElement(100): %v", err)
	}
	if _, err := AddElement(s, cur, addr.Address(100), matchEntry(value.U8)); err == nil {
		t.Errorf("AddElement at a non-increasing address should fail")
	}
}

// TestAddElementGapThreshold exercises spec.md §8's boundary case: a gap
// equal to the pad/new-swath threshold pads; one entry past it starts a
// new swath.
func TestAddElementGapThreshold(t *testing.T) {
	// One entry at address 0 leaves "last" at address 1. The new-swath
	// branch triggers once gap*entrySize >= headerSize+entrySize, i.e.
	// gap >= ceil(27/11) = 3; a gap of exactly 2 still pads.
	s := Allocate(64, 65536)
	cur := s.Root()
	cur, err := AddElement(s, cur, addr.Address(0), matchEntry(value.U8))
	if err != nil {
		t.Fatalf("AddElement(0): %v", err)
	}
	padCur, err := AddElement(s, cur, addr.Address(3), matchEntry(value.U8)) // gap == 2
	if err != nil {
		t.Fatalf("AddElement(gap 2): %v", err)
	}
	if padCur.SwathOff != cur.SwathOff {
		t.Errorf("gap of 2 should pad the existing swath, got a new swath")
	}

	s2 := Allocate(64, 65536)
	cur2 := s2.Root()
	cur2, err = AddElement(s2, cur2, addr.Address(0), matchEntry(value.U8))
	if err != nil {
		t.Fatalf("AddElement(0): %v", err)
	}
	newCur, err := AddElement(s2, cur2, addr.Address(4), matchEntry(value.U8)) // gap == 3
	if err != nil {
		t.Fatalf("AddElement(gap 3): %v", err)
	}
	if newCur.SwathOff == cur2.SwathOff {
		t.Errorf("gap of 3 should start a new swath, got the same swath")
	}
}

func TestNullTerminateThenCountMatches(t *testing.T) {
	s := Allocate(64, 4096)
	cur := s.Root()
	cur, _ = AddElement(s, cur, addr.Address(0), matchEntry(value.U8))
	cur, _ = AddElement(s, cur, addr.Address(1), Entry{}) // non-match: zero flags
	cur, _ = AddElement(s, cur, addr.Address(2), matchEntry(value.U16))
	s.NullTerminate(cur)

	if got := s.CountMatches(); got != 2 {
		t.Errorf("CountMatches() = %d, want 2", got)
	}
}

func TestDeleteByRegion(t *testing.T) {
	s := Allocate(64, 4096)
	cur := s.Root()
	cur, _ = AddElement(s, cur, addr.Address(0), matchEntry(value.U8))
	cur, _ = AddElement(s, cur, addr.Address(100), matchEntry(value.U8))
	s.NullTerminate(cur)

	r := &region.Region{Start: addr.Address(0), Size: 10}
	s.DeleteByRegion(r, false) // clear entries inside r

	if got := s.CountMatches(); got != 1 {
		t.Fatalf("CountMatches() after delete = %d, want 1", got)
	}
	loc, ok := s.NthMatch(0)
	if !ok {
		t.Fatalf("remaining match not found")
	}
	if got := s.Address(loc); got != addr.Address(100) {
		t.Errorf("remaining match address = %v, want 100", got)
	}
}

func TestAddElementGrowsAndRetainsEarlierEntries(t *testing.T) {
	s := Allocate(headerSize+entrySize, 1<<20) // force growth quickly
	cur := s.Root()
	var err error
	for i := 0; i < 50; i++ {
		cur, err = AddElement(s, cur, addr.Address(i), matchEntry(value.U8))
		if err != nil {
			t.Fatalf("AddElement(%d): %v", i, err)
		}
	}
	s.NullTerminate(cur)
	if got := s.CountMatches(); got != 50 {
		t.Errorf("CountMatches() = %d, want 50", got)
	}
	loc, ok := s.NthMatch(49)
	if !ok {
		t.Fatalf("NthMatch(49) not found after growth")
	}
	if got := s.Address(loc); got != addr.Address(49) {
		t.Errorf("NthMatch(49) address = %v, want 49", got)
	}
}

func TestMaxNeededBytesCoversOneEntryPerByte(t *testing.T) {
	got := MaxNeededBytes(100)
	want := 100*(headerSize+entrySize) + headerSize
	if got != want {
		t.Errorf("MaxNeededBytes(100) = %d, want %d", got, want)
	}
}
