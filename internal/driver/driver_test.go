// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"fmt"
	"testing"

	"github.com/scanwright/memscan/internal/addr"
	"github.com/scanwright/memscan/internal/region"
	"github.com/scanwright/memscan/internal/scan"
	"github.com/scanwright/memscan/internal/userval"
)

// fakeTarget is an in-memory TargetIO backing a single contiguous writable
// range, standing in for a real ptrace-attached process.
type fakeTarget struct {
	base addr.Address
	mem  []byte
}

func newFakeTarget(base addr.Address, mem []byte) *fakeTarget {
	return &fakeTarget{base: base, mem: append([]byte(nil), mem...)}
}

func (f *fakeTarget) ReadBytes(a addr.Address, n int) ([]byte, error) {
	off := int(a.Sub(f.base))
	if off < 0 || off+n > len(f.mem) {
		return nil, fmt.Errorf("fakeTarget: read out of range at %v", a)
	}
	return append([]byte(nil), f.mem[off:off+n]...), nil
}

func (f *fakeTarget) WriteBytes(a addr.Address, buf []byte) error {
	off := int(a.Sub(f.base))
	if off < 0 || off+len(buf) > len(f.mem) {
		return fmt.Errorf("fakeTarget: write out of range at %v", a)
	}
	copy(f.mem[off:], buf)
	return nil
}

func (f *fakeTarget) PeekValue(a addr.Address, n int) ([]byte, error) {
	return f.ReadBytes(a, n)
}

func newTestSession(target *fakeTarget, regionSize int64) *Session {
	s := NewSession()
	r := &region.Region{ID: 1, Start: target.base, Size: regionSize, Perm: region.Read | region.Write, Type: region.Heap}
	s.Attach(1234, target, []*region.Region{r})
	return s
}

func TestFirstScanFindsLiteralMatch(t *testing.T) {
	mem := make([]byte, 16)
	mem[4] = 100 // int32 100 at offset 4
	target := newFakeTarget(1000, mem)
	s := newTestSession(target, int64(len(mem)))
	s.Opts.ScanDataType = scan.Int32

	uv, _ := userval.Parse("100")
	if _, err := s.FirstScan(uv, scan.EqualTo); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	if s.NumMatches == 0 {
		t.Fatalf("FirstScan found no matches for value 100")
	}
	loc, ok := s.Nth(0)
	if !ok {
		t.Fatalf("Nth(0) not found")
	}
	if got := s.Store.Address(loc); got != addr.Address(1004) {
		t.Errorf("first match address = %v, want 1004", got)
	}
}

func TestFirstScanRejectsNarrowingOnlyMatchType(t *testing.T) {
	target := newFakeTarget(1000, make([]byte, 8))
	s := newTestSession(target, 8)
	uv, _ := userval.Parse("100")
	if _, err := s.FirstScan(uv, scan.Changed); err == nil {
		t.Errorf("FirstScan with Changed should fail: it requires a prior scan")
	}
}

func TestNextScanNarrowsAndNeverGrows(t *testing.T) {
	mem := make([]byte, 16)
	mem[0] = 50
	mem[8] = 50
	target := newFakeTarget(2000, mem)
	s := newTestSession(target, int64(len(mem)))
	s.Opts.ScanDataType = scan.Int8

	uv, _ := userval.Parse("50")
	if _, err := s.FirstScan(uv, scan.EqualTo); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	before := s.NumMatches
	if before == 0 {
		t.Fatalf("expected at least one match after first scan")
	}

	// Narrow: only the byte at offset 0 survives a ">40" scan after it is
	// changed to 41 and the other candidate drops to 10.
	target.mem[0] = 41
	target.mem[8] = 10

	uv2, _ := userval.Parse("40")
	if _, err := s.NextScan(uv2, scan.GreaterThan); err != nil {
		t.Fatalf("NextScan: %v", err)
	}
	if s.NumMatches > before {
		t.Errorf("NextScan increased NumMatches from %d to %d", before, s.NumMatches)
	}
	if s.NumMatches != 1 {
		t.Errorf("NumMatches after narrowing = %d, want 1", s.NumMatches)
	}
}

func TestSetWritesWidestViableWidth(t *testing.T) {
	mem := make([]byte, 8)
	target := newFakeTarget(3000, mem)
	s := newTestSession(target, int64(len(mem)))
	s.Opts.ScanDataType = scan.Int8

	uv, _ := userval.Parse("0")
	if _, err := s.FirstScan(uv, scan.EqualTo); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}

	setVal, _ := userval.Parse("42")
	if err := s.Set(0, setVal); err != nil {
		t.Fatalf("Set(0, 42): %v", err)
	}
	got, err := target.ReadBytes(3000, 1)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if got[0] != 42 {
		t.Errorf("target byte after Set = %d, want 42", got[0])
	}
}

func TestDeleteClearsMatch(t *testing.T) {
	mem := []byte{5}
	target := newFakeTarget(4000, mem)
	s := newTestSession(target, 1)
	uv, _ := userval.Parse("5")
	if _, err := s.FirstScan(uv, scan.EqualTo); err != nil {
		t.Fatalf("FirstScan: %v", err)
	}
	before := s.NumMatches
	if err := s.Delete(0); err != nil {
		t.Fatalf("Delete(0): %v", err)
	}
	if s.NumMatches != before-1 {
		t.Errorf("NumMatches after Delete = %d, want %d", s.NumMatches, before-1)
	}
}

func TestDeleteRegionsInvert(t *testing.T) {
	s := NewSession()
	r1 := &region.Region{ID: 1, Start: 0, Size: 10}
	r2 := &region.Region{ID: 2, Start: 100, Size: 10}
	r3 := &region.Region{ID: 3, Start: 200, Size: 10}
	s.Regions = []*region.Region{r1, r2, r3}
	s.State = Attached

	s.DeleteRegions([]int{2}, true) // keep only region 2

	if len(s.Regions) != 1 || s.Regions[0].ID != 2 {
		t.Errorf("DeleteRegions(invert) left regions %v, want just region 2", s.Regions)
	}
}
