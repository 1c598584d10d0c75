// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package driver orchestrates the first-scan/next-scan passes over a
// target process and holds the session state machine (INIT -> ATTACHED ->
// NARROWING) along with the match navigator and bulk operations (set,
// watch, delete, dregion) of spec.md §4.3-4.4.
package driver

import (
	"encoding/binary"
	"fmt"

	"github.com/scanwright/memscan/internal/addr"
	"github.com/scanwright/memscan/internal/region"
	"github.com/scanwright/memscan/internal/scan"
	"github.com/scanwright/memscan/internal/swath"
	"github.com/scanwright/memscan/internal/userval"
	"github.com/scanwright/memscan/internal/value"
)

// TargetIO is the target I/O interface of spec.md §6 consumed by the
// driver; internal/ptio.Target satisfies it.
type TargetIO interface {
	ReadBytes(a addr.Address, n int) ([]byte, error)
	WriteBytes(a addr.Address, buf []byte) error
	PeekValue(a addr.Address, n int) ([]byte, error)
}

// Endianness is the "endianness" option: the target's declared byte
// order, independent of the host's.
type Endianness int

const (
	Host Endianness = iota
	Little
	Big
)

// Options mirrors the options table of spec.md §6.
type Options struct {
	ScanDataType        scan.DataType
	RegionScanLevel      region.Level
	DetectReverseChange  bool
	DumpWithASCII        bool
	Endianness           Endianness
}

// DefaultOptions matches the scanmem-style defaults: scan any number,
// heap+stack+exe regions, host endianness.
func DefaultOptions() Options {
	return Options{
		ScanDataType:    scan.AnyNumber,
		RegionScanLevel: region.LevelHeapStackExe,
	}
}

// State is the session's position in the spec.md §4.4 state machine.
type State int

const (
	Init State = iota
	Attached
	Narrowing
)

// Session holds everything that persists across commands: the attached
// pid, target I/O, region list, swath store, and options.
type Session struct {
	State      State
	PID        int
	Target     TargetIO
	Regions    []*region.Region
	Store      *swath.Store
	NumMatches int
	Opts       Options

	// Cancel is polled before each region (first scan) and each swath
	// (next scan); it replaces the
	// C source's longjmp-from-signal-handler with a flag the signal
	// handler only sets (spec.md §9).
	Cancel func() bool
}

// NewSession returns a Session in the INIT state.
func NewSession() *Session {
	return &Session{State: Init, Opts: DefaultOptions(), Cancel: func() bool { return false }}
}

// Attach moves the session to ATTACHED against pid, using target for all
// subsequent I/O.
func (s *Session) Attach(pid int, target TargetIO, regions []*region.Region) {
	s.PID = pid
	s.Target = target
	s.Regions = regions
	s.Store = nil
	s.NumMatches = 0
	s.State = Attached
}

// Reset drops the current match set and returns to ATTACHED, rebuilding
// the region list (spec.md: "Regions list is rebuilt on every reset").
func (s *Session) Reset(regions []*region.Region) {
	s.Regions = regions
	s.Store = nil
	s.NumMatches = 0
	if s.State != Init {
		s.State = Attached
	}
}

func (s *Session) byteOrder() binary.ByteOrder {
	switch s.Opts.Endianness {
	case Big:
		return binary.BigEndian
	default:
		return binary.LittleEndian
	}
}

// reverseEndian reports whether new target bytes need a byte-swap before
// comparison: true when the user has declared an explicit target
// endianness that disagrees with the order Evaluate decodes with.
func (s *Session) reverseEndian() bool {
	return s.Opts.Endianness == Big
}

const maxPeekWidth = 8

// FirstScan performs the first-scan pass of spec.md §4.3: it walks the
// regions filtered by RegionScanLevel, evaluates the scan routine against
// every byte offset, and populates a fresh store. mt must not be one of
// the next-scan-only match types.
func (s *Session) FirstScan(uv userval.UserValue, mt scan.MatchType) (interrupted bool, err error) {
	if mt.NeedsOldValue() {
		return false, fmt.Errorf("scan: match type requires a prior scan")
	}
	if s.State == Init {
		return false, fmt.Errorf("scan: no target attached")
	}

	var totalBytes int64
	for _, r := range s.Regions {
		if r.Type.Included(s.Opts.RegionScanLevel) && r.Perm&region.Write != 0 {
			totalBytes += r.Size
		}
	}
	store := swath.Allocate(initialStoreBytes, swath.MaxNeededBytes(totalBytes))
	cur := store.Root()

	for _, r := range s.Regions {
		if !r.Type.Included(s.Opts.RegionScanLevel) || r.Perm&region.Write == 0 {
			continue
		}
		if s.Cancel() {
			interrupted = true
			break
		}
		data, rerr := s.Target.ReadBytes(r.Start, int(r.Size))
		if rerr != nil {
			// Unreadable region: not a scan-fatal error, just skip it.
			continue
		}
		for i := 0; i < len(data); i++ {
			avail := len(data) - i
			if avail > maxPeekWidth {
				avail = maxPeekWidth
			}
			newBytes := data[i : i+avail]
			flags, ok := scan.Evaluate(s.Opts.ScanDataType, mt, value.Flags{Widths: value.AllNumeric}, nil, newBytes, uv, s.reverseEndian(), s.Opts.DetectReverseChange)
			if !ok {
				continue
			}
			a := r.Start.Add(int64(i))
			entry := swath.Entry{OldValue: data[i], Flags: flags}
			cur, err = swath.AddElement(store, cur, a, entry)
			if err != nil {
				return false, fmt.Errorf("scan: %v", err)
			}
		}
		if err = store.NullTerminate(cur); err != nil {
			return false, fmt.Errorf("scan: %v", err)
		}
	}

	s.Store = store
	s.NumMatches = store.CountMatches()
	s.State = Narrowing
	return interrupted, nil
}

const initialStoreBytes = 4096

// NextScan narrows the existing store: for every surviving candidate it
// re-reads the current byte(s) from the target, re-evaluates the scan
// routine, and keeps or drops the entry. The narrowed result is built
// into a fresh store rather than rewritten byte-for-byte in place; see
// DESIGN.md for why (the read/write aliasing hazard spec.md §9 calls
// out). num_matches is monotonically non-increasing across this call.
func (s *Session) NextScan(uv userval.UserValue, mt scan.MatchType) (interrupted bool, err error) {
	if s.State != Narrowing || s.Store == nil {
		return false, fmt.Errorf("scan: no existing matches to narrow")
	}

	var totalBytes int64
	for _, r := range s.Regions {
		totalBytes += r.Size
	}
	newStore := swath.Allocate(initialStoreBytes, swath.MaxNeededBytes(totalBytes))
	wcur := newStore.Root()

	off := 0
	for {
		sw := s.Store.At(swath.Cursor{SwathOff: off})
		if sw.IsTerminator() {
			break
		}
		if s.Cancel() {
			interrupted = true
			break
		}
		n := int(sw.N())
		for i := 0; i < n; i++ {
			e := sw.Entry(i)
			if !e.Flags.IsMatch() {
				continue
			}
			width := e.Flags.MaxWidthBytes()
			if width > maxPeekWidth {
				width = maxPeekWidth
			}
			a := sw.Address(i)
			newBytes, rerr := s.Target.ReadBytes(a, width)
			if rerr != nil {
				// Can no longer verify this candidate; it does not survive.
				continue
			}
			oldBytes := oldBytesFor(sw, i, n, width)
			flags, ok := scan.Evaluate(s.Opts.ScanDataType, mt, e.Flags, oldBytes, newBytes, uv, s.reverseEndian(), s.Opts.DetectReverseChange)
			if !ok {
				continue
			}
			entry := swath.Entry{OldValue: newBytes[0], Flags: flags}
			wcur, err = swath.AddElement(newStore, wcur, a, entry)
			if err != nil {
				return interrupted, fmt.Errorf("scan: %v", err)
			}
		}
		off = sw.Next().Off
	}
	if err = newStore.NullTerminate(wcur); err != nil {
		return interrupted, fmt.Errorf("scan: %v", err)
	}

	s.Store = newStore
	s.NumMatches = newStore.CountMatches()
	return interrupted, nil
}

// oldBytesFor reconstructs up to width raw old bytes starting at entry i
// of sw from the OldValue of entry i and its continuation entries.
func oldBytesFor(sw swath.Swath, i, n, width int) []byte {
	buf := make([]byte, 0, width)
	for k := 0; k < width && i+k < n; k++ {
		buf = append(buf, sw.Entry(i+k).OldValue)
	}
	return buf
}

// Nth resolves a user-visible match ordinal to its location, the match
// navigator's core operation.
func (s *Session) Nth(n int) (swath.Location, bool) {
	if s.Store == nil {
		return swath.Location{}, false
	}
	return s.Store.NthMatch(n)
}

// Set writes uv to the nth match, choosing the write width from the
// entry's widest still-viable interpretation (see DESIGN.md for why
// widest, not narrowest) and applying the endianness fix-up.
func (s *Session) Set(n int, uv userval.UserValue) error {
	loc, ok := s.Nth(n)
	if !ok {
		return fmt.Errorf("set: no match #%d", n)
	}
	e := s.Store.Entry(loc)
	a := s.Store.Address(loc)
	order := s.byteOrder()

	var buf []byte
	switch {
	case e.Flags.ByteArrayLen > 0:
		buf = byteArrayLiteral(uv, e.Flags.ByteArrayLen)
	case e.Flags.StringLen > 0:
		buf = stringLiteral(uv, e.Flags.StringLen)
	default:
		w := e.Flags.WidestWidth()
		if w == 0 {
			return fmt.Errorf("set: match #%d has no viable width", n)
		}
		v := widthAt(uv, w)
		buf = make([]byte, w.Size())
		v.Encode(buf, order)
	}
	return s.Target.WriteBytes(a, buf)
}

func byteArrayLiteral(uv userval.UserValue, n int) []byte {
	buf := make([]byte, n)
	for i := 0; i < n && i < len(uv.Bytes); i++ {
		buf[i] = uv.Bytes[i].Value
	}
	return buf
}

func stringLiteral(uv userval.UserValue, n int) []byte {
	buf := make([]byte, n)
	copy(buf, uv.Str)
	return buf
}

// widthAt reinterprets a generically-parsed numeric user literal at
// width w (shared logic with package scan's own comparisons).
func widthAt(uv userval.UserValue, w value.Width) value.Value {
	src := uv.Number
	switch {
	case w == value.F32 || w == value.F64:
		if src.IsFloat() {
			return value.FromFloat64(w, src.Float64())
		}
		return value.FromFloat64(w, float64(src.Int64()))
	case w == value.U8 || w == value.U16 || w == value.U32 || w == value.U64:
		if src.IsFloat() {
			return value.FromUint64(w, uint64(src.Float64()))
		}
		return value.FromUint64(w, src.Uint64())
	default:
		if src.IsFloat() {
			return value.FromInt64(w, int64(src.Float64()))
		}
		return value.FromInt64(w, src.Int64())
	}
}

// ReadMatch reads the current live value of the nth match, for `watch`.
func (s *Session) ReadMatch(n int) (addr.Address, value.Value, error) {
	loc, ok := s.Nth(n)
	if !ok {
		return 0, value.Value{}, fmt.Errorf("no match #%d", n)
	}
	e := s.Store.Entry(loc)
	a := s.Store.Address(loc)
	w := e.Flags.WidestWidth()
	if w == 0 {
		return a, value.Value{}, fmt.Errorf("match #%d has no viable numeric width", n)
	}
	buf, err := s.Target.PeekValue(a, w.Size())
	if err != nil {
		return a, value.Value{}, err
	}
	v := value.Decode(w, buf, s.byteOrder())
	return a, v, nil
}

// RegionFor returns the region containing a, or nil if a falls outside
// every region currently tracked (e.g. it was unmapped since the scan).
func (s *Session) RegionFor(a addr.Address) *region.Region {
	for _, r := range s.Regions {
		if r.Contains(a) {
			return r
		}
	}
	return nil
}

// Describe reads back everything `list` needs to render the nth match:
// its address, its still-viable flags, and its current raw target bytes
// (at the widest still-viable width, or the aggregate length for
// byte-array/string matches).
func (s *Session) Describe(n int) (addr.Address, value.Flags, []byte, error) {
	loc, ok := s.Nth(n)
	if !ok {
		return 0, value.Flags{}, nil, fmt.Errorf("no match #%d", n)
	}
	e := s.Store.Entry(loc)
	a := s.Store.Address(loc)
	width := e.Flags.MaxWidthBytes()
	if width == 0 {
		return a, e.Flags, nil, fmt.Errorf("match #%d has no viable width", n)
	}
	buf, err := s.Target.ReadBytes(a, width)
	if err != nil {
		return a, e.Flags, nil, err
	}
	return a, e.Flags, buf, nil
}

// Delete clears the nth match's flags (equivalent to deleting it) and
// decrements NumMatches.
func (s *Session) Delete(n int) error {
	loc, ok := s.Nth(n)
	if !ok {
		return fmt.Errorf("delete: no match #%d", n)
	}
	e := s.Store.Entry(loc)
	e.Flags.Clear()
	s.Store.SetEntry(loc, e)
	s.NumMatches--
	return nil
}

// DeleteRegions drops the named regions from the region list (or, if
// invert is set, every region NOT named) and sweeps the store so only
// entries inside the surviving regions keep non-zero flags.
func (s *Session) DeleteRegions(ids []int, invert bool) {
	named := make(map[int]bool, len(ids))
	for _, id := range ids {
		named[id] = true
	}

	var kept, removed []*region.Region
	for _, r := range s.Regions {
		if named[r.ID] != invert {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}
	s.Regions = kept
	if s.Store != nil {
		for _, r := range removed {
			s.Store.DeleteByRegion(r, false)
		}
		s.NumMatches = s.Store.CountMatches()
	}
}
