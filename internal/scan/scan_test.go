// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scan

import (
	"encoding/binary"
	"testing"

	"github.com/scanwright/memscan/internal/userval"
	"github.com/scanwright/memscan/internal/value"
)

func allNumericFlags() value.Flags {
	return value.Flags{Widths: value.AllNumeric}
}

func bytesOf(n uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, n)
	return buf
}

func TestEvaluateEqualToFirstScan(t *testing.T) {
	uv, err := userval.Parse("100")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	flags, ok := Evaluate(Int32, EqualTo, allNumericFlags(), nil, bytesOf(100), uv, false, false)
	if !ok {
		t.Fatalf("Evaluate(=100 against 100) = false, want true")
	}
	if flags.Widths&(value.U32|value.S32) == 0 {
		t.Errorf("Evaluate narrowed away the 32-bit widths: %v", flags.Widths)
	}
}

func TestEvaluateEqualToMismatch(t *testing.T) {
	uv, _ := userval.Parse("100")
	_, ok := Evaluate(Int32, EqualTo, allNumericFlags(), nil, bytesOf(99), uv, false, false)
	if ok {
		t.Errorf("Evaluate(=100 against 99) = true, want false")
	}
}

func TestEvaluateChangedRequiresOldValue(t *testing.T) {
	old := allNumericFlags()
	flags, ok := Evaluate(Int32, Changed, old, bytesOf(100), bytesOf(101), userval.UserValue{}, false, false)
	if !ok {
		t.Fatalf("Evaluate(Changed, 100->101) = false, want true")
	}
	if flags.Widths == 0 {
		t.Errorf("Changed narrowed to nothing")
	}
	if _, ok := Evaluate(Int32, Changed, old, bytesOf(100), bytesOf(100), userval.UserValue{}, false, false); ok {
		t.Errorf("Evaluate(Changed, 100->100) = true, want false")
	}
}

func TestEvaluateIncreasedDecreased(t *testing.T) {
	old := allNumericFlags()
	if _, ok := Evaluate(Int32, Increased, old, bytesOf(10), bytesOf(20), userval.UserValue{}, false, false); !ok {
		t.Errorf("Increased 10->20 should hold")
	}
	if _, ok := Evaluate(Int32, Increased, old, bytesOf(20), bytesOf(10), userval.UserValue{}, false, false); ok {
		t.Errorf("Increased 20->10 should not hold")
	}
	if _, ok := Evaluate(Int32, Decreased, old, bytesOf(20), bytesOf(10), userval.UserValue{}, false, false); !ok {
		t.Errorf("Decreased 20->10 should hold")
	}
}

func TestEvaluateRange(t *testing.T) {
	uv, err := userval.Parse("10:20")
	if err != nil {
		t.Fatalf("Parse range: %v", err)
	}
	if _, ok := Evaluate(Int32, Range, allNumericFlags(), nil, bytesOf(15), uv, false, false); !ok {
		t.Errorf("15 in [10,20] should hold")
	}
	if _, ok := Evaluate(Int32, Range, allNumericFlags(), nil, bytesOf(25), uv, false, false); ok {
		t.Errorf("25 in [10,20] should not hold")
	}
}

func TestEvaluateByteArrayWildcard(t *testing.T) {
	uv, err := userval.Parse("de ad ?? ef")
	if err != nil {
		t.Fatalf("Parse bytearray: %v", err)
	}
	flags, ok := evaluateByteArray(EqualTo, nil, []byte{0xde, 0xad, 0x00, 0xef}, uv)
	if !ok {
		t.Fatalf("wildcard byte array should match")
	}
	if flags.ByteArrayLen != 4 {
		t.Errorf("ByteArrayLen = %d, want 4", flags.ByteArrayLen)
	}
	if _, ok := evaluateByteArray(EqualTo, nil, []byte{0xde, 0xad, 0x00, 0x00}, uv); ok {
		t.Errorf("mismatched non-wildcard byte should not match")
	}
}

func TestEvaluateStringEqualTo(t *testing.T) {
	uv, err := userval.Parse(`"hi"`)
	if err != nil {
		t.Fatalf("Parse string: %v", err)
	}
	if _, ok := evaluateString(EqualTo, nil, []byte("hi there"), uv); !ok {
		t.Errorf(`"hi" should match prefix "hi there"`)
	}
	if _, ok := evaluateString(EqualTo, nil, []byte("nope"), uv); ok {
		t.Errorf(`"hi" should not match "nope"`)
	}
}

func TestReinterpretedHoldsDetectsReverseChange(t *testing.T) {
	// A candidate already narrowed to s8 only: 0x7f -> 0x80 decreases as s8
	// (127 -> -128) but the same bytes increase as u8 (127 -> 128).
	old := value.Flags{Widths: value.S8}
	_, ok := Evaluate(Int8, Increased, old, []byte{0x7f}, []byte{0x80}, userval.UserValue{}, false, true)
	if !ok {
		t.Errorf("detect_reverse_change should surface the u8 increase masked by the s8 decrease")
	}
	_, ok = Evaluate(Int8, Increased, old, []byte{0x7f}, []byte{0x80}, userval.UserValue{}, false, false)
	if ok {
		t.Errorf("without detect_reverse_change, only the plain per-width comparison should apply")
	}
}
