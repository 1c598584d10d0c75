// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package userval parses the literal a user types at the command prompt
// ("100", "lo:hi", `"a string"`, "DE AD ?? EF") into the shape the scan
// routines consume.
package userval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/scanwright/memscan/internal/value"
)

// Kind is the syntactic shape of a parsed user literal.
type Kind int

const (
	Number Kind = iota
	Range
	String
	ByteArray
)

// ByteToken is one byte of a byte-array literal: either a literal value or
// a wildcard that matches unconditionally.
type ByteToken struct {
	Wildcard bool
	Value    byte
}

// UserValue is a parsed command-line literal.
type UserValue struct {
	Kind Kind

	// Number: the literal's value, widened to int64/uint64/float64 as
	// needed by the scan routine; Widths records which interpretations
	// the literal's text is valid under (e.g. "100" fits every integer
	// width and every float width; "100.5" fits only f32/f64).
	Number value.Value
	Widths value.Width

	// Range: inclusive bounds, sharing Widths with Number's rules.
	Lo, Hi value.Value

	// String.
	Str string

	// ByteArray.
	Bytes []ByteToken
}

// Parse parses s per the grammar in spec.md §6: `"`-prefixed strings,
// byte-array literals (hex pairs and `?`/`*` wildcards separated by
// whitespace), `lo:hi` ranges, and otherwise numeric literals.
func Parse(s string) (UserValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return UserValue{}, fmt.Errorf("userval: empty literal")
	}
	switch {
	case strings.HasPrefix(s, `"`):
		return parseString(s)
	case looksLikeByteArray(s):
		return parseByteArray(s)
	case strings.Contains(s, ":"):
		return parseRange(s)
	default:
		return parseNumber(s)
	}
}

func parseString(s string) (UserValue, error) {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return UserValue{Kind: String, Str: s}, nil
}

// looksLikeByteArray reports whether s is whitespace-separated hex-byte /
// wildcard tokens rather than a single numeric literal.
func looksLikeByteArray(s string) bool {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return false
	}
	for _, f := range fields {
		if f != "?" && f != "??" && f != "*" {
			if _, err := strconv.ParseUint(f, 16, 8); err != nil {
				return false
			}
		}
	}
	return true
}

func parseByteArray(s string) (UserValue, error) {
	fields := strings.Fields(s)
	toks := make([]ByteToken, 0, len(fields))
	for _, f := range fields {
		if f == "?" || f == "??" || f == "*" {
			toks = append(toks, ByteToken{Wildcard: true})
			continue
		}
		n, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return UserValue{}, fmt.Errorf("userval: bad byte %q: %v", f, err)
		}
		toks = append(toks, ByteToken{Value: byte(n)})
	}
	return UserValue{Kind: ByteArray, Bytes: toks}, nil
}

func parseRange(s string) (UserValue, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return UserValue{}, fmt.Errorf("userval: malformed range %q", s)
	}
	lo, loWidths, err := parseLiteralNumber(parts[0])
	if err != nil {
		return UserValue{}, err
	}
	hi, hiWidths, err := parseLiteralNumber(parts[1])
	if err != nil {
		return UserValue{}, err
	}
	return UserValue{Kind: Range, Lo: lo, Hi: hi, Widths: loWidths & hiWidths}, nil
}

func parseNumber(s string) (UserValue, error) {
	v, widths, err := parseLiteralNumber(s)
	if err != nil {
		return UserValue{}, err
	}
	return UserValue{Kind: Number, Number: v, Widths: widths}, nil
}

// parseLiteralNumber parses a single numeric literal and returns the set
// of width interpretations its textual form admits.
func parseLiteralNumber(s string) (value.Value, value.Width, error) {
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, ".eE") && !strings.HasPrefix(s, "0x") {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return value.FromFloat64(value.F64, f), value.AllFloats, nil
		}
	}
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return value.FromInt64(value.S64, i), widthsForInt(i), nil
	}
	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return value.FromUint64(value.U64, u), widthsForUint(u), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.FromFloat64(value.F64, f), value.AllFloats, nil
	}
	return value.Value{}, 0, fmt.Errorf("userval: can't parse %q as a number", s)
}

func widthsForInt(i int64) value.Width {
	w := value.AllFloats
	if i >= -0x80 && i <= 0x7f {
		w |= value.S8
	}
	if i >= 0 && i <= 0xff {
		w |= value.U8
	}
	if i >= -0x8000 && i <= 0x7fff {
		w |= value.S16
	}
	if i >= 0 && i <= 0xffff {
		w |= value.U16
	}
	if i >= -0x80000000 && i <= 0x7fffffff {
		w |= value.S32
	}
	if i >= 0 && i <= 0xffffffff {
		w |= value.U32
	}
	w |= value.S64
	if i >= 0 {
		w |= value.U64
	}
	return w
}

func widthsForUint(u uint64) value.Width {
	w := value.AllFloats | value.U64
	if u <= 0x7fffffffffffffff {
		w |= value.S64
	}
	if u <= 0xff {
		w |= value.U8 | value.S8
	}
	if u <= 0xffff {
		w |= value.U16 | value.S16
	}
	if u <= 0xffffffff {
		w |= value.U32 | value.S32
	}
	return w
}
