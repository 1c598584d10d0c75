// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/scanwright/memscan/internal/scan"
	"github.com/scanwright/memscan/internal/userval"
)

// parseScanExpr parses the comparison-shorthand grammar of spec.md §6:
// "=100", "!=", "<50", ">", "+5", "-", a bare range "10:20", a bare
// literal (implicit "="), or "any". The second return is nil for match
// types that take no operand.
func parseScanExpr(s string) (scan.MatchType, *userval.UserValue, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "any":
		return scan.Any, nil, nil
	case strings.HasPrefix(s, "!="):
		return operand(s[2:], scan.NotEqualTo, scan.Changed)
	case strings.HasPrefix(s, "="):
		return operand(s[1:], scan.EqualTo, scan.NotChanged)
	case strings.HasPrefix(s, "<"):
		return operand(s[1:], scan.LessThan, scan.Decreased)
	case strings.HasPrefix(s, ">"):
		return operand(s[1:], scan.GreaterThan, scan.Increased)
	case strings.HasPrefix(s, "+"):
		return operand(s[1:], scan.IncreasedBy, scan.Increased)
	case strings.HasPrefix(s, "-"):
		return operand(s[1:], scan.DecreasedBy, scan.Decreased)
	default:
		return literalOperand(s, scan.EqualTo)
	}
}

func operand(rest string, withOperand, withoutOperand scan.MatchType) (scan.MatchType, *userval.UserValue, error) {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return withoutOperand, nil, nil
	}
	return literalOperand(rest, withOperand)
}

func literalOperand(rest string, mt scan.MatchType) (scan.MatchType, *userval.UserValue, error) {
	uv, err := userval.Parse(rest)
	if err != nil {
		return mt, nil, fmt.Errorf("error: %v", err)
	}
	if uv.Kind == userval.Range {
		mt = scan.Range
	}
	return mt, &uv, nil
}
