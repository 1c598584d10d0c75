// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/scanwright/memscan/internal/addr"
	"github.com/scanwright/memscan/internal/driver"
	"github.com/scanwright/memscan/internal/userval"
	"github.com/scanwright/memscan/internal/value"
)

// setSpec is one parsed "set" argument: a list of match ordinals (or
// "all"), the value to write, and an optional continuous-write period.
type setSpec struct {
	all     bool
	ids     []int
	literal userval.UserValue
	delay   time.Duration
}

// parseSetSpec parses "1,3=42", "all=0", or "1=42/5" (write every 5s
// until cancelled), per spec.md §4.4.
func parseSetSpec(s string) (setSpec, error) {
	idsPart, rest, ok := strings.Cut(s, "=")
	if !ok {
		return setSpec{}, fmt.Errorf("error: expected <ids>=<value>")
	}
	valuePart, delayPart, hasDelay := strings.Cut(rest, "/")

	var spec setSpec
	idsPart = strings.TrimSpace(idsPart)
	if idsPart == "all" {
		spec.all = true
	} else {
		for _, f := range strings.Split(idsPart, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			n, err := strconv.Atoi(f)
			if err != nil {
				return setSpec{}, fmt.Errorf("error: bad match id %q", f)
			}
			spec.ids = append(spec.ids, n)
		}
	}

	uv, err := userval.Parse(valuePart)
	if err != nil {
		return setSpec{}, fmt.Errorf("error: %v", err)
	}
	spec.literal = uv

	if hasDelay {
		secs, err := strconv.Atoi(strings.TrimSpace(delayPart))
		if err != nil || secs <= 0 {
			return setSpec{}, fmt.Errorf("error: bad delay %q", delayPart)
		}
		spec.delay = time.Duration(secs) * time.Second
	}
	return spec, nil
}

func setCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set <ids>=<value>[/seconds]",
		Short: `write a value to one or more matches, e.g. "set 1,3=42"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := parseSetSpec(args[0])
			if err != nil {
				return err
			}
			targets := spec.ids
			if spec.all {
				targets = make([]int, st.sess.NumMatches)
				for i := range targets {
					targets[i] = i
				}
			}
			write := func() error {
				for _, id := range targets {
					if err := st.sess.Set(id, spec.literal); err != nil {
						return fmt.Errorf("error: %v", err)
					}
				}
				return nil
			}
			if spec.delay == 0 {
				return write()
			}
			for {
				if st.cancelRequested() {
					fmt.Fprintln(cmd.OutOrStdout(), "interrupted")
					return nil
				}
				if err := write(); err != nil {
					return err
				}
				time.Sleep(spec.delay)
			}
		},
	}
}

func addrFromUint(a uint64) addr.Address {
	return addr.Address(a)
}

// encodeLiteral renders a bare userval.UserValue (the "write" command's
// operand, which has no associated match entry to take a width from) as
// raw target bytes, defaulting numeric literals to their narrowest
// admissible width (an integer width where one fits, otherwise f32).
func encodeLiteral(uv userval.UserValue, opts driver.Options) ([]byte, error) {
	switch uv.Kind {
	case userval.String:
		return []byte(uv.Str), nil
	case userval.ByteArray:
		buf := make([]byte, len(uv.Bytes))
		for i, tok := range uv.Bytes {
			buf[i] = tok.Value
		}
		return buf, nil
	case userval.Number:
		w := narrowestWidth(uv.Widths)
		if w == 0 {
			return nil, fmt.Errorf("no viable width for literal")
		}
		v := retagAt(uv, w)
		if opts.Endianness == driver.Big {
			v = value.Swap(v)
		}
		buf := make([]byte, w.Size())
		v.Encode(buf, binary.LittleEndian)
		return buf, nil
	default:
		return nil, fmt.Errorf("unsupported literal kind for write")
	}
}

func narrowestWidth(widths value.Width) value.Width {
	for _, w := range []value.Width{value.U8, value.S8, value.U16, value.S16, value.U32, value.S32, value.U64, value.S64, value.F32, value.F64} {
		if widths&w != 0 {
			return w
		}
	}
	return 0
}

func retagAt(uv userval.UserValue, w value.Width) value.Value {
	switch {
	case w == value.F32 || w == value.F64:
		if uv.Number.IsFloat() {
			return value.FromFloat64(w, uv.Number.Float64())
		}
		return value.FromFloat64(w, float64(uv.Number.Int64()))
	case w == value.U8 || w == value.U16 || w == value.U32 || w == value.U64:
		return value.FromUint64(w, uv.Number.Uint64())
	default:
		return value.FromInt64(w, uv.Number.Int64())
	}
}
