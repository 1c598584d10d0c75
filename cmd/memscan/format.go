// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/scanwright/memscan/internal/value"
)

// formatMatchLine renders one `list` row in the stable front-end format of
// spec.md §6: "[%2u] <hexaddr>, %2u + <hexoff>, %5s, <value>".
func formatMatchLine(n int, addr, regionStart uint64, e entryView) string {
	off := addr - regionStart
	switch {
	case e.byteArrayLen > 0:
		return fmt.Sprintf("[%2d] %#x, %2d + %#x, %5s, %s, [bytearray]", n, addr, e.regionID, off, "", formatHex(e.bytes))
	case e.stringLen > 0:
		return fmt.Sprintf("[%2d] %#x, %2d + %#x, %5s, %s, [string]", n, addr, e.regionID, off, "", e.str)
	default:
		return fmt.Sprintf("[%2d] %#x, %2d + %#x, %5s, %s", n, addr, e.regionID, off, e.width.String(), formatNumeric(e))
	}
}

// entryView is the display-ready projection of one match, independent of
// the internal swath/value representation.
type entryView struct {
	regionID     int
	width        value.Width
	numeric      value.Value
	byteArrayLen int
	stringLen    int
	bytes        []byte
	str          string
}

func formatNumeric(e entryView) string {
	v := e.numeric
	switch {
	case v.IsFloat():
		return fmt.Sprintf("%g", v.Float64())
	case v.IsSigned():
		return fmt.Sprintf("%d", v.Int64())
	default:
		return fmt.Sprintf("%d", v.Uint64())
	}
}

func formatHex(buf []byte) string {
	var b strings.Builder
	for i, c := range buf {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", c)
	}
	return b.String()
}

// dumpMemory renders buf per spec.md §6's dump format: 16 bytes per line in
// hex, with an optional trailing printable-ASCII panel, and a leading
// address column.
func dumpMemory(base uint64, buf []byte, withASCII bool) string {
	var b strings.Builder
	for off := 0; off < len(buf); off += 16 {
		end := off + 16
		if end > len(buf) {
			end = len(buf)
		}
		line := buf[off:end]
		fmt.Fprintf(&b, "%#010x:", base+uint64(off))
		for _, c := range line {
			fmt.Fprintf(&b, " %02x", c)
		}
		if withASCII {
			for i := len(line); i < 16; i++ {
				b.WriteString("   ")
			}
			b.WriteString("  ")
			for _, c := range line {
				if c >= 0x20 && c < 0x7f {
					b.WriteByte(c)
				} else {
					b.WriteByte('.')
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
