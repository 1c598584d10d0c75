// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/scanwright/memscan/internal/driver"
	"github.com/scanwright/memscan/internal/region"
	"github.com/scanwright/memscan/internal/scan"
)

// applyOption implements the `option` command of spec.md §6.
func applyOption(opts *driver.Options, name, val string) error {
	switch name {
	case "scan_data_type":
		dt, err := parseDataType(val)
		if err != nil {
			return err
		}
		opts.ScanDataType = dt
	case "region_scan_level":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > 3 {
			return fmt.Errorf("error: region_scan_level must be 1, 2, or 3")
		}
		opts.RegionScanLevel = region.Level(n)
	case "detect_reverse_change":
		b, err := parseBoolFlag(val)
		if err != nil {
			return err
		}
		opts.DetectReverseChange = b
	case "dump_with_ascii":
		b, err := parseBoolFlag(val)
		if err != nil {
			return err
		}
		opts.DumpWithASCII = b
	case "endianness":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 || n > 2 {
			return fmt.Errorf("error: endianness must be 0 (host), 1 (little), or 2 (big)")
		}
		opts.Endianness = driver.Endianness(n)
	default:
		return fmt.Errorf("error: unknown option %q", name)
	}
	return nil
}

func parseBoolFlag(val string) (bool, error) {
	switch val {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("error: expected 0 or 1, got %q", val)
	}
}

func parseDataType(val string) (scan.DataType, error) {
	switch val {
	case "number":
		return scan.AnyNumber, nil
	case "int":
		return scan.AnyInteger, nil
	case "float":
		return scan.AnyFloat, nil
	case "int8":
		return scan.Int8, nil
	case "int16":
		return scan.Int16, nil
	case "int32":
		return scan.Int32, nil
	case "int64":
		return scan.Int64, nil
	case "float32":
		return scan.Float32, nil
	case "float64":
		return scan.Float64, nil
	case "bytearray":
		return scan.ByteArray, nil
	case "string":
		return scan.String, nil
	default:
		return 0, fmt.Errorf("error: unknown scan_data_type %q", val)
	}
}

func dataTypeName(dt scan.DataType) string {
	switch dt {
	case scan.AnyNumber:
		return "number"
	case scan.AnyInteger:
		return "int"
	case scan.AnyFloat:
		return "float"
	case scan.Int8:
		return "int8"
	case scan.Int16:
		return "int16"
	case scan.Int32:
		return "int32"
	case scan.Int64:
		return "int64"
	case scan.Float32:
		return "float32"
	case scan.Float64:
		return "float64"
	case scan.ByteArray:
		return "bytearray"
	case scan.String:
		return "string"
	default:
		return "unknown"
	}
}
