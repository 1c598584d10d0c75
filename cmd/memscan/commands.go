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

	"github.com/scanwright/memscan/internal/driver"
	"github.com/scanwright/memscan/internal/scan"
	"github.com/scanwright/memscan/internal/userval"
	"github.com/scanwright/memscan/internal/value"
)

// newRootCommand builds the memscan command tree of spec.md §6: pid,
// reset, snapshot, set, list, delete, dregion, lregions, update, watch,
// dump, write, option, shell, show. help/exit are cobra/shell builtins.
func newRootCommand(st *state) *cobra.Command {
	root := &cobra.Command{
		Use:           "memscan",
		Short:         "interactive memory scanner for a live target process",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		pidCmd(st),
		resetCmd(st),
		snapshotCmd(st),
		setCmd(st),
		listCmd(st),
		deleteCmd(st),
		dregionCmd(st),
		lregionsCmd(st),
		updateCmd(st),
		watchCmd(st),
		dumpCmd(st),
		writeCmd(st),
		optionCmd(st),
		showCmd(st),
		shellCmd(st),
	)
	return root
}

func pidCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "pid <pid>",
		Short: "attach to a target process by pid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("error: bad pid %q", args[0])
			}
			if err := st.attach(n); err != nil {
				return fmt.Errorf("error: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "attached to pid %d, %d regions\n", n, len(st.sess.Regions))
			return nil
		},
	}
}

func resetCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "drop the current match set and rebuild the region list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.rescan(); err != nil {
				return fmt.Errorf("error: %v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reset")
			return nil
		},
	}
}

func snapshotCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [expr]",
		Short: `scan, e.g. "=100", "<", "+5", "any"`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := ""
			if len(args) == 1 {
				expr = args[0]
			}
			mt, uv, err := parseScanExpr(expr)
			if err != nil {
				return err
			}
			if uv == nil {
				uv = &userval.UserValue{}
			}
			interrupted, scanErr := runScan(st, mt, *uv)
			if scanErr != nil {
				return fmt.Errorf("error: %v", scanErr)
			}
			if interrupted {
				fmt.Fprintln(cmd.OutOrStdout(), "interrupted")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d matches\n", st.sess.NumMatches)
			return nil
		},
	}
}

// updateCmd re-verifies the existing match set without narrowing it
// (match type Any holds for every candidate whose bytes can still be read;
// see spec.md §8's no-op-update property).
func updateCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "re-read the current match set without narrowing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := runScan(st, scan.Any, userval.UserValue{}); err != nil {
				return fmt.Errorf("error: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d matches\n", st.sess.NumMatches)
			return nil
		},
	}
}

func runScan(st *state, mt scan.MatchType, uv userval.UserValue) (bool, error) {
	if st.sess.State == driver.Init {
		return false, fmt.Errorf("not attached to any process")
	}
	if st.sess.State == driver.Attached {
		return st.sess.FirstScan(uv, mt)
	}
	return st.sess.NextScan(uv, mt)
}

func listCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "print the current match set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for i := 0; i < st.sess.NumMatches; i++ {
				a, flags, raw, err := st.sess.Describe(i)
				if err != nil {
					fmt.Fprintf(out, "[%2d] <unreadable: %v>\n", i, err)
					continue
				}
				r := st.sess.RegionFor(a)
				regionID, regionStart := 0, uint64(a)
				if r != nil {
					regionID, regionStart = r.ID, uint64(r.Start)
				}
				ev := entryView{regionID: regionID}
				switch {
				case flags.ByteArrayLen > 0:
					ev.byteArrayLen = flags.ByteArrayLen
					ev.bytes = raw
				case flags.StringLen > 0:
					ev.stringLen = flags.StringLen
					ev.str = string(raw)
				default:
					w := flags.WidestWidth()
					ev.width = w
					ev.numeric = value.Decode(w, raw, binary.LittleEndian)
				}
				fmt.Fprintln(out, formatMatchLine(i, uint64(a), regionStart, ev))
			}
			return nil
		},
	}
}

func deleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "delete one match by its list ordinal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("error: bad match id %q", args[0])
			}
			if err := st.sess.Delete(n); err != nil {
				return fmt.Errorf("error: %v", err)
			}
			return nil
		},
	}
}

func dregionCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "dregion <ids>",
		Short: `delete regions, e.g. "dregion 1,2" or "dregion !2" to keep only 2`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := args[0]
			invert := strings.HasPrefix(spec, "!")
			spec = strings.TrimPrefix(spec, "!")
			var ids []int
			for _, f := range strings.Split(spec, ",") {
				f = strings.TrimSpace(f)
				if f == "" {
					continue
				}
				n, err := strconv.Atoi(f)
				if err != nil {
					return fmt.Errorf("error: bad region id %q", f)
				}
				if regionByID(st.sess.Regions, n) == nil {
					return fmt.Errorf("error: no tracked region with id %d", n)
				}
				ids = append(ids, n)
			}
			st.sess.DeleteRegions(ids, invert)
			fmt.Fprintf(cmd.OutOrStdout(), "%d regions remain\n", len(st.sess.Regions))
			return nil
		},
	}
}

func lregionsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "lregions",
		Short: "list the tracked memory regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, r := range st.sess.Regions {
				fmt.Fprintf(out, "%2d  %#x-%#x %s %-6s %s\n", r.ID, uint64(r.Start), uint64(r.End()), r.Perm, r.Type, r.Filename)
			}
			return nil
		},
	}
}

func watchCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <id>",
		Short: "report changes to one match once per second until cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("error: bad match id %q", args[0])
			}
			out := cmd.OutOrStdout()
			var last value.Value
			first := true
			for {
				if st.cancelRequested() {
					fmt.Fprintln(out, "interrupted")
					return nil
				}
				a, v, err := st.sess.ReadMatch(n)
				if err != nil {
					return fmt.Errorf("error: %v", err)
				}
				if first || v != last {
					fmt.Fprintf(out, "%#x = %s\n", uint64(a), formatNumeric(entryView{width: v.Width, numeric: v}))
					last, first = v, false
				}
				time.Sleep(time.Second)
			}
		},
	}
}

func dumpCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <addr> [len]",
		Short: "dump raw target memory as hex",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
			if err != nil {
				return fmt.Errorf("error: bad address %q", args[0])
			}
			n := 256
			if len(args) == 2 {
				n, err = strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("error: bad length %q", args[1])
				}
			}
			if st.target == nil {
				return fmt.Errorf("error: not attached to any process")
			}
			buf, err := st.target.ReadBytes(addrFromUint(a), n)
			if err != nil {
				return fmt.Errorf("error: %v", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), dumpMemory(a, buf, st.sess.Opts.DumpWithASCII))
			return nil
		},
	}
}

func writeCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "write <addr> <value>",
		Short: "write a value directly to an address, bypassing the match set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 64)
			if err != nil {
				return fmt.Errorf("error: bad address %q", args[0])
			}
			uv, err := userval.Parse(args[1])
			if err != nil {
				return fmt.Errorf("error: %v", err)
			}
			if st.target == nil {
				return fmt.Errorf("error: not attached to any process")
			}
			buf, err := encodeLiteral(uv, st.sess.Opts)
			if err != nil {
				return fmt.Errorf("error: %v", err)
			}
			if err := st.target.WriteBytes(addrFromUint(a), buf); err != nil {
				return fmt.Errorf("error: %v", err)
			}
			return nil
		},
	}
}

func optionCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "option <name> <value>",
		Short: "set a session option",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyOption(&st.sess.Opts, args[0], args[1]); err != nil {
				return err
			}
			return nil
		},
	}
}

func showCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "print the current session state and options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pid: %d\n", st.sess.PID)
			fmt.Fprintf(out, "state: %s\n", stateName(st.sess.State))
			fmt.Fprintf(out, "matches: %d\n", st.sess.NumMatches)
			fmt.Fprintf(out, "regions: %d\n", len(st.sess.Regions))
			fmt.Fprintf(out, "scan_data_type: %s\n", dataTypeName(st.sess.Opts.ScanDataType))
			fmt.Fprintf(out, "region_scan_level: %d\n", st.sess.Opts.RegionScanLevel)
			fmt.Fprintf(out, "detect_reverse_change: %v\n", st.sess.Opts.DetectReverseChange)
			fmt.Fprintf(out, "dump_with_ascii: %v\n", st.sess.Opts.DumpWithASCII)
			fmt.Fprintf(out, "endianness: %d\n", st.sess.Opts.Endianness)
			return nil
		},
	}
}

func stateName(s driver.State) string {
	switch s {
	case driver.Init:
		return "INIT"
	case driver.Attached:
		return "ATTACHED"
	case driver.Narrowing:
		return "NARROWING"
	default:
		return "?"
	}
}
