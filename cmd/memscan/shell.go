// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

func shellCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(st)
		},
	}
}

// runShell is the interactive front end: it re-parses the same command
// tree newRootCommand builds for every line, the way a small cobra REPL
// conventionally works, plus the "help"/"exit" builtins spec.md §6 names
// that aren't meaningful as one-shot CLI invocations.
func runShell(st *state) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "memscan> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("shell: %v", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			st.requestCancel()
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "exit", "quit":
			return nil
		case "help":
			root := newRootCommand(st)
			root.Println(root.UsageString())
			continue
		}

		args, err := splitShellWords(line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		root := newRootCommand(st)
		root.SetArgs(args)
		if err := root.Execute(); err != nil {
			fmt.Println(err)
		}
	}
}

// splitShellWords splits a line into words honoring double-quoted
// substrings, so `write 0x1000 "hello world"` keeps the string intact.
func splitShellWords(line string) ([]string, error) {
	var words []string
	var cur strings.Builder
	inQuotes := false
	started := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
			started = true
		case c == ' ' && !inQuotes:
			if started {
				words = append(words, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteByte(c)
			started = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	if started {
		words = append(words, cur.String())
	}
	return words, nil
}
