// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command memscan is an interactive memory scanner for a running target
// process: it enumerates writable memory regions, narrows a candidate
// match set through repeated scans, and lets matches be read, watched,
// written, or deleted. Run "memscan shell" for the interactive prompt, or
// invoke a single command directly, e.g. "memscan pid 1234".
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	st := newState()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT)
	go func() {
		for range sigc {
			st.requestCancel()
		}
	}()

	defer func() {
		if st.target != nil {
			st.target.Detach()
		}
	}()

	root := newRootCommand(st)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
