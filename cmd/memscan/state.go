// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"sync/atomic"

	"github.com/scanwright/memscan/internal/driver"
	"github.com/scanwright/memscan/internal/ptio"
	"github.com/scanwright/memscan/internal/region"
)

// state is the process-wide command target: one attached pid, its driver
// session, and the interrupt flag SIGINT feeds (spec.md §9 cancellation).
type state struct {
	sess      *driver.Session
	target    *ptio.Target
	interrupt int32
}

func newState() *state {
	return &state{sess: driver.NewSession()}
}

func (st *state) cancelRequested() bool {
	return atomic.SwapInt32(&st.interrupt, 0) != 0
}

func (st *state) requestCancel() {
	atomic.StoreInt32(&st.interrupt, 1)
}

// attach replaces the current target, detaching the previous one if any.
func (st *state) attach(pid int) error {
	if st.target != nil {
		st.target.Detach()
		st.target = nil
	}
	t, err := ptio.Attach(pid)
	if err != nil {
		return err
	}
	regions, err := ptio.ReadMaps(pid)
	if err != nil {
		t.Detach()
		return fmt.Errorf("read memory map of %d: %v", pid, err)
	}
	st.target = t
	st.sess.Attach(pid, t, regions)
	st.sess.Cancel = st.cancelRequested
	return nil
}

// rescan re-reads the region list for the currently attached pid, for the
// "reset" command.
func (st *state) rescan() error {
	if st.sess.State == driver.Init {
		return fmt.Errorf("not attached to any process")
	}
	regions, err := ptio.ReadMaps(st.sess.PID)
	if err != nil {
		return err
	}
	st.sess.Reset(regions)
	return nil
}

func regionByID(regions []*region.Region, id int) *region.Region {
	for _, r := range regions {
		if r.ID == id {
			return r
		}
	}
	return nil
}
