// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// Package ptio implements the target I/O interface of spec.md §6 against
// a live Linux process via ptrace(2): attach, detach, read_bytes,
// peek_value, write_bytes, and read_maps.
package ptio

import (
	"fmt"
	"os"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/scanwright/memscan/internal/addr"
	"github.com/scanwright/memscan/internal/region"
)

// Target is one attached tracee. All ptrace calls issued against it run on
// a single dedicated OS thread, the way the teacher's ptraceRun pins
// ptrace syscalls to one goroutine: the kernel ties tracer identity to the
// calling thread, so every request funnels through an unbuffered
// request/response channel pair to that thread.
type Target struct {
	pid int
	fc  chan func() error
	ec  chan error
	mem *os.File
}

// Attach issues PTRACE_ATTACH against pid and waits for it to stop,
// mirroring demo/ptrace-linux-amd64/main.go's attach sequence.
func Attach(pid int) (*Target, error) {
	t := &Target{
		pid: pid,
		fc:  make(chan func() error),
		ec:  make(chan error),
	}
	go ptraceRun(t.fc, t.ec)

	if err := t.run(func() error { return unix.PtraceAttach(pid) }); err != nil {
		t.shutdown()
		return nil, fmt.Errorf("ptio: attach %d: %v", pid, err)
	}
	var status unix.WaitStatus
	if err := t.run(func() error {
		_, err := unix.Wait4(pid, &status, 0, nil)
		return err
	}); err != nil {
		t.shutdown()
		return nil, fmt.Errorf("ptio: wait for attach stop of %d: %v", pid, err)
	}

	mem, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		// Fall back to read-only; writes will fail explicitly later.
		mem, err = os.Open(fmt.Sprintf("/proc/%d/mem", pid))
		if err != nil {
			t.shutdown()
			return nil, fmt.Errorf("ptio: open /proc/%d/mem: %v", pid, err)
		}
	}
	t.mem = mem
	return t, nil
}

// Detach is idempotent: detaching a Target more than once is a no-op
// after the first call.
func (t *Target) Detach() error {
	if t.fc == nil {
		return nil
	}
	err := t.run(func() error { return unix.PtraceDetach(t.pid) })
	t.shutdown()
	return err
}

func (t *Target) shutdown() {
	if t.mem != nil {
		t.mem.Close()
		t.mem = nil
	}
	if t.fc != nil {
		close(t.fc)
		t.fc = nil
	}
}

// ptraceRun runs every closure sent on fc on a dedicated, locked OS
// thread, replying on ec. Both channels must be unbuffered so the error
// always reaches the goroutine that issued the request.
func ptraceRun(fc chan func() error, ec chan error) {
	runtime.LockOSThread()
	for f := range fc {
		ec <- f()
	}
}

func (t *Target) run(f func() error) error {
	if t.fc == nil {
		return fmt.Errorf("ptio: target is detached")
	}
	t.fc <- f
	return <-t.ec
}

// ReadBytes reads n bytes at a from the target, via /proc/<pid>/mem so
// that bulk region scans don't pay ptrace's one-word-at-a-time cost; the
// underlying pread still requires the ptrace attachment to be live.
func (t *Target) ReadBytes(a addr.Address, n int) ([]byte, error) {
	buf := make([]byte, n)
	var got int
	err := t.run(func() error {
		var rerr error
		got, rerr = t.mem.ReadAt(buf, int64(a))
		return rerr
	})
	if err != nil && got == 0 {
		return nil, fmt.Errorf("ptio: read %d bytes at %s: %v", n, a, err)
	}
	return buf[:got], nil
}

// PeekValue reads up to 8 bytes at a using PTRACE_PEEKTEXT, for the small
// per-match reads the driver issues for watch (Session.ReadMatch).
func (t *Target) PeekValue(a addr.Address, n int) ([]byte, error) {
	if n > 8 {
		n = 8
	}
	buf := make([]byte, n)
	err := t.run(func() error {
		got, err := unix.PtracePeekText(t.pid, uintptr(a), buf)
		if err != nil {
			return err
		}
		if got != len(buf) {
			return fmt.Errorf("peeked %d bytes, want %d", got, len(buf))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ptio: peek at %s: %v", a, err)
	}
	return buf, nil
}

// WriteBytes writes buf to the target at a.
func (t *Target) WriteBytes(a addr.Address, buf []byte) error {
	err := t.run(func() error {
		n, werr := t.mem.WriteAt(buf, int64(a))
		if werr != nil {
			return werr
		}
		if n != len(buf) {
			return fmt.Errorf("wrote %d bytes, want %d", n, len(buf))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ptio: write %d bytes at %s: %v", len(buf), a, err)
	}
	return nil
}

// ReadMaps returns the target's memory mappings from /proc/<pid>/maps.
func ReadMaps(pid int) ([]*region.Region, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, fmt.Errorf("ptio: open maps for %d: %v", pid, err)
	}
	defer f.Close()
	return region.ReadMaps(f)
}

// Wait4 issues a non-blocking (WNOHANG) wait on the tracee and returns its
// status, which reveals whether the tracee has exited.
func (t *Target) Wait4() (syscall.WaitStatus, error) {
	var status unix.WaitStatus
	err := t.run(func() error {
		_, werr := unix.Wait4(t.pid, &status, unix.WNOHANG, nil)
		return werr
	})
	return syscall.WaitStatus(status), err
}
