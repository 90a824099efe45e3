// Package cos provides small low-level error and I/O helpers shared by
// every package in this module, generalized from aistore's cmn/cos.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"

	"github.com/arcbridge/pipebridge/cmn/nlog"
)

// Errs accumulates up to maxErrs distinct errors, used by the config
// loader to collect every malformed line instead of stopping at the
// first one.
type Errs struct {
	errs []error
	mu   sync.Mutex
}

const maxErrs = 8

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func (e *Errs) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}
	return errors.Join(e.errs...)
}

// IsErrBrokenPipe reports whether err indicates the peer is gone:
// closed pipe, EPIPE, connection reset, or a closed-network-connection
// read/write. This is the TransportBroken classification spec.md §7
// requires for transitioning a PipeThread to Closing.
func IsErrBrokenPipe(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, io.EOF):
		return true
	case errors.Is(err, io.ErrClosedPipe):
		return true
	case errors.Is(err, net.ErrClosed):
		return true
	case errors.Is(err, syscall.EPIPE):
		return true
	case errors.Is(err, syscall.ECONNRESET):
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return !nerr.Temporary() && !nerr.Timeout()
	}
	return false
}

// ExitLogf logs a fatal startup error (best-effort) and terminates the
// process, mirroring the teacher's cos.ExitLogf used from cmd/authn.
func ExitLogf(f string, a ...any) {
	msg := "FATAL ERROR: " + fmt.Sprintf(f, a...)
	nlog.Errorln(msg)
	nlog.Flush(nlog.ActExit)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

// Close closes c and logs on error, for defer sites where the error
// cannot be usefully propagated.
func Close(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil && !IsErrBrokenPipe(err) {
		nlog.Warningf("close: %v", err)
	}
}
