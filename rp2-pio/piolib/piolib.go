// Package piolib holds peripheral drivers built on PIO state machines
// handed out by a piomgr.Manager.
package piolib

import (
	"errors"
	"runtime"
	"time"
)

const defaultCPUFrequency = 125_000_000

var errTimeout = errors.New("piolib:timeout")

func gosched() {
	runtime.Gosched()
}

type deadline struct {
	t time.Time
}

// newDeadline returns a deadline timeout from now. A negative timeout never
// expires and a zero one has already expired.
func newDeadline(timeout time.Duration) deadline {
	if timeout < 0 {
		return deadline{}
	}
	return deadline{t: time.Now().Add(timeout)}
}

func (dl deadline) expired() bool {
	if dl.t.IsZero() {
		return false
	}
	return !time.Now().Before(dl.t)
}
