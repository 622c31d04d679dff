package piomgr

import (
	"runtime"
	"time"
)

func gosched() {
	runtime.Gosched()
}

type deadline struct {
	t time.Time
}

// newDeadline returns a deadline timeout from now. A negative timeout never expires.
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
