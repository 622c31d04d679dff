package monitor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/picohal/pio/rp2-pio/joybus"
)

var ErrNotReport = errors.New("monitor: line is not a report")

// DecodeReport decodes one report line. Lines that are not JSON objects,
// such as boot messages, yield ErrNotReport.
func DecodeReport(line []byte) (joybus.Report, error) {
	var r joybus.Report
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return r, ErrNotReport
	}
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return r, fmt.Errorf("monitor: bad report: %w", err)
	}
	return r, nil
}

// Monitor follows a stream of reports and hands them to a callback.
type Monitor struct {
	log         *slog.Logger
	stale       time.Duration
	changesOnly bool
	onReport    func(joybus.Report)

	last    joybus.Report
	seen    bool
	isStale bool
}

// New returns a Monitor calling onReport for every accepted report.
func New(cfg WatchConfig, log *slog.Logger, onReport func(joybus.Report)) *Monitor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		log:         log,
		stale:       time.Duration(cfg.StaleAfterMs) * time.Millisecond,
		changesOnly: cfg.ChangesOnly,
		onReport:    onReport,
	}
}

// Last returns the most recent report and whether one was seen.
func (m *Monitor) Last() (joybus.Report, bool) { return m.last, m.seen }

type lineResult struct {
	line []byte
	err  error
}

// Run reads report lines from src until it ends or ctx is done. The read
// goroutine exits once src returns, so callers close src after Run.
func (m *Monitor) Run(ctx context.Context, src io.Reader) error {
	lines := make(chan lineResult)
	go func() {
		sc := bufio.NewScanner(src)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- lineResult{line: line}:
			case <-ctx.Done():
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case lines <- lineResult{err: err}:
		case <-ctx.Done():
		}
	}()

	var staleC <-chan time.Time
	var timer *time.Timer
	if m.stale > 0 {
		timer = time.NewTimer(m.stale)
		defer timer.Stop()
		staleC = timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-staleC:
			if !m.isStale {
				m.isStale = true
				m.log.Warn("board silent", "after", m.stale)
			}
		case res := <-lines:
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					return nil
				}
				return res.err
			}
			if timer != nil {
				timer.Reset(m.stale)
			}
			m.handleLine(res.line)
		}
	}
}

func (m *Monitor) handleLine(line []byte) {
	if m.isStale {
		m.isStale = false
		m.log.Info("board reporting again")
	}
	r, err := DecodeReport(line)
	switch {
	case errors.Is(err, ErrNotReport):
		m.log.Debug("board output", "line", string(bytes.TrimSpace(line)))
		return
	case err != nil:
		m.log.Warn("report dropped", "err", err)
		return
	}
	prev, seen := m.last, m.seen
	m.last, m.seen = r, true
	if !seen || prev.Connected != r.Connected {
		if r.Connected {
			m.log.Info("controller connected", "id", r.ID, "status", r.Status)
		} else {
			m.log.Info("controller disconnected")
		}
	}
	if seen && prev.RumbleReady != r.RumbleReady {
		m.log.Info("rumble pak", "ready", r.RumbleReady)
	}
	if m.changesOnly && seen && prev == r {
		return
	}
	if m.onReport != nil {
		m.onReport(r)
	}
}
