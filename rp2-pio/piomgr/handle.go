package piomgr

import (
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/internal/refcache"
)

// Handle is exclusive ownership of one state machine running a loaded
// program. The zero Handle is not loaded; I/O on it transfers nothing.
// A Handle must not be copied; use Move to transfer ownership.
type Handle struct {
	mgr  *Manager
	pos  uint8
	sm   pio.Machine
	prog *refcache.Ref[*LoadedProgram]
	cfg  pio.StateMachineConfig
	nc   noCopy
}

// Loaded reports whether the handle owns a state machine.
func (h *Handle) Loaded() bool { return h != nil && h.sm != nil }

// Block returns the block of the state machine, or nil.
func (h *Handle) Block() pio.Block {
	if !h.Loaded() {
		return nil
	}
	return h.prog.Value().Block
}

// Machine returns the claimed state machine, or nil.
func (h *Handle) Machine() pio.Machine {
	if !h.Loaded() {
		return nil
	}
	return h.sm
}

// Program returns the program the handle runs, or nil.
func (h *Handle) Program() *pio.Program {
	if !h.Loaded() {
		return nil
	}
	return h.prog.Value().Program
}

// Offset returns the load offset of the program.
func (h *Handle) Offset() uint8 {
	if !h.Loaded() {
		return 0
	}
	return h.prog.Value().Offset
}

// DefaultConfig returns the program's default configuration at its load offset.
func (h *Handle) DefaultConfig() pio.StateMachineConfig {
	if !h.Loaded() {
		return pio.DefaultStateMachineConfig()
	}
	return h.Program().DefaultConfig(h.Offset())
}

// ConfigurePin hands pin to the handle's block with the given pull.
func (h *Handle) ConfigurePin(pin pio.Pin, pull pio.Pull) {
	if h.Loaded() {
		h.Block().ConfigurePin(pin, pull)
	}
}

// Init applies cfg, points the state machine at the program start and
// enables it. cfg is kept for Reset.
func (h *Handle) Init(cfg pio.StateMachineConfig) {
	if !h.Loaded() {
		return
	}
	h.cfg = cfg
	h.sm.Init(h.Offset(), cfg)
	h.sm.SetEnabled(true)
}

// Reset stops the state machine, clears both FIFOs and restarts the
// program from its load offset with the configuration given to Init.
// Protocol drivers call it to resynchronize after a short transfer.
func (h *Handle) Reset() {
	if !h.Loaded() {
		return
	}
	h.sm.SetEnabled(false)
	h.sm.ClearFIFOs()
	h.sm.Restart()
	h.sm.Init(h.Offset(), h.cfg)
	h.sm.SetEnabled(true)
}

// Write pushes the units of buf into the TX FIFO, waiting for room before
// each one until timeout has passed since the call. It returns the number of
// units written; fewer than buf.Len() means the deadline expired. A negative
// timeout waits forever.
func (h *Handle) Write(buf Buffer, timeout time.Duration) int {
	if !h.Loaded() {
		return 0
	}
	dl := newDeadline(timeout)
	n := buf.Len()
	for i := 0; i < n; i++ {
		for h.sm.IsTxFIFOFull() {
			if dl.expired() {
				return i
			}
			gosched()
		}
		h.sm.TxPut(buf.Pack(i))
	}
	return n
}

// Read pops units from the RX FIFO into buf, waiting for data before each
// one until timeout has passed since the call. It returns the number of
// units read. A negative timeout waits forever.
func (h *Handle) Read(buf Buffer, timeout time.Duration) int {
	if !h.Loaded() {
		return 0
	}
	dl := newDeadline(timeout)
	n := buf.Len()
	for i := 0; i < n; i++ {
		for h.sm.IsRxFIFOEmpty() {
			if dl.expired() {
				return i
			}
			gosched()
		}
		buf.Unpack(i, h.sm.RxGet())
	}
	return n
}

// WriteBlocking writes every unit of buf, waiting as long as needed.
func (h *Handle) WriteBlocking(buf Buffer) int { return h.Write(buf, -1) }

// ReadBlocking fills every unit of buf, waiting as long as needed.
func (h *Handle) ReadBlocking(buf Buffer) int { return h.Read(buf, -1) }

// WriteWord writes a single transfer word and returns 1 on success.
func (h *Handle) WriteWord(w uint32, timeout time.Duration) int {
	return h.Write(Words{w}, timeout)
}

// ReadWord reads a single transfer word. n is 0 on timeout.
func (h *Handle) ReadWord(timeout time.Duration) (w uint32, n int) {
	buf := Words{0}
	n = h.Read(buf, timeout)
	return buf[0], n
}

// TryWrite writes w if the TX FIFO has room.
func (h *Handle) TryWrite(w uint32) bool {
	if !h.Loaded() || h.sm.IsTxFIFOFull() {
		return false
	}
	h.sm.TxPut(w)
	return true
}

// TryRead reads a word if the RX FIFO holds one.
func (h *Handle) TryRead() (uint32, bool) {
	if !h.Loaded() || h.sm.IsRxFIFOEmpty() {
		return 0, false
	}
	return h.sm.RxGet(), true
}

// Subscribe calls fn from interrupt context while any of source is pending
// on interrupt line irq of the handle's block.
func (h *Handle) Subscribe(irq uint8, source pio.IRQSource, fn func(pio.IRQSource)) (*Subscription, error) {
	if !h.Loaded() {
		return nil, ErrNoResources
	}
	return h.mgr.subscribe(h.pos, irq, source, fn)
}

// Move transfers ownership to a new Handle and leaves h unloaded.
func (h *Handle) Move() *Handle {
	if !h.Loaded() {
		return &Handle{}
	}
	moved := &Handle{mgr: h.mgr, pos: h.pos, sm: h.sm, prog: h.prog, cfg: h.cfg}
	h.clear()
	return moved
}

// Release stops the state machine, unclaims it and drops the reference to
// the program. It is safe to call more than once.
func (h *Handle) Release() {
	if !h.Loaded() {
		return
	}
	h.sm.SetEnabled(false)
	h.sm.Unclaim()
	h.mgr.log.Debug("state machine released", "program", h.Program().Name, "block", h.pos, "sm", h.sm.StateMachineIndex())
	h.prog.Release()
	h.mgr.live.Add(-1)
	h.clear()
}

func (h *Handle) clear() {
	h.mgr, h.sm, h.prog = nil, nil, nil
	h.cfg = pio.StateMachineConfig{}
}

// noCopy may be embedded into structs which must not be copied
// after the first use.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
