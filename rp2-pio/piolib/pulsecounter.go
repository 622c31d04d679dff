package piolib

import (
	"math"
	"math/bits"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/internal/mathx"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

// .program pulse_counter
//
//	pull block           ; interval, once
//
// .wrap_target
//
//	mov x, osr
//	mov y, null
//
// low:
//
//	jmp pin rise
//	jmp x-- low
//	jmp report
//
// rise:
//
//	jmp y-- high         ; count the rising edge
//
// high:
//
//	jmp pin stay
//	jmp x-- low
//	jmp report
//
// stay:
//
//	jmp x-- high
//
// report:
//
//	mov isr, y
//	push noblock
//
// .wrap
//
// Every loop pass takes two cycles and decrements x once.
var pulseCounterProgram = &pio.Program{
	Name: "pulse_counter",
	Instructions: []uint16{
		asm.Pull(false, true).Encode(),                  //  0: pull block
		asm.Mov(pio.MovDestX, pio.MovSrcOSR).Encode(),   //  1: mov x, osr
		asm.Mov(pio.MovDestY, pio.MovSrcNull).Encode(),  //  2: mov y, null
		asm.Jmp(6, pio.JmpPinInput).Encode(),            //  3: jmp pin 6
		asm.Jmp(3, pio.JmpXNZeroDec).Encode(),           //  4: jmp x-- 3
		asm.Jmp(11, pio.JmpAlways).Encode(),             //  5: jmp 11
		asm.Jmp(7, pio.JmpYNZeroDec).Encode(),           //  6: jmp y-- 7
		asm.Jmp(10, pio.JmpPinInput).Encode(),           //  7: jmp pin 10
		asm.Jmp(3, pio.JmpXNZeroDec).Encode(),           //  8: jmp x-- 3
		asm.Jmp(11, pio.JmpAlways).Encode(),             //  9: jmp 11
		asm.Jmp(7, pio.JmpXNZeroDec).Encode(),           // 10: jmp x-- 7
		asm.Mov(pio.MovDestISR, pio.MovSrcY).Encode(),   // 11: mov isr, y
		asm.Push(false, false).Encode(),                 // 12: push noblock
	},
	Origin:     -1,
	WrapTarget: 1,
	Wrap:       12,
}

// DefaultPulseInterval is one frame at 60Hz.
const DefaultPulseInterval = 16666700 * time.Nanosecond

// PulseCounterConfig configures a PulseCounter. Zero fields take defaults.
type PulseCounterConfig struct {
	// PullUp enables the pin pull-up, for open collector sensors.
	PullUp bool
	// Interval is the counting window.
	Interval time.Duration
	// CPUFrequency is the state machine clock.
	CPUFrequency uint32
}

// PulseCounter counts rising edges on a pin over a fixed interval and
// queues one count per interval.
type PulseCounter struct {
	sm       *piomgr.Handle
	interval time.Duration
	ticks    uint32
}

// NewPulseCounter claims a state machine on m counting pulses on pin.
func NewPulseCounter(m *piomgr.Manager, pin pio.Pin, cfg PulseCounterConfig) (*PulseCounter, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPulseInterval
	}
	if cfg.CPUFrequency == 0 {
		cfg.CPUFrequency = defaultCPUFrequency
	}
	sm, err := m.ClaimOrError(pulseCounterProgram)
	if err != nil {
		return nil, err
	}
	pull := pio.PullNone
	if cfg.PullUp {
		pull = pio.PullUp
	}
	sm.ConfigurePin(pin, pull)
	sm.Machine().SetPindirsConsecutive(pin, 1, false)
	scfg := sm.DefaultConfig()
	scfg.SetInPins(pin)
	scfg.SetJmpPin(pin)
	scfg.SetClkDivIntFrac(1, 0)
	scfg.SetInShift(false, true, 32)
	scfg.SetOutShift(false, false, 32)
	// The interval goes through the TX FIFO, so the RX FIFO is not joined
	// and holds four counts.
	sm.Init(scfg)

	pc := &PulseCounter{
		sm:       sm,
		interval: cfg.Interval,
		ticks:    intervalTicks(cfg.Interval, cfg.CPUFrequency),
	}
	// The program holds the interval in the OSR from here on.
	if !sm.TryWrite(pc.ticks) {
		sm.Release()
		return nil, errTimeout
	}
	return pc, nil
}

// intervalTicks returns the loop count spanning interval at cpuFreq.
func intervalTicks(interval time.Duration, cpuFreq uint32) uint32 {
	const div = 2 * uint64(time.Second)
	hi, lo := bits.Mul64(uint64(interval), uint64(cpuFreq))
	if hi >= div {
		return math.MaxUint32
	}
	ticks, _ := bits.Div64(hi, lo, div)
	return uint32(mathx.Clamp(ticks, 1, math.MaxUint32))
}

// Interval returns the counting window.
func (pc *PulseCounter) Interval() time.Duration { return pc.interval }

// Pop returns the oldest queued count, if any. Up to four counts queue;
// intervals ending while the queue is full are dropped.
func (pc *PulseCounter) Pop() (count uint32, ok bool) {
	raw, ok := pc.sm.TryRead()
	if !ok {
		return 0, false
	}
	// y counts down from zero.
	return -raw, true
}

// Close stops counting and releases the state machine.
func (pc *PulseCounter) Close() { pc.sm.Release() }
