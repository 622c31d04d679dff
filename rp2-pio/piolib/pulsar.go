package piolib

import (
	"errors"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/internal/mathx"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

var errQueueFull = errors.New("Pulsar:queue full")

// .program pulsar
// .wrap_target
//
//	pull block
//	mov x, osr           ; pulses - 1
//
// pulse:
//
//	set pins, 1 [1]
//	set pins, 0
//	jmp x-- pulse
//
// .wrap
var pulsarProgram = &pio.Program{
	Name: "pulsar",
	Instructions: []uint16{
		asm.Pull(false, true).Encode(),                // 0: pull block
		asm.Mov(pio.MovDestX, pio.MovSrcOSR).Encode(), // 1: mov x, osr
		asm.Set(pio.SetDestPins, 1).Delay(1).Encode(), // 2: set pins, 1 [1]
		asm.Set(pio.SetDestPins, 0).Encode(),          // 3: set pins, 0
		asm.Jmp(2, pio.JmpXNZeroDec).Encode(),         // 4: jmp x-- 2
	},
	Origin:     -1,
	WrapTarget: 0,
	Wrap:       4,
}

// Pulsar implements a square-wave generator that pulses a determined amount
// of pulses. It makes a test signal for a PulseCounter.
type Pulsar struct {
	sm      *piomgr.Handle
	cfg     pio.StateMachineConfig
	cpuFreq uint32
}

// NewPulsar claims a state machine on m pulsing pin with the given period.
// A zero cpuFreq selects 125MHz.
func NewPulsar(m *piomgr.Manager, pin pio.Pin, period time.Duration, cpuFreq uint32) (*Pulsar, error) {
	if cpuFreq == 0 {
		cpuFreq = defaultCPUFrequency
	}
	sm, err := m.ClaimOrError(pulsarProgram)
	if err != nil {
		return nil, err
	}
	sm.ConfigurePin(pin, pio.PullNone)
	sm.Machine().SetPindirsConsecutive(pin, 1, true)
	p := &Pulsar{sm: sm, cfg: sm.DefaultConfig(), cpuFreq: cpuFreq}
	p.cfg.SetSetPins(pin, 1)
	if err := p.SetPeriod(period); err != nil {
		sm.Release()
		return nil, err
	}
	return p, nil
}

// TryQueue adds an action to the pulsar's queue. If the queue is full it returns an error.
func (p *Pulsar) TryQueue(count uint32) error {
	if count == 0 {
		return nil
	}
	if !p.sm.TryWrite(count - 1) {
		return errQueueFull
	}
	return nil
}

// SetPeriod sets the pulsar's square-wave period. The pulsar restarts and
// queued actions are dropped.
func (p *Pulsar) SetPeriod(period time.Duration) error {
	period /= 4 // Full pulse cycle is 4 instructions.
	// Far beyond any reachable divider, small enough not to overflow it.
	ns := mathx.Clamp(period, 0, 100*time.Millisecond)
	whole, frac, err := pio.ClkDivFromPeriod(uint32(ns), p.cpuFreq)
	if err != nil {
		return err
	}
	p.cfg.SetClkDivIntFrac(whole, frac)
	p.sm.Init(p.cfg)
	return nil
}

// Pause pauses the pulsar if paused is true. If false unpauses the pulsar.
func (p *Pulsar) Pause(paused bool) {
	p.sm.Machine().SetEnabled(!paused)
}

// Stop stops and resets the pulsar to initial state.
// Will unpause pulsar as well if paused and clear it's queue.
func (p *Pulsar) Stop() { p.sm.Reset() }

// Close releases the state machine.
func (p *Pulsar) Close() { p.sm.Release() }
