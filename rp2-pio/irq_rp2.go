//go:build rp2040 || rp2350

package pio

import "machine"

// SetInterrupt installs handler on system interrupt line irq (0 or 1) of the
// block and enables the line in the NVIC. A nil handler disables the line.
// handler runs in interrupt context.
func (pio *PIO) SetInterrupt(irq uint8, handler InterruptHandler) error {
	if irq >= numInterruptLines {
		return ErrBadInterruptLine
	}
	pio.handlers[irq] = handler
	if handler == nil {
		irqSet(irqNumber(pio.BlockIndex(), irq), false)
		return nil
	}
	interruptSet(pio.BlockIndex(), irq)
	return nil
}

// SetInterruptSource enables or disables interrupt sources on line irq.
func (pio *PIO) SetInterruptSource(irq uint8, source IRQSource, enabled bool) {
	if irq >= numInterruptLines {
		panic(ErrBadInterruptLine.Error())
	}
	source &= validINTEBits
	inte := &pio.HW().IRQ_INT[irq].E
	if enabled {
		setBits(inte, uint32(source))
	} else {
		clearBits(inte, uint32(source))
	}
}

// dispatch services interrupt line irq. FIFO sources are level triggered and
// stay asserted until the handler consumes the FIFO or disables the source;
// state machine flags are cleared once the handler returns.
func (pio *PIO) dispatch(irq uint8) {
	status := IRQSource(pio.HW().IRQ_INT[irq].S.Get())
	if h := pio.handlers[irq]; h != nil {
		h(pio.BlockIndex(), irq, status)
	}
	if flags := uint8(status>>8) & 0xf; flags != 0 {
		pio.ClearIRQ(flags)
	}
}

// Enable or disable a specific interrupt on the executing core.
// num must be below numIRQ.
func irqSet(num uint32, enabled bool) {
	if num >= numIRQ {
		return
	}
	if false {
		(machine.Pin).SetInterrupt(0, 0, nil) // See tinygo implementation.
	}
	irqSetMask(num/32, 1<<(num%32), enabled)
}
