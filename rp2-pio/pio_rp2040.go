//go:build rp2040

package pio

import (
	"device/rp"
	"runtime/interrupt"
)

const (
	rp2350ExtraReg = 0

	// RP2040 routes FIFO status (bits 0-7) and IRQ flags 0-3 (bits 8-11) to
	// the system interrupt lines.
	validINTEBits IRQSource = 0x0FFF

	numIRQ = 32
)

// Blocks returns every PIO block of the chip in index order.
func Blocks() []Block { return []Block{PIO0, PIO1} }

func (pio *PIO) blockIndex() uint8 {
	switch pio.hw {
	case rp.PIO0:
		return 0
	case rp.PIO1:
		return 1
	}
	panic(badPIO)
}

func irqNumber(block, irq uint8) uint32 {
	return rp.IRQ_PIO0_IRQ_0 + 2*uint32(block) + uint32(irq)
}

func interruptSet(block, irq uint8) {
	// Need big switch since interrupt.New needs go constant for interrupt ID.
	switch {
	case block == 0 && irq == 0:
		interrupt.New(rp.IRQ_PIO0_IRQ_0, func(interrupt.Interrupt) { PIO0.dispatch(0) }).Enable()
		irqSet(rp.IRQ_PIO0_IRQ_0, true)
	case block == 0 && irq == 1:
		interrupt.New(rp.IRQ_PIO0_IRQ_1, func(interrupt.Interrupt) { PIO0.dispatch(1) }).Enable()
		irqSet(rp.IRQ_PIO0_IRQ_1, true)
	case block == 1 && irq == 0:
		interrupt.New(rp.IRQ_PIO1_IRQ_0, func(interrupt.Interrupt) { PIO1.dispatch(0) }).Enable()
		irqSet(rp.IRQ_PIO1_IRQ_0, true)
	case block == 1 && irq == 1:
		interrupt.New(rp.IRQ_PIO1_IRQ_1, func(interrupt.Interrupt) { PIO1.dispatch(1) }).Enable()
		irqSet(rp.IRQ_PIO1_IRQ_1, true)
	}
}

// irqSetMask writes mask to the NVIC. RP2040 has a single register bank.
func irqSetMask(_ uint32, mask uint32, enabled bool) {
	if enabled {
		// Clear pending before enable
		// (if IRQ is actually asserted, it will immediately re-pend)
		rp.PPB.NVIC_ICPR.Set(mask)
		rp.PPB.NVIC_ISER.Set(mask)
	} else {
		rp.PPB.NVIC_ICER.Set(mask)
	}
}

func (sm StateMachine) isValid() bool {
	return sm.pio != nil && sm.index <= 3 &&
		(sm.pio.hw == rp.PIO0 || sm.pio.hw == rp.PIO1)
}
