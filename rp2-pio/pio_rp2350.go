//go:build rp2350

package pio

import (
	"device/rp"
	"runtime/interrupt"
)

const (
	rp2350ExtraReg = 1

	// RP2350 routes FIFO status, IRQ flags 0-3 and the extra FIFO level
	// sources of INTE bits 12-15 to the system interrupt lines.
	validINTEBits IRQSource = 0xFFFF

	// RP2350 has 52 interrupts over two NVIC register banks.
	numIRQ = 52
)

// RP2350 PIO peripheral handles.
var (
	PIO2 = &PIO{
		hw: rp.PIO2,
	}
)

// Blocks returns every PIO block of the chip in index order.
func Blocks() []Block { return []Block{PIO0, PIO1, PIO2} }

func (pio *PIO) blockIndex() uint8 {
	switch pio.hw {
	case rp.PIO0:
		return 0
	case rp.PIO1:
		return 1
	case rp.PIO2:
		return 2
	}
	panic(badPIO)
}

func irqNumber(block, irq uint8) uint32 {
	return rp.IRQ_PIO0_IRQ_0 + 2*uint32(block) + uint32(irq)
}

// irqSetMask writes mask to NVIC register bank n.
func irqSetMask(n uint32, mask uint32, enabled bool) {
	icpr := &rp.PPB.NVIC_ICPR0
	iser := &rp.PPB.NVIC_ISER0
	icer := &rp.PPB.NVIC_ICER0
	if n > 0 {
		icpr = &rp.PPB.NVIC_ICPR1
		iser = &rp.PPB.NVIC_ISER1
		icer = &rp.PPB.NVIC_ICER1
	}
	if enabled {
		// Clear pending before enable
		// (if IRQ is actually asserted, it will immediately re-pend)
		icpr.Set(mask)
		iser.Set(mask)
	} else {
		icer.Set(mask)
	}
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
	case block == 2 && irq == 0:
		interrupt.New(rp.IRQ_PIO2_IRQ_0, func(interrupt.Interrupt) { PIO2.dispatch(0) }).Enable()
		irqSet(rp.IRQ_PIO2_IRQ_0, true)
	case block == 2 && irq == 1:
		interrupt.New(rp.IRQ_PIO2_IRQ_1, func(interrupt.Interrupt) { PIO2.dispatch(1) }).Enable()
		irqSet(rp.IRQ_PIO2_IRQ_1, true)
	}
}

func (sm StateMachine) isValid() bool {
	return sm.pio != nil && sm.index <= 3 &&
		(sm.pio.hw == rp.PIO0 || sm.pio.hw == rp.PIO1 || sm.pio.hw == rp.PIO2)
}

// SetGPIOBase configures the GPIO base for the PIO block, or which GPIO pin is
// seen as pin 0 inside the PIO. Can only be set to values of 0 or 16 and only
// sensible for use on RP2350B.
func (pio *PIO) SetGPIOBase(base uint32) {
	switch base {
	case 0, 16:
		pio.hw.GPIOBASE.Set(base)
	default:
		panic("pio:invalid gpiobase")
	}
}
