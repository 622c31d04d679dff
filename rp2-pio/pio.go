//go:build rp2040 || rp2350

package pio

import (
	"device/rp"
	"machine"
	"runtime/volatile"
	"unsafe"
)

// RP2040 PIO peripheral handles.
var (
	PIO0 = &PIO{
		hw: rp.PIO0,
	}
	PIO1 = &PIO{
		hw: rp.PIO1,
	}
)

// PIO represents one of the PIO peripherals of the RP2040 or RP2350.
type PIO struct {
	// hw points to the PIO hardware registers.
	hw  *rp.PIO0_Type
	res resources
	// handlers holds the handler of each system interrupt line.
	handlers [numInterruptLines]InterruptHandler
	nc       noCopy
}

var _ Block = (*PIO)(nil)

// BlockIndex returns 0, 1, or 2 depending on whether the underlying device is PIO0, PIO1, or PIO2.
func (pio *PIO) BlockIndex() uint8 {
	return pio.blockIndex()
}

// NumStateMachines returns the number of state machines in the block.
func (pio *PIO) NumStateMachines() uint8 { return numStateMachines }

// StateMachine returns a state machine by index.
func (pio *PIO) StateMachine(index uint8) StateMachine {
	if index > 3 {
		panic(badStateMachineIndex)
	}
	return StateMachine{
		pio:   pio,
		index: index,
	}
}

// ClaimStateMachine returns an unused state machine
// or an error if all state machines on this PIO are claimed.
func (pio *PIO) ClaimStateMachine() (Machine, error) {
	index, ok := pio.res.claimAny()
	if !ok {
		return nil, ErrStateMachineClaimed
	}
	return pio.StateMachine(index), nil
}

// HasFreeStateMachine reports whether ClaimStateMachine would succeed.
func (pio *PIO) HasFreeStateMachine() bool { return pio.res.hasFree() }

// AddProgram loads a PIO program into PIO memory and returns the offset where it was loaded.
// This function will try to find the next available slot of memory for the program
// and will return an error if there is not enough memory to add the program.
//
// The instructions argument holds program binary code in 16-bit words.
// origin indicates where in the PIO execution memory the program must be loaded,
// or -1 if the code is position independent.
func (pio *PIO) AddProgram(instructions []uint16, origin int8) (offset uint8, _ error) {
	return pio.res.addProgram(instructions, origin, pio.writeInstructionMemory)
}

// AddProgramAtOffset loads a PIO program into PIO memory at a specific offset
// and returns a non-nil error if there is not enough space.
func (pio *PIO) AddProgramAtOffset(instructions []uint16, origin int8, offset uint8) error {
	return pio.res.addProgramAtOffset(instructions, origin, offset, pio.writeInstructionMemory)
}

// RemoveProgram clears a contiguous section of the PIO's program memory.
// Trap instructions are left behind to prevent undefined behaviour if
// a state machine is still pointed at the section.
func (pio *PIO) RemoveProgram(offset, length uint8) {
	pio.res.removeProgram(offset, length, pio.writeInstructionMemory)
}

func (pio *PIO) writeInstructionMemory(offset uint8, value uint16) {
	// Instruction Memory registers are 32-bit, with only lower 16 used
	pio.HW().INSTR_MEM[offset&(programSpace-1)].Set(uint32(value))
}

// ConfigurePin hands the pin over to this PIO block and selects its pull resistor.
func (pio *PIO) ConfigurePin(pin Pin, pull Pull) {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: pio.PinMode()})
	pad := padReg(pin)
	switch pull {
	case PullUp:
		pad.ReplaceBits(rp.PADS_BANK0_GPIO0_PUE_Msk, rp.PADS_BANK0_GPIO0_PUE_Msk|rp.PADS_BANK0_GPIO0_PDE_Msk, 0)
	case PullDown:
		pad.ReplaceBits(rp.PADS_BANK0_GPIO0_PDE_Msk, rp.PADS_BANK0_GPIO0_PUE_Msk|rp.PADS_BANK0_GPIO0_PDE_Msk, 0)
	default:
		pad.ClearBits(rp.PADS_BANK0_GPIO0_PUE_Msk | rp.PADS_BANK0_GPIO0_PDE_Msk)
	}
}

// padReg returns the PADS_BANK0 control register of pin.
func padReg(pin Pin) *volatile.Register32 {
	start := uintptr(unsafe.Pointer(&rp.PADS_BANK0.GPIO0))
	return (*volatile.Register32)(unsafe.Pointer(start + uintptr(pin)*4))
}

type statemachineHW struct {
	CLKDIV    volatile.Register32 // 0xC8 for SM0
	EXECCTRL  volatile.Register32 // 0xCC for SM0
	SHIFTCTRL volatile.Register32 // 0xD0 for SM0
	ADDR      volatile.Register32 // 0xD4 for SM0
	INSTR     volatile.Register32 // 0xD8 for SM0
	PINCTRL   volatile.Register32 // 0xDC for SM0
}

func (pio *PIO) smHW(index uint8) *statemachineHW {
	if index > 3 {
		panic(badStateMachineIndex)
	}
	return &pio.HW().SM[index]
}

// PinMode returns the PinMode for a PIO state machine, one of
// PIO0, PIO1, or PIO2.
func (pio *PIO) PinMode() machine.PinMode {
	return machine.PinPIO0 + machine.PinMode(pio.BlockIndex())
}

// ClearIRQ clears IRQ flags when 1 is written to bit flag.
func (pio *PIO) ClearIRQ(irqMask uint8) {
	pio.hw.SetIRQ(uint32(irqMask))
}

// HW returns a pointer to the PIO's hardware registers.
func (pio *PIO) HW() *pioHW { return (*pioHW)(unsafe.Pointer(pio.hw)) }

// Programmable IO block
type pioHW struct {
	CTRL              volatile.Register32 // 0x0
	FSTAT             volatile.Register32 // 0x4
	FDEBUG            volatile.Register32 // 0x8
	FLEVEL            volatile.Register32 // 0xC
	TXF               [4]volatile.Register32
	RXF               [4]volatile.Register32
	IRQ               volatile.Register32                       // 0x30
	IRQ_FORCE         volatile.Register32                       // 0x34
	INPUT_SYNC_BYPASS volatile.Register32                       // 0x38
	DBG_PADOUT        volatile.Register32                       // 0x3C
	DBG_PADOE         volatile.Register32                       // 0x40
	DBG_CFGINFO       volatile.Register32                       // 0x44
	INSTR_MEM         [32]volatile.Register32                   // 0x48..0xC4
	SM                [4]statemachineHW                         // SM0=[0xC8..0xDC], .. 0x124
	RXF_PUTGET        [rp2350ExtraReg][4][4]volatile.Register32 // ----- | 0x128
	GPIOBASE          [rp2350ExtraReg]volatile.Register32       // ----- | 0x168
	INTR              volatile.Register32                       // 0x128 | 0x16C
	IRQ_INT           [2]irqINTHW                               // 0x12C..0x140 | 0x170..0x184
}

type irqINTHW struct {
	E volatile.Register32
	F volatile.Register32
	S volatile.Register32
}

const (
	sizeOK = unsafe.Sizeof(rp.PIO0_Type{}) == unsafe.Sizeof(pioHW{})
)
