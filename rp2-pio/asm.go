package pio

// This file contains the primitives for creating instructions dynamically.
const (
	_INSTR_BITS_JMP  = 0x0000
	_INSTR_BITS_WAIT = 0x2000
	_INSTR_BITS_IN   = 0x4000
	_INSTR_BITS_OUT  = 0x6000
	_INSTR_BITS_PUSH = 0x8000
	_INSTR_BITS_PULL = 0x8080
	_INSTR_BITS_MOV  = 0xa000
	_INSTR_BITS_IRQ  = 0xc000
	_INSTR_BITS_SET  = 0xe000

	// Bit mask for instruction code
	_INSTR_BITS_Msk = 0xe000
)

// JmpCond is the condition field of a JMP instruction.
type JmpCond uint8

const (
	// No condition, always jumps.
	JmpAlways JmpCond = iota
	// Jump if X is zero.
	JmpXZero
	// Jump if X is not zero, prior to decrement of X.
	JmpXNZeroDec
	// Jump if Y is zero.
	JmpYZero
	// Jump if Y is not zero, prior to decrement of Y.
	JmpYNZeroDec
	// Jump if X is not equal to Y.
	JmpXNotEqualY
	// Jump if EXECCTRL_JMP_PIN (state machine configured) is high.
	JmpPinInput
	// Compares the bits shifted out since last pull with the shift count theshold
	// (configured by SHIFTCTRL_PULL_THRESH) and jumps if there are remaining bits to shift.
	JmpOSRNotEmpty
)

// InSrc is the source of an IN instruction.
type InSrc uint8

const (
	InSrcPins InSrc = 0
	InSrcX    InSrc = 1
	InSrcY    InSrc = 2
	InSrcNull InSrc = 3
	InSrcISR  InSrc = 6
	InSrcOSR  InSrc = 7
)

// OutDest is the destination of an OUT instruction.
type OutDest uint8

const (
	OutDestPins    OutDest = 0
	OutDestX       OutDest = 1
	OutDestY       OutDest = 2
	OutDestNull    OutDest = 3
	OutDestPindirs OutDest = 4
	OutDestPC      OutDest = 5
	OutDestISR     OutDest = 6
	OutDestExec    OutDest = 7
)

// SetDest is the destination of a SET instruction.
type SetDest uint8

const (
	SetDestPins    SetDest = 0
	SetDestX       SetDest = 1
	SetDestY       SetDest = 2
	SetDestPindirs SetDest = 4
)

// MovDest is the destination of a MOV instruction.
type MovDest uint8

const (
	MovDestPins MovDest = 0
	MovDestX    MovDest = 1
	MovDestY    MovDest = 2
	MovDestExec MovDest = 4
	MovDestPC   MovDest = 5
	MovDestISR  MovDest = 6
	MovDestOSR  MovDest = 7
)

// MovSrc is the source of a MOV instruction.
type MovSrc uint8

const (
	MovSrcPins   MovSrc = 0
	MovSrcX      MovSrc = 1
	MovSrcY      MovSrc = 2
	MovSrcNull   MovSrc = 3
	MovSrcStatus MovSrc = 5
	MovSrcISR    MovSrc = 6
	MovSrcOSR    MovSrc = 7
)

const (
	movOpNone    = 0
	movOpInvert  = 1
	movOpReverse = 2
)

// AssemblerV0 provides a fluent API for programming PIO
// within the Go language. SidesetBits is the number of side-set
// bits declared by the program (.side_set directive), which are
// stolen from the delay field of every instruction.
type AssemblerV0 struct {
	SidesetBits uint8
}

// Instruction is a single encoded PIO instruction that still
// accepts delay and side-set modifiers.
type Instruction struct {
	instr       uint16
	sidesetBits uint8
}

// Encode returns the 16-bit machine word for the instruction.
func (in Instruction) Encode() uint16 { return in.instr }

// Side sets the side-set value of the instruction.
func (in Instruction) Side(value uint8) Instruction {
	if in.sidesetBits == 0 {
		panic("pio:side-set not declared")
	}
	in.instr |= uint16(value) << (13 - in.sidesetBits)
	return in
}

// Delay sets the number of idle cycles executed after the instruction.
// The available range shrinks by one bit per declared side-set bit.
func (in Instruction) Delay(cycles uint8) Instruction {
	maxDelay := uint8(0x1f) >> in.sidesetBits
	if cycles > maxDelay {
		panic("pio:delay too large")
	}
	in.instr |= uint16(cycles) << 8
	return in
}

func (asm AssemblerV0) instr(bits uint16) Instruction {
	return Instruction{instr: bits, sidesetBits: asm.SidesetBits}
}

func (asm AssemblerV0) instrArgs(kind uint16, arg1 uint8, arg2 uint8) Instruction {
	return asm.instr(kind | uint16(arg1&0b111)<<5 | uint16(arg2&0x1f))
}

// Jmp jumps to addr when cond holds.
func (asm AssemblerV0) Jmp(addr uint8, cond JmpCond) Instruction {
	return asm.instrArgs(_INSTR_BITS_JMP, uint8(cond), addr)
}

// WaitGPIO stalls until the absolute GPIO pin reaches polarity.
func (asm AssemblerV0) WaitGPIO(polarity bool, pin uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_WAIT, boolAsU8(polarity)<<2|0, pin)
}

// WaitPin stalls until the input-mapped pin (relative to IN base) reaches polarity.
func (asm AssemblerV0) WaitPin(polarity bool, pin uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_WAIT, boolAsU8(polarity)<<2|1, pin)
}

// WaitIRQ stalls until the IRQ flag reaches polarity.
func (asm AssemblerV0) WaitIRQ(polarity bool, relative bool, irq uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_WAIT, boolAsU8(polarity)<<2|2, boolAsU8(relative)<<4|irq&0b111)
}

// In shifts bitCount bits from src into the ISR. A bitCount of 32 is encoded as 0.
func (asm AssemblerV0) In(src InSrc, bitCount uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_IN, uint8(src), bitCount)
}

// Out shifts bitCount bits from the OSR into dest. A bitCount of 32 is encoded as 0.
func (asm AssemblerV0) Out(dest OutDest, bitCount uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_OUT, uint8(dest), bitCount)
}

// Push pushes the ISR into the RX FIFO.
func (asm AssemblerV0) Push(ifFull bool, block bool) Instruction {
	return asm.instrArgs(_INSTR_BITS_PUSH, boolAsU8(ifFull)<<1|boolAsU8(block), 0)
}

// Pull loads the OSR from the TX FIFO.
func (asm AssemblerV0) Pull(ifEmpty bool, block bool) Instruction {
	return asm.instrArgs(_INSTR_BITS_PULL, boolAsU8(ifEmpty)<<1|boolAsU8(block), 0)
}

// Mov copies src into dest.
func (asm AssemblerV0) Mov(dest MovDest, src MovSrc) Instruction {
	return asm.mov(dest, movOpNone, src)
}

// MovInvert copies the bitwise complement of src into dest.
func (asm AssemblerV0) MovInvert(dest MovDest, src MovSrc) Instruction {
	return asm.mov(dest, movOpInvert, src)
}

// MovReverse copies the bit-reversed src into dest.
func (asm AssemblerV0) MovReverse(dest MovDest, src MovSrc) Instruction {
	return asm.mov(dest, movOpReverse, src)
}

func (asm AssemblerV0) mov(dest MovDest, op uint8, src MovSrc) Instruction {
	return asm.instrArgs(_INSTR_BITS_MOV, uint8(dest), op<<3|uint8(src)&0b111)
}

// IRQSet raises the IRQ flag irq without waiting.
func (asm AssemblerV0) IRQSet(relative bool, irq uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_IRQ, 0, boolAsU8(relative)<<4|irq&0b111)
}

// IRQClear clears the IRQ flag irq.
func (asm AssemblerV0) IRQClear(relative bool, irq uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_IRQ, 0b010, boolAsU8(relative)<<4|irq&0b111)
}

// Set writes an immediate 5-bit value to dest.
func (asm AssemblerV0) Set(dest SetDest, value uint8) Instruction {
	return asm.instrArgs(_INSTR_BITS_SET, uint8(dest), value)
}

// Nop assembles to mov y, y.
func (asm AssemblerV0) Nop() Instruction {
	return asm.Mov(MovDestY, MovSrcY)
}

// EncodeJmp encodes an unconditional or conditional jump without side-set,
// as executed through the INSTR register when (re)starting a state machine.
func EncodeJmp(addr uint8, cond JmpCond) uint16 {
	return AssemblerV0{}.Jmp(addr, cond).Encode()
}

func boolAsU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
