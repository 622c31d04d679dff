package pio

import "errors"

// PIO errors.
var (
	ErrOutOfProgramSpace   = errors.New("pio: out of program space")
	ErrNoSpaceAtOffset     = errors.New("pio: program space unavailable at offset")
	ErrStateMachineClaimed = errors.New("pio: state machine already claimed")
	ErrBadInterruptLine    = errors.New("pio: invalid interrupt line")
)

const (
	badStateMachineIndex = "invalid state machine index"
	badPIO               = "invalid PIO"
	badProgramBounds     = "invalid program bounds"
)

const (
	// numStateMachines is the number of state machines in every PIO block.
	numStateMachines = 4
	// programSpace is the number of instruction slots in every PIO block.
	programSpace = 32
	// numInterruptLines is the number of system interrupt lines per PIO block.
	numInterruptLines = 2
)

// Pin is a GPIO number as seen by the PIO block.
type Pin uint8

// Pull selects the pad pull resistor for a pin handed to a PIO block.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// IRQSource is a bitmask of PIO interrupt sources as laid out in the
// IRQn_INTE/INTF/INTS registers: RX FIFO not empty for SM0-3 in bits 0-3,
// TX FIFO not full for SM0-3 in bits 4-7 and the state machine IRQ
// flags 0-3 in bits 8-11.
type IRQSource uint32

// RxNotEmptySource returns the interrupt source raised while the RX FIFO of
// state machine sm holds data.
func RxNotEmptySource(sm uint8) IRQSource { return 1 << (sm & 3) }

// TxNotFullSource returns the interrupt source raised while the TX FIFO of
// state machine sm has room.
func TxNotFullSource(sm uint8) IRQSource { return 1 << (4 + sm&3) }

// FlagSource returns the interrupt source raised by state machine IRQ flag 0-3.
func FlagSource(flag uint8) IRQSource { return 1 << (8 + flag&3) }

// InterruptHandler is called from interrupt context with the block and
// interrupt line that fired and the pending enabled sources. It must not block.
type InterruptHandler func(block, irq uint8, source IRQSource)

// Block is one PIO block: a 32 slot instruction memory shared by four state machines.
// *PIO implements it on hardware and *SimBlock on the host.
type Block interface {
	// BlockIndex returns 0, 1, or 2 depending on whether the underlying device is PIO0, PIO1, or PIO2.
	BlockIndex() uint8
	// NumStateMachines returns the number of state machines in the block.
	NumStateMachines() uint8
	// AddProgram loads a program into instruction memory and returns its offset.
	// origin is the fixed load address or -1 for relocatable programs.
	AddProgram(instructions []uint16, origin int8) (offset uint8, err error)
	// RemoveProgram frees the instruction memory previously returned by AddProgram.
	RemoveProgram(offset, length uint8)
	// HasFreeStateMachine reports whether ClaimStateMachine would succeed.
	HasFreeStateMachine() bool
	// ClaimStateMachine returns an unused state machine or ErrStateMachineClaimed.
	ClaimStateMachine() (Machine, error)
	// ConfigurePin connects the pin pad to this block.
	ConfigurePin(pin Pin, pull Pull)
	// SetInterrupt installs handler on interrupt line irq. A nil handler removes it.
	SetInterrupt(irq uint8, handler InterruptHandler) error
	// SetInterruptSource enables or disables sources on interrupt line irq.
	SetInterruptSource(irq uint8, source IRQSource, enabled bool)
}

// Machine is a claimed state machine.
type Machine interface {
	// StateMachineIndex returns the index of the state machine within the PIO.
	StateMachineIndex() uint8
	// Unclaim releases the state machine for use by other code.
	Unclaim()
	// Init resets the state machine, applies cfg and jumps to initialPC. The
	// state machine is left disabled.
	Init(initialPC uint8, cfg StateMachineConfig)
	// SetEnabled controls whether the state machine is running.
	SetEnabled(enabled bool)
	// ClearFIFOs clears the TX and RX FIFOs of a state machine.
	ClearFIFOs()
	// Restart clears internal state such as shift counters.
	Restart()
	IsTxFIFOFull() bool
	IsRxFIFOEmpty() bool
	// TxPut puts a value into the TX FIFO without checking for fullness.
	TxPut(data uint32)
	// RxGet reads a word from the RX FIFO without checking for emptiness.
	RxGet() uint32
	// SetPindirsConsecutive sets a range of pins to either 'in' or 'out'.
	SetPindirsConsecutive(pin Pin, count uint8, isOut bool)
}

// noCopy may be embedded into structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
