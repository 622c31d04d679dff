//go:build rp2040 || rp2350

package pio

import (
	"device/rp"
	"runtime/volatile"
	"unsafe"
)

// StateMachine represents one of the four state machines in a PIO
type StateMachine struct {
	// The pio containing this state machine
	pio *PIO

	// index of this state machine
	index uint8
}

var _ Machine = StateMachine{}

// Unclaim releases the state machine for use by other code.
func (sm StateMachine) Unclaim() { sm.pio.res.unclaim(sm.index) }

// HW returns a pointer to the configuration hardware registers for this state machine.
func (sm StateMachine) HW() *statemachineHW { return sm.pio.smHW(sm.index) }

// StateMachineIndex returns the index of the state machine within the PIO.
func (sm StateMachine) StateMachineIndex() uint8 { return sm.index }

// Init initializes the state machine
//
// initialPC is the initial program counter
// cfg is optional.  If the zero value of StateMachineConfig is used
// then the default configuration is used.
func (sm StateMachine) Init(initialPC uint8, cfg StateMachineConfig) {
	if !sm.isValid() {
		panic(badStateMachineIndex)
	}

	// Halt the state machine to set sensible defaults
	sm.SetEnabled(false)

	if cfg == (StateMachineConfig{}) {
		cfg = DefaultStateMachineConfig()
	}
	sm.SetConfig(cfg)

	sm.ClearFIFOs()

	// Clear FIFO debug flags
	const fdebugMask = uint32((1 << rp.PIO0_FDEBUG_TXOVER_Pos) |
		(1 << rp.PIO0_FDEBUG_RXUNDER_Pos) |
		(1 << rp.PIO0_FDEBUG_TXSTALL_Pos) |
		(1 << rp.PIO0_FDEBUG_RXSTALL_Pos))

	sm.pio.hw.FDEBUG.Set(fdebugMask << sm.index)

	sm.Restart()
	sm.ClkDivRestart()
	sm.Exec(EncodeJmp(initialPC, JmpAlways))
}

// SetEnabled controls whether the state machine is running.
func (sm StateMachine) SetEnabled(enabled bool) {
	sm.pio.hw.CTRL.ReplaceBits(boolToBit(enabled), 0x1, sm.index)
}

// IsEnabled returns true if the state machine is running.
func (sm StateMachine) IsEnabled() bool {
	return sm.pio.hw.CTRL.HasBits(1 << (rp.PIO0_CTRL_SM_ENABLE_Pos + sm.index))
}

// Restart clears internal StateMachine state which may otherwise be difficult to access, e.g. shift counters.
func (sm StateMachine) Restart() {
	sm.pio.hw.CTRL.SetBits(1 << (rp.PIO0_CTRL_SM_RESTART_Pos + sm.index))
}

// ClkDivRestart forces clock dividers to restart their count and clear fractional accumulators (phase is zeroed).
func (sm StateMachine) ClkDivRestart() {
	sm.pio.hw.CTRL.SetBits(1 << (rp.PIO0_CTRL_CLKDIV_RESTART_Pos + sm.index))
}

// SetConfig applies state machine configuration to a state machine
func (sm StateMachine) SetConfig(cfg StateMachineConfig) {
	hw := sm.HW()
	hw.CLKDIV.Set(cfg.ClkDiv)
	hw.EXECCTRL.Set(cfg.ExecCtrl)
	hw.SHIFTCTRL.Set(cfg.ShiftCtrl)
	hw.PINCTRL.Set(cfg.PinCtrl)
}

// TxPut puts a value into the state machine's TX FIFO.
//
// This function does not check for fullness. If the FIFO is full the FIFO
// contents are not affected and the sticky TXOVER flag is set for this FIFO in FDEBUG.
func (sm StateMachine) TxPut(data uint32) {
	sm.pio.HW().TXF[sm.index].Set(data)
}

// RxGet reads a word of data from a state machine's RX FIFO.
//
// This function does not check for emptiness. If the FIFO is empty
// the result is undefined and the sticky RXUNDER flag for this FIFO is set in FDEBUG.
func (sm StateMachine) RxGet() uint32 {
	return sm.pio.HW().RXF[sm.index].Get()
}

// IsTxFIFOFull returns true if state machine's TX FIFO is full.
func (sm StateMachine) IsTxFIFOFull() bool {
	return (sm.pio.hw.FSTAT.Get() & (1 << (rp.PIO0_FSTAT_TXFULL_Pos + sm.index))) != 0
}

// IsRxFIFOEmpty returns true if state machine's RX FIFO is empty.
func (sm StateMachine) IsRxFIFOEmpty() bool {
	return (sm.pio.hw.FSTAT.Get() & (1 << (rp.PIO0_FSTAT_RXEMPTY_Pos + sm.index))) != 0
}

// ClearFIFOs clears the TX and RX FIFOs of a state machine.
func (sm StateMachine) ClearFIFOs() {
	shiftctl := &sm.HW().SHIFTCTRL
	// FIFOs are flushed when this bit is changed. Xoring twice returns bit to original state.
	xorBits(shiftctl, shiftctrlFjoinRxMsk)
	xorBits(shiftctl, shiftctrlFjoinRxMsk)
}

// Exec will immediately execute an instruction on the state machine
func (sm StateMachine) Exec(instr uint16) {
	sm.HW().INSTR.Set(uint32(instr))
}

// SetPindirsConsecutive sets a range of pins to either 'in' or 'out'. This must be done
// for all used pins before the state machine is started, including SET, IN, OUT and SIDESET pins.
func (sm StateMachine) SetPindirsConsecutive(pin Pin, count uint8, isOut bool) {
	checkPinBaseAndCount(pin, count)
	sm.setPinExec(SetDestPindirs, makePinmask(uint8(pin), count, uint8(boolToBit(isOut))))
}

func makePinmask(base, count, bit uint8) (valMask, pinMask uint32) {
	for shift := base; shift < base+count && shift < 32; shift++ {
		valMask |= uint32(bit) << shift
		pinMask |= 1 << shift
	}
	return valMask, pinMask
}

func (sm StateMachine) setPinExec(dest SetDest, valueMask, pinMask uint32) {
	hw := sm.HW()
	pinctrlSaved := hw.PINCTRL.Get()
	execctrlSaved := hw.EXECCTRL.Get()
	hw.EXECCTRL.ClearBits(execctrlOutStickyMsk)
	for i := uint8(0); i < 32; i++ {
		if pinMask&(1<<i) == 0 {
			continue
		}
		hw.PINCTRL.Set(1<<pinctrlSetCountPos | uint32(i)<<pinctrlSetBasePos)
		sm.Exec(AssemblerV0{}.Set(dest, 0x1&uint8(valueMask>>i)).Encode())
	}
	hw.PINCTRL.Set(pinctrlSaved)
	hw.EXECCTRL.Set(execctrlSaved)
}

const (
	// regAliasRW  = 0x0 << 12
	regAliasXOR = 0x1 << 12
	regAliasSET = 0x2 << 12
	regAliasCLR = 0x3 << 12
)

// Gets the 'XOR' alias for a register
//
// Registers have 'ALIAS' registers with special semantics, see
// 2.1.2. Atomic Register Access in the RP2040 Datasheet
//
// Each peripheral register block is allocated 4kB of address space, with registers accessed using one of 4 methods,
// selected by address decode.
//   - Addr + 0x0000 : normal read write access
//   - Addr + 0x1000 : atomic XOR on write
//   - Addr + 0x2000 : atomic bitmask set on write
//   - Addr + 0x3000 : atomic bitmask clear on write
//
//go:inline
func aliasReg(alias uintptr, reg *volatile.Register32) *volatile.Register32 {
	alias = uintptr(unsafe.Pointer(reg)) | alias
	return (*volatile.Register32)(unsafe.Pointer(alias))
}

func xorBits(reg *volatile.Register32, bits uint32) {
	aliasReg(regAliasXOR, reg).Set(bits)
}

// setBits and clearBits are atomic with respect to interrupt handlers
// touching other bits of the same register.
func setBits(reg *volatile.Register32, bits uint32) {
	aliasReg(regAliasSET, reg).Set(bits)
}

func clearBits(reg *volatile.Register32, bits uint32) {
	aliasReg(regAliasCLR, reg).Set(bits)
}
