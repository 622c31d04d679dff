package pio

// Register field positions for the per state machine configuration registers.
// These are identical on RP2040 and RP2350 and are declared here so the
// configuration builder can be used (and tested) away from the target.
const (
	clkdivFracPos = 8
	clkdivIntPos  = 16

	execctrlStatusNPos     = 0
	execctrlStatusNMsk     = 0xf << execctrlStatusNPos
	execctrlStatusSelPos   = 4
	execctrlStatusSelMsk   = 0x1 << execctrlStatusSelPos
	execctrlWrapBottomPos  = 7
	execctrlWrapBottomMsk  = 0x1f << execctrlWrapBottomPos
	execctrlWrapTopPos     = 12
	execctrlWrapTopMsk     = 0x1f << execctrlWrapTopPos
	execctrlOutStickyPos   = 17
	execctrlOutStickyMsk   = 0x1 << execctrlOutStickyPos
	execctrlInlineOutEnPos = 18
	execctrlInlineOutEnMsk = 0x1 << execctrlInlineOutEnPos
	execctrlOutEnSelPos    = 19
	execctrlOutEnSelMsk    = 0x1f << execctrlOutEnSelPos
	execctrlJmpPinPos      = 24
	execctrlJmpPinMsk      = 0x1f << execctrlJmpPinPos
	execctrlSidePindirPos  = 29
	execctrlSidePindirMsk  = 0x1 << execctrlSidePindirPos
	execctrlSideEnPos      = 30
	execctrlSideEnMsk      = 0x1 << execctrlSideEnPos

	shiftctrlAutopushPos    = 16
	shiftctrlAutopushMsk    = 0x1 << shiftctrlAutopushPos
	shiftctrlAutopullPos    = 17
	shiftctrlAutopullMsk    = 0x1 << shiftctrlAutopullPos
	shiftctrlInShiftdirPos  = 18
	shiftctrlInShiftdirMsk  = 0x1 << shiftctrlInShiftdirPos
	shiftctrlOutShiftdirPos = 19
	shiftctrlOutShiftdirMsk = 0x1 << shiftctrlOutShiftdirPos
	shiftctrlPushThreshPos  = 20
	shiftctrlPushThreshMsk  = 0x1f << shiftctrlPushThreshPos
	shiftctrlPullThreshPos  = 25
	shiftctrlPullThreshMsk  = 0x1f << shiftctrlPullThreshPos
	shiftctrlFjoinTxPos     = 30
	shiftctrlFjoinTxMsk     = 0x1 << shiftctrlFjoinTxPos
	shiftctrlFjoinRxPos     = 31
	shiftctrlFjoinRxMsk     = 0x1 << shiftctrlFjoinRxPos

	pinctrlOutBasePos      = 0
	pinctrlOutBaseMsk      = 0x1f << pinctrlOutBasePos
	pinctrlSetBasePos      = 5
	pinctrlSetBaseMsk      = 0x1f << pinctrlSetBasePos
	pinctrlSidesetBasePos  = 10
	pinctrlSidesetBaseMsk  = 0x1f << pinctrlSidesetBasePos
	pinctrlInBasePos       = 15
	pinctrlInBaseMsk       = 0x1f << pinctrlInBasePos
	pinctrlOutCountPos     = 20
	pinctrlOutCountMsk     = 0x3f << pinctrlOutCountPos
	pinctrlSetCountPos     = 26
	pinctrlSetCountMsk     = 0x7 << pinctrlSetCountPos
	pinctrlSidesetCountPos = 29
	pinctrlSidesetCountMsk = 0x7 << pinctrlSidesetCountPos
)

// DefaultStateMachineConfig returns the default configuration
// for a PIO state machine.
//
// The default configuration here, mirrors the state from
// pio_get_default_sm_config in the c-sdk.
func DefaultStateMachineConfig() StateMachineConfig {
	cfg := StateMachineConfig{}
	cfg.SetClkDivIntFrac(1, 0)
	cfg.SetWrap(0, 31)
	cfg.SetInShift(true, false, 32)
	cfg.SetOutShift(true, false, 32)
	return cfg
}

// StateMachineConfig holds the configuration for a PIO state
// machine as the raw values of its four configuration registers.
type StateMachineConfig struct {
	// Clock divisor register for state machine N
	//  Frequency = clock freq / (CLKDIV_INT + CLKDIV_FRAC / 256)
	ClkDiv uint32
	// Execution/behavioural settings for state machine N
	ExecCtrl uint32
	// Control behaviour of the input/output shift registers for state machine N.
	ShiftCtrl uint32
	// State machine pin control.
	PinCtrl uint32
}

// SetClkDivIntFrac sets the clock divider for the state
// machine from a whole and fractional part.
//
//	Frequency = clock freq / (CLKDIV_INT + CLKDIV_FRAC / 256)
func (cfg *StateMachineConfig) SetClkDivIntFrac(whole uint16, frac uint8) {
	cfg.ClkDiv = clkDiv(whole, frac)
}

func clkDiv(whole uint16, frac uint8) uint32 {
	return uint32(frac)<<clkdivFracPos | uint32(whole)<<clkdivIntPos
}

// SetWrap sets the wrapping configuration for the state machine.
// Both addresses are absolute instruction memory addresses.
func (cfg *StateMachineConfig) SetWrap(wrapTarget uint8, wrap uint8) {
	if wrap >= 32 || wrapTarget >= 32 {
		panic("pio:bad wrap")
	}
	cfg.ExecCtrl = cfg.ExecCtrl&^uint32(execctrlWrapTopMsk|execctrlWrapBottomMsk) |
		uint32(wrapTarget)<<execctrlWrapBottomPos |
		uint32(wrap)<<execctrlWrapTopPos
}

// Wrap returns the wrap target and wrap top addresses.
func (cfg StateMachineConfig) Wrap() (wrapTarget, wrap uint8) {
	return uint8((cfg.ExecCtrl & execctrlWrapBottomMsk) >> execctrlWrapBottomPos),
		uint8((cfg.ExecCtrl & execctrlWrapTopMsk) >> execctrlWrapTopPos)
}

// SetInShift sets the 'in' shifting parameters in a state machine configuration
//   - shiftRight is true if ISR shift direction is right, false if left.
//   - autoPush enables automatic pushing of the ISR once pushThreshold bits were shifted in.
//   - pushThreshold is threshold in bits to shift in before auto/conditional re-pushing of the ISR.
func (cfg *StateMachineConfig) SetInShift(shiftRight bool, autoPush bool, pushThreshold uint16) {
	cfg.ShiftCtrl = cfg.ShiftCtrl&^uint32(shiftctrlInShiftdirMsk|shiftctrlAutopushMsk|shiftctrlPushThreshMsk) |
		boolToBit(shiftRight)<<shiftctrlInShiftdirPos |
		boolToBit(autoPush)<<shiftctrlAutopushPos |
		uint32(pushThreshold&0x1f)<<shiftctrlPushThreshPos
}

// SetOutShift sets the 'out' shifting parameters in a state machine configuration
//   - shiftRight is true if OSR shift direction is right, false if left.
//   - autoPull enables automatic OSR refilling after pullThreshold bits were shifted out.
//   - pullThreshold is threshold in bits to shift out before auto/conditional re-pulling of the OSR.
func (cfg *StateMachineConfig) SetOutShift(shiftRight bool, autoPull bool, pullThreshold uint16) {
	cfg.ShiftCtrl = cfg.ShiftCtrl&^uint32(shiftctrlOutShiftdirMsk|shiftctrlAutopullMsk|shiftctrlPullThreshMsk) |
		boolToBit(shiftRight)<<shiftctrlOutShiftdirPos |
		boolToBit(autoPull)<<shiftctrlAutopullPos |
		uint32(pullThreshold&0x1f)<<shiftctrlPullThreshPos
}

// SetSidesetParams sets the side-set parameters in a state machine configuration.
//   - bitCount is number of bits to steal from delay field in the instruction for use of side set (max 5).
//   - optional is true if the topmost side set bit is used as a flag for whether to apply side set on that instruction.
//   - pindirs is true if the side-set affects pin directions rather than values.
func (cfg *StateMachineConfig) SetSidesetParams(bitCount uint8, optional bool, pindirs bool) {
	if bitCount > 5 {
		panic("pio:bad side-set bit count")
	}
	cfg.PinCtrl = cfg.PinCtrl&^uint32(pinctrlSidesetCountMsk) | uint32(bitCount)<<pinctrlSidesetCountPos
	cfg.ExecCtrl = cfg.ExecCtrl&^uint32(execctrlSideEnMsk|execctrlSidePindirMsk) |
		boolToBit(optional)<<execctrlSideEnPos |
		boolToBit(pindirs)<<execctrlSidePindirPos
}

// SetSidesetPins sets the lowest-numbered pin that will be affected by a side-set
// operation.
func (cfg *StateMachineConfig) SetSidesetPins(firstPin Pin) {
	checkPinBaseAndCount(firstPin, 1)
	cfg.PinCtrl = cfg.PinCtrl&^uint32(pinctrlSidesetBaseMsk) | uint32(firstPin)<<pinctrlSidesetBasePos
}

// SetOutPins sets the pins a PIO 'out' instruction modifies. Can overlap with pins in IN, SET and SIDESET.
func (cfg *StateMachineConfig) SetOutPins(base Pin, count uint8) {
	checkPinBaseAndCount(base, count)
	cfg.PinCtrl = cfg.PinCtrl&^uint32(pinctrlOutBaseMsk|pinctrlOutCountMsk) |
		uint32(base)<<pinctrlOutBasePos |
		uint32(count)<<pinctrlOutCountPos
}

// SetSetPins sets the pins a PIO 'set' instruction modifies.
// Can overlap with pins in IN, OUT and SIDESET.
func (cfg *StateMachineConfig) SetSetPins(base Pin, count uint8) {
	checkPinBaseAndCount(base, count)
	if count > 5 {
		panic("pio:set count too large")
	}
	cfg.PinCtrl = cfg.PinCtrl&^uint32(pinctrlSetBaseMsk|pinctrlSetCountMsk) |
		uint32(base)<<pinctrlSetBasePos |
		uint32(count)<<pinctrlSetCountPos
}

// SetInPins sets the base pin for 'in' and 'wait pin' instructions.
func (cfg *StateMachineConfig) SetInPins(base Pin) {
	checkPinBaseAndCount(base, 1)
	cfg.PinCtrl = cfg.PinCtrl&^uint32(pinctrlInBaseMsk) | uint32(base)<<pinctrlInBasePos
}

// SetJmpPin sets the gpio pin to use as the source for a `jmp pin` instruction.
func (cfg *StateMachineConfig) SetJmpPin(pin Pin) {
	checkPinBaseAndCount(pin, 1)
	cfg.ExecCtrl = cfg.ExecCtrl&^uint32(execctrlJmpPinMsk) | uint32(pin)<<execctrlJmpPinPos
}

// SetOutSpecial set special 'out' operations in a state machine configuration.
//   - sticky to enable 'sticky' output (i.e. re-asserting most recent OUT/SET pin values on subsequent cycles).
//   - hasEnablePin true to enable auxiliary OUT enable pin.
//   - enable pin for auxiliary OUT enable.
func (cfg *StateMachineConfig) SetOutSpecial(sticky, hasEnablePin bool, enable Pin) {
	cfg.ExecCtrl = cfg.ExecCtrl&^uint32(execctrlOutStickyMsk|execctrlInlineOutEnMsk|execctrlOutEnSelMsk) |
		boolToBit(sticky)<<execctrlOutStickyPos |
		boolToBit(hasEnablePin)<<execctrlInlineOutEnPos |
		(uint32(enable)<<execctrlOutEnSelPos)&execctrlOutEnSelMsk
}

// FifoJoin selects how the eight FIFO entries of a state machine are split.
type FifoJoin uint8

const (
	// FifoJoinNone is the default FIFO joining configuration. The RX and TX FIFOs are separate and of length 4 each.
	FifoJoinNone FifoJoin = iota
	// FifoJoinTx joins the RX and TX FIFOs into a single TX FIFO of depth 8.
	FifoJoinTx
	// FifoJoinRx joins the RX and TX FIFOs into a single RX FIFO of depth 8.
	FifoJoinRx
)

// SetFIFOJoin sets up the FIFO joining in a state machine configuration.
func (cfg *StateMachineConfig) SetFIFOJoin(join FifoJoin) {
	if join > FifoJoinRx {
		panic("pio:bad fifo join")
	}
	cfg.ShiftCtrl = cfg.ShiftCtrl&^uint32(shiftctrlFjoinTxMsk|shiftctrlFjoinRxMsk) |
		uint32(join)<<shiftctrlFjoinTxPos
}

// FIFOJoin returns the FIFO joining configuration.
func (cfg StateMachineConfig) FIFOJoin() FifoJoin {
	switch {
	case cfg.ShiftCtrl&shiftctrlFjoinTxMsk != 0:
		return FifoJoinTx
	case cfg.ShiftCtrl&shiftctrlFjoinRxMsk != 0:
		return FifoJoinRx
	}
	return FifoJoinNone
}

// FIFODepths returns the TX and RX FIFO depths implied by the FIFO join setting.
func (cfg StateMachineConfig) FIFODepths() (tx, rx int) {
	switch cfg.FIFOJoin() {
	case FifoJoinTx:
		return 8, 0
	case FifoJoinRx:
		return 0, 8
	}
	return 4, 4
}

func checkPinBaseAndCount(base Pin, count uint8) {
	if base >= 32 {
		panic("pio:bad pin")
	} else if count > 32 {
		panic("pio:count too large")
	}
}

func boolToBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
