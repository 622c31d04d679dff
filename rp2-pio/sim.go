package pio

import "sync"

// SimBlock models a PIO block on the host. It keeps the instruction memory,
// state machine claims, FIFOs and interrupt routing of a real block but runs
// no instructions: the device side of each state machine is played by test
// code through Inject, Drain and OnPut.
type SimBlock struct {
	res   resources
	index uint8

	mu       sync.Mutex
	mem      [programSpace]uint16
	sms      [numStateMachines]simSM
	pulls    map[Pin]Pull
	pindirs  uint32
	flags    uint8
	inte     [numInterruptLines]IRQSource
	handlers [numInterruptLines]InterruptHandler
	nc       noCopy
}

type simSM struct {
	enabled  bool
	pc       uint8
	cfg      StateMachineConfig
	txDepth  int
	rxDepth  int
	tx       []uint32
	rx       []uint32
	restarts int
	onPut    func(word uint32)
}

var _ Block = (*SimBlock)(nil)

// NewSimBlock returns a simulated block with the given block index and all
// state machines unclaimed.
func NewSimBlock(index uint8) *SimBlock {
	b := &SimBlock{index: index, pulls: make(map[Pin]Pull)}
	for i := range b.sms {
		b.sms[i].txDepth, b.sms[i].rxDepth = 4, 4
	}
	return b
}

// BlockIndex returns the index the block was created with.
func (b *SimBlock) BlockIndex() uint8 { return b.index }

// NumStateMachines returns the number of state machines in the block.
func (b *SimBlock) NumStateMachines() uint8 { return numStateMachines }

// AddProgram loads a program into the simulated instruction memory.
func (b *SimBlock) AddProgram(instructions []uint16, origin int8) (uint8, error) {
	return b.res.addProgram(instructions, origin, b.writeInstructionMemory)
}

// AddProgramAtOffset loads a program at a specific offset.
func (b *SimBlock) AddProgramAtOffset(instructions []uint16, origin int8, offset uint8) error {
	return b.res.addProgramAtOffset(instructions, origin, offset, b.writeInstructionMemory)
}

// RemoveProgram frees a section of instruction memory.
func (b *SimBlock) RemoveProgram(offset, length uint8) {
	b.res.removeProgram(offset, length, b.writeInstructionMemory)
}

func (b *SimBlock) writeInstructionMemory(addr uint8, instr uint16) {
	b.mu.Lock()
	b.mem[addr] = instr
	b.mu.Unlock()
}

// Instruction returns the instruction stored at addr.
func (b *SimBlock) Instruction(addr uint8) uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem[addr&(programSpace-1)]
}

// UsedSpace returns the bitmask of occupied instruction slots.
func (b *SimBlock) UsedSpace() uint32 { return b.res.used() }

// HasFreeStateMachine reports whether a state machine can be claimed.
func (b *SimBlock) HasFreeStateMachine() bool { return b.res.hasFree() }

// ClaimStateMachine claims the lowest numbered free state machine.
func (b *SimBlock) ClaimStateMachine() (Machine, error) {
	index, ok := b.res.claimAny()
	if !ok {
		return nil, ErrStateMachineClaimed
	}
	return &SimStateMachine{block: b, index: index}, nil
}

// IsClaimed reports whether state machine sm is claimed.
func (b *SimBlock) IsClaimed(sm uint8) bool { return b.res.isClaimed(sm) }

// ConfigurePin records the pull selected for pin.
func (b *SimBlock) ConfigurePin(pin Pin, pull Pull) {
	if pin >= 48 {
		panic("pio:bad pin")
	}
	b.mu.Lock()
	b.pulls[pin] = pull
	b.mu.Unlock()
}

// PinPull returns the pull configured for pin and whether the pin was handed
// to the block at all.
func (b *SimBlock) PinPull(pin Pin) (Pull, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pulls[pin]
	return p, ok
}

// Pindirs returns the output enable mask set through SetPindirsConsecutive.
func (b *SimBlock) Pindirs() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pindirs
}

// SetInterrupt installs handler on interrupt line irq.
func (b *SimBlock) SetInterrupt(irq uint8, handler InterruptHandler) error {
	if irq >= numInterruptLines {
		return ErrBadInterruptLine
	}
	b.mu.Lock()
	b.handlers[irq] = handler
	b.mu.Unlock()
	b.evaluate()
	return nil
}

// SetInterruptSource enables or disables sources on interrupt line irq.
func (b *SimBlock) SetInterruptSource(irq uint8, source IRQSource, enabled bool) {
	if irq >= numInterruptLines {
		panic(ErrBadInterruptLine.Error())
	}
	b.mu.Lock()
	if enabled {
		b.inte[irq] |= source
	} else {
		b.inte[irq] &^= source
	}
	b.mu.Unlock()
	b.evaluate()
}

// InterruptSources returns the sources enabled on interrupt line irq.
func (b *SimBlock) InterruptSources(irq uint8) IRQSource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inte[irq&1]
}

// HasInterruptHandler reports whether a handler is installed on line irq.
func (b *SimBlock) HasInterruptHandler(irq uint8) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handlers[irq&1] != nil
}

// SetFlag sets or clears one of the four state machine IRQ flags routed to
// the system interrupt lines.
func (b *SimBlock) SetFlag(flag uint8, set bool) {
	b.mu.Lock()
	if set {
		b.flags |= 1 << (flag & 3)
	} else {
		b.flags &^= 1 << (flag & 3)
	}
	b.mu.Unlock()
	b.evaluate()
}

// Inject pushes words into the RX FIFO of state machine sm as if the program
// had pushed them. It returns how many fit.
func (b *SimBlock) Inject(sm uint8, words ...uint32) int {
	b.mu.Lock()
	s := &b.sms[sm&3]
	n := 0
	for _, w := range words {
		if len(s.rx) >= s.rxDepth {
			break
		}
		s.rx = append(s.rx, w)
		n++
	}
	b.mu.Unlock()
	b.evaluate()
	return n
}

// Drain removes and returns every word waiting in the TX FIFO of state machine sm.
func (b *SimBlock) Drain(sm uint8) []uint32 {
	b.mu.Lock()
	s := &b.sms[sm&3]
	words := s.tx
	s.tx = nil
	b.mu.Unlock()
	b.evaluate()
	return words
}

// OnPut makes state machine sm consume every TX word as soon as it is put
// while enabled, handing it to fn. fn runs without locks held and may call
// Inject. A nil fn restores queueing.
func (b *SimBlock) OnPut(sm uint8, fn func(word uint32)) {
	b.mu.Lock()
	b.sms[sm&3].onPut = fn
	b.mu.Unlock()
}

// Enabled reports whether state machine sm is running.
func (b *SimBlock) Enabled(sm uint8) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sms[sm&3].enabled
}

// PC returns the address state machine sm was last pointed at by Init.
func (b *SimBlock) PC(sm uint8) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sms[sm&3].pc
}

// Config returns the configuration last applied to state machine sm.
func (b *SimBlock) Config(sm uint8) StateMachineConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sms[sm&3].cfg
}

// Restarts returns how many times state machine sm was restarted.
func (b *SimBlock) Restarts(sm uint8) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sms[sm&3].restarts
}

// status computes the raw interrupt status. Must be called with b.mu held.
func (b *SimBlock) status() IRQSource {
	var src IRQSource
	for i := range b.sms {
		s := &b.sms[i]
		if len(s.rx) > 0 {
			src |= RxNotEmptySource(uint8(i))
		}
		if len(s.tx) < s.txDepth {
			src |= TxNotFullSource(uint8(i))
		}
	}
	for f := uint8(0); f < 4; f++ {
		if b.flags&(1<<f) != 0 {
			src |= FlagSource(f)
		}
	}
	return src
}

// evaluate calls the handlers of interrupt lines with pending enabled
// sources. Handlers run without the lock held.
func (b *SimBlock) evaluate() {
	var (
		pending  [numInterruptLines]IRQSource
		handlers [numInterruptLines]InterruptHandler
	)
	b.mu.Lock()
	status := b.status()
	for irq := range pending {
		pending[irq] = status & b.inte[irq]
		handlers[irq] = b.handlers[irq]
	}
	b.mu.Unlock()
	for irq, h := range handlers {
		if h != nil && pending[irq] != 0 {
			h(b.index, uint8(irq), pending[irq])
		}
	}
}

// SimStateMachine is a state machine of a SimBlock.
type SimStateMachine struct {
	block *SimBlock
	index uint8
}

var _ Machine = (*SimStateMachine)(nil)

// StateMachineIndex returns the index of the state machine within the block.
func (sm *SimStateMachine) StateMachineIndex() uint8 { return sm.index }

// Block returns the block the state machine belongs to.
func (sm *SimStateMachine) Block() *SimBlock { return sm.block }

// Unclaim releases the state machine for use by other code.
func (sm *SimStateMachine) Unclaim() { sm.block.res.unclaim(sm.index) }

func (sm *SimStateMachine) state() *simSM { return &sm.block.sms[sm.index] }

// Init applies cfg, clears the FIFOs and points the state machine at
// initialPC. The state machine is left disabled.
func (sm *SimStateMachine) Init(initialPC uint8, cfg StateMachineConfig) {
	if cfg == (StateMachineConfig{}) {
		cfg = DefaultStateMachineConfig()
	}
	b := sm.block
	b.mu.Lock()
	s := sm.state()
	s.enabled = false
	s.cfg = cfg
	s.txDepth, s.rxDepth = cfg.FIFODepths()
	s.tx, s.rx = nil, nil
	s.restarts++
	s.pc = initialPC
	b.mu.Unlock()
	b.evaluate()
}

// SetEnabled starts or stops the state machine. Starting a state machine
// with an OnPut hook hands it the words queued while it was stopped.
func (sm *SimStateMachine) SetEnabled(enabled bool) {
	b := sm.block
	b.mu.Lock()
	s := sm.state()
	s.enabled = enabled
	var queued []uint32
	fn := s.onPut
	if enabled && fn != nil {
		queued, s.tx = s.tx, nil
	}
	b.mu.Unlock()
	for _, w := range queued {
		fn(w)
	}
	b.evaluate()
}

// ClearFIFOs empties both FIFOs.
func (sm *SimStateMachine) ClearFIFOs() {
	b := sm.block
	b.mu.Lock()
	s := sm.state()
	s.tx, s.rx = nil, nil
	b.mu.Unlock()
	b.evaluate()
}

// Restart counts the restart. The model keeps no shift counters.
func (sm *SimStateMachine) Restart() {
	b := sm.block
	b.mu.Lock()
	sm.state().restarts++
	b.mu.Unlock()
}

// IsTxFIFOFull returns true if the TX FIFO has no room.
func (sm *SimStateMachine) IsTxFIFOFull() bool {
	b := sm.block
	b.mu.Lock()
	defer b.mu.Unlock()
	s := sm.state()
	return len(s.tx) >= s.txDepth
}

// IsRxFIFOEmpty returns true if the RX FIFO holds no data.
func (sm *SimStateMachine) IsRxFIFOEmpty() bool {
	b := sm.block
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(sm.state().rx) == 0
}

// TxPut puts a word into the TX FIFO. Like the hardware, a put into a full
// FIFO is dropped.
func (sm *SimStateMachine) TxPut(data uint32) {
	b := sm.block
	b.mu.Lock()
	s := sm.state()
	fn := s.onPut
	deliver := s.enabled && fn != nil
	if !deliver && len(s.tx) < s.txDepth {
		s.tx = append(s.tx, data)
	}
	b.mu.Unlock()
	if deliver {
		fn(data)
	}
	b.evaluate()
}

// RxGet pops a word from the RX FIFO. An empty FIFO reads as zero.
func (sm *SimStateMachine) RxGet() uint32 {
	b := sm.block
	b.mu.Lock()
	s := sm.state()
	var w uint32
	if len(s.rx) > 0 {
		w = s.rx[0]
		s.rx = s.rx[1:]
	}
	b.mu.Unlock()
	b.evaluate()
	return w
}

// SetPindirsConsecutive records the direction of a range of pins.
func (sm *SimStateMachine) SetPindirsConsecutive(pin Pin, count uint8, isOut bool) {
	checkPinBaseAndCount(pin, count)
	b := sm.block
	b.mu.Lock()
	for p := uint(pin); p < uint(pin)+uint(count) && p < 32; p++ {
		if isOut {
			b.pindirs |= 1 << p
		} else {
			b.pindirs &^= 1 << p
		}
	}
	b.mu.Unlock()
}
