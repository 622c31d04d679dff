package pio

import (
	"errors"
	"testing"
)

func TestSimBlockAddProgram(t *testing.T) {
	b := NewSimBlock(0)
	prog := ws2812bTestProgram()

	offset, err := b.AddProgram(prog, -1)
	if err != nil {
		t.Fatal(err)
	}
	// Relocatable programs are placed at the top of instruction memory.
	if offset != 32-8 {
		t.Fatalf("offset: got %d, want 24", offset)
	}
	for i, instr := range prog {
		got := b.Instruction(offset + uint8(i))
		want := instr
		if instr&_INSTR_BITS_Msk == _INSTR_BITS_JMP {
			want += uint16(offset)
		}
		if got != want {
			t.Errorf("instr @%d: got %#04x, want %#04x", i, got, want)
		}
	}
	if b.UsedSpace() != 0xff00_0000 {
		t.Errorf("used space: got %#x", b.UsedSpace())
	}

	second, err := b.AddProgram(prog, -1)
	if err != nil || second != 16 {
		t.Fatalf("second copy: offset %d err %v", second, err)
	}

	b.RemoveProgram(offset, 8)
	if b.UsedSpace() != 0x00ff_0000 {
		t.Errorf("used space after remove: got %#x", b.UsedSpace())
	}
	if got := b.Instruction(offset + 3); got != EncodeJmp(offset, JmpAlways) {
		t.Errorf("removed slot not trapped: %#04x", got)
	}
}

func TestSimBlockOutOfProgramSpace(t *testing.T) {
	b := NewSimBlock(0)
	big := make([]uint16, 20)
	if _, err := b.AddProgram(big, -1); err != nil {
		t.Fatal(err)
	}
	if _, err := b.AddProgram(big, -1); !errors.Is(err, ErrOutOfProgramSpace) {
		t.Fatalf("got %v, want ErrOutOfProgramSpace", err)
	}
	if _, err := b.AddProgram(make([]uint16, 4), 30); !errors.Is(err, ErrOutOfProgramSpace) {
		t.Fatalf("origin past end: got %v", err)
	}
	if off, err := b.AddProgram(make([]uint16, 4), 0); err != nil || off != 0 {
		t.Fatalf("fixed origin: offset %d err %v", off, err)
	}
	if err := b.AddProgramAtOffset(make([]uint16, 2), -1, 2); !errors.Is(err, ErrNoSpaceAtOffset) {
		t.Fatalf("overlap: got %v", err)
	}
}

func TestSimBlockClaim(t *testing.T) {
	b := NewSimBlock(1)
	var claimed []Machine
	for i := 0; i < 4; i++ {
		if !b.HasFreeStateMachine() {
			t.Fatalf("no free state machine after %d claims", i)
		}
		sm, err := b.ClaimStateMachine()
		if err != nil {
			t.Fatal(err)
		}
		if sm.StateMachineIndex() != uint8(i) {
			t.Errorf("claim %d: got index %d", i, sm.StateMachineIndex())
		}
		claimed = append(claimed, sm)
	}
	if b.HasFreeStateMachine() {
		t.Error("block reports free state machine when full")
	}
	if _, err := b.ClaimStateMachine(); !errors.Is(err, ErrStateMachineClaimed) {
		t.Fatalf("fifth claim: got %v", err)
	}
	claimed[2].Unclaim()
	if b.IsClaimed(2) {
		t.Error("state machine 2 still claimed")
	}
	sm, err := b.ClaimStateMachine()
	if err != nil || sm.StateMachineIndex() != 2 {
		t.Fatalf("reclaim: %v %v", sm, err)
	}
}

func TestSimStateMachineFIFOs(t *testing.T) {
	b := NewSimBlock(0)
	m, _ := b.ClaimStateMachine()
	cfg := DefaultStateMachineConfig()
	m.Init(5, cfg)
	if b.Enabled(0) || b.PC(0) != 5 {
		t.Fatalf("init: enabled=%v pc=%d", b.Enabled(0), b.PC(0))
	}
	for i := 0; i < 4; i++ {
		if m.IsTxFIFOFull() {
			t.Fatalf("full after %d words", i)
		}
		m.TxPut(uint32(i))
	}
	if !m.IsTxFIFOFull() {
		t.Fatal("TX FIFO not full after 4 words")
	}
	m.TxPut(99) // dropped
	if got := b.Drain(0); len(got) != 4 || got[3] != 3 {
		t.Fatalf("drain: %v", got)
	}

	if !m.IsRxFIFOEmpty() {
		t.Fatal("RX FIFO not empty")
	}
	if n := b.Inject(0, 1, 2, 3, 4, 5); n != 4 {
		t.Fatalf("inject: %d words fit", n)
	}
	if got := m.RxGet(); got != 1 {
		t.Fatalf("RxGet: %d", got)
	}
	m.ClearFIFOs()
	if !m.IsRxFIFOEmpty() {
		t.Fatal("RX FIFO not cleared")
	}

	cfg.SetFIFOJoin(FifoJoinTx)
	m.Init(5, cfg)
	for i := 0; i < 8; i++ {
		m.TxPut(uint32(i))
	}
	if !m.IsTxFIFOFull() || len(b.Drain(0)) != 8 {
		t.Fatal("joined TX FIFO should hold 8 words")
	}
}

func TestSimOnPut(t *testing.T) {
	b := NewSimBlock(0)
	m, _ := b.ClaimStateMachine()
	m.Init(0, DefaultStateMachineConfig())
	var got []uint32
	b.OnPut(0, func(w uint32) {
		got = append(got, w)
		b.Inject(0, ^w)
	})
	m.TxPut(1) // queued while disabled
	m.SetEnabled(true)
	m.TxPut(2)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("OnPut saw %v", got)
	}
	if w := m.RxGet(); w != ^uint32(1) {
		t.Fatalf("echo: %#x", w)
	}
}

func TestSimInterrupts(t *testing.T) {
	b := NewSimBlock(0)
	m, _ := b.ClaimStateMachine()
	m.Init(0, DefaultStateMachineConfig())

	var fired []IRQSource
	if err := b.SetInterrupt(0, func(block, irq uint8, src IRQSource) {
		if block != 0 || irq != 0 {
			t.Errorf("handler called for block %d line %d", block, irq)
		}
		fired = append(fired, src)
	}); err != nil {
		t.Fatal(err)
	}
	if err := b.SetInterrupt(2, nil); !errors.Is(err, ErrBadInterruptLine) {
		t.Fatalf("line 2: got %v", err)
	}

	b.SetInterruptSource(0, RxNotEmptySource(0), true)
	if len(fired) != 0 {
		t.Fatalf("fired with empty FIFO: %v", fired)
	}
	b.Inject(0, 42)
	if len(fired) != 1 || fired[0] != RxNotEmptySource(0) {
		t.Fatalf("after inject: %v", fired)
	}
	m.RxGet()
	n := len(fired)
	b.Inject(1, 42) // other state machine, source not enabled
	if len(fired) != n {
		t.Fatal("fired for disabled source")
	}

	b.SetInterruptSource(0, TxNotFullSource(0), true)
	if len(fired) == n || fired[len(fired)-1]&TxNotFullSource(0) == 0 {
		t.Fatal("TX not full should assert as soon as it is enabled")
	}
	b.SetInterruptSource(0, TxNotFullSource(0)|RxNotEmptySource(0), false)
	if b.InterruptSources(0) != 0 {
		t.Errorf("sources left enabled: %#x", b.InterruptSources(0))
	}

	b.SetInterruptSource(0, FlagSource(1), true)
	n = len(fired)
	b.SetFlag(1, true)
	if len(fired) != n+1 || fired[n] != FlagSource(1) {
		t.Fatalf("flag: %v", fired[n:])
	}
}

func TestIRQSourceBits(t *testing.T) {
	if RxNotEmptySource(3) != 1<<3 || TxNotFullSource(0) != 1<<4 || TxNotFullSource(3) != 1<<7 || FlagSource(0) != 1<<8 {
		t.Fatal("interrupt source bits do not match INTE layout")
	}
}

func TestSimPins(t *testing.T) {
	b := NewSimBlock(0)
	b.ConfigurePin(5, PullUp)
	if p, ok := b.PinPull(5); !ok || p != PullUp {
		t.Fatalf("pull: %v %v", p, ok)
	}
	m, _ := b.ClaimStateMachine()
	m.SetPindirsConsecutive(4, 2, true)
	if b.Pindirs() != 0b110000 {
		t.Fatalf("pindirs: %b", b.Pindirs())
	}
	m.SetPindirsConsecutive(5, 1, false)
	if b.Pindirs() != 0b010000 {
		t.Fatalf("pindirs: %b", b.Pindirs())
	}
}
