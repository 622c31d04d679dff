package joybus

import (
	"bytes"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

type accessoryOp struct {
	cmd  Command
	addr uint16
	fill byte
}

// fakePad answers like an N64 controller with a memory backed pak port.
type fakePad struct {
	mu      sync.Mutex
	present bool
	status  Status
	state   State
	badCRC  bool
	mem     map[uint16][]byte
	ops     []accessoryOp

	// drop leaves that many accessory requests unanswered.
	drop int
}

func (p *fakePad) respond(req []byte) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.present {
		return nil
	}
	switch Command(req[0]) {
	case CmdReset, CmdInfo:
		return []byte{0x05, 0x00, byte(p.status)}
	case CmdControllerState:
		return []byte{byte(p.state.Buttons >> 8), byte(p.state.Buttons), byte(p.state.X), byte(p.state.Y)}
	case CmdReadAccessory, CmdWriteAccessory:
		if p.drop > 0 {
			p.drop--
			return nil
		}
	}
	switch Command(req[0]) {
	case CmdReadAccessory:
		addr := uint16(req[1])<<8 | uint16(req[2])
		p.ops = append(p.ops, accessoryOp{CmdReadAccessory, addr, 0})
		data := p.mem[addr]
		if data == nil {
			data = make([]byte, AccessoryBlockSize)
		}
		crc := CRC8(data)
		if p.badCRC {
			crc ^= 0xFF
		}
		return append(append([]byte(nil), data...), crc)
	case CmdWriteAccessory:
		addr := uint16(req[1])<<8 | uint16(req[2])
		payload := append([]byte(nil), req[3:]...)
		p.ops = append(p.ops, accessoryOp{CmdWriteAccessory, addr, payload[0]})
		if p.mem == nil {
			p.mem = make(map[uint16][]byte)
		}
		p.mem[addr] = payload
		return []byte{CRC8(payload)}
	}
	return nil
}

func (p *fakePad) set(fn func(p *fakePad)) {
	p.mu.Lock()
	fn(p)
	p.mu.Unlock()
}

func (p *fakePad) takeOps() []accessoryOp {
	p.mu.Lock()
	defer p.mu.Unlock()
	ops := p.ops
	p.ops = nil
	return ops
}

func newTestController(t *testing.T) (*Controller, *fakePad) {
	t.Helper()
	cfg := fastHostConfig()
	cfg.ReadTimeout = 3 * time.Millisecond
	h, d := newTestHost(t, cfg)
	pad := &fakePad{}
	d.setRespond(pad.respond)
	return NewController(h), pad
}

func TestControllerDisconnectReconnect(t *testing.T) {
	c, pad := newTestController(t)

	for i := 0; i < 3; i++ {
		if err := c.Update(); !errors.Is(err, ErrShortRead) {
			t.Fatalf("update %d: err = %v, want ErrShortRead", i, err)
		}
		if c.Connected() || c.Info() != (Info{}) || c.State() != (State{}) {
			t.Fatalf("update %d: absent controller reported as connected", i)
		}
	}

	want := State{Buttons: ButtonA | ButtonStart, X: -12, Y: 100}
	pad.set(func(p *fakePad) { p.present, p.state = true, want })
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if !c.Connected() || c.Info().ID != ControllerID {
		t.Fatalf("after reset: connected %v info %+v", c.Connected(), c.Info())
	}
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if c.State() != want {
		t.Errorf("state %+v, want %+v", c.State(), want)
	}

	pad.set(func(p *fakePad) { p.present = false })
	if err := c.Update(); err == nil {
		t.Fatal("update of unplugged controller succeeded")
	}
	if c.Connected() || c.Info() != (Info{}) || c.State() != (State{}) {
		t.Errorf("records not cleared on disconnect: %+v %+v", c.Info(), c.State())
	}

	pad.set(func(p *fakePad) { p.present = true })
	if err := c.Update(); err != nil || !c.Connected() {
		t.Fatalf("reconnect: %v", err)
	}
}

func TestControllerRumble(t *testing.T) {
	c, pad := newTestController(t)
	pad.set(func(p *fakePad) { p.present, p.status = true, PakInserted })

	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if !c.RumbleReady() {
		t.Fatal("rumble not ready after handshake")
	}
	wantOps := []accessoryOp{
		{CmdWriteAccessory, 0x8001, 0xEE},
		{CmdReadAccessory, 0x8001, 0},
		{CmdWriteAccessory, 0x8001, 0x80},
		{CmdReadAccessory, 0x8001, 0},
		{CmdWriteAccessory, 0xC01B, 0x00},
	}
	if ops := pad.takeOps(); !slices.Equal(ops, wantOps) {
		t.Errorf("handshake %v, want %v", ops, wantOps)
	}

	// A pak that stays inserted is not initialized again.
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if ops := pad.takeOps(); len(ops) != 0 {
		t.Errorf("unexpected accessory traffic %v", ops)
	}

	if err := c.Rumble(true); err != nil {
		t.Fatal(err)
	}
	if ops := pad.takeOps(); !slices.Equal(ops, []accessoryOp{{CmdWriteAccessory, 0xC01B, 0x01}}) {
		t.Errorf("rumble on: %v", ops)
	}

	pad.set(func(p *fakePad) { p.status = PakRemoved })
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if c.RumbleReady() {
		t.Error("rumble still ready after pak removal")
	}
	if err := c.Rumble(false); !errors.Is(err, ErrAccessoryNotReady) {
		t.Errorf("rumble without pak: %v", err)
	}

	pad.set(func(p *fakePad) { p.status = PakInserted })
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if !c.RumbleReady() {
		t.Error("reinserted pak not initialized")
	}
}

func TestControllerRumbleRetry(t *testing.T) {
	c, pad := newTestController(t)
	pad.set(func(p *fakePad) { p.present, p.status, p.drop = true, PakInserted, 1 })

	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if c.RumbleReady() {
		t.Fatal("rumble ready after a failed handshake")
	}
	if !c.Connected() {
		t.Fatal("failed handshake dropped the controller")
	}
	pad.takeOps()

	// The pak stays inserted: the next poll runs the handshake again.
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}
	if !c.RumbleReady() {
		t.Fatal("handshake not retried")
	}
	if ops := pad.takeOps(); len(ops) != 5 {
		t.Errorf("retry ops %v, want a full handshake", ops)
	}
}

func TestControllerAccessoryCRC(t *testing.T) {
	c, pad := newTestController(t)
	pad.set(func(p *fakePad) { p.present = true })
	if err := c.Update(); err != nil {
		t.Fatal(err)
	}

	data := bytes.Repeat([]byte{0x5A}, AccessoryBlockSize)
	if err := c.WriteAccessory(0x0020, data, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := make([]byte, AccessoryBlockSize)
	if err := c.ReadAccessory(0x0020, got, true); err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read back %x", got)
	}

	pad.set(func(p *fakePad) { p.badCRC = true })
	if err := c.ReadAccessory(0x0020, got, true); !errors.Is(err, ErrCRC) {
		t.Errorf("corrupt read: %v", err)
	}
	if err := c.ReadAccessory(0x0020, got, false); err != nil {
		t.Errorf("unchecked read: %v", err)
	}

	if err := c.ReadAccessory(0x0020, got[:31], true); !errors.Is(err, ErrBufferSize) {
		t.Errorf("short buffer: %v", err)
	}
	if err := c.WriteAccessory(0x0020, make([]byte, 33), true); !errors.Is(err, ErrBufferSize) {
		t.Errorf("long buffer: %v", err)
	}
}
