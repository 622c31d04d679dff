package joybus

import (
	"sync"

	"github.com/picohal/pio/rp2-pio/piomgr"
)

// ControllerDevice is a Handler that makes a Client answer as a standard
// N64 controller. Reset and Info are answered with its Info, ControllerState
// with its State; other commands get an empty reply.
type ControllerDevice struct {
	mu    sync.Mutex
	info  Info
	state State

	// Owned by the client goroutine.
	cmd        Command
	infoReply  Info
	stateReply State
}

var _ Handler = (*ControllerDevice)(nil)

// NewControllerDevice returns a device reporting ControllerID with no pak
// and nothing pressed.
func NewControllerDevice() *ControllerDevice {
	return &ControllerDevice{info: Info{ID: ControllerID}}
}

// SetInfo replaces the info sent from the next request on.
func (d *ControllerDevice) SetInfo(info Info) {
	d.mu.Lock()
	d.info = info
	d.mu.Unlock()
}

// SetState replaces the state sent from the next request on.
func (d *ControllerDevice) SetState(state State) {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
}

// State returns the state the device currently reports.
func (d *ControllerDevice) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *ControllerDevice) ReceiveCommand(cmd Command) piomgr.Buffer {
	d.cmd = cmd
	return nil
}

// SendResult snapshots the record being sent so SetState and SetInfo may
// run while a reply is in flight.
func (d *ControllerDevice) SendResult() piomgr.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.cmd {
	case CmdReset, CmdInfo:
		d.infoReply = d.info
		return &d.infoReply
	case CmdControllerState:
		d.stateReply = d.state
		return &d.stateReply
	}
	return nil
}
