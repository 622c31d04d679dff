package joybus

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrCRC               = errors.New("joybus: crc mismatch")
	ErrAccessoryNotReady = errors.New("joybus: accessory not ready")
)

// AccessoryBlockSize is the number of bytes moved by one accessory read or write.
const AccessoryBlockSize = 32

const (
	rumbleInitAddr uint16 = 0x8000
	rumbleAddr     uint16 = 0xC000
)

// Controller polls an N64 controller through a Host. It tracks whether a
// controller answers and initializes a rumble pak when one is inserted.
type Controller struct {
	host        *Host
	log         *slog.Logger
	connected   bool
	rumbleReady bool
	info        Info
	state       State
}

// NewController returns a disconnected controller polled through host.
func NewController(host *Host) *Controller {
	return &Controller{host: host, log: host.log}
}

// Update polls the controller once. A disconnected controller is sent a
// Reset; a connected one is asked for its Info and State. Any failed
// exchange marks the controller disconnected and zeroes its records.
func (c *Controller) Update() error {
	if !c.connected {
		var info Info
		if err := c.host.Command(CmdReset, &info); err != nil {
			return err
		}
		c.connected = true
		c.info = info
		c.log.Info("controller connected", "id", info.ID, "status", info.Status)
		c.trackAccessory()
		return nil
	}
	var (
		info  Info
		state State
	)
	if err := c.host.Command(CmdInfo, &info); err != nil {
		c.disconnect(err)
		return err
	}
	if err := c.host.Command(CmdControllerState, &state); err != nil {
		c.disconnect(err)
		return err
	}
	c.info, c.state = info, state
	c.trackAccessory()
	return nil
}

func (c *Controller) disconnect(err error) {
	if c.connected {
		c.log.Info("controller disconnected", "err", err)
	}
	c.connected = false
	c.rumbleReady = false
	c.info = Info{}
	c.state = State{}
}

// trackAccessory runs the rumble handshake while an inserted pak is not
// ready, and forgets the pak as soon as it is reported missing.
func (c *Controller) trackAccessory() {
	s := c.info.Status
	if !s.Has(PakInserted) || s.Has(PakRemoved) {
		if c.rumbleReady {
			c.log.Debug("accessory removed")
		}
		c.rumbleReady = false
		return
	}
	if c.rumbleReady {
		return
	}
	if err := c.initRumble(); err != nil {
		c.log.Warn("rumble init failed", "err", err)
		return
	}
	c.rumbleReady = true
	c.log.Debug("rumble ready")
}

// initRumble wakes a rumble pak by writing and reading back two wake
// patterns, then switches the motor off. CRCs are not checked.
func (c *Controller) initRumble() error {
	var buf [AccessoryBlockSize]byte
	for _, pattern := range [2]byte{0xEE, 0x80} {
		fill(buf[:], pattern)
		if err := c.WriteAccessory(rumbleInitAddr, buf[:], false); err != nil {
			return err
		}
		if err := c.ReadAccessory(rumbleInitAddr, buf[:], false); err != nil {
			return err
		}
	}
	return c.writeRumble(false)
}

// Rumble switches the rumble motor on or off.
func (c *Controller) Rumble(on bool) error {
	if !c.rumbleReady {
		return ErrAccessoryNotReady
	}
	return c.writeRumble(on)
}

func (c *Controller) writeRumble(on bool) error {
	var buf [AccessoryBlockSize]byte
	if on {
		fill(buf[:], 0x01)
	}
	return c.WriteAccessory(rumbleAddr, buf[:], false)
}

// ReadAccessory reads a block from the accessory port at addr into data,
// which must be AccessoryBlockSize long. The address checksum is added here.
func (c *Controller) ReadAccessory(addr uint16, data []byte, checkCRC bool) error {
	if len(data) != AccessoryBlockSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrBufferSize, len(data), AccessoryBlockSize)
	}
	crc, err := c.host.ReadCommand(CmdReadAccessory, AddressChecksum(addr), Bytes(data))
	if err != nil {
		return err
	}
	if checkCRC {
		return c.checkCRC(CmdReadAccessory, addr, data, crc)
	}
	return nil
}

// WriteAccessory writes data, which must be AccessoryBlockSize long, to the
// accessory port at addr.
func (c *Controller) WriteAccessory(addr uint16, data []byte, checkCRC bool) error {
	if len(data) != AccessoryBlockSize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrBufferSize, len(data), AccessoryBlockSize)
	}
	crc, err := c.host.WriteCommand(CmdWriteAccessory, AddressChecksum(addr), data)
	if err != nil {
		return err
	}
	if checkCRC {
		return c.checkCRC(CmdWriteAccessory, addr, data, crc)
	}
	return nil
}

func (c *Controller) checkCRC(cmd Command, addr uint16, data []byte, got uint8) error {
	if want := CRC8(data); got != want {
		c.log.Debug("accessory crc mismatch", "cmd", cmd, "addr", addr, "got", got, "want", want)
		return fmt.Errorf("%w: %v at 0x%04x got 0x%02x want 0x%02x", ErrCRC, cmd, addr, got, want)
	}
	return nil
}

// Connected reports whether the controller answered the last poll.
func (c *Controller) Connected() bool { return c.connected }

// RumbleReady reports whether an initialized rumble pak is inserted.
func (c *Controller) RumbleReady() bool { return c.rumbleReady }

// Info returns the last info reply; zero while disconnected.
func (c *Controller) Info() Info { return c.info }

// State returns the last state reply; zero while disconnected.
func (c *Controller) State() State { return c.state }

// Report returns a snapshot of the controller for logging or forwarding.
func (c *Controller) Report() Report {
	return Report{
		Connected:   c.connected,
		RumbleReady: c.rumbleReady,
		ID:          c.info.ID,
		Status:      c.info.Status,
		Buttons:     c.state.Buttons,
		X:           c.state.X,
		Y:           c.state.Y,
	}
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
