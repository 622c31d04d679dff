package joybus

import "github.com/picohal/pio/rp2-pio/piomgr"

// Status is the status byte of an N64 controller info reply.
type Status uint8

const (
	// PakInserted is set while an accessory pak is plugged in.
	PakInserted Status = 1 << iota
	// PakRemoved is set when a pak was removed since the last status.
	PakRemoved
	// AddressCRCError is set when the last accessory command carried an
	// address with a bad checksum.
	AddressCRCError
)

// Has reports whether every flag of f is set.
func (s Status) Has(f Status) bool { return s&f == f }

// Buttons is the button word of an N64 controller state reply, sent high
// byte first.
type Buttons uint16

const (
	ButtonCRight Buttons = 1 << iota
	ButtonCLeft
	ButtonCDown
	ButtonCUp
	ButtonR
	ButtonL
	ButtonReserved
	ButtonReset
	ButtonRight
	ButtonLeft
	ButtonDown
	ButtonUp
	ButtonStart
	ButtonZ
	ButtonB
	ButtonA
)

// Has reports whether every button of f is pressed.
func (b Buttons) Has(f Buttons) bool { return b&f == f }

// Set presses or releases the buttons of f.
func (b *Buttons) Set(f Buttons, pressed bool) {
	if pressed {
		*b |= f
	} else {
		*b &^= f
	}
}

// ControllerID is the device type a standard N64 controller reports.
const ControllerID uint16 = 0x0500

// Info is the reply to Reset and Info commands: a two byte device type
// followed by the status byte.
type Info struct {
	ID     uint16
	Status Status
}

var _ piomgr.Buffer = (*Info)(nil)

func (info *Info) Len() int { return 3 }

func (info *Info) Pack(i int) uint32 {
	switch i {
	case 0:
		return clientWord(byte(info.ID >> 8))
	case 1:
		return clientWord(byte(info.ID))
	}
	return clientWord(byte(info.Status))
}

func (info *Info) Unpack(i int, w uint32) {
	b := rxByte(w)
	switch i {
	case 0:
		info.ID = info.ID&0x00FF | uint16(b)<<8
	case 1:
		info.ID = info.ID&0xFF00 | uint16(b)
	default:
		info.Status = Status(b)
	}
}

// State is the reply to a ControllerState command.
type State struct {
	Buttons Buttons
	X, Y    int8
}

var _ piomgr.Buffer = (*State)(nil)

func (s *State) Len() int { return 4 }

func (s *State) Pack(i int) uint32 {
	switch i {
	case 0:
		return clientWord(byte(s.Buttons >> 8))
	case 1:
		return clientWord(byte(s.Buttons))
	case 2:
		return clientWord(byte(s.X))
	}
	return clientWord(byte(s.Y))
}

func (s *State) Unpack(i int, w uint32) {
	b := rxByte(w)
	switch i {
	case 0:
		s.Buttons = s.Buttons&0x00FF | Buttons(b)<<8
	case 1:
		s.Buttons = s.Buttons&0xFF00 | Buttons(b)
	case 2:
		s.X = int8(b)
	default:
		s.Y = int8(b)
	}
}
