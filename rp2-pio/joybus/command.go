// Package joybus implements the single-wire joybus protocol used by N64 and
// GameCube controllers on top of a PIO state machine. Host drives a device
// as the console does and Client answers a console as a controller does.
package joybus

import "strconv"

// Command is the opcode byte starting every joybus request.
type Command uint8

const (
	CmdInfo            Command = 0x00
	CmdControllerState Command = 0x01
	CmdReadAccessory   Command = 0x02
	CmdWriteAccessory  Command = 0x03
	CmdReadEEPROM      Command = 0x04
	CmdWriteEEPROM     Command = 0x05
	CmdReadKeypress    Command = 0x13
	CmdReset           Command = 0xFF
)

// String returns the name of the command.
func (c Command) String() string {
	switch c {
	case CmdInfo:
		return "info"
	case CmdControllerState:
		return "controller-state"
	case CmdReadAccessory:
		return "read-accessory"
	case CmdWriteAccessory:
		return "write-accessory"
	case CmdReadEEPROM:
		return "read-eeprom"
	case CmdWriteEEPROM:
		return "write-eeprom"
	case CmdReadKeypress:
		return "read-keypress"
	case CmdReset:
		return "reset"
	}
	return "command(0x" + strconv.FormatUint(uint64(c), 16) + ")"
}

// accessory reports whether the command addresses the accessory port and
// therefore carries an address and a trailing CRC.
func (c Command) accessory() bool {
	return c == CmdReadAccessory || c == CmdWriteAccessory
}
