package joybus

import "strconv"

// Report is a flat snapshot of a polled controller. Firmware writes it as
// one JSON object per line with AppendJSON; the field names match the json
// tags so encoding/json decodes it on the host.
type Report struct {
	Connected   bool    `json:"connected"`
	RumbleReady bool    `json:"rumble"`
	ID          uint16  `json:"id"`
	Status      Status  `json:"status"`
	Buttons     Buttons `json:"buttons"`
	X           int8    `json:"x"`
	Y           int8    `json:"y"`
}

// AppendJSON appends the report as a JSON object to dst without reflection.
func (r Report) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"connected":`...)
	dst = strconv.AppendBool(dst, r.Connected)
	dst = append(dst, `,"rumble":`...)
	dst = strconv.AppendBool(dst, r.RumbleReady)
	dst = append(dst, `,"id":`...)
	dst = strconv.AppendUint(dst, uint64(r.ID), 10)
	dst = append(dst, `,"status":`...)
	dst = strconv.AppendUint(dst, uint64(r.Status), 10)
	dst = append(dst, `,"buttons":`...)
	dst = strconv.AppendUint(dst, uint64(r.Buttons), 10)
	dst = append(dst, `,"x":`...)
	dst = strconv.AppendInt(dst, int64(r.X), 10)
	dst = append(dst, `,"y":`...)
	dst = strconv.AppendInt(dst, int64(r.Y), 10)
	return append(dst, '}')
}

var buttonNames = [16]string{
	"C-Right", "C-Left", "C-Down", "C-Up", "R", "L", "Reserved", "Reset",
	"Right", "Left", "Down", "Up", "Start", "Z", "B", "A",
}

// String lists the pressed buttons from A down to C-Right joined by '+',
// or "none".
func (b Buttons) String() string {
	if b == 0 {
		return "none"
	}
	var s []byte
	for bit := 15; bit >= 0; bit-- {
		if b&(1<<bit) == 0 {
			continue
		}
		if len(s) > 0 {
			s = append(s, '+')
		}
		s = append(s, buttonNames[bit]...)
	}
	return string(s)
}
