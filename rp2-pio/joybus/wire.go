package joybus

import "github.com/picohal/pio/rp2-pio/piomgr"

// Transfer unit encodings. The host lane shifts eight bits out of the top of
// each word and the client lane nine, the first of which flags more data.
// Data bits are inverted because a set pindir pulls the line low. Received
// bytes are pushed right-aligned.

func hostWord(b byte) uint32 { return uint32(^b) << 24 }

func clientWord(b byte) uint32 { return 1<<31 | uint32(^b)<<23 }

// clientEnd is the word ending a reply; it makes the client send a stop bit.
const clientEnd uint32 = 0

func lengthWord(units int) uint32 { return uint32(8*units - 1) }

func rxByte(w uint32) byte { return byte(w) }

// Bytes is a joybus byte sequence with one byte per transfer unit. It packs
// as a device reply and unpacks received bytes, so it serves as both a
// client reply and a receive buffer on either side.
type Bytes []byte

var _ piomgr.Buffer = Bytes(nil)

func (b Bytes) Len() int               { return len(b) }
func (b Bytes) Pack(i int) uint32      { return clientWord(b[i]) }
func (b Bytes) Unpack(i int, w uint32) { b[i] = rxByte(w) }

// request is the frame a host writes: request length, command, optional
// address, payload and response length.
type request struct {
	cmd     Command
	addr    uint16
	hasAddr bool
	payload []byte
	respLen int
}

func (r *request) dataLen() int {
	n := 1 + len(r.payload)
	if r.hasAddr {
		n += 2
	}
	return n
}

func (r *request) Len() int { return r.dataLen() + 2 }

func (r *request) Pack(i int) uint32 {
	n := r.dataLen()
	switch {
	case i == 0:
		return lengthWord(n)
	case i == n+1:
		return lengthWord(r.respLen)
	case i == 1:
		return hostWord(byte(r.cmd))
	}
	i -= 2
	if r.hasAddr {
		switch i {
		case 0:
			return hostWord(byte(r.addr >> 8))
		case 1:
			return hostWord(byte(r.addr))
		}
		i -= 2
	}
	return hostWord(r.payload[i])
}

func (r *request) Unpack(int, uint32) {}
