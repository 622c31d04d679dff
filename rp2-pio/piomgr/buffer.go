package piomgr

// Buffer converts between caller-owned memory and 32-bit transfer units.
// It does not own the memory, which must outlive the transfer using it.
type Buffer interface {
	// Len returns the number of transfer units.
	Len() int
	// Pack returns transfer unit i.
	Pack(i int) uint32
	// Unpack stores transfer unit i.
	Unpack(i int, w uint32)
}

// Packing selects where bytes sit within a transfer word.
type Packing uint8

const (
	// MSBFirst places earlier bytes in higher bits.
	MSBFirst Packing = iota
	// LSBFirst places earlier bytes in lower bits.
	LSBFirst
)

// Words transfers whole words.
type Words []uint32

func (w Words) Len() int { return len(w) }
func (w Words) Pack(i int) uint32 { return w[i] }
func (w Words) Unpack(i int, word uint32) { w[i] = word }

// Word transfers the single word *p.
func Word(p *uint32) Buffer { return wordBuffer{p} }

type wordBuffer struct{ p *uint32 }

func (w wordBuffer) Len() int { return 1 }
func (w wordBuffer) Pack(int) uint32 { return *w.p }
func (w wordBuffer) Unpack(_ int, word uint32) { *w.p = word }

// Bytes packs four bytes per transfer unit. When len(Data) is not a
// multiple of four the missing bytes of the last unit are sent as zero and
// ignored on receive.
type Bytes struct {
	Data    []byte
	Packing Packing
}

func (b Bytes) Len() int { return (len(b.Data) + 3) / 4 }

func (b Bytes) Pack(i int) uint32 {
	var w uint32
	for j := 0; j < 4; j++ {
		k := 4*i + j
		if k >= len(b.Data) {
			break
		}
		w |= uint32(b.Data[k]) << b.shift(j)
	}
	return w
}

func (b Bytes) Unpack(i int, w uint32) {
	for j := 0; j < 4; j++ {
		k := 4*i + j
		if k >= len(b.Data) {
			break
		}
		b.Data[k] = byte(w >> b.shift(j))
	}
}

func (b Bytes) shift(j int) uint {
	if b.Packing == MSBFirst {
		return uint(24 - 8*j)
	}
	return uint(8 * j)
}

// ByteUnits transfers one byte per unit, in the top byte of the word for
// MSBFirst and the bottom byte for LSBFirst.
type ByteUnits struct {
	Data    []byte
	Packing Packing
}

func (b ByteUnits) Len() int { return len(b.Data) }

func (b ByteUnits) Pack(i int) uint32 {
	if b.Packing == MSBFirst {
		return uint32(b.Data[i]) << 24
	}
	return uint32(b.Data[i])
}

func (b ByteUnits) Unpack(i int, w uint32) {
	if b.Packing == MSBFirst {
		w >>= 24
	}
	b.Data[i] = byte(w)
}

// Uint16 transfers *V as two byte units, high byte first.
type Uint16 struct {
	V       *uint16
	Packing Packing
}

func (u Uint16) Len() int { return 2 }

func (u Uint16) Pack(i int) uint32 {
	b := [2]byte{byte(*u.V >> 8), byte(*u.V)}
	return ByteUnits{Data: b[:], Packing: u.Packing}.Pack(i)
}

func (u Uint16) Unpack(i int, w uint32) {
	b := [2]byte{byte(*u.V >> 8), byte(*u.V)}
	ByteUnits{Data: b[:], Packing: u.Packing}.Unpack(i, w)
	*u.V = uint16(b[0])<<8 | uint16(b[1])
}
