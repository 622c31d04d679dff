package joybus

var addressChecksumTable = [11]uint8{0x01, 0x1A, 0x0D, 0x1C, 0x0E, 0x07, 0x19, 0x16, 0x0B, 0x1F, 0x15}

// AddressChecksum replaces the low five bits of an accessory address with
// the checksum of its upper eleven bits.
func AddressChecksum(addr uint16) uint16 {
	var sum uint8
	for i, v := range addressChecksumTable {
		if addr&(1<<(15-i)) != 0 {
			sum ^= v
		}
	}
	return addr&0xFFE0 | uint16(sum&0x1F)
}

// CRC8 computes the data CRC sent after accessory reads and writes:
// polynomial 0x85, zero initial value, MSB first, no final XOR.
func CRC8(data []byte) uint8 {
	const poly = 0x85
	var crc uint8
	for _, b := range data {
		crc ^= b
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
