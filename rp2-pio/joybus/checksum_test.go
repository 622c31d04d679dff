package joybus

import (
	"bytes"
	"testing"
)

func TestAddressChecksum(t *testing.T) {
	tests := []struct {
		addr, want uint16
	}{
		{0x0000, 0x0000},
		{0x8000, 0x8001},
		{0xC000, 0xC01B},
		{0x0020, 0x0035},
		{0x0400, 0x0407},
		{0x1234, 0x1230},
		{0xFFFF, 0xFFED},
		// Low bits of the input are replaced, not mixed in.
		{0x8001, 0x8001},
		{0x801F, 0x8001},
	}
	for _, tc := range tests {
		if got := AddressChecksum(tc.addr); got != tc.want {
			t.Errorf("AddressChecksum(%#04x) = %#04x, want %#04x", tc.addr, got, tc.want)
		}
	}
}

func TestCRC8(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint8
	}{
		{"empty", nil, 0x00},
		{"zero", []byte{0x00}, 0x00},
		{"one", []byte{0x01}, 0x85},
		{"msb", []byte{0x80}, 0x89},
		{"check", []byte("123456789"), 0x2A},
		{"zeros32", bytes.Repeat([]byte{0x00}, 32), 0x00},
		{"ones32", bytes.Repeat([]byte{0xFF}, 32), 0x0A},
		{"wakeEE", bytes.Repeat([]byte{0xEE}, 32), 0xF6},
		{"wake80", bytes.Repeat([]byte{0x80}, 32), 0xB8},
		{"rumbleOn", bytes.Repeat([]byte{0x01}, 32), 0xEB},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CRC8(tc.data); got != tc.want {
				t.Errorf("CRC8 = %#02x, want %#02x", got, tc.want)
			}
		})
	}
}
