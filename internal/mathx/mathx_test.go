package mathx

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{11, 10, 0, 10},
		{-3, 10, 0, 0},
	}
	for _, tc := range tests {
		if got := Clamp(tc.v, tc.lo, tc.hi); got != tc.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", tc.v, tc.lo, tc.hi, got, tc.want)
		}
	}
	if got := Clamp(uint64(math.MaxUint64), 0, math.MaxUint32); got != math.MaxUint32 {
		t.Errorf("uint64 clamp = %d", got)
	}
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Errorf("float clamp = %v", got)
	}
}

func TestRoundDiv(t *testing.T) {
	tests := []struct {
		a, b, want uint32
	}{
		{10, 4, 3},
		{9, 4, 2},
		{255 * 128, 255, 128},
		{7, 0, 0},
	}
	for _, tc := range tests {
		if got := RoundDiv(tc.a, tc.b); got != tc.want {
			t.Errorf("RoundDiv(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
