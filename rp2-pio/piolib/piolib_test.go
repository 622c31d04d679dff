package piolib

import (
	"testing"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

const testPin pio.Pin = 2

func newTestManager(t *testing.T) (*piomgr.Manager, *pio.SimBlock) {
	t.Helper()
	sim := pio.NewSimBlock(0)
	return piomgr.New([]pio.Block{sim}), sim
}

// collect records the words state machine sm consumes.
func collect(sim *pio.SimBlock, sm uint8) *[]uint32 {
	var words []uint32
	sim.OnPut(sm, func(w uint32) { words = append(words, w) })
	return &words
}

func equalWords(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
