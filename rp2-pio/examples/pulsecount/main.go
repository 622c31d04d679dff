//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/piolib"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

// Counts pulses of an open collector sensor on GPIO15 and prints one count
// per 100ms window.
func main() {
	time.Sleep(2 * time.Second)
	m := piomgr.New(pio.Blocks())
	pc, err := piolib.NewPulseCounter(m, 15, piolib.PulseCounterConfig{
		PullUp:       true,
		Interval:     100 * time.Millisecond,
		CPUFrequency: machine.CPUFrequency(),
	})
	if err != nil {
		panic(err.Error())
	}
	for {
		for {
			n, ok := pc.Pop()
			if !ok {
				break
			}
			println("pulses:", n)
		}
		time.Sleep(pc.Interval() / 2)
	}
}
