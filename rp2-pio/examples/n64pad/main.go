//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/joybus"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

// Emulates an N64 controller on GPIO16 with A, B, Z and Start on GPIO2-5,
// pressed when pulled low.
const dataPin = 16

var buttonPins = []struct {
	pin    machine.Pin
	button joybus.Buttons
}{
	{machine.GPIO2, joybus.ButtonA},
	{machine.GPIO3, joybus.ButtonB},
	{machine.GPIO4, joybus.ButtonZ},
	{machine.GPIO5, joybus.ButtonStart},
}

func main() {
	time.Sleep(2 * time.Second)
	for _, bp := range buttonPins {
		bp.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	m := piomgr.New(pio.Blocks())
	pad := joybus.NewControllerDevice()
	client, err := joybus.NewClient(m, dataPin, pad, joybus.ClientConfig{
		CPUFrequency: machine.CPUFrequency(),
	})
	if err != nil {
		panic(err.Error())
	}
	println("joybus: pad on pin", dataPin)
	go client.Run(context.Background())

	for {
		var st joybus.State
		for _, bp := range buttonPins {
			st.Buttons.Set(bp.button, !bp.pin.Get())
		}
		pad.SetState(st)
		time.Sleep(time.Millisecond)
	}
}
