//go:build rp2040 || rp2350

package main

import (
	"machine"
	"os"
	"strconv"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/joybus"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

var joybusPin string

/*
Polls an N64 controller once per frame and writes each report as a JSON line
to the USB serial port, where cmd/joybus-monitor picks it up. Holding Z turns
the rumble pak on. The data pin needs a 1k pull-up to 3.3V.

tinygo flash -target=pico -ldflags "-X main.joybusPin=$GPIO_NUMBER" ./rp2-pio/examples/n64input/
*/
func main() {
	// Sleep to catch prints.
	time.Sleep(2 * time.Second)
	pinNum, err := strconv.Atoi(joybusPin)
	if err != nil {
		pinNum = 16
	}
	m := piomgr.New(pio.Blocks())
	cfg := joybus.DefaultHostConfig()
	cfg.CPUFrequency = machine.CPUFrequency()
	host, err := joybus.NewHost(m, pio.Pin(pinNum), cfg)
	if err != nil {
		panic(err.Error())
	}
	println("joybus: host on pin", pinNum)
	ctrl := joybus.NewController(host)

	var line []byte
	rumbling := false
	for {
		ctrl.Update()
		if ctrl.RumbleReady() {
			z := ctrl.State().Buttons.Has(joybus.ButtonZ)
			if z != rumbling && ctrl.Rumble(z) == nil {
				rumbling = z
			}
		} else {
			rumbling = false
		}
		line = ctrl.Report().AppendJSON(line[:0])
		line = append(line, '\n')
		os.Stdout.Write(line)
		time.Sleep(16 * time.Millisecond)
	}
}
