//go:build rp2040 || rp2350

package main

import (
	"image/color"
	"machine"
	"strconv"
	"time"

	"tinygo.org/x/drivers"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/piolib"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

var ws2812Pin string

const numPixels = 30

/*
Runs a rainbow over a strip and a second strip on the next GPIO, both fed
from one buffer.

tinygo flash -target=pico -ldflags "-X main.ws2812Pin=$GPIO_NUMBER" ./rp2-pio/examples/ledstrip/
*/
func main() {
	pinNum, err := strconv.Atoi(ws2812Pin)
	if err != nil {
		println("Invalid pin number: " + ws2812Pin)
		pinNum = 16
	}
	m := piomgr.New(pio.Blocks())
	cfg := piolib.WS2812BConfig{CPUFrequency: machine.CPUFrequency()}
	a, err := piolib.NewWS2812B(m, pio.Pin(pinNum), numPixels, cfg)
	if err != nil {
		panic(err.Error())
	}
	b, err := piolib.NewWS2812B(m, pio.Pin(pinNum+1), numPixels, cfg)
	if err != nil {
		panic(err.Error())
	}
	for _, ws := range []*piolib.WS2812B{a, b} {
		ws.SetGamma(2.2)
		ws.SetBrightness(64)
		ws.SetColorBalance(1, 0.8, 0.7)
	}

	// Single strip through the generic display interface.
	var d drivers.Displayer = a
	w, _ := d.Size()
	for x := int16(0); x < w; x++ {
		d.SetPixel(x, 0, color.RGBA{R: 255, A: 255})
	}
	if err := d.Display(); err != nil {
		println("display:", err.Error())
	}
	time.Sleep(time.Second)

	frame := make([]color.RGBA, 2*numPixels)
	maps := []piolib.StripMapping{
		{Strip: a, Offset: 0, Len: numPixels},
		{Strip: b, Offset: numPixels, Len: numPixels},
	}
	for step := 0; ; step++ {
		for i := range frame {
			frame[i] = wheel(uint8(i*256/len(frame) + step))
		}
		if err := piolib.WriteParallel(frame, maps, 50*time.Millisecond); err != nil {
			println("write:", err.Error())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func wheel(pos uint8) color.RGBA {
	switch {
	case pos < 85:
		return color.RGBA{R: 255 - pos*3, G: pos * 3, A: 255}
	case pos < 170:
		pos -= 85
		return color.RGBA{G: 255 - pos*3, B: pos * 3, A: 255}
	}
	pos -= 170
	return color.RGBA{R: pos * 3, B: 255 - pos*3, A: 255}
}
