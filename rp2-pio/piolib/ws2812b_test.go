package piolib

import (
	"errors"
	"image/color"
	"testing"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
)

func TestWS2812BSetup(t *testing.T) {
	m, sim := newTestManager(t)
	if _, err := NewWS2812B(m, testPin, 0, WS2812BConfig{}); !errors.Is(err, errPixelCount) {
		t.Fatalf("empty strip: %v", err)
	}
	ws, err := NewWS2812B(m, testPin, 3, WS2812BConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	if x, y := ws.Size(); x != 3 || y != 1 {
		t.Errorf("size %dx%d", x, y)
	}
	cfg := sim.Config(0)
	if cfg.FIFOJoin() != pio.FifoJoinTx {
		t.Errorf("fifo join %d", cfg.FIFOJoin())
	}
	if sim.Pindirs()&(1<<testPin) == 0 {
		t.Error("data pin not an output")
	}
	if !sim.Enabled(0) {
		t.Error("state machine not running")
	}
	if got := sim.Instruction(ws.sm.Offset()); got != 0x80e0 {
		t.Errorf("first instruction %#04x", got)
	}
}

func TestWS2812BDisplay(t *testing.T) {
	m, sim := newTestManager(t)
	words := collect(sim, 0)
	ws, err := NewWS2812B(m, testPin, 3, WS2812BConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	ws.SetPixel(0, 0, color.RGBA{R: 255, A: 255})
	ws.SetPixel(2, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})
	ws.SetPixel(3, 0, color.RGBA{G: 255})
	ws.SetPixel(1, 1, color.RGBA{G: 255})
	ws.SetPixel(-1, 0, color.RGBA{G: 255})
	if err := ws.Display(); err != nil {
		t.Fatal(err)
	}
	want := []uint32{0x00ff0000, 0, 0x02010300}
	if !equalWords(*words, want) {
		t.Errorf("words %#x, want %#x", *words, want)
	}
}

func TestWS2812BCorrection(t *testing.T) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	grey := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	tests := []struct {
		name  string
		setup func(ws *WS2812B)
		c     color.RGBA
		want  uint32
	}{
		{"identity", func(*WS2812B) {}, grey, 0x80808000},
		{"brightness", func(ws *WS2812B) { ws.SetBrightness(128) }, white, 0x80808000},
		{"dark", func(ws *WS2812B) { ws.SetBrightness(0) }, white, 0},
		{"gamma", func(ws *WS2812B) { ws.SetGamma(2) }, grey, 0x40404000},
		{"gamma keeps ends", func(ws *WS2812B) { ws.SetGamma(2.2) }, white, 0xffffff00},
		{"linear fallback", func(ws *WS2812B) { ws.SetGamma(-1) }, grey, 0x80808000},
		{"balance", func(ws *WS2812B) { ws.SetColorBalance(1, 0.5, 0) }, white, 0x80ff0000},
		{"balance clamped", func(ws *WS2812B) { ws.SetColorBalance(2, -1, 1) }, white, 0x00ffff00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			ws, err := NewWS2812B(m, testPin, 1, WS2812BConfig{})
			if err != nil {
				t.Fatal(err)
			}
			defer ws.Close()
			tt.setup(ws)
			if got := ws.Encode(tt.c); got != tt.want {
				t.Errorf("Encode = %#08x, want %#08x", got, tt.want)
			}
		})
	}
}

func TestWS2812BTimeout(t *testing.T) {
	m, sim := newTestManager(t)
	ws, err := NewWS2812B(m, testPin, 10, WS2812BConfig{Timeout: 5 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	// Nothing consumes the FIFO: eight words fit in the joined FIFO.
	if err := ws.Display(); !errors.Is(err, errTimeout) {
		t.Fatalf("Display: %v", err)
	}
	if got := len(sim.Drain(0)); got != 8 {
		t.Errorf("queued %d words, want 8", got)
	}
}

func TestWriteParallel(t *testing.T) {
	m, sim := newTestManager(t)
	a := collect(sim, 0)
	b := collect(sim, 1)
	wsA, err := NewWS2812B(m, testPin, 3, WS2812BConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer wsA.Close()
	wsB, err := NewWS2812B(m, testPin+1, 3, WS2812BConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer wsB.Close()
	if wsB.sm.Offset() != wsA.sm.Offset() {
		t.Error("strips on one block should share the program")
	}

	colors := make([]color.RGBA, 5)
	for i := range colors {
		colors[i] = color.RGBA{B: uint8(i + 1)}
	}
	err = WriteParallel(colors, []StripMapping{
		{Strip: wsA, Offset: 0, Len: 3},
		{Strip: wsB, Offset: 3, Len: 3}, // clipped to two pixels
	}, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint32{0x100, 0x200, 0x300}; !equalWords(*a, want) {
		t.Errorf("strip A %#x, want %#x", *a, want)
	}
	if want := []uint32{0x400, 0x500}; !equalWords(*b, want) {
		t.Errorf("strip B %#x, want %#x", *b, want)
	}
}

func TestWriteParallelTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{5 * time.Millisecond, 0} {
		t.Run(timeout.String(), func(t *testing.T) {
			m, sim := newTestManager(t)
			ws, err := NewWS2812B(m, testPin, 12, WS2812BConfig{})
			if err != nil {
				t.Fatal(err)
			}
			defer ws.Close()
			colors := make([]color.RGBA, 12)
			errc := make(chan error, 1)
			go func() { errc <- WriteParallel(colors, []StripMapping{{Strip: ws, Len: 12}}, timeout) }()
			select {
			case err := <-errc:
				if !errors.Is(err, errTimeout) {
					t.Fatalf("WriteParallel: %v", err)
				}
			case <-time.After(time.Second):
				t.Fatal("WriteParallel did not give up")
			}
			if got := len(sim.Drain(0)); got != 8 {
				t.Errorf("queued %d words, want 8", got)
			}
		})
	}
}

func TestWS2812BClose(t *testing.T) {
	m, sim := newTestManager(t)
	ws, err := NewWS2812B(m, testPin, 1, WS2812BConfig{})
	if err != nil {
		t.Fatal(err)
	}
	ws.Close()
	if sim.IsClaimed(0) {
		t.Error("state machine still claimed")
	}
	if sim.UsedSpace() != 0 {
		t.Errorf("program still loaded: %#x", sim.UsedSpace())
	}
}
