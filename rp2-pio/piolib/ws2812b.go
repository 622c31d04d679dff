package piolib

import (
	"errors"
	"image/color"
	"math"
	"time"

	"tinygo.org/x/drivers"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/internal/mathx"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

var asm pio.AssemblerV0

// .program ws2812b_led
// .wrap_target
//
//	pull ifempty block
//
// bitloop:
//
//	set pins, 1          ; every bit starts high
//	out y, 1
//	jmp !y low
//	jmp done [2]         ; 1 bit: stay high
//
// low:
//
//	set pins, 0 [2]      ; 0 bit: drop early
//
// done:
//
//	set pins, 0
//	jmp !osre bitloop [1]
//
// .wrap
var ws2812bProgram = &pio.Program{
	Name: "ws2812b_led",
	Instructions: []uint16{
		asm.Pull(true, true).Encode(),                    // 0: pull ifempty block
		asm.Set(pio.SetDestPins, 1).Encode(),             // 1: set pins, 1
		asm.Out(pio.OutDestY, 1).Encode(),                // 2: out y, 1
		asm.Jmp(5, pio.JmpYZero).Encode(),                // 3: jmp !y 5
		asm.Jmp(6, pio.JmpAlways).Delay(2).Encode(),      // 4: jmp 6 [2]
		asm.Set(pio.SetDestPins, 0).Delay(2).Encode(),    // 5: set pins, 0 [2]
		asm.Set(pio.SetDestPins, 0).Encode(),             // 6: set pins, 0
		asm.Jmp(1, pio.JmpOSRNotEmpty).Delay(1).Encode(), // 7: jmp !osre 1 [1]
	},
	Origin:     -1,
	WrapTarget: 0,
	Wrap:       7,
}

var errPixelCount = errors.New("piolib:pixel count out of range")

// WS2812BConfig configures a WS2812B strip. Zero fields take defaults.
type WS2812BConfig struct {
	// CPUFrequency is the system clock the bit timing is derived from.
	CPUFrequency uint32
	// Timeout bounds a frame write. A negative timeout waits forever.
	Timeout time.Duration
}

// WS2812B is an RGB LED strip controller implementation, also known as NeoPixel.
// It keeps a frame of pixels that Display sends out with gamma correction,
// brightness and color balance applied.
type WS2812B struct {
	sm      *piomgr.Handle
	timeout time.Duration
	pixels  []color.RGBA
	words   piomgr.Words

	gamma      [256]uint8
	brightness uint8
	balance    [3]uint8 // r, g, b
}

var _ drivers.Displayer = (*WS2812B)(nil)

// NewWS2812B claims a state machine on m driving a strip of n pixels on pin.
func NewWS2812B(m *piomgr.Manager, pin pio.Pin, n int, cfg WS2812BConfig) (*WS2812B, error) {
	// https://cdn-shop.adafruit.com/datasheets/WS2812B.pdf
	const (
		baseline      = 1250.
		baselinesplit = baseline / 3
		cycle         = baselinesplit / 3
		freq          = uint32(1e9 / cycle)
	)
	if n <= 0 || n > math.MaxInt16 {
		return nil, errPixelCount
	}
	if cfg.CPUFrequency == 0 {
		cfg.CPUFrequency = defaultCPUFrequency
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 50 * time.Millisecond
	}
	whole, frac, err := pio.ClkDivFromFrequency(freq, cfg.CPUFrequency)
	if err != nil {
		return nil, err
	}
	sm, err := m.ClaimOrError(ws2812bProgram)
	if err != nil {
		return nil, err
	}
	sm.ConfigurePin(pin, pio.PullNone)
	sm.Machine().SetPindirsConsecutive(pin, 1, true)
	scfg := sm.DefaultConfig()
	scfg.SetSetPins(pin, 1)
	// Only the TX FIFO is used.
	scfg.SetFIFOJoin(pio.FifoJoinTx)
	scfg.SetClkDivIntFrac(whole, frac)
	scfg.SetOutShift(false, true, 24)
	sm.Init(scfg)

	ws := &WS2812B{
		sm:         sm,
		timeout:    cfg.Timeout,
		pixels:     make([]color.RGBA, n),
		words:      make(piomgr.Words, n),
		brightness: 255,
		balance:    [3]uint8{255, 255, 255},
	}
	ws.SetGamma(1)
	return ws, nil
}

// Size returns the strip length as a display one pixel high.
func (ws *WS2812B) Size() (x, y int16) { return int16(len(ws.pixels)), 1 }

// SetPixel sets pixel x of the frame. Pixels outside the strip are ignored.
func (ws *WS2812B) SetPixel(x, y int16, c color.RGBA) {
	if y != 0 || x < 0 || int(x) >= len(ws.pixels) {
		return
	}
	ws.pixels[x] = c
}

// Display sends the frame to the strip.
func (ws *WS2812B) Display() error { return ws.WriteColors(ws.pixels) }

// SetGamma sets the exponent of the gamma curve applied to each channel.
// Non-positive values select a linear curve.
func (ws *WS2812B) SetGamma(gamma float32) {
	if gamma <= 0 {
		gamma = 1
	}
	for i := range ws.gamma {
		v := math.Pow(float64(i)/255, float64(gamma))
		ws.gamma[i] = uint8(math.Round(v * 255))
	}
}

// SetBrightness scales every channel by b/255.
func (ws *WS2812B) SetBrightness(b uint8) { ws.brightness = b }

// SetColorBalance scales each channel by a factor between 0 and 1.
func (ws *WS2812B) SetColorBalance(r, g, b float32) {
	for i, f := range [3]float32{r, g, b} {
		ws.balance[i] = uint8(math.Round(float64(mathx.Clamp(f, 0, 1)) * 255))
	}
}

func (ws *WS2812B) scale(v uint8, ch int) uint8 {
	s := uint32(ws.gamma[v]) * uint32(ws.balance[ch]) * uint32(ws.brightness)
	return uint8(mathx.RoundDiv(s, 255*255))
}

// Encode returns the GRB transfer word for c after correction.
func (ws *WS2812B) Encode(c color.RGBA) uint32 {
	r, g, b := ws.scale(c.R, 0), ws.scale(c.G, 1), ws.scale(c.B, 2)
	return uint32(g)<<24 | uint32(r)<<16 | uint32(b)<<8
}

// WriteColors sends colors to the strip. It does not touch the frame.
func (ws *WS2812B) WriteColors(colors []color.RGBA) error {
	words := ws.words
	if len(colors) > len(words) {
		words = make(piomgr.Words, len(colors))
	}
	words = words[:len(colors)]
	for i, c := range colors {
		words[i] = ws.Encode(c)
	}
	return ws.WriteRaw(words)
}

// WriteRaw writes raw GRB values to a strip of WS2812B LEDs. Each uint32 is a WS2812B color
// which can be created with 3 uint8 color values:
//
//	color := uint32(g)<<24 | uint32(r)<<16 | uint32(b)<<8
func (ws *WS2812B) WriteRaw(rawGRB []uint32) error {
	if ws.sm.Write(piomgr.Words(rawGRB), ws.timeout) < len(rawGRB) {
		return errTimeout
	}
	return nil
}

// Close stops the strip and releases its state machine.
func (ws *WS2812B) Close() { ws.sm.Release() }

// StripMapping assigns a window of a shared color buffer to one strip.
type StripMapping struct {
	Strip  *WS2812B
	Offset int
	Len    int
}

// WriteParallel sends each mapped window of colors to its strip. The
// strips' FIFOs are filled round robin so they run concurrently. Windows
// reaching past colors are clipped. A zero timeout writes only what fits
// right away and a negative one waits forever.
func WriteParallel(colors []color.RGBA, mappings []StripMapping, timeout time.Duration) error {
	type lane struct {
		ws       *WS2812B
		pos, end int
	}
	lanes := make([]lane, 0, len(mappings))
	for _, mp := range mappings {
		start := mathx.Clamp(mp.Offset, 0, len(colors))
		end := mathx.Clamp(mp.Offset+mp.Len, start, len(colors))
		lanes = append(lanes, lane{ws: mp.Strip, pos: start, end: end})
	}
	dl := newDeadline(timeout)
	for {
		busy := false
		for i := range lanes {
			l := &lanes[i]
			for l.pos < l.end && l.ws.sm.TryWrite(l.ws.Encode(colors[l.pos])) {
				l.pos++
			}
			busy = busy || l.pos < l.end
		}
		if !busy {
			return nil
		}
		if dl.expired() {
			return errTimeout
		}
		gosched()
	}
}
