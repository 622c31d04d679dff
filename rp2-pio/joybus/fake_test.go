package joybus

import (
	"runtime"
	"sync"
	"testing"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

const testPin pio.Pin = 16

// fakeDevice plays the device end of a host lane on a simulated block. It
// decodes each request frame from the words the host puts and answers with
// the bytes returned by respond. A nil answer leaves the host waiting.
type fakeDevice struct {
	sim *pio.SimBlock
	sm  uint8

	mu      sync.Mutex
	respond func(req []byte) []byte
	words   []uint32
	reqs    [][]byte
	starts  []time.Time

	phase    int // 0 request length, 1 request bytes, 2 response length
	sendLeft int
	cur      []byte
}

func (d *fakeDevice) put(w uint32) {
	d.mu.Lock()
	d.words = append(d.words, w)
	switch d.phase {
	case 0:
		d.starts = append(d.starts, time.Now())
		d.sendLeft = int(w+1) / 8
		d.cur = nil
		d.phase = 1
	case 1:
		d.cur = append(d.cur, ^byte(w>>24))
		if d.sendLeft--; d.sendLeft == 0 {
			d.phase = 2
		}
	case 2:
		d.phase = 0
		req := d.cur
		d.reqs = append(d.reqs, req)
		respond := d.respond
		d.mu.Unlock()
		var resp []byte
		if respond != nil {
			resp = respond(req)
		}
		if len(resp) > 0 {
			words := make([]uint32, len(resp))
			for i, b := range resp {
				words[i] = uint32(b)
			}
			go d.feed(words)
		}
		return
	}
	d.mu.Unlock()
}

// feed pushes words as the RX FIFO makes room, as the program would while
// shifting in the reply.
func (d *fakeDevice) feed(words []uint32) {
	deadline := time.Now().Add(time.Second)
	for len(words) > 0 && time.Now().Before(deadline) {
		n := d.sim.Inject(d.sm, words...)
		words = words[n:]
		runtime.Gosched()
	}
}

func (d *fakeDevice) setRespond(fn func(req []byte) []byte) {
	d.mu.Lock()
	d.respond = fn
	d.mu.Unlock()
}

func (d *fakeDevice) requests() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.reqs...)
}

func (d *fakeDevice) rawWords() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint32(nil), d.words...)
}

func (d *fakeDevice) reset() {
	d.mu.Lock()
	d.words, d.reqs, d.starts = nil, nil, nil
	d.phase = 0
	d.mu.Unlock()
}

// fastHostConfig keeps exchanges with an answering device quick and makes
// silent devices fail within a few milliseconds.
func fastHostConfig() HostConfig {
	return HostConfig{
		ReadTimeout:       20 * time.Millisecond,
		WriteTimeout:      20 * time.Millisecond,
		CommandInterval:   time.Microsecond,
		AccessoryInterval: time.Microsecond,
	}
}

func newTestHost(t *testing.T, cfg HostConfig) (*Host, *fakeDevice) {
	t.Helper()
	sim := pio.NewSimBlock(0)
	m := piomgr.New([]pio.Block{sim})
	h, err := NewHost(m, testPin, cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(h.Close)
	d := &fakeDevice{sim: sim, sm: h.sm.Machine().StateMachineIndex()}
	sim.OnPut(d.sm, d.put)
	return h, d
}

func withCRC(data []byte) []byte {
	return append(append([]byte(nil), data...), CRC8(data))
}
