package piomgr

import (
	"sync"
	"sync/atomic"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/internal/refcache"
)

type lineKey struct {
	block uint8
	irq   uint8
}

type sourceKey struct {
	block  uint8
	irq    uint8
	source pio.IRQSource // single bit
}

type subscriber struct {
	id     uint32
	source pio.IRQSource
	fn     func(pio.IRQSource)
}

// dispatcher is the handler installed on one interrupt line. It fans
// interrupts out to subscribers. The subscriber list is replaced, never
// mutated, so the handler reads it without locking.
type dispatcher struct {
	mu     sync.Mutex
	nextID uint32
	subs   atomic.Pointer[[]subscriber]
}

func (d *dispatcher) handle(_, _ uint8, pending pio.IRQSource) {
	subs := d.subs.Load()
	if subs == nil {
		return
	}
	for _, s := range *subs {
		if p := pending & s.source; p != 0 {
			s.fn(p)
		}
	}
}

func (d *dispatcher) add(source pio.IRQSource, fn func(pio.IRQSource)) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	var subs []subscriber
	if old := d.subs.Load(); old != nil {
		subs = append(subs, *old...)
	}
	subs = append(subs, subscriber{id: d.nextID, source: source, fn: fn})
	d.subs.Store(&subs)
	return d.nextID
}

func (d *dispatcher) remove(id uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.subs.Load()
	if old == nil {
		return
	}
	subs := make([]subscriber, 0, len(*old))
	for _, s := range *old {
		if s.id != id {
			subs = append(subs, s)
		}
	}
	d.subs.Store(&subs)
}

func (m *Manager) installDispatcher(k lineKey) (*dispatcher, error) {
	d := &dispatcher{}
	if err := m.blocks[k.block].SetInterrupt(k.irq, d.handle); err != nil {
		return nil, err
	}
	m.log.Debug("interrupt line hooked", "block", k.block, "irq", k.irq)
	return d, nil
}

func (m *Manager) removeDispatcher(k lineKey, _ *dispatcher) {
	m.blocks[k.block].SetInterrupt(k.irq, nil)
	m.log.Debug("interrupt line released", "block", k.block, "irq", k.irq)
}

func (m *Manager) enableSource(k sourceKey) (struct{}, error) {
	m.blocks[k.block].SetInterruptSource(k.irq, k.source, true)
	return struct{}{}, nil
}

func (m *Manager) disableSource(k sourceKey, _ struct{}) {
	m.blocks[k.block].SetInterruptSource(k.irq, k.source, false)
}

// Subscription is a registered interrupt callback together with the
// interrupt line and sources it keeps enabled.
type Subscription struct {
	mgr     *Manager
	line    *refcache.Ref[*dispatcher]
	sources []*refcache.Ref[struct{}]
	id      uint32
	once    sync.Once
}

// Subscribe calls fn from interrupt context while any of source is pending
// on interrupt line irq of block. Line handlers and sources are shared
// between subscribers and disabled when the last subscriber closes.
func (m *Manager) Subscribe(block pio.Block, irq uint8, source pio.IRQSource, fn func(pio.IRQSource)) (*Subscription, error) {
	pos, err := m.blockPos(block)
	if err != nil {
		return nil, err
	}
	return m.subscribe(pos, irq, source, fn)
}

func (m *Manager) subscribe(pos, irq uint8, source pio.IRQSource, fn func(pio.IRQSource)) (*Subscription, error) {
	line, err := m.lines.GetOrCreate(lineKey{block: pos, irq: irq})
	if err != nil {
		return nil, err
	}
	s := &Subscription{mgr: m, line: line}
	// Register before enabling so an already pending source reaches fn.
	s.id = line.Value().add(source, fn)
	for bit := pio.IRQSource(1); bit != 0 && bit <= source; bit <<= 1 {
		if source&bit == 0 {
			continue
		}
		ref, err := m.sources.GetOrCreate(sourceKey{block: pos, irq: irq, source: bit})
		if err != nil {
			s.release()
			return nil, err
		}
		s.sources = append(s.sources, ref)
	}
	m.live.Add(1)
	return s, nil
}

// Close removes the callback and releases the line and sources. It is safe
// to call more than once.
func (s *Subscription) Close() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.release()
		s.mgr.live.Add(-1)
	})
	return nil
}

func (s *Subscription) release() {
	for _, ref := range s.sources {
		ref.Release()
	}
	s.sources = nil
	s.line.Value().remove(s.id)
	s.line.Release()
}
