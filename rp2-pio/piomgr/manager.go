// Package piomgr shares the state machines and instruction memory of a set
// of PIO blocks between drivers.
//
// Drivers ask a Manager for a Handle to a state machine running their
// program. Programs are loaded once per block and reference counted: the
// instruction memory is freed when the last Handle running a program on a
// block is released.
package piomgr

import (
	"errors"
	"log/slog"
	"sync/atomic"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/internal/refcache"
)

var (
	// ErrNoResources is returned when no block can host another state machine
	// running the requested program.
	ErrNoResources = errors.New("piomgr: no free state machine or program space")
	// ErrInUse is returned by Close while handles or interrupt subscriptions are alive.
	ErrInUse = errors.New("piomgr: resources still in use")
	// ErrUnknownBlock is returned for a block the Manager was not created with.
	ErrUnknownBlock = errors.New("piomgr: block not managed")
)

type programKey struct {
	block uint8
	prog  *pio.Program
}

// LoadedProgram is a program resident in the instruction memory of one block.
type LoadedProgram struct {
	Program *pio.Program
	Block   pio.Block
	Offset  uint8
}

// Manager owns the program and interrupt caches of a set of blocks.
type Manager struct {
	blocks   []pio.Block
	log      *slog.Logger
	programs *refcache.Cache[programKey, *LoadedProgram]
	lines    *refcache.Cache[lineKey, *dispatcher]
	sources  *refcache.Cache[sourceKey, struct{}]
	// live counts handles and subscriptions not yet released.
	live atomic.Int32
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for resource events. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New returns a Manager for blocks. Blocks are searched in the given order.
func New(blocks []pio.Block, opts ...Option) *Manager {
	m := &Manager{
		blocks: blocks,
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.programs = refcache.New(m.loadProgram, m.unloadProgram)
	m.lines = refcache.New(m.installDispatcher, m.removeDispatcher)
	m.sources = refcache.New(m.enableSource, m.disableSource)
	return m
}

// Blocks returns the managed blocks.
func (m *Manager) Blocks() []pio.Block { return m.blocks }

// Logger returns the Manager's logger for use by drivers.
func (m *Manager) Logger() *slog.Logger { return m.log }

func (m *Manager) loadProgram(k programKey) (*LoadedProgram, error) {
	b := m.blocks[k.block]
	offset, err := b.AddProgram(k.prog.Instructions, k.prog.Origin)
	if err != nil {
		return nil, err
	}
	m.log.Debug("program loaded", "program", k.prog.Name, "block", k.block, "offset", offset)
	return &LoadedProgram{Program: k.prog, Block: b, Offset: offset}, nil
}

func (m *Manager) unloadProgram(k programKey, lp *LoadedProgram) {
	lp.Block.RemoveProgram(lp.Offset, lp.Program.Len())
	m.log.Debug("program unloaded", "program", k.prog.Name, "block", k.block, "offset", lp.Offset)
}

// Claim returns a handle to a state machine running prog. A block already
// hosting prog with a free state machine is preferred; otherwise prog is
// loaded onto the first block that does not host it and has a free state
// machine and program space. When no block qualifies the returned handle is
// not loaded.
func (m *Manager) Claim(prog *pio.Program) *Handle {
	for i, b := range m.blocks {
		ref, ok := m.programs.Get(programKey{block: uint8(i), prog: prog})
		if !ok {
			continue
		}
		if h := m.claimOn(uint8(i), b, ref); h != nil {
			return h
		}
	}
	for i, b := range m.blocks {
		key := programKey{block: uint8(i), prog: prog}
		if m.programs.Contains(key) || !b.HasFreeStateMachine() {
			continue
		}
		ref, err := m.programs.GetOrCreate(key)
		if err != nil {
			m.log.Debug("program load failed", "program", prog.Name, "block", i, "err", err)
			continue
		}
		if h := m.claimOn(uint8(i), b, ref); h != nil {
			return h
		}
	}
	m.log.Warn("no state machine available", "program", prog.Name)
	return &Handle{}
}

// ClaimOrError is Claim returning ErrNoResources instead of an unloaded handle.
func (m *Manager) ClaimOrError(prog *pio.Program) (*Handle, error) {
	h := m.Claim(prog)
	if !h.Loaded() {
		return nil, ErrNoResources
	}
	return h, nil
}

// claimOn claims a state machine on b. ref is consumed: it moves into the
// handle or is released.
func (m *Manager) claimOn(pos uint8, b pio.Block, ref *refcache.Ref[*LoadedProgram]) *Handle {
	sm, err := b.ClaimStateMachine()
	if err != nil {
		ref.Release()
		return nil
	}
	m.live.Add(1)
	lp := ref.Value()
	m.log.Debug("state machine claimed", "program", lp.Program.Name, "block", pos, "sm", sm.StateMachineIndex())
	return &Handle{mgr: m, pos: pos, sm: sm, prog: ref}
}

// Resident reports whether prog is loaded on the block at position block.
func (m *Manager) Resident(block int, prog *pio.Program) bool {
	return m.programs.Contains(programKey{block: uint8(block), prog: prog})
}

// Close checks that every handle and subscription was released and drops
// the caches.
func (m *Manager) Close() error {
	if n := m.live.Load(); n != 0 {
		m.log.Warn("manager closed with live resources", "count", n)
		return ErrInUse
	}
	m.programs.Clean()
	m.lines.Clean()
	m.sources.Clean()
	return nil
}

func (m *Manager) blockPos(b pio.Block) (uint8, error) {
	for i, mb := range m.blocks {
		if mb == b {
			return uint8(i), nil
		}
	}
	return 0, ErrUnknownBlock
}
