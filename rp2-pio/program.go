package pio

// Program is an assembled PIO program together with the metadata pioasm
// emits next to it. Programs are identified by pointer: drivers declare them
// as package level variables and share them between handles.
type Program struct {
	Name         string
	Instructions []uint16
	// Origin is the fixed load address, or -1 when the program is relocatable.
	Origin int8
	// WrapTarget and Wrap are relative to the first instruction.
	WrapTarget uint8
	Wrap       uint8
	// SidesetBits counts the optional enable bit when SidesetOptional is set.
	SidesetBits     uint8
	SidesetOptional bool
	SidesetPindirs  bool
}

// Len returns the number of instruction slots the program occupies.
func (p *Program) Len() uint8 { return uint8(len(p.Instructions)) }

// DefaultConfig returns a state machine configuration with the wrap and
// side-set parameters of the program loaded at offset.
func (p *Program) DefaultConfig(offset uint8) StateMachineConfig {
	cfg := DefaultStateMachineConfig()
	cfg.SetWrap(offset+p.WrapTarget, offset+p.Wrap)
	if p.SidesetBits > 0 {
		cfg.SetSidesetParams(p.SidesetBits, p.SidesetOptional, p.SidesetPindirs)
	}
	return cfg
}
