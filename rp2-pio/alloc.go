package pio

import "sync"

// resources tracks the instruction memory and state machine claims of one
// block. It is shared by the hardware and simulated backends.
type resources struct {
	mu sync.Mutex
	// Bitmask of used instruction space. Each PIO has 32 slots for instructions.
	usedSpaceMask uint32
	// Bitmask of used state machines. Each PIO has 4 state machines.
	claimedSMMask uint8
}

// addProgram reserves space for instructions and stores them through write,
// relocating jumps by the load offset.
func (r *resources) addProgram(instructions []uint16, origin int8, write func(addr uint8, instr uint16)) (offset uint8, _ error) {
	if len(instructions) == 0 || len(instructions) > programSpace {
		panic(badProgramBounds)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	maybeOffset := findOffsetForProgram(r.usedSpaceMask, len(instructions), origin)
	if maybeOffset < 0 {
		return 0, ErrOutOfProgramSpace
	}
	offset = uint8(maybeOffset)
	for i, instr := range instructions {
		write(offset+uint8(i), relocate(instr, offset))
	}
	r.usedSpaceMask |= programMask(len(instructions)) << offset
	return offset, nil
}

// addProgramAtOffset is addProgram with a caller-chosen offset.
func (r *resources) addProgramAtOffset(instructions []uint16, origin int8, offset uint8, write func(addr uint8, instr uint16)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !canAddAt(r.usedSpaceMask, len(instructions), origin, offset) {
		return ErrNoSpaceAtOffset
	}
	for i, instr := range instructions {
		write(offset+uint8(i), relocate(instr, offset))
	}
	r.usedSpaceMask |= programMask(len(instructions)) << offset
	return nil
}

// removeProgram frees a program section, overwriting it with trap jumps so a
// state machine still pointing into it spins instead of running stale code.
func (r *resources) removeProgram(offset, length uint8, write func(addr uint8, instr uint16)) {
	if int(offset)+int(length) > programSpace {
		panic(badProgramBounds)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	trap := EncodeJmp(offset, JmpAlways)
	for i := offset; i < offset+length; i++ {
		write(i, trap)
	}
	r.usedSpaceMask &^= programMask(int(length)) << offset
}

// claimAny claims the lowest free state machine index.
func (r *resources) claimAny() (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := uint8(0); i < numStateMachines; i++ {
		if r.claimedSMMask&(1<<i) == 0 {
			r.claimedSMMask |= 1 << i
			return i, true
		}
	}
	return 0, false
}

func (r *resources) unclaim(index uint8) {
	r.mu.Lock()
	r.claimedSMMask &^= 1 << index
	r.mu.Unlock()
}

func (r *resources) isClaimed(index uint8) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimedSMMask&(1<<index) != 0
}

func (r *resources) hasFree() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.claimedSMMask != 1<<numStateMachines-1
}

func (r *resources) used() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usedSpaceMask
}

func programMask(n int) uint32 {
	if n >= 32 {
		return 0xffff_ffff
	}
	return uint32(1)<<n - 1
}

func canAddAt(used uint32, n int, origin int8, offset uint8) bool {
	// Non-relocatable programs must be added at offset
	if origin >= 0 && origin != int8(offset) {
		return false
	}
	if int(offset)+n > programSpace {
		return false
	}
	return used&(programMask(n)<<offset) == 0
}

func findOffsetForProgram(used uint32, n int, origin int8) int8 {
	mask := programMask(n)
	// Program has fixed offset (not relocatable)
	if origin >= 0 {
		if int(origin) > programSpace-n {
			return -1
		}
		if used&(mask<<origin) != 0 {
			return -1
		}
		return origin
	}

	// work down from the top always
	for i := programSpace - n; i >= 0; i-- {
		if used&(mask<<uint32(i)) == 0 {
			return int8(i)
		}
	}
	return -1
}

// relocate patches jump instructions with the program's load offset.
func relocate(instr uint16, offset uint8) uint16 {
	if instr&_INSTR_BITS_Msk == _INSTR_BITS_JMP {
		return instr + uint16(offset)
	}
	return instr
}
