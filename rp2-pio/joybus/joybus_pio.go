package joybus

import pio "github.com/picohal/pio/rp2-pio"

// Both programs run at 8MHz so a 4µs bit cell is 32 cycles. The line is
// open drain: a pindir of 1 pulls it low, 0 releases it to the pull-up.
var asm pio.AssemblerV0

// .program joybus_host
// .wrap_target
//
//	out x, 32             ; request bit count - 1
//
// send:
//
//	set pindirs, 1 [7]    ; 1µs low
//	out pindirs, 1 [15]   ; 2µs inverted data
//	set pindirs, 0 [6]    ; 1µs high
//	jmp x-- send
//	set pindirs, 1 [7]    ; stop bit
//	set pindirs, 0
//	out x, 32             ; response bit count - 1
//
// receive:
//
//	wait 0 pin 0
//	nop [15]              ; sample mid cell
//	in pins, 1
//	wait 1 pin 0
//	jmp x-- receive
//	wait 0 pin 0          ; device stop bit
//	wait 1 pin 0
//
// .wrap
var hostProgram = &pio.Program{
	Name: "joybus_host",
	Instructions: []uint16{
		asm.Out(pio.OutDestX, 32).Encode(),                //  0: out x, 32
		asm.Set(pio.SetDestPindirs, 1).Delay(7).Encode(),  //  1: set pindirs, 1 [7]
		asm.Out(pio.OutDestPindirs, 1).Delay(15).Encode(), //  2: out pindirs, 1 [15]
		asm.Set(pio.SetDestPindirs, 0).Delay(6).Encode(),  //  3: set pindirs, 0 [6]
		asm.Jmp(1, pio.JmpXNZeroDec).Encode(),             //  4: jmp x-- 1
		asm.Set(pio.SetDestPindirs, 1).Delay(7).Encode(),  //  5: set pindirs, 1 [7]
		asm.Set(pio.SetDestPindirs, 0).Encode(),           //  6: set pindirs, 0
		asm.Out(pio.OutDestX, 32).Encode(),                //  7: out x, 32
		asm.WaitPin(false, 0).Encode(),                    //  8: wait 0 pin 0
		asm.Nop().Delay(15).Encode(),                      //  9: nop [15]
		asm.In(pio.InSrcPins, 1).Encode(),                 // 10: in pins, 1
		asm.WaitPin(true, 0).Encode(),                     // 11: wait 1 pin 0
		asm.Jmp(8, pio.JmpXNZeroDec).Encode(),             // 12: jmp x-- 8
		asm.WaitPin(false, 0).Encode(),                    // 13: wait 0 pin 0
		asm.WaitPin(true, 0).Encode(),                     // 14: wait 1 pin 0
	},
	Origin:     -1,
	WrapTarget: 0,
	Wrap:       14,
}

// .program joybus_client
// .wrap_target
// start:
//
//	mov isr, null
//	wait 0 pin 0 [13]     ; first falling edge, then mid cell
//
// bit:
//
//	in pins, 1
//	wait 1 pin 0
//	set x, 31
//
// idle:
//
//	jmp pin high
//	jmp bit [13]          ; next falling edge
//
// high:
//
//	jmp x-- idle
//	mov isr, null         ; line idle, request done; drop the stop bit
//
// reply:
//
//	out x, 1              ; more-data flag of the next word
//	jmp !x stop
//	set y, 7
//
// send:
//
//	set pindirs, 1 [7]
//	out pindirs, 1 [15]
//	set pindirs, 0 [6]
//	jmp y-- send
//	jmp reply
//
// stop:
//
//	set pindirs, 1 [15]   ; 2µs stop bit
//	set pindirs, 0
//	out null, 8           ; rest of the terminator word
//	jmp start
//
// .wrap
var clientProgram = &pio.Program{
	Name: "joybus_client",
	Instructions: []uint16{
		asm.Mov(pio.MovDestISR, pio.MovSrcNull).Encode(),  //  0: mov isr, null
		asm.WaitPin(false, 0).Delay(13).Encode(),          //  1: wait 0 pin 0 [13]
		asm.In(pio.InSrcPins, 1).Encode(),                 //  2: in pins, 1
		asm.WaitPin(true, 0).Encode(),                     //  3: wait 1 pin 0
		asm.Set(pio.SetDestX, 31).Encode(),                //  4: set x, 31
		asm.Jmp(7, pio.JmpPinInput).Encode(),              //  5: jmp pin 7
		asm.Jmp(2, pio.JmpAlways).Delay(13).Encode(),      //  6: jmp 2 [13]
		asm.Jmp(5, pio.JmpXNZeroDec).Encode(),             //  7: jmp x-- 5
		asm.Mov(pio.MovDestISR, pio.MovSrcNull).Encode(),  //  8: mov isr, null
		asm.Out(pio.OutDestX, 1).Encode(),                 //  9: out x, 1
		asm.Jmp(17, pio.JmpXZero).Encode(),                // 10: jmp !x 17
		asm.Set(pio.SetDestY, 7).Encode(),                 // 11: set y, 7
		asm.Set(pio.SetDestPindirs, 1).Delay(7).Encode(),  // 12: set pindirs, 1 [7]
		asm.Out(pio.OutDestPindirs, 1).Delay(15).Encode(), // 13: out pindirs, 1 [15]
		asm.Set(pio.SetDestPindirs, 0).Delay(6).Encode(),  // 14: set pindirs, 0 [6]
		asm.Jmp(12, pio.JmpYNZeroDec).Encode(),            // 15: jmp y-- 12
		asm.Jmp(9, pio.JmpAlways).Encode(),                // 16: jmp 9
		asm.Set(pio.SetDestPindirs, 1).Delay(15).Encode(), // 17: set pindirs, 1 [15]
		asm.Set(pio.SetDestPindirs, 0).Encode(),           // 18: set pindirs, 0
		asm.Out(pio.OutDestNull, 8).Encode(),              // 19: out null, 8
		asm.Jmp(0, pio.JmpAlways).Encode(),                // 20: jmp 0
	},
	Origin:     -1,
	WrapTarget: 0,
	Wrap:       20,
}

const bitRate = 8_000_000

// programConfig returns the lane configuration shared by host and client:
// every pin mapping on the one data pin and the 8MHz clock.
func programConfig(prog *pio.Program, offset uint8, pin pio.Pin, cpuFreq uint32) (pio.StateMachineConfig, error) {
	whole, frac, err := pio.ClkDivFromFrequency(bitRate, cpuFreq)
	if err != nil {
		return pio.StateMachineConfig{}, err
	}
	cfg := prog.DefaultConfig(offset)
	cfg.SetClkDivIntFrac(whole, frac)
	cfg.SetInPins(pin)
	cfg.SetOutPins(pin, 1)
	cfg.SetSetPins(pin, 1)
	cfg.SetJmpPin(pin)
	cfg.SetInShift(false, true, 8)
	return cfg, nil
}
