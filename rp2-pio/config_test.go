package pio

import "testing"

func TestDefaultStateMachineConfig(t *testing.T) {
	cfg := DefaultStateMachineConfig()
	// Register values of pio_get_default_sm_config in the c-sdk.
	if cfg.ClkDiv != 0x0001_0000 {
		t.Errorf("clkdiv: got %#x", cfg.ClkDiv)
	}
	if cfg.ExecCtrl != 0x0001_f000 {
		t.Errorf("execctrl: got %#x", cfg.ExecCtrl)
	}
	if cfg.ShiftCtrl != 0x000c_0000 {
		t.Errorf("shiftctrl: got %#x", cfg.ShiftCtrl)
	}
	if cfg.PinCtrl != 0 {
		t.Errorf("pinctrl: got %#x", cfg.PinCtrl)
	}
}

func TestStateMachineConfigSetters(t *testing.T) {
	var tests = []struct {
		name  string
		apply func(*StateMachineConfig)
		want  StateMachineConfig
	}{
		{
			name:  "clkdiv",
			apply: func(c *StateMachineConfig) { c.SetClkDivIntFrac(15, 160) },
			want:  StateMachineConfig{ClkDiv: 15<<16 | 160<<8},
		},
		{
			name:  "wrap",
			apply: func(c *StateMachineConfig) { c.SetWrap(3, 9) },
			want:  StateMachineConfig{ExecCtrl: 3<<7 | 9<<12},
		},
		{
			name:  "in shift left autopush 8",
			apply: func(c *StateMachineConfig) { c.SetInShift(false, true, 8) },
			want:  StateMachineConfig{ShiftCtrl: 1<<16 | 8<<20},
		},
		{
			name:  "out shift left autopull 24",
			apply: func(c *StateMachineConfig) { c.SetOutShift(false, true, 24) },
			want:  StateMachineConfig{ShiftCtrl: 1<<17 | 24<<25},
		},
		{
			name: "pins",
			apply: func(c *StateMachineConfig) {
				c.SetOutPins(2, 1)
				c.SetSetPins(2, 1)
				c.SetInPins(2)
				c.SetSidesetPins(4)
			},
			want: StateMachineConfig{PinCtrl: 2 | 2<<5 | 4<<10 | 2<<15 | 1<<20 | 1<<26},
		},
		{
			name:  "jmp pin",
			apply: func(c *StateMachineConfig) { c.SetJmpPin(7) },
			want:  StateMachineConfig{ExecCtrl: 7 << 24},
		},
		{
			name:  "sideset optional",
			apply: func(c *StateMachineConfig) { c.SetSidesetParams(2, true, false) },
			want:  StateMachineConfig{PinCtrl: 2 << 29, ExecCtrl: 1 << 30},
		},
		{
			name:  "join tx",
			apply: func(c *StateMachineConfig) { c.SetFIFOJoin(FifoJoinTx) },
			want:  StateMachineConfig{ShiftCtrl: 1 << 30},
		},
		{
			name:  "join rx",
			apply: func(c *StateMachineConfig) { c.SetFIFOJoin(FifoJoinRx) },
			want:  StateMachineConfig{ShiftCtrl: 1 << 31},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var cfg StateMachineConfig
			test.apply(&cfg)
			if cfg != test.want {
				t.Errorf("got %+v, want %+v", cfg, test.want)
			}
		})
	}
}

func TestFIFODepths(t *testing.T) {
	for _, test := range []struct {
		join   FifoJoin
		tx, rx int
	}{
		{FifoJoinNone, 4, 4},
		{FifoJoinTx, 8, 0},
		{FifoJoinRx, 0, 8},
	} {
		cfg := DefaultStateMachineConfig()
		cfg.SetFIFOJoin(test.join)
		if cfg.FIFOJoin() != test.join {
			t.Errorf("join %d: read back %d", test.join, cfg.FIFOJoin())
		}
		tx, rx := cfg.FIFODepths()
		if tx != test.tx || rx != test.rx {
			t.Errorf("join %d: got depths %d/%d, want %d/%d", test.join, tx, rx, test.tx, test.rx)
		}
	}
}

func TestClkDiv(t *testing.T) {
	whole, frac, err := ClkDivFromFrequency(8_000_000, 125_000_000)
	if err != nil || whole != 15 || frac != 160 {
		t.Errorf("8MHz from 125MHz: got %d+%d/256 err=%v", whole, frac, err)
	}
	whole, frac, err = ClkDivFromPeriod(8, 125_000_000)
	if err != nil || whole != 1 || frac != 0 {
		t.Errorf("8ns period: got %d+%d/256 err=%v", whole, frac, err)
	}
	if _, _, err = ClkDivFromFrequency(250_000_000, 125_000_000); err == nil {
		t.Error("expected error for frequency above CPU clock")
	}
	if _, _, err = ClkDivFromFrequency(1, 125_000_000); err == nil {
		t.Error("expected error for divider above 65535")
	}
}

func TestProgramDefaultConfig(t *testing.T) {
	p := &Program{Instructions: make([]uint16, 8), Origin: -1, WrapTarget: 1, Wrap: 7, SidesetBits: 1}
	cfg := p.DefaultConfig(10)
	target, wrap := cfg.Wrap()
	if target != 11 || wrap != 17 {
		t.Errorf("wrap: got %d..%d, want 11..17", target, wrap)
	}
	if cfg.PinCtrl>>29 != 1 {
		t.Errorf("sideset count: got %d", cfg.PinCtrl>>29)
	}
}
