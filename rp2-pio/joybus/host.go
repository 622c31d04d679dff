package joybus

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

var (
	ErrShortWrite = errors.New("joybus: short write")
	ErrShortRead  = errors.New("joybus: short read")
	ErrBufferSize = errors.New("joybus: bad buffer size")
)

// HostConfig holds the timing of a Host. Zero fields take the defaults of
// DefaultHostConfig.
type HostConfig struct {
	// ReadTimeout and WriteTimeout bound each FIFO transfer of an exchange.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CommandInterval is the minimum gap after an exchange before the next
	// request is sent. AccessoryInterval replaces it after accessory commands.
	CommandInterval   time.Duration
	AccessoryInterval time.Duration
	// CPUFrequency is the system clock the lane divider is derived from.
	CPUFrequency uint32
}

// DefaultHostConfig returns the timing used by N64 consoles.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		ReadTimeout:       5 * time.Millisecond,
		WriteTimeout:      5 * time.Millisecond,
		CommandInterval:   150 * time.Microsecond,
		AccessoryInterval: 500 * time.Microsecond,
		CPUFrequency:      125_000_000,
	}
}

func (cfg HostConfig) withDefaults() HostConfig {
	def := DefaultHostConfig()
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.CommandInterval == 0 {
		cfg.CommandInterval = def.CommandInterval
	}
	if cfg.AccessoryInterval == 0 {
		cfg.AccessoryInterval = def.AccessoryInterval
	}
	if cfg.CPUFrequency == 0 {
		cfg.CPUFrequency = def.CPUFrequency
	}
	return cfg
}

// Host sends joybus requests on one pin and reads the replies, the way a
// console talks to a controller. A Host is not safe for concurrent use.
type Host struct {
	sm  *piomgr.Handle
	cfg HostConfig
	log *slog.Logger
	// allowed is the earliest time the next request may start.
	allowed time.Time
}

// NewHost claims a state machine on m running the host program on pin.
func NewHost(m *piomgr.Manager, pin pio.Pin, cfg HostConfig) (*Host, error) {
	cfg = cfg.withDefaults()
	sm, err := m.ClaimOrError(hostProgram)
	if err != nil {
		return nil, err
	}
	scfg, err := programConfig(hostProgram, sm.Offset(), pin, cfg.CPUFrequency)
	if err != nil {
		sm.Release()
		return nil, err
	}
	scfg.SetOutShift(false, true, 8)
	sm.ConfigurePin(pin, pio.PullNone)
	sm.Machine().SetPindirsConsecutive(pin, 1, false)
	sm.Init(scfg)
	return &Host{sm: sm, cfg: cfg, log: m.Logger()}, nil
}

// Command sends a request made of cmd alone and reads resp.Len() reply bytes.
func (h *Host) Command(cmd Command, resp piomgr.Buffer) error {
	return h.exchange(&request{cmd: cmd}, resp, nil)
}

// ReadCommand sends cmd with addr and reads resp followed by the CRC byte
// the device computed over it. addr is sent as given; use AddressChecksum
// for accessory addresses.
func (h *Host) ReadCommand(cmd Command, addr uint16, resp piomgr.Buffer) (crc uint8, err error) {
	err = h.exchange(&request{cmd: cmd, addr: addr, hasAddr: true}, resp, &crc)
	return crc, err
}

// WriteCommand sends cmd with addr and payload and reads the CRC byte the
// device computed over the payload.
func (h *Host) WriteCommand(cmd Command, addr uint16, payload []byte) (crc uint8, err error) {
	err = h.exchange(&request{cmd: cmd, addr: addr, hasAddr: true, payload: payload}, nil, &crc)
	return crc, err
}

func (h *Host) exchange(req *request, resp piomgr.Buffer, crc *uint8) error {
	if resp != nil {
		req.respLen = resp.Len()
	}
	if crc != nil {
		req.respLen++
	}
	if req.respLen == 0 {
		return fmt.Errorf("%w: %v expects no reply", ErrBufferSize, req.cmd)
	}
	if d := time.Until(h.allowed); d > 0 {
		time.Sleep(d)
	}
	interval := h.cfg.CommandInterval
	if req.cmd.accessory() {
		interval = h.cfg.AccessoryInterval
	}
	defer func() { h.allowed = time.Now().Add(interval) }()

	if n := h.sm.Write(req, h.cfg.WriteTimeout); n != req.Len() {
		return h.fail(ErrShortWrite, req.cmd, n, req.Len())
	}
	if resp != nil {
		if n := h.sm.Read(resp, h.cfg.ReadTimeout); n != resp.Len() {
			return h.fail(ErrShortRead, req.cmd, n, resp.Len())
		}
	}
	if crc != nil {
		b := Bytes{0}
		if n := h.sm.Read(b, h.cfg.ReadTimeout); n != 1 {
			return h.fail(ErrShortRead, req.cmd, 0, 1)
		}
		*crc = b[0]
	}
	return nil
}

// fail resynchronizes the lane after a short transfer.
func (h *Host) fail(err error, cmd Command, n, want int) error {
	h.sm.Reset()
	h.log.Debug("joybus transfer short", "cmd", cmd, "err", err, "n", n, "want", want)
	return fmt.Errorf("%w: %v transferred %d of %d units", err, cmd, n, want)
}

// Close stops the state machine and releases it.
func (h *Host) Close() { h.sm.Release() }
