package joybus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pio "github.com/picohal/pio/rp2-pio"
	"github.com/picohal/pio/rp2-pio/piomgr"
)

var ErrClosed = errors.New("joybus: client closed")

// Handler supplies the device side of a Client.
type Handler interface {
	// ReceiveCommand is called with the opcode of each request. It returns
	// the buffer receiving the request payload, or nil if there is none.
	ReceiveCommand(cmd Command) piomgr.Buffer
	// SendResult is called once the request is complete and returns the
	// reply, or nil to send none.
	SendResult() piomgr.Buffer
}

// ClientState is the position of a Client within a request.
type ClientState uint8

const (
	WaitingForCommand ClientState = iota
	ReceivingRequest
	SendingReply
	Stopping
)

func (s ClientState) String() string {
	switch s {
	case WaitingForCommand:
		return "waiting"
	case ReceivingRequest:
		return "receiving"
	case SendingReply:
		return "sending"
	case Stopping:
		return "stopping"
	}
	return "invalid"
}

// ClientConfig configures a Client. Zero fields take defaults.
type ClientConfig struct {
	// IRQ is the interrupt line of the block used for FIFO events.
	IRQ uint8
	// CPUFrequency is the system clock the lane divider is derived from.
	CPUFrequency uint32
	// RequestTimeout bounds the gap between request bytes. A request cut
	// short is abandoned once it passes. Zero selects one millisecond.
	RequestTimeout time.Duration
}

const (
	eventRx uint32 = 1 << iota
	eventTx
)

// Client answers joybus requests on one pin, the way a controller answers
// a console. FIFO interrupts only record events; Run services them.
type Client struct {
	sm      *piomgr.Handle
	block   pio.Block
	handler Handler
	log     *slog.Logger
	irq     uint8
	rxSrc   pio.IRQSource
	txSrc   pio.IRQSource
	rxSub   *piomgr.Subscription
	txSub   *piomgr.Subscription
	reqWait time.Duration

	pending atomic.Uint32
	kick    chan struct{}

	// Owned by the goroutine in Run.
	state    ClientState
	cmd      Command
	req      piomgr.Buffer
	reqIdx   int
	reply    piomgr.Buffer
	replyIdx int

	runMu sync.Mutex
	done  chan struct{}
	once  sync.Once
}

// NewClient claims a state machine on m running the client program on pin
// and starts listening. Requests are serviced once Run is called.
func NewClient(m *piomgr.Manager, pin pio.Pin, handler Handler, cfg ClientConfig) (*Client, error) {
	if cfg.CPUFrequency == 0 {
		cfg.CPUFrequency = DefaultHostConfig().CPUFrequency
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Millisecond
	}
	sm, err := m.ClaimOrError(clientProgram)
	if err != nil {
		return nil, err
	}
	scfg, err := programConfig(clientProgram, sm.Offset(), pin, cfg.CPUFrequency)
	if err != nil {
		sm.Release()
		return nil, err
	}
	scfg.SetOutShift(false, true, 9)
	index := sm.Machine().StateMachineIndex()
	c := &Client{
		sm:      sm,
		block:   sm.Block(),
		handler: handler,
		log:     m.Logger(),
		irq:     cfg.IRQ,
		reqWait: cfg.RequestTimeout,
		rxSrc:   pio.RxNotEmptySource(index),
		txSrc:   pio.TxNotFullSource(index),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	sm.ConfigurePin(pin, pio.PullUp)
	sm.Machine().SetPindirsConsecutive(pin, 1, false)
	sm.Init(scfg)
	c.rxSub, err = sm.Subscribe(c.irq, c.rxSrc, c.onRx)
	if err != nil {
		sm.Release()
		return nil, err
	}
	return c, nil
}

// State returns the request state. It is only meaningful on the goroutine
// running Run or while Run is not running.
func (c *Client) State() ClientState { return c.state }

// onRx and onTx run in interrupt context. FIFO sources are level triggered,
// so each masks its source until service has drained or filled the FIFO.
func (c *Client) onRx(pio.IRQSource) {
	c.block.SetInterruptSource(c.irq, c.rxSrc, false)
	c.post(eventRx)
}

func (c *Client) onTx(pio.IRQSource) {
	c.block.SetInterruptSource(c.irq, c.txSrc, false)
	c.post(eventTx)
}

func (c *Client) post(ev uint32) {
	c.pending.Or(ev)
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run services requests until ctx is done or the client is closed.
func (c *Client) Run(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	stall := time.NewTimer(c.reqWait)
	defer stall.Stop()
	for {
		select {
		case <-c.done:
			return ErrClosed
		default:
		}
		// The stall timer only runs while a request is partially received.
		var stalled <-chan time.Time
		if c.state == ReceivingRequest {
			stalled = stall.C
		}
		select {
		case <-c.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		case <-c.kick:
			c.service()
		case <-stalled:
			c.abandonRequest()
		}
		stall.Reset(c.reqWait)
	}
}

// service handles the events posted since the last call.
func (c *Client) service() {
	ev := c.pending.Swap(0)
	if ev&eventRx != 0 {
		c.receive()
		c.block.SetInterruptSource(c.irq, c.rxSrc, true)
	}
	if ev&eventTx != 0 && c.txSub != nil {
		if c.send() {
			c.block.SetInterruptSource(c.irq, c.txSrc, true)
		}
	}
}

func (c *Client) receive() {
	for {
		w, ok := c.sm.TryRead()
		if !ok {
			return
		}
		switch c.state {
		case WaitingForCommand:
			c.cmd = Command(rxByte(w))
			c.req, c.reqIdx = c.handler.ReceiveCommand(c.cmd), 0
			if c.req == nil || c.req.Len() == 0 {
				c.beginReply()
			} else {
				c.state = ReceivingRequest
			}
		case ReceivingRequest:
			c.req.Unpack(c.reqIdx, w)
			c.reqIdx++
			if c.reqIdx == c.req.Len() {
				c.beginReply()
			}
		default:
			c.log.Debug("joybus byte dropped while replying", "state", c.state, "byte", rxByte(w))
		}
	}
}

// abandonRequest drops a request whose payload stopped short. The program
// is then waiting for a reply that will never come, so the state machine is
// restarted to listen for the next command.
func (c *Client) abandonRequest() {
	if c.state != ReceivingRequest {
		return
	}
	c.log.Debug("joybus request incomplete", "cmd", c.cmd, "got", c.reqIdx, "want", c.req.Len())
	c.req = nil
	c.state = WaitingForCommand
	c.sm.Reset()
}

func (c *Client) beginReply() {
	c.req = nil
	c.reply, c.replyIdx = c.handler.SendResult(), 0
	c.state = SendingReply
	sub, err := c.sm.Subscribe(c.irq, c.txSrc, c.onTx)
	if err != nil {
		c.log.Warn("joybus reply dropped", "cmd", c.cmd, "err", err)
		c.state = WaitingForCommand
		c.reply = nil
		return
	}
	c.txSub = sub
}

// send fills the TX FIFO with the reply and its terminator. It reports
// whether words are left for the next TX event.
func (c *Client) send() bool {
	for c.state == SendingReply {
		if c.reply == nil || c.replyIdx == c.reply.Len() {
			c.state = Stopping
			break
		}
		if !c.sm.TryWrite(c.reply.Pack(c.replyIdx)) {
			return true
		}
		c.replyIdx++
	}
	// A reply always ends with the terminator, even an empty one, so the
	// program returns to listening.
	if !c.sm.TryWrite(clientEnd) {
		return true
	}
	c.txSub.Close()
	c.txSub = nil
	c.reply = nil
	c.state = WaitingForCommand
	return false
}

// Close stops servicing, waits for Run to return and releases the state
// machine and interrupt hookups. It is safe to call more than once.
func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.runMu.Lock()
		defer c.runMu.Unlock()
		c.txSub.Close()
		c.rxSub.Close()
		c.sm.Release()
	})
	return nil
}
