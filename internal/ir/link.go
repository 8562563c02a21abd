package ir

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

// Timer is the single hardware timer shared by quiet-channel detection and
// transmit pacing. Which duty it serves is decided by the link state.
type Timer interface {
	// SetHandler installs the reload handler. seq identifies the Start or
	// Restart the reload belongs to.
	SetHandler(fn func(seq uint64))
	// Current reports whether seq still belongs to the latest Start or Restart.
	Current(seq uint64) bool
	// Start zeroes the counter and fires the handler every period until Stop.
	Start(period time.Duration)
	// SetPeriod takes effect from the next reload.
	SetPeriod(period time.Duration)
	// Restart zeroes the counter, keeping the period.
	Restart()
	Stop()
}

// Carrier gates the 38 kHz modulation on the IR LED.
type Carrier interface {
	On()
	Off()
}

// EdgeSource delivers falling edges from the IR receiver while enabled. at is
// the monotonic time the edge was latched, not the time the handler runs.
type EdgeSource interface {
	SetHandler(fn func(at time.Duration))
	Enable()
	Disable()
}

type Stats struct {
	Received uint64 `json:"received"`
	Dropped  uint64 `json:"dropped"`
	Noise    uint64 `json:"noise"`
	Sent     uint64 `json:"sent"`
}

type Link struct {
	mu    sync.Mutex
	state model.LinkState
	// cts is closed while the state is ClearToSend.
	cts chan struct{}

	timer   Timer
	carrier Carrier
	edges   EdgeSource

	plan    Plan
	txIndex int

	bitCount int
	raw      uint32
	lastEdge time.Duration
	// haveEdge is false until the first edge after start or after a transmission.
	haveEdge bool

	ring Ring

	received atomic.Uint64
	dropped  atomic.Uint64
	noise    atomic.Uint64
	sent     atomic.Uint64
}

// NewLink wires the handlers and starts listening.
func NewLink(timer Timer, carrier Carrier, edges EdgeSource) *Link {
	l := &Link{
		state:   model.LinkReceiving,
		cts:     make(chan struct{}),
		timer:   timer,
		carrier: carrier,
		edges:   edges,
	}
	timer.SetHandler(l.OnTimer)
	edges.SetHandler(l.OnEdge)

	carrier.Off()
	timer.Start(QuietPeriod)
	edges.Enable()
	return l
}

// setState must be called with mu held.
func (l *Link) setState(s model.LinkState) {
	if s == l.state {
		return
	}
	if l.state == model.LinkClearToSend {
		l.cts = make(chan struct{})
	}
	l.state = s
	if s == model.LinkClearToSend {
		close(l.cts)
	}
}

func (l *Link) State() model.LinkState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// WaitClearToSend parks until the channel has been quiet for QuietPeriod.
func (l *Link) WaitClearToSend(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.state == model.LinkClearToSend {
			l.mu.Unlock()
			return nil
		}
		ch := l.cts
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Send waits for ClearToSend, then hands the packet to the timer-driven player.
// It returns once playback is armed, not when the packet is on the air.
// ctx only bounds the wait; a started transmission always completes.
func (l *Link) Send(ctx context.Context, address uint16, command uint8) error {
	plan := BuildPlan(address, command, ^command)

	for {
		if err := l.WaitClearToSend(ctx); err != nil {
			return err
		}
		l.mu.Lock()
		if l.state == model.LinkClearToSend {
			break
		}
		// an edge won the race
		l.mu.Unlock()
	}
	defer l.mu.Unlock()

	l.plan = plan
	l.txIndex = 0
	l.setState(model.LinkTransmitting)
	l.edges.Disable()

	first, _ := l.plan.Interval(0)
	l.timer.Start(first)
	l.carrier.On()
	l.sent.Add(1)

	log.Debug().
		Uint16("address", address).
		Uint8("command", command).
		Msg("IR transmit started")
	return nil
}

// OnTimer is the timer reload handler. Reloads that lost a race against an
// edge or a new transmission are ignored.
func (l *Link) OnTimer(seq uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.timer.Current(seq) {
		return
	}

	switch l.state {
	case model.LinkTransmitting:
		l.advance()
	case model.LinkReceiving:
		l.setState(model.LinkClearToSend)
	case model.LinkClearToSend:
	}
}

// advance plays the next interval. Must be called with mu held.
func (l *Link) advance() {
	l.txIndex++
	if l.txIndex >= PlanLength {
		l.carrier.Off()
		l.setState(model.LinkReceiving)
		l.haveEdge = false
		l.timer.Start(QuietPeriod)
		l.edges.Enable()
		return
	}

	d, on := l.plan.Interval(l.txIndex)
	if on {
		l.carrier.On()
	} else {
		l.carrier.Off()
	}
	l.timer.SetPeriod(d)
}

// OnEdge is the falling-edge handler of the IR receiver. The symbol is taken
// from the gap between edge timestamps; the timer only restarts the quiet window.
func (l *Link) OnEdge(at time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == model.LinkTransmitting {
		return
	}
	l.setState(model.LinkReceiving)
	l.timer.Restart()

	sym := SymbolNoise
	if l.haveEdge && at >= l.lastEdge {
		sym = Classify(at - l.lastEdge)
	}
	l.lastEdge = at
	l.haveEdge = true

	switch sym {
	case SymbolZero:
		l.bitCount++
	case SymbolOne:
		l.raw |= 1 << l.bitCount
		l.bitCount++
	case SymbolStart, SymbolRepeat:
		l.resetAccumulator()
	default:
		if l.bitCount > 0 {
			l.noise.Add(1)
		}
		l.resetAccumulator()
	}

	if l.bitCount == PacketBits {
		p := model.IRPacket{
			Address:        uint16(l.raw),
			Command:        uint8(l.raw >> 16),
			CommandInverse: uint8(l.raw >> 24),
		}
		if l.ring.Push(p) {
			l.received.Add(1)
		} else {
			l.dropped.Add(1)
		}
		l.resetAccumulator()
	}
}

func (l *Link) resetAccumulator() {
	l.bitCount = 0
	l.raw = 0
}

// Receive returns the oldest decoded packet, or model.NoPacket.
func (l *Link) Receive() model.IRPacket {
	return l.ring.Pop()
}

func (l *Link) Stats() Stats {
	return Stats{
		Received: l.received.Load(),
		Dropped:  l.dropped.Load(),
		Noise:    l.noise.Load(),
		Sent:     l.sent.Load(),
	}
}
