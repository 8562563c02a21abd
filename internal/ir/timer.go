package ir

import (
	"sync"
	"time"
)

// ClockTimer implements Timer on the runtime timer wheel. Resolution is
// whatever the scheduler gives time.AfterFunc, which is adequate for the
// 45 ms quiet detection and for the simulator; real carrier pacing needs a
// hardware timer behind the same interface.
type ClockTimer struct {
	mu      sync.Mutex
	handler func(seq uint64)
	period  time.Duration
	seq     uint64
	running bool
	t       *time.Timer
}

func NewClockTimer() *ClockTimer {
	return &ClockTimer{}
}

func (c *ClockTimer) SetHandler(fn func(seq uint64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = fn
}

func (c *ClockTimer) Current(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running && seq == c.seq
}

func (c *ClockTimer) Start(period time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.period = period
	c.running = true
	c.restartLocked()
}

func (c *ClockTimer) SetPeriod(period time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.period = period
}

func (c *ClockTimer) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.restartLocked()
}

func (c *ClockTimer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	c.seq++
	if c.t != nil {
		c.t.Stop()
	}
}

func (c *ClockTimer) restartLocked() {
	c.seq++
	c.armLocked()
}

func (c *ClockTimer) armLocked() {
	if c.t != nil {
		c.t.Stop()
	}
	seq := c.seq
	c.t = time.AfterFunc(c.period, func() { c.fire(seq) })
}

func (c *ClockTimer) fire(seq uint64) {
	c.mu.Lock()
	if !c.running || seq != c.seq {
		c.mu.Unlock()
		return
	}
	h := c.handler
	c.mu.Unlock()

	if h != nil {
		h(seq)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && seq == c.seq {
		c.armLocked()
	}
}
