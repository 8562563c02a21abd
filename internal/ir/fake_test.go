package ir

import (
	"sync"
	"time"
)

type fakeTimer struct {
	mu      sync.Mutex
	handler func(uint64)
	seq     uint64
	running bool
	period  time.Duration
}

func (f *fakeTimer) SetHandler(fn func(uint64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = fn
}

func (f *fakeTimer) Current(seq uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running && seq == f.seq
}

func (f *fakeTimer) Start(p time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.running = true
	f.period = p
}

func (f *fakeTimer) SetPeriod(p time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.period = p
}

func (f *fakeTimer) Restart() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
}

func (f *fakeTimer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeTimer) Period() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.period
}

func (f *fakeTimer) Seq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// Fire simulates a reload.
func (f *fakeTimer) Fire() {
	f.mu.Lock()
	h, seq := f.handler, f.seq
	f.mu.Unlock()
	h(seq)
}

type fakeCarrier struct {
	mu sync.Mutex
	on bool
}

func (c *fakeCarrier) On() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = true
}

func (c *fakeCarrier) Off() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = false
}

func (c *fakeCarrier) IsOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

type fakeEdges struct {
	mu      sync.Mutex
	handler func(time.Duration)
	enabled bool
}

func (e *fakeEdges) SetHandler(fn func(time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
}

func (e *fakeEdges) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
}

func (e *fakeEdges) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
}

func (e *fakeEdges) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

type rig struct {
	link    *Link
	timer   *fakeTimer
	carrier *fakeCarrier
	edges   *fakeEdges
	// now is the timestamp of the last delivered edge.
	now time.Duration
}

func newRig() *rig {
	r := &rig{timer: &fakeTimer{}, carrier: &fakeCarrier{}, edges: &fakeEdges{}}
	r.link = NewLink(r.timer, r.carrier, r.edges)
	return r
}

// edge delivers a falling edge d after the previous one.
func (r *rig) edge(d time.Duration) {
	r.now += d
	r.link.OnEdge(r.now)
}

func (r *rig) feed(gaps []time.Duration) {
	r.edge(30 * time.Millisecond)
	for _, g := range gaps {
		r.edge(g)
	}
}
