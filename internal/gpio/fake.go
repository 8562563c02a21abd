package gpio

import (
	"sync"
	"time"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

// FakeDimmer records what the controller asked of the PWM channel.
type FakeDimmer struct {
	mu       sync.Mutex
	compare  model.Brightness
	enabled  bool
	Compares []model.Brightness
}

func NewFakeDimmer() *FakeDimmer {
	return &FakeDimmer{compare: model.MinBrightness}
}

func (d *FakeDimmer) SetCompare(v model.Brightness) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.compare = v
	d.Compares = append(d.Compares, v)
	return nil
}

func (d *FakeDimmer) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = true
	return nil
}

func (d *FakeDimmer) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = false
	return nil
}

func (d *FakeDimmer) Compare() model.Brightness {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compare
}

func (d *FakeDimmer) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

type FakeOutput struct {
	mu sync.Mutex
	on bool
}

func (o *FakeOutput) Set(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.on = on
	return nil
}

func (o *FakeOutput) On() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.on
}

type FakeInput struct {
	mu    sync.Mutex
	level bool
}

func (i *FakeInput) Get() (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.level, nil
}

func (i *FakeInput) SetLevel(level bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.level = level
}

type FakeDial struct {
	mu    sync.Mutex
	value uint16
}

func NewFakeDial(v uint16) *FakeDial {
	return &FakeDial{value: v}
}

func (d *FakeDial) Sample() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, nil
}

func (d *FakeDial) Set(v uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
}

// FakeCarrier loops the IR LED back into a FakeEdges receiver: switching the
// carrier on produces a falling edge on the demodulated output.
type FakeCarrier struct {
	mu    sync.Mutex
	on    bool
	Edges *FakeEdges
}

func (c *FakeCarrier) On() {
	c.mu.Lock()
	was := c.on
	c.on = true
	edges := c.Edges
	c.mu.Unlock()
	if !was && edges != nil {
		edges.Trigger()
	}
}

func (c *FakeCarrier) Off() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.on = false
}

func (c *FakeCarrier) IsOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}

// FakeEdges stamps edges with the time since the first one it saw, unless
// TriggerAt supplies a timestamp.
type FakeEdges struct {
	mu      sync.Mutex
	handler func(time.Duration)
	enabled bool
	epoch   time.Time
}

func (e *FakeEdges) SetHandler(fn func(time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
}

func (e *FakeEdges) Enable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = true
}

func (e *FakeEdges) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
}

func (e *FakeEdges) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Trigger delivers an edge stamped with the current time if the source is enabled.
func (e *FakeEdges) Trigger() {
	e.mu.Lock()
	if e.epoch.IsZero() {
		e.epoch = time.Now()
	}
	at := time.Since(e.epoch)
	e.mu.Unlock()
	e.TriggerAt(at)
}

// TriggerAt delivers an edge latched at at if the source is enabled.
func (e *FakeEdges) TriggerAt(at time.Duration) {
	e.mu.Lock()
	h, on := e.handler, e.enabled
	e.mu.Unlock()
	if on && h != nil {
		h(at)
	}
}
