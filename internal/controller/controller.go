// Package controller runs the lamp's tick loop. It is the only goroutine
// that touches the lamp, the remote interpreter and the console.
package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/datadog"
	"github.com/thatsimonsguy/sunrise-lamp/internal/ir"
	"github.com/thatsimonsguy/sunrise-lamp/internal/lamp"
	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
	"github.com/thatsimonsguy/sunrise-lamp/internal/mqtt"
	"github.com/thatsimonsguy/sunrise-lamp/internal/notifications"
	"github.com/thatsimonsguy/sunrise-lamp/internal/terminal"
)

const (
	commandQueue = 16
	// statsEvery is how many ticks pass between IR counter reports.
	statsEvery = 100
)

var ErrQueueFull = errors.New("lamp command queue full")

// Replaced in tests.
var (
	notifyEnabled = notifications.Enabled
	notifySunrise = notifications.SunriseStarted
)

type Lamp interface {
	Step(in lamp.Inputs) model.LampStatus
	Status() model.LampStatus
	Reset()
}

type Remote interface {
	Tick(ctx context.Context) model.RemoteEvents
}

type Alarms interface {
	Poll() model.AlarmEvent
	Now() uint32
}

type Console interface {
	Poll(ctx context.Context, src terminal.ByteSource)
}

type LinkStats interface {
	Stats() ir.Stats
}

type Deps struct {
	Lamp      Lamp
	Remote    Remote
	Alarms    Alarms
	Console   Console
	Input     terminal.ByteSource
	Link      LinkStats
	Publisher mqtt.Publisher

	SunriseDuration time.Duration
}

type Controller struct {
	deps Deps

	overrides chan lamp.Override
	reset     atomic.Bool
	status    atomic.Pointer[model.LampStatus]

	last      model.LampStatus
	published bool
	ticks     uint64
	lastStats ir.Stats

	now func() time.Time
}

func New(deps Deps) *Controller {
	if deps.Publisher == nil {
		deps.Publisher = mqtt.Nop{}
	}
	c := &Controller{
		deps:      deps,
		overrides: make(chan lamp.Override, commandQueue),
		now:       time.Now,
	}
	st := deps.Lamp.Status()
	c.status.Store(&st)
	return c
}

// Run ticks every lamp.Tick until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	log.Info().Dur("tick", lamp.Tick).Msg("Starting lamp controller")
	ticker := time.NewTicker(lamp.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Lamp controller stopped")
			return
		case <-ticker.C:
			c.Step(ctx)
		}
	}
}

// Step runs one tick: console, remote, alarm, queued overrides, then the lamp.
func (c *Controller) Step(ctx context.Context) model.LampStatus {
	if c.deps.Console != nil && c.deps.Input != nil {
		c.deps.Console.Poll(ctx, c.deps.Input)
	}

	var in lamp.Inputs
	if c.deps.Remote != nil {
		in.Remote = c.deps.Remote.Tick(ctx)
	}
	if c.deps.Alarms != nil {
		in.Alarm = c.deps.Alarms.Poll()
	}
	in.Override = c.drainOverrides()

	if c.reset.Swap(false) {
		log.Warn().Msg("Lamp reset requested")
		c.deps.Lamp.Reset()
	}

	st := c.deps.Lamp.Step(in)
	c.status.Store(&st)

	if in.Alarm != model.AlarmNone {
		c.alarm(in.Alarm, st)
	}
	if !c.published || st.State != c.last.State || st.Source != c.last.Source ||
		(st.Brightness != c.last.Brightness && !st.Fading) {
		c.publish(st)
	}

	c.ticks++
	if c.ticks%statsEvery == 0 {
		c.reportLink()
	}
	return st
}

// drainOverrides folds every queued override into one; later requests win.
func (c *Controller) drainOverrides() *lamp.Override {
	var merged *lamp.Override
	for {
		select {
		case o := <-c.overrides:
			if merged == nil {
				merged = &lamp.Override{}
			}
			if o.Power != nil {
				merged.Power = o.Power
			}
			if o.Brightness != nil {
				merged.Brightness = o.Brightness
			}
		default:
			return merged
		}
	}
}

func (c *Controller) alarm(ev model.AlarmEvent, st model.LampStatus) {
	now := uint32(0)
	if c.deps.Alarms != nil {
		now = c.deps.Alarms.Now()
	}
	if err := c.deps.Publisher.PublishAlarm(c.now(), ev, now); err != nil {
		log.Warn().Err(err).Str("event", ev.String()).Msg("Failed to publish alarm event")
	}
	started := st.State == model.LampTurningOn || (st.Fading && st.Target == model.LampOn)
	if ev == model.AlarmSunrise && started && notifyEnabled() {
		day, _, _, _ := model.SplitCounter(now)
		notifySunrise(model.DayName(day), c.deps.SunriseDuration)
	}
}

func (c *Controller) publish(st model.LampStatus) {
	c.last = st
	c.published = true
	datadog.LampStatus(st)
	if err := c.deps.Publisher.PublishState(c.now(), st); err != nil {
		log.Warn().Err(err).Msg("Failed to publish lamp state")
	}
	log.Debug().
		Str("state", string(st.State)).
		Str("source", string(st.Source)).
		Uint16("brightness", uint16(st.Brightness)).
		Msg("Lamp state changed")
}

func (c *Controller) reportLink() {
	if c.deps.Link == nil {
		return
	}
	s := c.deps.Link.Stats()
	datadog.Count("ir.received", int64(s.Received-c.lastStats.Received))
	datadog.Count("ir.dropped", int64(s.Dropped-c.lastStats.Dropped))
	datadog.Count("ir.noise", int64(s.Noise-c.lastStats.Noise))
	datadog.Count("ir.sent", int64(s.Sent-c.lastStats.Sent))
	c.lastStats = s
}

// Status is the snapshot from the latest tick. Safe from any goroutine.
func (c *Controller) Status() model.LampStatus {
	return *c.status.Load()
}

// RequestReset forces the lamp off on the next tick.
func (c *Controller) RequestReset() {
	c.reset.Store(true)
}

func (c *Controller) submit(ctx context.Context, o lamp.Override) error {
	select {
	case c.overrides <- o:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (c *Controller) SetPower(ctx context.Context, on bool) error {
	return c.submit(ctx, lamp.Override{Power: &on})
}

func (c *Controller) SetBrightness(ctx context.Context, b model.Brightness) error {
	b = model.ClampBrightness(int(b))
	return c.submit(ctx, lamp.Override{Brightness: &b})
}
