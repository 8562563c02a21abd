package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/sunrise-lamp/internal/gpio"
	"github.com/thatsimonsguy/sunrise-lamp/internal/ir"
	"github.com/thatsimonsguy/sunrise-lamp/internal/lamp"
	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
	"github.com/thatsimonsguy/sunrise-lamp/internal/mqtt"
	"github.com/thatsimonsguy/sunrise-lamp/internal/terminal"
)

type fakeRemote struct {
	queue []model.RemoteEvents
	ticks int
}

func (f *fakeRemote) Tick(ctx context.Context) model.RemoteEvents {
	f.ticks++
	if len(f.queue) == 0 {
		return model.RemoteEvents{}
	}
	ev := f.queue[0]
	f.queue = f.queue[1:]
	return ev
}

type fakeAlarms struct {
	pending model.AlarmEvent
	now     uint32
}

func (f *fakeAlarms) Poll() model.AlarmEvent {
	ev := f.pending
	f.pending = model.AlarmNone
	return ev
}

func (f *fakeAlarms) Now() uint32 { return f.now }

type fakeConsole struct {
	polls int
}

func (f *fakeConsole) Poll(ctx context.Context, src terminal.ByteSource) {
	f.polls++
}

type noBytes struct{}

func (noBytes) NextByte() (byte, bool) { return 0, false }

type fakeStats struct{ s ir.Stats }

func (f *fakeStats) Stats() ir.Stats { return f.s }

type rig struct {
	c       *Controller
	lamp    *lamp.Controller
	remote  *fakeRemote
	alarms  *fakeAlarms
	console *fakeConsole
	pub     *mqtt.FakePublisher
	dimmer  *gpio.FakeDimmer
}

func newRig() *rig {
	r := &rig{
		remote:  &fakeRemote{},
		alarms:  &fakeAlarms{},
		console: &fakeConsole{},
		pub:     mqtt.NewFakePublisher(),
		dimmer:  gpio.NewFakeDimmer(),
	}
	r.lamp = lamp.New(lamp.Config{}, lamp.Hardware{
		Dimmer: r.dimmer,
		Enable: &gpio.FakeOutput{},
		Button: &gpio.FakeInput{},
		Dial:   gpio.NewFakeDial(2048),
	})
	r.c = New(Deps{
		Lamp:      r.lamp,
		Remote:    r.remote,
		Alarms:    r.alarms,
		Console:   r.console,
		Input:     noBytes{},
		Link:      &fakeStats{},
		Publisher: r.pub,
	})
	return r
}

func (r *rig) steps(n int) model.LampStatus {
	var st model.LampStatus
	for i := 0; i < n; i++ {
		st = r.c.Step(context.Background())
	}
	return st
}

func TestStep_PollsEverySource(t *testing.T) {
	r := newRig()
	r.steps(3)
	assert.Equal(t, 3, r.console.polls)
	assert.Equal(t, 3, r.remote.ticks)
}

func TestStep_RemotePowerTurnsOn(t *testing.T) {
	r := newRig()
	r.remote.queue = []model.RemoteEvents{{Power: true}}

	st := r.steps(1)
	assert.Equal(t, model.LampTurningOn, st.State)
	assert.Equal(t, st, r.c.Status())

	st = r.steps(100)
	assert.Equal(t, model.LampOn, st.State)
	assert.Equal(t, model.Brightness(2048), st.Brightness)
}

func TestStep_PublishesOnChangeOnly(t *testing.T) {
	r := newRig()
	r.steps(5)
	assert.Equal(t, 1, r.pub.StateCount(), "initial snapshot only")

	r.remote.queue = []model.RemoteEvents{{Power: true}}
	r.steps(100)
	// turning_on, fading, on
	assert.Equal(t, 4, r.pub.StateCount())
}

func TestStep_SunrisePublishesAlarm(t *testing.T) {
	r := newRig()
	r.alarms.pending = model.AlarmSunrise
	r.alarms.now = model.Seconds(0, 5, 0, 0)

	st := r.steps(1)
	assert.Equal(t, model.LampTurningOn, st.State)
	assert.Equal(t, model.DimRemote, st.Source)
	assert.Equal(t, []model.AlarmEvent{model.AlarmSunrise}, r.pub.Alarms)
}

type sunriseNotice struct {
	day      string
	duration time.Duration
}

func captureNotices(t *testing.T, enabled bool) *[]sunriseNotice {
	var got []sunriseNotice
	origEnabled, origNotify := notifyEnabled, notifySunrise
	notifyEnabled = func() bool { return enabled }
	notifySunrise = func(day string, d time.Duration) {
		got = append(got, sunriseNotice{day, d})
	}
	t.Cleanup(func() { notifyEnabled, notifySunrise = origEnabled, origNotify })
	return &got
}

func TestStep_SunriseNotifies(t *testing.T) {
	got := captureNotices(t, true)
	r := newRig()
	r.c.deps.SunriseDuration = time.Hour
	r.alarms.pending = model.AlarmSunrise
	r.alarms.now = model.Seconds(2, 6, 30, 0)

	r.steps(1)
	assert.Equal(t, []sunriseNotice{{"Wed", time.Hour}}, *got)
}

func TestStep_SunriseNoticeSkippedWhenDisabled(t *testing.T) {
	got := captureNotices(t, false)
	r := newRig()
	r.alarms.pending = model.AlarmSunrise

	r.steps(1)
	assert.Empty(t, *got)
	assert.Len(t, r.pub.Alarms, 1, "the alarm is still published")
}

func TestStep_SunriseNoticeSkippedWhileOn(t *testing.T) {
	got := captureNotices(t, true)
	r := newRig()
	r.remote.queue = []model.RemoteEvents{{Power: true}}
	r.steps(100)

	r.alarms.pending = model.AlarmSunrise
	r.steps(1)
	assert.Empty(t, *got)
}

func TestSetPower_QueuedToTick(t *testing.T) {
	r := newRig()
	require.NoError(t, r.c.SetPower(context.Background(), true))
	assert.Equal(t, model.LampOff, r.c.Status().State, "nothing happens until the next tick")

	st := r.steps(1)
	assert.Equal(t, model.LampTurningOn, st.State)
}

func TestSetBrightness_LaterRequestWins(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	require.NoError(t, r.c.SetPower(ctx, true))
	require.NoError(t, r.c.SetBrightness(ctx, 100))
	require.NoError(t, r.c.SetBrightness(ctx, 300))

	st := r.steps(100)
	assert.Equal(t, model.LampOn, st.State)
	assert.Equal(t, model.DimFixed, st.Source)
	assert.Equal(t, model.Brightness(300), st.Brightness)
}

func TestSubmit_QueueFull(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	for i := 0; i < commandQueue; i++ {
		require.NoError(t, r.c.SetPower(ctx, true))
	}
	assert.ErrorIs(t, r.c.SetPower(ctx, true), ErrQueueFull)
}

func TestRequestReset(t *testing.T) {
	r := newRig()
	r.remote.queue = []model.RemoteEvents{{Power: true}}
	r.steps(100)

	r.c.RequestReset()
	st := r.steps(1)
	assert.Equal(t, model.LampOff, st.State)
	assert.False(t, r.dimmer.Enabled())
}

func TestStep_PublishErrorIsNotFatal(t *testing.T) {
	r := newRig()
	r.pub.PublishError = errors.New("broker down")
	r.remote.queue = []model.RemoteEvents{{Power: true}}
	st := r.steps(2)
	assert.Equal(t, model.LampFading, st.State)
}

func TestRun_StopsWithContext(t *testing.T) {
	r := newRig()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.c.Run(ctx)
		close(done)
	}()

	require.NoError(t, r.c.SetPower(ctx, true))
	assert.Eventually(t, func() bool {
		return r.c.Status().State != model.LampOff
	}, time.Second, lamp.Tick)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}
}
