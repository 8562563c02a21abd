package lamp

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

const Tick = 10 * time.Millisecond

// Dimmer is the PWM channel driving the lamp. The compare value is inverted:
// 0 is full brightness.
type Dimmer interface {
	SetCompare(v model.Brightness) error
	Enable() error
	Disable() error
}

type Output interface {
	Set(on bool) error
}

type Input interface {
	Get() (bool, error)
}

// Dial is the 12-bit potentiometer.
type Dial interface {
	Sample() (uint16, error)
}

type Hardware struct {
	Dimmer Dimmer
	Enable Output
	Button Input
	Dial   Dial
}

type Config struct {
	FadeDuration    time.Duration
	SunriseDuration time.Duration
	Deadband        int
	RemoteStep      int
}

func (c Config) withDefaults() Config {
	if c.FadeDuration <= 0 {
		c.FadeDuration = 640 * time.Millisecond
	}
	if c.SunriseDuration <= 0 {
		c.SunriseDuration = time.Hour
	}
	if c.Deadband <= 0 {
		c.Deadband = 200
	}
	if c.RemoteStep <= 0 {
		c.RemoteStep = 256
	}
	return c
}

// Override is an out-of-band request, e.g. from the HTTP API. Nil fields are untouched.
type Override struct {
	Power      *bool
	Brightness *model.Brightness
}

type Inputs struct {
	Remote   model.RemoteEvents
	Alarm    model.AlarmEvent
	Override *Override
}

type Controller struct {
	cfg Config
	hw  Hardware

	state  model.LampState
	source model.DimSource

	brightness model.Brightness
	remote     model.Brightness
	fixed      model.Brightness
	// dialRef is the dial position the deadband is measured from.
	dialRef uint16

	fade        Fade
	pendingFade int

	prevButton bool
}

func New(cfg Config, hw Hardware) *Controller {
	return &Controller{
		cfg:        cfg.withDefaults(),
		hw:         hw,
		state:      model.LampOff,
		source:     model.DimPotentiometer,
		brightness: model.MinBrightness,
		remote:     model.MaxBrightness,
		fixed:      model.MaxBrightness,
	}
}

func steps(d time.Duration) int {
	return int(d / Tick)
}

func (c *Controller) Status() model.LampStatus {
	st := model.LampStatus{
		State:      c.state,
		Brightness: c.brightness,
		Source:     c.source,
		Fading:     c.state == model.LampFading,
	}
	if st.Fading {
		st.Target = c.fade.Terminal
	}
	return st
}

// headingOn reports whether the lamp is on or on its way there.
func (c *Controller) headingOn() bool {
	switch c.state {
	case model.LampOn, model.LampTurningOn:
		return true
	case model.LampFading:
		return c.fade.Terminal == model.LampOn
	default:
		return false
	}
}

// Step runs one tick of the state machine.
func (c *Controller) Step(in Inputs) model.LampStatus {
	toggle := c.buttonPressed() || in.Remote.Power

	if o := in.Override; o != nil {
		if o.Power != nil && *o.Power != c.headingOn() {
			toggle = true
		}
		if o.Brightness != nil {
			c.setFixed(*o.Brightness)
		}
	}

	if in.Remote.Brightness != model.BrightnessNone {
		c.remoteBrightness(in.Remote.Brightness)
	}

	// a sunrise takes the tick; a toggle arriving with it is dropped
	if in.Alarm == model.AlarmSunrise && c.startSunrise() {
		return c.Status()
	}

	switch c.state {
	case model.LampOff:
		if toggle {
			c.turnOn(c.cfg.FadeDuration)
		}

	case model.LampTurningOn:
		c.enableOutput()
		// the deadband is measured from here whichever source sets the target
		c.sampleDial(true)
		c.fade = NewFade(c.brightness, c.target(), c.pendingFade, model.LampOn)
		c.state = model.LampFading

	case model.LampTurningOff:
		c.fade = NewFade(c.brightness, model.MinBrightness, c.pendingFade, model.LampOff)
		c.state = model.LampFading

	case model.LampFading:
		if toggle {
			c.reverse()
			break
		}
		v, done := c.fade.Advance()
		c.setCompare(v)
		if done {
			c.state = c.fade.Terminal
			if c.state == model.LampOff {
				c.disableOutput()
			}
			log.Debug().Str("state", string(c.state)).Uint16("brightness", uint16(c.brightness)).Msg("Fade complete")
		}

	case model.LampOn:
		if toggle {
			c.pendingFade = steps(c.cfg.FadeDuration)
			c.state = model.LampTurningOff
			break
		}
		c.refresh()
	}

	return c.Status()
}

func (c *Controller) buttonPressed() bool {
	if c.hw.Button == nil {
		return false
	}
	level, err := c.hw.Button.Get()
	if err != nil {
		log.Error().Err(err).Msg("Failed to read button")
		return false
	}
	pressed := level && !c.prevButton
	c.prevButton = level
	return pressed
}

func (c *Controller) turnOn(d time.Duration) {
	c.pendingFade = steps(d)
	c.state = model.LampTurningOn
}

// reverse redirects the running fade from wherever it is now.
func (c *Controller) reverse() {
	current := c.fade.Value()
	if c.fade.Terminal == model.LampOn {
		c.fade = NewFade(current, model.MinBrightness, steps(c.cfg.FadeDuration), model.LampOff)
	} else {
		c.fade = NewFade(current, c.target(), steps(c.cfg.FadeDuration), model.LampOn)
	}
	log.Debug().
		Uint16("from", uint16(current)).
		Str("toward", string(c.fade.Terminal)).
		Msg("Fade reversed")
}

func (c *Controller) startSunrise() bool {
	if c.headingOn() {
		log.Info().Msg("Sunrise alarm ignored, lamp already on")
		return false
	}
	c.source = model.DimRemote
	c.remote = model.MaxBrightness
	c.sampleDial(true)

	if c.state == model.LampFading {
		// fading out: turn around toward full brightness over the sunrise window
		current := c.fade.Value()
		c.fade = NewFade(current, c.remote, steps(c.cfg.SunriseDuration), model.LampOn)
	} else {
		c.turnOn(c.cfg.SunriseDuration)
	}
	log.Info().Dur("duration", c.cfg.SunriseDuration).Msg("Sunrise started")
	return true
}

func (c *Controller) target() model.Brightness {
	switch c.source {
	case model.DimRemote:
		return c.remote
	case model.DimFixed:
		return c.fixed
	default:
		return model.ClampBrightness(int(c.dialRef))
	}
}

func (c *Controller) remoteBrightness(ev model.BrightnessEvent) {
	if !c.headingOn() {
		return
	}

	base := c.remote
	if c.source != model.DimRemote {
		base = c.brightness
		c.sampleDial(true)
	}

	// lower compare values are brighter
	switch ev {
	case model.BrightnessInc:
		c.remote = model.ClampBrightness(int(base) - c.cfg.RemoteStep)
	case model.BrightnessDec:
		c.remote = model.ClampBrightness(int(base) + c.cfg.RemoteStep)
	case model.BrightnessMax:
		c.remote = model.MaxBrightness
	case model.BrightnessMin:
		c.remote = model.MinBrightness
	}
	c.source = model.DimRemote

	if c.state == model.LampFading {
		c.fade.End = c.remote
	}
}

func (c *Controller) setFixed(v model.Brightness) {
	c.fixed = model.ClampBrightness(int(v))
	c.source = model.DimFixed
	switch c.state {
	case model.LampOn:
		c.setCompare(c.fixed)
	case model.LampFading:
		if c.fade.Terminal == model.LampOn {
			c.fade.End = c.fixed
		}
	}
}

// refresh applies the authoritative source while On.
func (c *Controller) refresh() {
	switch c.source {
	case model.DimPotentiometer:
		if v, ok := c.sampleDial(true); ok {
			c.setCompare(model.ClampBrightness(int(v)))
		}
	case model.DimRemote:
		if v, ok := c.sampleDial(false); ok && absDiff(v, c.dialRef) > c.cfg.Deadband {
			log.Info().Uint16("dial", v).Msg("Dial moved, returning to potentiometer control")
			c.source = model.DimPotentiometer
			c.dialRef = v
			c.setCompare(model.ClampBrightness(int(v)))
			return
		}
		c.setCompare(c.remote)
	case model.DimFixed:
	}
}

// sampleDial reads the dial, moving the deadband reference when track is set.
func (c *Controller) sampleDial(track bool) (uint16, bool) {
	if c.hw.Dial == nil {
		return 0, false
	}
	v, err := c.hw.Dial.Sample()
	if err != nil {
		log.Error().Err(err).Msg("Failed to sample dial")
		return 0, false
	}
	if track {
		c.dialRef = v
	}
	return v, true
}

func absDiff(a, b uint16) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func (c *Controller) setCompare(v model.Brightness) {
	c.brightness = v
	if c.hw.Dimmer == nil {
		return
	}
	if err := c.hw.Dimmer.SetCompare(v); err != nil {
		log.Error().Err(err).Uint16("value", uint16(v)).Msg("Failed to set dimmer")
	}
}

func (c *Controller) enableOutput() {
	if c.hw.Dimmer != nil {
		c.setCompare(c.brightness)
		if err := c.hw.Dimmer.Enable(); err != nil {
			log.Error().Err(err).Msg("Failed to enable dimmer")
		}
	}
	if c.hw.Enable != nil {
		if err := c.hw.Enable.Set(true); err != nil {
			log.Error().Err(err).Msg("Failed to raise output enable")
		}
	}
}

// disableOutput parks the dimmer dark so the next turn-on starts from black.
func (c *Controller) disableOutput() {
	c.setCompare(model.MinBrightness)
	if c.hw.Dimmer != nil {
		if err := c.hw.Dimmer.Disable(); err != nil {
			log.Error().Err(err).Msg("Failed to disable dimmer")
		}
	}
	if c.hw.Enable != nil {
		if err := c.hw.Enable.Set(false); err != nil {
			log.Error().Err(err).Msg("Failed to drop output enable")
		}
	}
}

// Reset forces the lamp dark and returns control to the dial.
func (c *Controller) Reset() {
	c.disableOutput()
	c.state = model.LampOff
	c.source = model.DimPotentiometer
	c.fade = Fade{}
}
