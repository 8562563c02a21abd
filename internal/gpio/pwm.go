package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

const pwmRoot = "/sys/class/pwm"

// PWM drives one sysfs PWM channel.
type PWM struct {
	dir    string
	period time.Duration

	mu sync.Mutex
}

// OpenPWM exports the channel if needed and programs its period.
func OpenPWM(chip, channel int, period time.Duration) (*PWM, error) {
	return openPWM(pwmRoot, chip, channel, period)
}

func openPWM(root string, chip, channel int, period time.Duration) (*PWM, error) {
	chipDir := filepath.Join(root, fmt.Sprintf("pwmchip%d", chip))
	dir := filepath.Join(chipDir, fmt.Sprintf("pwm%d", channel))

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := writeFile(filepath.Join(chipDir, "export"), strconv.Itoa(channel)); err != nil {
			return nil, fmt.Errorf("export pwm%d on pwmchip%d: %w", channel, chip, err)
		}
	}

	p := &PWM{dir: dir, period: period}
	// duty must never exceed the period, so clear it first
	if err := p.write("duty_cycle", "0"); err != nil {
		return nil, err
	}
	if err := p.write("period", strconv.FormatInt(period.Nanoseconds(), 10)); err != nil {
		return nil, err
	}
	return p, nil
}

func writeFile(path, value string) error {
	return os.WriteFile(path, []byte(value), 0644)
}

func (p *PWM) write(attr, value string) error {
	if err := writeFile(filepath.Join(p.dir, attr), value); err != nil {
		return fmt.Errorf("write pwm %s: %w", attr, err)
	}
	return nil
}

func (p *PWM) read(attr string) (string, error) {
	b, err := os.ReadFile(filepath.Join(p.dir, attr))
	if err != nil {
		return "", fmt.Errorf("read pwm %s: %w", attr, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// SetDuty sets the high time as a fraction of the period in [0, 1].
func (p *PWM) SetDuty(fraction float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	ns := int64(float64(p.period.Nanoseconds()) * fraction)
	return p.write("duty_cycle", strconv.FormatInt(ns, 10))
}

// SetCompare maps the dimming compare value onto the duty cycle.
// The counter period is model.MinBrightness, and the output is high above the compare value.
func (p *PWM) SetCompare(v model.Brightness) error {
	v = model.ClampBrightness(int(v))
	return p.SetDuty(float64(model.MinBrightness-v) / float64(model.MinBrightness))
}

func (p *PWM) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write("enable", "1")
}

func (p *PWM) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write("enable", "0")
}

func (p *PWM) Enabled() (bool, error) {
	s, err := p.read("enable")
	if err != nil {
		return false, err
	}
	return s == "1", nil
}

// CarrierPWM keys a PWM channel on and off as the IR carrier.
type CarrierPWM struct {
	pwm *PWM
	// OnError receives write failures; On and Off run from timer callbacks.
	OnError func(error)
}

// NewCarrier sets up a 50% duty square wave at hz.
func NewCarrier(pwm *PWM) (*CarrierPWM, error) {
	if err := pwm.SetDuty(0.5); err != nil {
		return nil, err
	}
	return &CarrierPWM{pwm: pwm}, nil
}

func CarrierPeriod(hz int) time.Duration {
	return time.Second / time.Duration(hz)
}

func (c *CarrierPWM) report(err error) {
	if err != nil && c.OnError != nil {
		c.OnError(err)
	}
}

func (c *CarrierPWM) On()  { c.report(c.pwm.Enable()) }
func (c *CarrierPWM) Off() { c.report(c.pwm.Disable()) }
