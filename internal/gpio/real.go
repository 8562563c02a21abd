//go:build linux

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Chip hands out lines from one GPIO character device.
type Chip struct {
	chip *gpiocdev.Chip

	mu    sync.Mutex
	lines []*gpiocdev.Line
}

func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

func (c *Chip) track(l *gpiocdev.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, l)
}

// LineOutput is an output line with configurable polarity.
type LineOutput struct {
	line       *gpiocdev.Line
	activeHigh bool
}

// Output requests pin as an output, initially inactive.
func (c *Chip) Output(pin int, activeHigh bool) (*LineOutput, error) {
	initial := 0
	if !activeHigh {
		initial = 1
	}
	line, err := c.chip.RequestLine(pin, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	c.track(line)
	return &LineOutput{line: line, activeHigh: activeHigh}, nil
}

func (o *LineOutput) Set(on bool) error {
	v := 0
	if on == o.activeHigh {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set output: %w", err)
	}
	return nil
}

// LineInput is an input line with pull-down, matching the Pi boot default.
type LineInput struct {
	line *gpiocdev.Line
}

func (c *Chip) Input(pin int) (*LineInput, error) {
	line, err := c.chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", pin, err)
	}
	c.track(line)
	return &LineInput{line: line}, nil
}

func (i *LineInput) Get() (bool, error) {
	v, err := i.line.Value()
	if err != nil {
		return false, fmt.Errorf("read input: %w", err)
	}
	return v == 1, nil
}

// EdgeLine delivers falling edges from the IR receiver.
type EdgeLine struct {
	enabled atomic.Bool
	handler atomic.Pointer[func(time.Duration)]
}

func (c *Chip) FallingEdges(pin int) (*EdgeLine, error) {
	e := &EdgeLine{}
	line, err := c.chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) { e.fire(evt.Timestamp) }),
	)
	if err != nil {
		return nil, fmt.Errorf("request edge pin %d: %w", pin, err)
	}
	c.track(line)
	return e, nil
}

// fire passes on the kernel timestamp of the edge.
func (e *EdgeLine) fire(at time.Duration) {
	if !e.enabled.Load() {
		return
	}
	if h := e.handler.Load(); h != nil {
		(*h)(at)
	}
}

func (e *EdgeLine) SetHandler(fn func(time.Duration)) { e.handler.Store(&fn) }
func (e *EdgeLine) Enable()                           { e.enabled.Store(true) }
func (e *EdgeLine) Disable()                          { e.enabled.Store(false) }

// Close returns every line to an input with pull-down before releasing it.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, l := range c.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	c.lines = nil
	if err := c.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
