//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

type LineOutput struct{}

func (c *Chip) Output(pin int, activeHigh bool) (*LineOutput, error) {
	return nil, errUnsupported
}

func (o *LineOutput) Set(on bool) error { return errUnsupported }

type LineInput struct{}

func (c *Chip) Input(pin int) (*LineInput, error) {
	return nil, errUnsupported
}

func (i *LineInput) Get() (bool, error) { return false, errUnsupported }

type EdgeLine struct{}

func (c *Chip) FallingEdges(pin int) (*EdgeLine, error) {
	return nil, errUnsupported
}

func (e *EdgeLine) SetHandler(fn func(time.Duration)) {}
func (e *EdgeLine) Enable()                           {}
func (e *EdgeLine) Disable()                          {}

func (c *Chip) Close() error { return nil }
