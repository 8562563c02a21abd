// Package gpio provides the lamp's peripherals behind small interfaces.
// The real implementation uses the Linux GPIO character device, sysfs PWM
// and the IIO ADC. The fakes drive tests and simulation mode.
package gpio

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
	"github.com/thatsimonsguy/sunrise-lamp/internal/pinctrl"
)

// Dimmer is a PWM channel with an inverted compare value: 0 is full duty.
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

// Dial reads a 12-bit ADC channel.
type Dial interface {
	Sample() (uint16, error)
}

// Carrier gates the IR LED modulation.
type Carrier interface {
	On()
	Off()
}

// EdgeSource delivers falling edges while enabled, stamped with the
// monotonic time the edge was latched.
type EdgeSource interface {
	SetHandler(fn func(at time.Duration))
	Enable()
	Disable()
}

var readLevel = pinctrl.ReadLevel

// ValidateStartupPins refuses to start when the output stage is already
// driven on, which would flash the lamp at full brightness.
func ValidateStartupPins(outputEnablePin int, activeHigh bool) error {
	level, err := readLevel(outputEnablePin)
	if err != nil {
		return fmt.Errorf("failed to read output enable (GPIO %d): %w", outputEnablePin, err)
	}
	if level == activeHigh {
		return fmt.Errorf("output enable pin %d is active at startup", outputEnablePin)
	}
	log.Debug().Int("pin", outputEnablePin).Msg("Startup pin state ok")
	return nil
}
