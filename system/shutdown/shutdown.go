package shutdown

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/env"
	"github.com/thatsimonsguy/sunrise-lamp/internal/pinctrl"
)

var (
	drive = pinctrl.Drive
	exit  = os.Exit
)

// ForceOutputOff drops the output-enable pin through pinctrl, independent of
// whatever line handles the process holds.
func ForceOutputOff() {
	if env.Cfg.SafeMode || env.Cfg.GPIO.OutputEnable == nil {
		return
	}
	pin := *env.Cfg.GPIO.OutputEnable
	if err := drive(pin, false, env.Cfg.Hardware.OutputEnableActiveHigh); err != nil {
		log.Error().Err(err).Int("pin", pin).Msg("Failed to drop output enable")
		return
	}
	log.Info().Int("pin", pin).Msg("Output enable deactivated")
}

func Shutdown() {
	ForceOutputOff()
	exit(0)
}

func ShutdownWithError(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	ForceOutputOff()
	exit(1)
}
