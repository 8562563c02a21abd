package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/sunrise-lamp/internal/config"
	"github.com/thatsimonsguy/sunrise-lamp/internal/env"
	"github.com/thatsimonsguy/sunrise-lamp/internal/pinctrl"
)

// BootScript renders the pinctrl commands that park the lamp's pins before
// the controller starts: output stage off, inputs pulled to their idle level.
func BootScript(cfg *config.Config) (string, error) {
	if cfg.GPIO.OutputEnable == nil {
		return "", fmt.Errorf("gpio.output_enable not configured")
	}

	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Sunrise lamp GPIO pin configuration at boot", "")

	write := func(label string, pin int, args []string) {
		lines = append(lines, fmt.Sprintf("# %s", label))
		lines = append(lines, fmt.Sprintf("pinctrl set %d %s", pin, strings.Join(args, " ")))
		lines = append(lines, "")
	}

	write("output_enable", *cfg.GPIO.OutputEnable, pinctrl.DriveArgs(false, cfg.Hardware.OutputEnableActiveHigh))
	if cfg.GPIO.Button != nil {
		write("button", *cfg.GPIO.Button, []string{"ip", "pd"})
	}
	if cfg.GPIO.IRReceiver != nil {
		// the receiver idles high
		write("ir_receiver", *cfg.GPIO.IRReceiver, []string{"ip", "pu"})
	}

	return strings.Join(lines, "\n") + "\n", nil
}

func WriteStartupScript() error {
	contents, err := BootScript(env.Cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(env.Cfg.BootScriptFilePath, []byte(contents), 0755)
}

func InstallStartupService() error {
	unitContents := fmt.Sprintf(`[Unit]
Description=Configure sunrise lamp GPIO pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, env.Cfg.BootScriptFilePath)

	return os.WriteFile(env.Cfg.OSServicePath, []byte(unitContents), 0644)
}

func RunStartupScript() error {
	cmd := exec.Command("/bin/bash", env.Cfg.BootScriptFilePath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// InstallLampService writes the main unit, ordered after the pin unit.
func InstallLampService(binary string) error {
	gpioUnitName := filepath.Base(env.Cfg.OSServicePath)

	unit := fmt.Sprintf(`[Unit]
Description=Sunrise lamp controller
After=%s
Requires=%s

[Service]
Type=simple
ExecStart=%s -config-file %s -db %s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, gpioUnitName, gpioUnitName, binary, env.Cfg.ConfigFile, env.Cfg.DBPath)

	return os.WriteFile(env.Cfg.MainServicePath, []byte(unit), 0644)
}
