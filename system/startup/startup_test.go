package startup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/sunrise-lamp/internal/config"
	"github.com/thatsimonsguy/sunrise-lamp/internal/env"
)

func pin(n int) *int { return &n }

func TestBootScript(t *testing.T) {
	cfg := &config.Config{GPIO: config.GPIO{
		OutputEnable: pin(17),
		Button:       pin(27),
		IRReceiver:   pin(22),
	}}
	cfg.Hardware.OutputEnableActiveHigh = true

	script, err := BootScript(cfg)
	require.NoError(t, err)
	assert.Contains(t, script, "#!/bin/bash\n")
	assert.Contains(t, script, "pinctrl set 17 op pn dl\n")
	assert.Contains(t, script, "pinctrl set 27 ip pd\n")
	assert.Contains(t, script, "pinctrl set 22 ip pu\n")
}

func TestBootScript_ActiveLow(t *testing.T) {
	cfg := &config.Config{GPIO: config.GPIO{OutputEnable: pin(5)}}
	script, err := BootScript(cfg)
	require.NoError(t, err)
	assert.Contains(t, script, "pinctrl set 5 op pn dh\n")
	assert.NotContains(t, script, "button")
}

func TestBootScript_NoOutputEnable(t *testing.T) {
	_, err := BootScript(&config.Config{})
	assert.Error(t, err)
}

func TestWriteAndInstall(t *testing.T) {
	dir := t.TempDir()
	orig := env.Cfg
	env.Cfg = &config.Config{
		DBPath:             "/var/lib/lamp.db",
		ConfigFile:         "/etc/lamp.yaml",
		GPIO:               config.GPIO{OutputEnable: pin(17)},
		BootScriptFilePath: filepath.Join(dir, "gpio.sh"),
		OSServicePath:      filepath.Join(dir, "lamp-gpio.service"),
		MainServicePath:    filepath.Join(dir, "lamp.service"),
	}
	defer func() { env.Cfg = orig }()

	require.NoError(t, WriteStartupScript())
	info, err := os.Stat(env.Cfg.BootScriptFilePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())

	require.NoError(t, InstallStartupService())
	unit, err := os.ReadFile(env.Cfg.OSServicePath)
	require.NoError(t, err)
	assert.Contains(t, string(unit), "ExecStart="+env.Cfg.BootScriptFilePath)

	require.NoError(t, InstallLampService("/usr/local/bin/sunrise-lamp"))
	unit, err = os.ReadFile(env.Cfg.MainServicePath)
	require.NoError(t, err)
	assert.Contains(t, string(unit), "Requires=lamp-gpio.service")
	assert.Contains(t, string(unit), "-db /var/lib/lamp.db")
}
