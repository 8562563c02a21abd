package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pin(n int) *int { return &n }

func validConfig() Config {
	cfg := Config{
		GPIO: GPIO{
			OutputEnable: pin(17),
			Button:       pin(27),
			IRReceiver:   pin(22),
		},
		Hardware: Hardware{
			Dimmer:  PWMChannel{Chip: 0, Channel: 0},
			Carrier: PWMChannel{Chip: 0, Channel: 1},
		},
	}
	cfg.applyDefaults()
	return cfg
}

func TestValidate_GPIOValid(t *testing.T) {
	cfg := validConfig()
	assert.NotPanics(t, cfg.validate)
}

func TestValidate_GPIOMissing(t *testing.T) {
	cfg := validConfig()
	cfg.GPIO.Button = nil
	assert.PanicsWithValue(t, "Missing required GPIO config fields: gpio.button", cfg.validate)
}

func TestValidate_GPIOConflict(t *testing.T) {
	cfg := validConfig()
	cfg.GPIO.IRReceiver = pin(17)
	assert.Panics(t, cfg.validate)
}

func TestValidate_SharedPWM(t *testing.T) {
	cfg := validConfig()
	cfg.Hardware.Carrier = cfg.Hardware.Dimmer
	assert.Panics(t, cfg.validate)
}

func TestValidate_SimNeedsNoPins(t *testing.T) {
	cfg := Config{Hardware: Hardware{Mode: ModeSim}}
	cfg.applyDefaults()
	assert.NotPanics(t, cfg.validate)
}

func TestValidate_BadMode(t *testing.T) {
	cfg := validConfig()
	cfg.Hardware.Mode = "bench"
	assert.Panics(t, cfg.validate)
}

func TestValidate_Deadband(t *testing.T) {
	cfg := validConfig()
	cfg.Lamp.Deadband = 5000
	assert.Panics(t, cfg.validate)
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, ModeReal, cfg.Hardware.Mode)
	assert.Equal(t, 38000, cfg.Hardware.CarrierHz)
	assert.Equal(t, 640*time.Millisecond, cfg.Lamp.FadeDuration())
	assert.Equal(t, time.Hour, cfg.Lamp.SunriseDuration())
	assert.Equal(t, 200, cfg.Lamp.Deadband)
	assert.Equal(t, 256, cfg.Lamp.RemoteStep)
	assert.Equal(t, 30, cfg.Remote.TimeoutTicks)
	assert.Equal(t, 115200, cfg.Console.Baud)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_file: /tmp/lamp.log
hardware:
  mode: sim
gpio:
  output_enable: 17
  button: 27
  ir_receiver: 22
lamp:
  deadband: 120
  sunrise_minutes: 30
remote:
  peer_address: 0x1234
mqtt:
  broker: tcp://localhost:1883
dd_tags: [room:bedroom]
`), 0644))

	var cfg Config
	require.NoError(t, loadFile(path, &cfg))
	cfg.applyDefaults()

	assert.Equal(t, ModeSim, cfg.Hardware.Mode)
	assert.Equal(t, 17, *cfg.GPIO.OutputEnable)
	assert.Equal(t, 120, cfg.Lamp.Deadband)
	assert.Equal(t, 30*time.Minute, cfg.Lamp.SunriseDuration())
	assert.Equal(t, uint16(0x1234), cfg.Remote.PeerAddress)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, []string{"room:bedroom"}, cfg.DDTags)
	assert.Equal(t, 640, cfg.Lamp.FadeMillis)
}

func TestLoadFile_Errors(t *testing.T) {
	var cfg Config
	assert.Error(t, loadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gpio: [unclosed"), 0644))
	assert.Error(t, loadFile(path, &cfg))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLogLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("verbose"))
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gpio:\n  output_enable: 4\n"), 0644))

	cfg, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, 4, *cfg.GPIO.OutputEnable)
	assert.Equal(t, "/usr/local/bin/sunrise-lamp-gpio.sh", cfg.BootScriptFilePath)
}
