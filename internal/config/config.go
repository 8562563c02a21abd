package config

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	ModeReal = "real"
	ModeSim  = "sim"
)

type GPIO struct {
	OutputEnable *int `yaml:"output_enable"`
	Button       *int `yaml:"button"`
	IRReceiver   *int `yaml:"ir_receiver"`
}

type PWMChannel struct {
	Chip    int `yaml:"chip"`
	Channel int `yaml:"channel"`
}

type Hardware struct {
	Mode                   string     `yaml:"mode"`
	GPIOChip               string     `yaml:"gpio_chip"`
	OutputEnableActiveHigh bool       `yaml:"output_enable_active_high"`
	Dimmer                 PWMChannel `yaml:"dimmer"`
	Carrier                PWMChannel `yaml:"carrier"`
	CarrierHz              int        `yaml:"carrier_hz"`
	DialDevice             string     `yaml:"dial_device"`
	DialChannel            int        `yaml:"dial_channel"`
}

type Lamp struct {
	FadeMillis     int `yaml:"fade_ms"`
	SunriseMinutes int `yaml:"sunrise_minutes"`
	Deadband       int `yaml:"deadband"`
	RemoteStep     int `yaml:"remote_step"`
}

func (l Lamp) FadeDuration() time.Duration {
	return time.Duration(l.FadeMillis) * time.Millisecond
}

func (l Lamp) SunriseDuration() time.Duration {
	return time.Duration(l.SunriseMinutes) * time.Minute
}

type Remote struct {
	TimeoutTicks int    `yaml:"timeout_ticks"`
	PeerAddress  uint16 `yaml:"peer_address"`
}

type Console struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

type Config struct {
	DBPath     string        `yaml:"-"`
	ConfigFile string        `yaml:"-"`
	LogLevel   zerolog.Level `yaml:"-"`
	LogFile    string        `yaml:"log_file"`
	SafeMode   bool          `yaml:"safe_mode"`

	Hardware Hardware `yaml:"hardware"`
	GPIO     GPIO     `yaml:"gpio"`
	Lamp     Lamp     `yaml:"lamp"`
	Remote   Remote   `yaml:"remote"`
	Console  Console  `yaml:"console"`
	MQTT     MQTT     `yaml:"mqtt"`

	APIPort int `yaml:"api_port"`

	EnableDatadog bool     `yaml:"enable_datadog"`
	DDAgentAddr   string   `yaml:"dd_agent_addr"`
	DDNamespace   string   `yaml:"dd_namespace"`
	DDTags        []string `yaml:"dd_tags"`

	NtfyTopic string `yaml:"ntfy_topic"`

	BootScriptFilePath string `yaml:"boot_script_file_path"`
	OSServicePath      string `yaml:"os_service_path"`
	MainServicePath    string `yaml:"main_service_path"`
}

func Load() Config {
	var cfg Config
	var logLevel string

	flag.StringVar(&cfg.DBPath, "db", "data/lamp.db", "Path to the SQLite database file")
	flag.StringVar(&cfg.ConfigFile, "config-file", "config.yaml", "Path to lamp config file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)

	if err := loadFile(cfg.ConfigFile, &cfg); err != nil {
		panic(err.Error())
	}

	cfg.applyDefaults()
	cfg.validate()
	return cfg
}

// FromFile reads a config without touching command-line flags. Used by the
// debug CLI; it fills defaults but does not validate.
func FromFile(path string) (Config, error) {
	var cfg Config
	cfg.ConfigFile = path
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Failed to load config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("Failed to parse config file: %w", err)
	}
	return nil
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.Hardware.Mode == "" {
		cfg.Hardware.Mode = ModeReal
	}
	if cfg.Hardware.GPIOChip == "" {
		cfg.Hardware.GPIOChip = "gpiochip0"
	}
	if cfg.Hardware.CarrierHz == 0 {
		cfg.Hardware.CarrierHz = 38000
	}
	if cfg.Hardware.DialDevice == "" {
		cfg.Hardware.DialDevice = "iio:device0"
	}
	if cfg.Lamp.FadeMillis == 0 {
		cfg.Lamp.FadeMillis = 640
	}
	if cfg.Lamp.SunriseMinutes == 0 {
		cfg.Lamp.SunriseMinutes = 60
	}
	if cfg.Lamp.Deadband == 0 {
		cfg.Lamp.Deadband = 200
	}
	if cfg.Lamp.RemoteStep == 0 {
		cfg.Lamp.RemoteStep = 256
	}
	if cfg.Remote.TimeoutTicks == 0 {
		cfg.Remote.TimeoutTicks = 30
	}
	if cfg.Console.Baud == 0 {
		cfg.Console.Baud = 115200
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "sunrise-lamp"
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
	}
	if cfg.BootScriptFilePath == "" {
		cfg.BootScriptFilePath = "/usr/local/bin/sunrise-lamp-gpio.sh"
	}
	if cfg.OSServicePath == "" {
		cfg.OSServicePath = "/etc/systemd/system/sunrise-lamp-gpio.service"
	}
	if cfg.MainServicePath == "" {
		cfg.MainServicePath = "/etc/systemd/system/sunrise-lamp.service"
	}
}

func (cfg *Config) validate() {
	switch cfg.Hardware.Mode {
	case ModeReal, ModeSim:
	default:
		panic(fmt.Sprintf("Unknown hardware mode %q (want %s or %s)", cfg.Hardware.Mode, ModeReal, ModeSim))
	}
	if cfg.Lamp.FadeMillis < 10 || cfg.Lamp.SunriseMinutes < 1 {
		panic("Lamp fade and sunrise durations must cover at least one tick")
	}
	if cfg.Lamp.Deadband < 0 || cfg.Lamp.Deadband > 4096 {
		panic(fmt.Sprintf("Lamp deadband %d out of range", cfg.Lamp.Deadband))
	}

	// simulated hardware needs no pins
	if cfg.Hardware.Mode == ModeSim {
		return
	}

	var (
		missingFields []string
		usedPins      = map[int]string{}
		conflicts     []string
	)

	v := reflect.ValueOf(cfg.GPIO)
	t := reflect.TypeOf(cfg.GPIO)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldName := t.Field(i).Tag.Get("yaml")

		if field.IsNil() {
			missingFields = append(missingFields, "gpio."+fieldName)
			continue
		}

		pin := field.Elem().Int()
		if other, exists := usedPins[int(pin)]; exists {
			conflicts = append(conflicts, fmt.Sprintf("gpio.%s and gpio.%s both use pin %d", fieldName, other, pin))
		} else {
			usedPins[int(pin)] = fieldName
		}
	}

	if len(missingFields) > 0 {
		panic("Missing required GPIO config fields: " + strings.Join(missingFields, ", "))
	}
	if len(conflicts) > 0 {
		panic("Conflicting GPIO pins: " + strings.Join(conflicts, ", "))
	}
	if cfg.Hardware.Dimmer == cfg.Hardware.Carrier {
		panic("Dimmer and IR carrier share a PWM channel")
	}
}
