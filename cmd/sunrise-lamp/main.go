package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/db"
	"github.com/thatsimonsguy/sunrise-lamp/internal/alarm"
	"github.com/thatsimonsguy/sunrise-lamp/internal/api"
	"github.com/thatsimonsguy/sunrise-lamp/internal/config"
	"github.com/thatsimonsguy/sunrise-lamp/internal/console"
	"github.com/thatsimonsguy/sunrise-lamp/internal/controller"
	"github.com/thatsimonsguy/sunrise-lamp/internal/datadog"
	"github.com/thatsimonsguy/sunrise-lamp/internal/env"
	"github.com/thatsimonsguy/sunrise-lamp/internal/gpio"
	"github.com/thatsimonsguy/sunrise-lamp/internal/ir"
	"github.com/thatsimonsguy/sunrise-lamp/internal/lamp"
	"github.com/thatsimonsguy/sunrise-lamp/internal/logging"
	"github.com/thatsimonsguy/sunrise-lamp/internal/mqtt"
	"github.com/thatsimonsguy/sunrise-lamp/internal/notifications"
	"github.com/thatsimonsguy/sunrise-lamp/internal/remote"
	"github.com/thatsimonsguy/sunrise-lamp/internal/rtc"
	"github.com/thatsimonsguy/sunrise-lamp/internal/terminal"
	"github.com/thatsimonsguy/sunrise-lamp/system/shutdown"
)

// rtcPoll is how often the counter is compared against the armed alarm.
const rtcPoll = 100 * time.Millisecond

func main() {
	cfg := config.Load()
	env.Cfg = &cfg
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("db", cfg.DBPath).
		Str("hardware", cfg.Hardware.Mode).
		Msg("Starting sunrise lamp")

	if cfg.SafeMode {
		log.Warn().Msg("SAFE MODE ENABLED - output enable pin is never forced at shutdown")
	}

	if cfg.Hardware.Mode == config.ModeReal {
		if err := gpio.ValidateStartupPins(*cfg.GPIO.OutputEnable, cfg.Hardware.OutputEnableActiveHigh); err != nil {
			log.Fatal().Err(err).Msg("Refusing to drive the lamp due to unsafe pin states")
		}
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		shutdown.ShutdownWithError(err, "Failed to open database")
	}
	defer conn.Close()
	if err := db.SeedDefaults(conn, alarm.DefaultTable, time.Now()); err != nil {
		shutdown.ShutdownWithError(err, "Failed to seed backup registers")
	}

	clock, err := rtc.New(conn)
	if err != nil {
		shutdown.ShutdownWithError(err, "Failed to load RTC")
	}
	bank := db.NewBank(conn)
	sched := alarm.NewScheduler(clock, bank)
	if err := sched.Init(); err != nil {
		shutdown.ShutdownWithError(err, "Failed to initialize alarm scheduler")
	}

	hw, err := openHardware(&cfg)
	if err != nil {
		shutdown.ShutdownWithError(err, "Failed to open hardware")
	}

	link := ir.NewLink(ir.NewClockTimer(), hw.carrier, hw.edges)

	var out io.Writer = io.Discard
	var input terminal.ByteSource
	if cfg.Console.Port != "" {
		tr, err := console.Open(cfg.Console.Port, cfg.Console.Baud)
		if err != nil {
			shutdown.ShutdownWithError(err, "Failed to open serial console")
		}
		defer tr.Close()
		out, input = tr, tr
	}

	datadog.InitMetrics()
	notifications.Init()

	var publisher mqtt.Publisher = mqtt.Nop{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT unavailable, continuing without it")
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	lampCtl := lamp.New(lamp.Config{
		FadeDuration:    cfg.Lamp.FadeDuration(),
		SunriseDuration: cfg.Lamp.SunriseDuration(),
		Deadband:        cfg.Lamp.Deadband,
		RemoteStep:      cfg.Lamp.RemoteStep,
	}, hw.lamp)

	var ctl *controller.Controller
	term := terminal.New(out, terminal.Deps{
		Link:        link,
		Scheduler:   sched,
		Registers:   bank,
		Reset:       func() { ctl.RequestReset() },
		PeerAddress: cfg.Remote.PeerAddress,
	})
	interp := remote.New(link, term, out, remote.Options{TimeoutTicks: cfg.Remote.TimeoutTicks})

	ctl = controller.New(controller.Deps{
		Lamp:            lampCtl,
		Remote:          interp,
		Alarms:          sched,
		Console:         terminal.NewConsole(term, out),
		Input:           input,
		Link:            link,
		Publisher:       publisher,
		SunriseDuration: cfg.Lamp.SunriseDuration(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go clock.Watch(ctx, rtcPoll, sched.OnAlarm)

	go func() {
		server := api.NewServer(ctl, sched)
		if err := server.Start(cfg.APIPort); err != nil {
			log.Error().Err(err).Msg("API server stopped")
		}
	}()

	if err := publisher.PublishSystem(mqtt.SystemEvent{Timestamp: time.Now(), Event: "STARTUP"}); err != nil {
		log.Warn().Err(err).Msg("Failed to publish startup event")
	}

	ctl.Run(ctx)

	lampCtl.Reset()
	if err := publisher.PublishSystem(mqtt.SystemEvent{Timestamp: time.Now(), Event: "SHUTDOWN", Reason: "signal"}); err != nil {
		log.Warn().Err(err).Msg("Failed to publish shutdown event")
	}
	hw.close()
	log.Info().Msg("Sunrise lamp stopped")
	shutdown.ForceOutputOff()
}
