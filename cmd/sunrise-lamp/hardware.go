package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/config"
	"github.com/thatsimonsguy/sunrise-lamp/internal/gpio"
	"github.com/thatsimonsguy/sunrise-lamp/internal/ir"
	"github.com/thatsimonsguy/sunrise-lamp/internal/lamp"
)

// dimmerPeriod spreads the 4096 compare steps over about a millisecond.
const dimmerPeriod = 4096 * 250 * time.Nanosecond

type hardware struct {
	lamp    lamp.Hardware
	carrier ir.Carrier
	edges   ir.EdgeSource
	close   func()
}

func openHardware(cfg *config.Config) (*hardware, error) {
	if cfg.Hardware.Mode == config.ModeSim {
		return simHardware(), nil
	}
	return realHardware(cfg)
}

// simHardware loops the IR LED back into the receiver and parks the dial mid-way.
func simHardware() *hardware {
	edges := &gpio.FakeEdges{}
	log.Warn().Msg("Running on simulated hardware")
	return &hardware{
		lamp: lamp.Hardware{
			Dimmer: gpio.NewFakeDimmer(),
			Enable: &gpio.FakeOutput{},
			Button: &gpio.FakeInput{},
			Dial:   gpio.NewFakeDial(2048),
		},
		carrier: &gpio.FakeCarrier{Edges: edges},
		edges:   edges,
		close:   func() {},
	}
}

func realHardware(cfg *config.Config) (*hardware, error) {
	hw := cfg.Hardware

	chip, err := gpio.OpenChip(hw.GPIOChip)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*hardware, error) {
		chip.Close()
		return nil, err
	}

	enable, err := chip.Output(*cfg.GPIO.OutputEnable, hw.OutputEnableActiveHigh)
	if err != nil {
		return fail(err)
	}
	button, err := chip.Input(*cfg.GPIO.Button)
	if err != nil {
		return fail(err)
	}
	edges, err := chip.FallingEdges(*cfg.GPIO.IRReceiver)
	if err != nil {
		return fail(err)
	}

	dimmer, err := gpio.OpenPWM(hw.Dimmer.Chip, hw.Dimmer.Channel, dimmerPeriod)
	if err != nil {
		return fail(fmt.Errorf("open dimmer: %w", err))
	}
	carrierPWM, err := gpio.OpenPWM(hw.Carrier.Chip, hw.Carrier.Channel, gpio.CarrierPeriod(hw.CarrierHz))
	if err != nil {
		return fail(fmt.Errorf("open carrier: %w", err))
	}
	carrier, err := gpio.NewCarrier(carrierPWM)
	if err != nil {
		return fail(err)
	}
	carrier.OnError = func(err error) {
		log.Error().Err(err).Msg("IR carrier write failed")
	}

	dial, err := gpio.OpenDial(hw.DialDevice, hw.DialChannel)
	if err != nil {
		return fail(err)
	}

	log.Info().
		Str("chip", hw.GPIOChip).
		Int("output_enable", *cfg.GPIO.OutputEnable).
		Int("button", *cfg.GPIO.Button).
		Int("ir_receiver", *cfg.GPIO.IRReceiver).
		Msg("Hardware opened")

	return &hardware{
		lamp: lamp.Hardware{
			Dimmer: dimmer,
			Enable: enable,
			Button: button,
			Dial:   dial,
		},
		carrier: carrier,
		edges:   edges,
		close: func() {
			carrier.Off()
			if err := dimmer.Disable(); err != nil {
				log.Error().Err(err).Msg("Failed to disable dimmer")
			}
			if err := chip.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to release GPIO lines")
			}
		},
	}, nil
}
