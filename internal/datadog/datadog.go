package datadog

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/env"
	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

// client is the subset of statsd.ClientInterface the lamp emits through.
type client interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
}

var dogstatsd client

func InitMetrics() {
	if !env.Cfg.EnableDatadog {
		log.Info().Msg("Datadog metrics disabled")
		return
	}

	c, err := statsd.New(env.Cfg.DDAgentAddr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}

	c.Namespace = env.Cfg.DDNamespace
	c.Tags = env.Cfg.DDTags
	dogstatsd = c

	log.Info().
		Str("addr", env.Cfg.DDAgentAddr).
		Str("namespace", env.Cfg.DDNamespace).
		Strs("tags", env.Cfg.DDTags).
		Msg("Datadog metrics initialized")
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Gauge(name, value, tags, 1)
		if err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

func Count(name string, value int64, tags ...string) {
	if dogstatsd != nil && value != 0 {
		err := dogstatsd.Count(name, value, tags, 1)
		if err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
		}
	}
}

// LampStatus emits the lamp snapshot. Output is reported as percent of full.
func LampStatus(st model.LampStatus) {
	on := 0.0
	if st.State != model.LampOff {
		on = 1
	}
	output := float64(model.MinBrightness-st.Brightness) * 100 / float64(model.MinBrightness)
	Gauge("lamp.on", on, "source:"+string(st.Source))
	Gauge("lamp.output_pct", output, "source:"+string(st.Source))
}
