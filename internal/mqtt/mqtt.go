// Package mqtt publishes lamp state changes and alarm events.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

const (
	TopicState  = "home/sunrise-lamp/state"
	TopicEvents = "home/sunrise-lamp/events"
	TopicSystem = "home/sunrise-lamp/system"
)

// Publisher publishes lamp messages. Errors are reported, never fatal.
type Publisher interface {
	PublishState(at time.Time, st model.LampStatus) error
	PublishAlarm(at time.Time, ev model.AlarmEvent, counter uint32) error
	PublishSystem(event SystemEvent) error
	Close() error
}

type SystemEvent struct {
	Timestamp time.Time
	Event     string // STARTUP, SHUTDOWN
	Reason    string
}

type StatePayload struct {
	Lamp LampPayload `json:"lamp"`
}

type LampPayload struct {
	Timestamp  string `json:"timestamp"`
	State      string `json:"state"`
	Brightness uint16 `json:"brightness"`
	// Percent is the light output, 100 at MaxBrightness.
	Percent int    `json:"percent"`
	Source  string `json:"source"`
}

func Percent(b model.Brightness) int {
	return int(model.MinBrightness-model.ClampBrightness(int(b))) * 100 / int(model.MinBrightness)
}

func FormatState(at time.Time, st model.LampStatus) ([]byte, error) {
	return json.Marshal(StatePayload{Lamp: LampPayload{
		Timestamp:  at.UTC().Format(time.RFC3339),
		State:      string(st.State),
		Brightness: uint16(st.Brightness),
		Percent:    Percent(st.Brightness),
		Source:     string(st.Source),
	}})
}

type AlarmPayload struct {
	Alarm AlarmInner `json:"alarm"`
}

type AlarmInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Day       string `json:"day"`
	Clock     string `json:"clock"`
}

func FormatAlarm(at time.Time, ev model.AlarmEvent, counter uint32) ([]byte, error) {
	day, h, m, s := model.SplitCounter(counter)
	return json.Marshal(AlarmPayload{Alarm: AlarmInner{
		Timestamp: at.UTC().Format(time.RFC3339),
		Event:     ev.String(),
		Day:       model.DayName(day),
		Clock:     fmt.Sprintf("%02d:%02d:%02d", h, m, s),
	}})
}

type SystemPayload struct {
	System SystemInner `json:"system"`
}

type SystemInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

func FormatSystem(event SystemEvent) ([]byte, error) {
	return json.Marshal(SystemPayload{System: SystemInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
	}})
}
