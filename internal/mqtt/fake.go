package mqtt

import (
	"sync"
	"time"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

// FakePublisher records published messages for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	States       []model.LampStatus
	Alarms       []model.AlarmEvent
	SystemEvents []SystemEvent
	Payloads     [][]byte

	// PublishError, if set, is returned by every publish.
	PublishError error
	Closed       bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) record(payload []byte, err error) error {
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishState(at time.Time, st model.LampStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.States = append(f.States, st)
	return f.record(FormatState(at, st))
}

func (f *FakePublisher) PublishAlarm(at time.Time, ev model.AlarmEvent, counter uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Alarms = append(f.Alarms, ev)
	return f.record(FormatAlarm(at, ev, counter))
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.SystemEvents = append(f.SystemEvents, event)
	return f.record(FormatSystem(event))
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// StateCount is safe to call while a controller is publishing.
func (f *FakePublisher) StateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.States)
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishState(time.Time, model.LampStatus) error         { return nil }
func (Nop) PublishAlarm(time.Time, model.AlarmEvent, uint32) error { return nil }
func (Nop) PublishSystem(SystemEvent) error                        { return nil }
func (Nop) Close() error                                           { return nil }
