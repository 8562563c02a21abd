package alarm

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

// DefaultTable is the weekly table used when nothing has been persisted yet.
var DefaultTable = [7]uint32{18000, 0, 0, 18000, 0, 0, 0}

// Clock is the battery-backed seconds counter with a single alarm register.
type Clock interface {
	Counter() uint32
	SetCounter(c uint32) error
	SetAlarm(c uint32) error
	Alarm() uint32
}

// Store persists the weekly table as minutes since midnight.
type Store interface {
	LoadAlarms() ([7]uint16, error)
	SaveAlarm(day int, minutes uint16) error
}

type Scheduler struct {
	mu    sync.Mutex
	clock Clock
	store Store

	table      [7]uint32
	currentDay uint32
	// sunrise is true when the armed alarm is a sunrise rather than a rollover.
	sunrise bool

	pending atomic.Bool
}

func NewScheduler(clock Clock, store Store) *Scheduler {
	return &Scheduler{clock: clock, store: store, table: DefaultTable}
}

// Init loads the table and arms the next alarm from the current counter.
func (s *Scheduler) Init() error {
	minutes, err := s.store.LoadAlarms()
	if err != nil {
		return fmt.Errorf("load alarm table: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range minutes {
		s.table[i] = uint32(m) * 60
	}
	s.pending.Store(false)

	now := s.clock.Counter()
	s.currentDay = now / model.DayLength
	if err := s.armDay(now); err != nil {
		return err
	}

	log.Info().
		Str("day", model.DayName(s.currentDay)).
		Uint32("counter", now).
		Uint32("next_alarm", s.clock.Alarm()).
		Bool("sunrise_armed", s.sunrise).
		Msg("Alarm scheduler initialized")
	return nil
}

// armDay arms today's alarm if it is still ahead, otherwise the next midnight.
// An alarm equal to now has not elapsed.
func (s *Scheduler) armDay(now uint32) error {
	start := s.currentDay * model.DayLength
	if secs := s.table[s.currentDay%7]; secs != 0 && start+secs >= now {
		s.sunrise = true
		return s.arm(start + secs)
	}
	s.sunrise = false
	return s.arm(start + model.DayLength)
}

func (s *Scheduler) arm(at uint32) error {
	if err := s.clock.SetAlarm(at); err != nil {
		return fmt.Errorf("arm alarm at %d: %w", at, err)
	}
	return nil
}

// OnAlarm is called from the clock's alarm interrupt.
func (s *Scheduler) OnAlarm() {
	s.pending.Store(true)
}

// Poll drains a pending alarm, classifies it and re-arms.
func (s *Scheduler) Poll() model.AlarmEvent {
	if !s.pending.CompareAndSwap(true, false) {
		return model.AlarmNone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sunrise {
		s.sunrise = false
		if err := s.arm((s.currentDay + 1) * model.DayLength); err != nil {
			log.Error().Err(err).Msg("Failed to arm rollover after sunrise")
		}
		log.Info().Str("day", model.DayName(s.currentDay)).Msg("Sunrise alarm fired")
		return model.AlarmSunrise
	}

	now := s.clock.Counter()
	s.currentDay++
	// catch up if the counter skipped whole days
	if day := now / model.DayLength; day > s.currentDay {
		s.currentDay = day
	}
	if err := s.armDay(now); err != nil {
		log.Error().Err(err).Msg("Failed to arm alarm after rollover")
	}

	log.Debug().
		Str("day", model.DayName(s.currentDay)).
		Uint32("next_alarm", s.clock.Alarm()).
		Bool("sunrise_armed", s.sunrise).
		Msg("Day rollover")
	return model.AlarmRollover
}

// SetAlarm persists one slot and re-arms when the slot is today's.
func (s *Scheduler) SetAlarm(day, hour, minute, second int) error {
	if day < 0 || hour < 0 || minute < 0 || second < 0 {
		return fmt.Errorf("negative time component")
	}
	secs := model.Seconds(0, uint32(hour), uint32(minute), uint32(second))
	if secs >= model.DayLength {
		return fmt.Errorf("alarm time %d:%02d:%02d is past the end of the day", hour, minute, second)
	}
	slot := day % 7

	if err := s.store.SaveAlarm(slot, uint16(secs/60)); err != nil {
		return fmt.Errorf("persist alarm for %s: %w", model.DayNames[slot], err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.table[slot] = secs
	log.Info().Str("day", model.DayNames[slot]).Uint32("seconds", secs).Msg("Alarm updated")

	if uint32(slot) == s.currentDay%7 {
		return s.armDay(s.clock.Counter())
	}
	return nil
}

// SetTime moves the counter and re-derives the day and the armed alarm.
func (s *Scheduler) SetTime(day, hour, minute, second int) error {
	if day < 0 || hour < 0 || minute < 0 || second < 0 {
		return fmt.Errorf("negative time component")
	}
	c := model.Seconds(uint32(day), uint32(hour), uint32(minute), uint32(second))
	if err := s.clock.SetCounter(c); err != nil {
		return fmt.Errorf("set counter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending.Store(false)
	s.currentDay = c / model.DayLength
	return s.armDay(c)
}

func (s *Scheduler) Table() [7]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

func (s *Scheduler) NextAlarm() uint32 {
	return s.clock.Alarm()
}

func (s *Scheduler) Now() uint32 {
	return s.clock.Counter()
}

func (s *Scheduler) CurrentDay() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDay
}

func (s *Scheduler) SunriseArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sunrise
}
