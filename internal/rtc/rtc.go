package rtc

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/db"
)

// RTC is a seconds counter that keeps running across restarts. The counter is
// derived from the wall clock and a persisted epoch, so setting it only moves
// the epoch.
type RTC struct {
	conn *sql.DB

	mu    sync.Mutex
	epoch int64
	alarm uint32
	fired bool

	now func() time.Time
}

func New(conn *sql.DB) (*RTC, error) {
	epoch, alarm, err := db.GetRTC(conn)
	if err != nil {
		return nil, fmt.Errorf("load rtc: %w", err)
	}
	return &RTC{conn: conn, epoch: epoch, alarm: alarm, now: time.Now}, nil
}

func (r *RTC) counterLocked() uint32 {
	d := r.now().Unix() - r.epoch
	if d < 0 {
		return 0
	}
	return uint32(d)
}

func (r *RTC) Counter() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counterLocked()
}

func (r *RTC) SetCounter(c uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	epoch := r.now().Unix() - int64(c)
	if err := db.SetRTCEpoch(r.conn, epoch); err != nil {
		return err
	}
	r.epoch = epoch
	r.fired = false
	return nil
}

func (r *RTC) SetAlarm(c uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := db.SetRTCAlarm(r.conn, c); err != nil {
		return err
	}
	r.alarm = c
	r.fired = false
	return nil
}

func (r *RTC) Alarm() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alarm
}

// check fires onAlarm once per armed alarm once the counter reaches it.
func (r *RTC) check(onAlarm func()) {
	r.mu.Lock()
	due := !r.fired && r.counterLocked() >= r.alarm
	if due {
		r.fired = true
	}
	alarm := r.alarm
	r.mu.Unlock()

	if due {
		log.Debug().Uint32("alarm", alarm).Msg("RTC alarm")
		onAlarm()
	}
}

// Watch polls the counter and calls onAlarm when the armed alarm is reached.
func (r *RTC) Watch(ctx context.Context, interval time.Duration, onAlarm func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.check(onAlarm)
		}
	}
}
