package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS backup_registers (
	address INTEGER PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rtc (
	id INTEGER PRIMARY KEY CHECK(id=1),
	epoch INTEGER NOT NULL,
	alarm INTEGER NOT NULL
);
`

// AlarmCell is the backup register holding the alarm for day (0 = Monday).
func AlarmCell(day int) uint16 {
	return uint16(0x04 + (day%7)*0x04)
}

// Open opens the sqlite file and brings the schema up to date.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; one connection keeps :memory: databases shared
	conn.SetMaxOpenConns(1)

	if err := ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func ApplyMigrations(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SeedDefaults writes the default alarm table and starts the counter at zero,
// leaving anything already stored untouched.
func SeedDefaults(conn *sql.DB, defaults [7]uint32, now time.Time) error {
	tx, err := StartTransaction(conn)
	if err != nil {
		return err
	}
	defer RollbackTransaction(tx)

	for day, secs := range defaults {
		_, err = tx.Exec(`INSERT OR IGNORE INTO backup_registers (address, value) VALUES (?, ?)`,
			AlarmCell(day), secs/60)
		if err != nil {
			return fmt.Errorf("failed to seed alarm cell for day %d: %w", day, err)
		}
	}

	res, err := tx.Exec(`INSERT OR IGNORE INTO rtc (id, epoch, alarm) VALUES (1, ?, 0)`, now.Unix())
	if err != nil {
		return fmt.Errorf("failed to seed rtc: %w", err)
	}

	if err := CommitTransaction(tx); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info().Msg("Backup domain initialized with defaults")
	}
	return nil
}
