package db

import (
	"database/sql"
	"fmt"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction. It is a no-op after commit.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

func SetRegisterWithTx(tx *sql.Tx, address, value uint16) error {
	_, err := tx.Exec(`INSERT INTO backup_registers (address, value) VALUES (?, ?)
		ON CONFLICT(address) DO UPDATE SET value = excluded.value`, address, value)
	if err != nil {
		return fmt.Errorf("set register 0x%02X: %w", address, err)
	}
	return nil
}

func SetRegister(db *sql.DB, address, value uint16) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := SetRegisterWithTx(tx, address, value); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func SetRTCEpoch(db *sql.DB, epoch int64) error {
	_, err := db.Exec(`UPDATE rtc SET epoch = ? WHERE id = 1`, epoch)
	if err != nil {
		return fmt.Errorf("update rtc epoch: %w", err)
	}
	return nil
}

func SetRTCAlarm(db *sql.DB, alarm uint32) error {
	_, err := db.Exec(`UPDATE rtc SET alarm = ? WHERE id = 1`, alarm)
	if err != nil {
		return fmt.Errorf("update rtc alarm: %w", err)
	}
	return nil
}
