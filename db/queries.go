package db

import (
	"database/sql"
	"errors"
	"fmt"
)

type Register struct {
	Address uint16 `json:"address"`
	Value   uint16 `json:"value"`
}

// GetRegister returns 0 for a register that was never written.
func GetRegister(db *sql.DB, address uint16) (uint16, error) {
	var v uint16
	err := db.QueryRow(`SELECT value FROM backup_registers WHERE address = ?`, address).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get register 0x%02X: %w", address, err)
	}
	return v, nil
}

func GetAllRegisters(db *sql.DB) ([]Register, error) {
	rows, err := db.Query(`SELECT address, value FROM backup_registers ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("failed to query registers: %w", err)
	}
	defer rows.Close()

	var regs []Register
	for rows.Next() {
		var r Register
		if err := rows.Scan(&r.Address, &r.Value); err != nil {
			return nil, fmt.Errorf("failed to scan register: %w", err)
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// GetAlarmMinutes reads the seven alarm cells.
func GetAlarmMinutes(db *sql.DB) ([7]uint16, error) {
	var out [7]uint16
	for day := range out {
		v, err := GetRegister(db, AlarmCell(day))
		if err != nil {
			return out, err
		}
		out[day] = v
	}
	return out, nil
}

// GetRTC returns the unix time at which the counter read zero, and the alarm register.
func GetRTC(db *sql.DB) (epoch int64, alarm uint32, err error) {
	err = db.QueryRow(`SELECT epoch, alarm FROM rtc WHERE id = 1`).Scan(&epoch, &alarm)
	if err != nil {
		return 0, 0, fmt.Errorf("query rtc: %w", err)
	}
	return epoch, alarm, nil
}
