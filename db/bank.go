package db

import "database/sql"

// Bank exposes the backup registers to the scheduler and the terminal.
type Bank struct {
	conn *sql.DB
}

func NewBank(conn *sql.DB) *Bank {
	return &Bank{conn: conn}
}

func (b *Bank) GetRegister(address uint16) (uint16, error) {
	return GetRegister(b.conn, address)
}

func (b *Bank) SetRegister(address, value uint16) error {
	return SetRegister(b.conn, address, value)
}

func (b *Bank) LoadAlarms() ([7]uint16, error) {
	return GetAlarmMinutes(b.conn)
}

func (b *Bank) SaveAlarm(day int, minutes uint16) error {
	return SetRegister(b.conn, AlarmCell(day), minutes)
}
