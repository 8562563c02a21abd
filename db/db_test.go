package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	conn, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

var testDefaults = [7]uint32{18000, 0, 0, 18000, 0, 0, 0}

func TestAlarmCell(t *testing.T) {
	assert.Equal(t, uint16(0x04), AlarmCell(0))
	assert.Equal(t, uint16(0x1C), AlarmCell(6))
	assert.Equal(t, uint16(0x04), AlarmCell(7))
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	conn := setupTestDB(t)
	require.NoError(t, ApplyMigrations(conn))
	require.NoError(t, ApplyMigrations(conn))
}

func TestSeedDefaults_DoesNotOverwrite(t *testing.T) {
	conn := setupTestDB(t)
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, SeedDefaults(conn, testDefaults, now))
	minutes, err := GetAlarmMinutes(conn)
	require.NoError(t, err)
	assert.Equal(t, [7]uint16{300, 0, 0, 300, 0, 0, 0}, minutes)

	require.NoError(t, SetRegister(conn, AlarmCell(1), 420))
	require.NoError(t, SetRTCAlarm(conn, 1234))
	require.NoError(t, SeedDefaults(conn, testDefaults, now.Add(time.Hour)))

	minutes, err = GetAlarmMinutes(conn)
	require.NoError(t, err)
	assert.Equal(t, uint16(420), minutes[1])

	epoch, alarm, err := GetRTC(conn)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), epoch)
	assert.Equal(t, uint32(1234), alarm)
}

func TestRegisters_UnwrittenReadsZero(t *testing.T) {
	conn := setupTestDB(t)
	v, err := GetRegister(conn, 0x40)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), v)
}

func TestRegisters_Upsert(t *testing.T) {
	conn := setupTestDB(t)

	require.NoError(t, SetRegister(conn, 0x08, 1))
	require.NoError(t, SetRegister(conn, 0x08, 0xBEEF))
	require.NoError(t, SetRegister(conn, 0x04, 7))

	regs, err := GetAllRegisters(conn)
	require.NoError(t, err)
	assert.Equal(t, []Register{{0x04, 7}, {0x08, 0xBEEF}}, regs)
}

func TestBank_AlarmRoundTrip(t *testing.T) {
	conn := setupTestDB(t)
	bank := NewBank(conn)

	require.NoError(t, bank.SaveAlarm(3, 390))
	minutes, err := bank.LoadAlarms()
	require.NoError(t, err)
	assert.Equal(t, uint16(390), minutes[3])

	v, err := bank.GetRegister(0x10)
	require.NoError(t, err)
	assert.Equal(t, uint16(390), v)
}
