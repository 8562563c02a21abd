package db

import (
	"fmt"
	"time"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

func GetAlarmsCLI(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	minutes, err := GetAlarmMinutes(conn)
	if err != nil {
		return err
	}
	for day, m := range minutes {
		if m == 0 {
			fmt.Printf("%s - off\n", model.DayNames[day])
			continue
		}
		fmt.Printf("%s - %d:%02d\n", model.DayNames[day], m/60, m%60)
	}
	return nil
}

// SetAlarmCLI writes one alarm cell. The running controller picks it up on its next start.
func SetAlarmCLI(dbPath string, day, hour, minute int) error {
	if day < 0 || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid alarm %d %d:%d", day, hour, minute)
	}
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx, err := StartTransaction(conn)
	if err != nil {
		return err
	}
	if err := SetRegisterWithTx(tx, AlarmCell(day), uint16(hour*60+minute)); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

// SetTimeCLI sets the counter to the given day/time as of now.
func SetTimeCLI(dbPath string, day, hour, minute, second int) error {
	if day < 0 || hour < 0 || minute < 0 || second < 0 {
		return fmt.Errorf("negative time component")
	}
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	c := model.Seconds(uint32(day), uint32(hour), uint32(minute), uint32(second))
	return SetRTCEpoch(conn, time.Now().Unix()-int64(c))
}

func DumpRegistersCLI(dbPath string) error {
	conn, err := Open(dbPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	regs, err := GetAllRegisters(conn)
	if err != nil {
		return err
	}
	for _, r := range regs {
		fmt.Printf("0x%02X  %016b  %d\n", r.Address, r.Value, r.Value)
	}

	epoch, alarm, err := GetRTC(conn)
	if err != nil {
		return err
	}
	fmt.Printf("rtc epoch=%d counter=%d alarm=%d\n", epoch, time.Now().Unix()-epoch, alarm)
	return nil
}
