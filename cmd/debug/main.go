package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thatsimonsguy/sunrise-lamp/db"
	"github.com/thatsimonsguy/sunrise-lamp/internal/config"
	"github.com/thatsimonsguy/sunrise-lamp/internal/env"
	"github.com/thatsimonsguy/sunrise-lamp/internal/pinctrl"
	"github.com/thatsimonsguy/sunrise-lamp/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var dbPath, command, configFile string
	var day, hour, minute, second int
	flag.StringVar(&dbPath, "db", "data/lamp.db", "Path to the SQLite database file")
	flag.StringVar(&command, "cmd", "", "Command to run: get-alarms, set-alarm, set-time, dump-registers, write-boot-script, pin-states")
	flag.StringVar(&configFile, "config-file", "config.yaml", "Lamp config file (write-boot-script, pin-states)")
	flag.IntVar(&day, "day", -1, "Day of week, 0 is Monday")
	flag.IntVar(&hour, "hour", 0, "Hour")
	flag.IntVar(&minute, "minute", 0, "Minute")
	flag.IntVar(&second, "second", 0, "Second (set-time)")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of lamp-debug:")
		fmt.Println("  -db string\tPath to the SQLite database file (default 'data/lamp.db')")
		fmt.Println("  -cmd string\tCommand to run: get-alarms, set-alarm, set-time, dump-registers, write-boot-script, pin-states")
		fmt.Println("  -config-file string\tLamp config file, used by write-boot-script and pin-states")
		fmt.Println("  -day int\tDay of week, 0 is Monday")
		fmt.Println("  -hour int\tHour")
		fmt.Println("  -minute int\tMinute")
		fmt.Println("  -second int\tSecond, used by set-time")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "get-alarms":
		err = db.GetAlarmsCLI(dbPath)
	case "set-alarm":
		if day < 0 || day > 6 {
			fmt.Println("Error: -day 0..6 is required")
			os.Exit(1)
		}
		err = db.SetAlarmCLI(dbPath, day, hour, minute)
	case "set-time":
		if day < 0 {
			fmt.Println("Error: -day is required")
			os.Exit(1)
		}
		err = db.SetTimeCLI(dbPath, day, hour, minute, second)
	case "dump-registers":
		err = db.DumpRegistersCLI(dbPath)
	case "write-boot-script":
		err = writeBootScript(configFile)
	case "pin-states":
		err = pinStates(configFile)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func writeBootScript(configFile string) error {
	cfg, err := config.FromFile(configFile)
	if err != nil {
		return err
	}
	env.Cfg = &cfg
	if err := startup.WriteStartupScript(); err != nil {
		return err
	}
	return startup.InstallStartupService()
}

// pinStates prints what pinctrl reports for every configured GPIO.
func pinStates(configFile string) error {
	cfg, err := config.FromFile(configFile)
	if err != nil {
		return err
	}
	pins := []struct {
		name string
		pin  *int
	}{
		{"output_enable", cfg.GPIO.OutputEnable},
		{"button", cfg.GPIO.Button},
		{"ir_receiver", cfg.GPIO.IRReceiver},
	}
	for _, p := range pins {
		if p.pin == nil {
			fmt.Printf("%-14s not configured\n", p.name)
			continue
		}
		st, err := pinctrl.ReadPin(*p.pin)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
		fmt.Printf("%-14s GPIO%-3d mode=%s pull=%s drive=%s level=%s\n",
			p.name, st.Pin, st.Mode, st.Pull, st.Drive, st.Level)
	}
	return nil
}
