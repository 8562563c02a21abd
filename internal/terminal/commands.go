package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
	"github.com/thatsimonsguy/sunrise-lamp/internal/remote"
)

var errUnavailable = errors.New("not available")

func defaultCommands() []Command {
	return []Command{
		{Name: "help", Usage: "help", Run: runHelp},
		{Name: "reset", Usage: "reset", Run: runReset},
		{Name: "reg", Usage: "reg [get/set] [address] [bit] [0 or 1]", Run: runReg},
		{Name: "transmit", Usage: "transmit <text>", Run: runTransmit},
		{Name: "time", Usage: "time set [day] [hour] [minute] [second]", Run: runTime},
		{Name: "alarm", Usage: "alarm set <day of week> [hour] [minute] [second]", Run: runAlarm},
		{Name: "ping", Usage: "ping <count>", Run: runPing},
	}
}

func runHelp(_ context.Context, t *Terminal, _ []string) error {
	names := make([]string, 0, len(t.commands))
	for _, c := range t.commands {
		names = append(names, c.Name)
	}
	t.printf("The following commands are currently defined:\n\n%s \n", strings.Join(names, " "))
	return nil
}

func runReset(_ context.Context, t *Terminal, _ []string) error {
	if t.deps.Reset == nil {
		return errUnavailable
	}
	t.printf("resetting\n")
	t.deps.Reset()
	return nil
}

func runReg(_ context.Context, t *Terminal, args []string) error {
	if t.deps.Registers == nil {
		return errUnavailable
	}
	if len(args) < 2 {
		return errUsage
	}

	addr, err := parseHex(args[1], 16)
	if err != nil {
		return err
	}

	switch args[0] {
	case "get":
		if len(args) != 2 {
			return errUsage
		}
		v, err := t.deps.Registers.GetRegister(uint16(addr))
		if err != nil {
			return err
		}
		t.printf("%s\n", binary16(v))
	case "set":
		if len(args) != 4 {
			return errUsage
		}
		bit, err := parseUint(args[2], 8)
		if err != nil || bit > 15 {
			return errUsage
		}
		if args[3] != "0" && args[3] != "1" {
			return errUsage
		}
		v, err := t.deps.Registers.GetRegister(uint16(addr))
		if err != nil {
			return err
		}
		if args[3] == "1" {
			v |= 1 << bit
		} else {
			v &^= 1 << bit
		}
		if err := t.deps.Registers.SetRegister(uint16(addr), v); err != nil {
			return err
		}
		t.printf("%s\n", binary16(v))
	default:
		return errUsage
	}
	return nil
}

func runTransmit(ctx context.Context, t *Terminal, args []string) error {
	if t.deps.Link == nil {
		return errUnavailable
	}
	if len(args) == 0 {
		return errUsage
	}
	text := strings.Join(args, " ")
	for _, b := range remote.Frame(text) {
		if err := t.deps.Link.Send(ctx, t.deps.PeerAddress, b); err != nil {
			return fmt.Errorf("transmit: %w", err)
		}
	}
	return nil
}

func (t *Terminal) printClock(c uint32) {
	d, h, m, s := model.SplitCounter(c)
	t.printf("%s - %d:%02d:%02d", model.DayName(d), h, m, s)
}

func runTime(_ context.Context, t *Terminal, args []string) error {
	sched := t.deps.Scheduler
	if sched == nil {
		return errUnavailable
	}

	if len(args) > 0 {
		if args[0] != "set" || len(args) != 5 {
			return errUsage
		}
		d, h, m, s, err := parseDHMS(args[1:])
		if err != nil {
			return err
		}
		if err := sched.SetTime(d, h, m, s); err != nil {
			return err
		}
		t.printf("%d\n", sched.Now())
		return nil
	}

	now := sched.Now()
	t.printf("%d\nCurrent time:\n", now)
	t.printClock(now)
	t.printf("\nUptime: %d days\n", now/model.DayLength)
	return nil
}

func runAlarm(_ context.Context, t *Terminal, args []string) error {
	sched := t.deps.Scheduler
	if sched == nil {
		return errUnavailable
	}

	if len(args) > 0 {
		if args[0] != "set" || len(args) < 3 {
			return errUsage
		}
		d, h, m, s, err := parseDHMS(args[1:])
		if err != nil {
			return err
		}
		return sched.SetAlarm(d, h, m, s)
	}

	next := sched.NextAlarm()
	t.printf("%d\nAlarm set for:\n", next)
	t.printClock(next)
	t.printf("\n\nAlarms:\n")
	for day, secs := range sched.Table() {
		_, h, m, s := model.SplitCounter(secs)
		t.printf("%s - %d:%02d:%02d\n", model.DayNames[day], h, m, s)
	}
	return nil
}

func runPing(_ context.Context, t *Terminal, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	n, err := parseUint(args[0], 16)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		t.printf("pong\n")
	}
	return nil
}
