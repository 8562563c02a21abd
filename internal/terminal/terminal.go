package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

const Prompt = "lamp$ "

// Sender transmits one IR command, waiting for a quiet channel first.
type Sender interface {
	Send(ctx context.Context, address uint16, command uint8) error
}

// Scheduler is the alarm scheduler as seen from the command line.
type Scheduler interface {
	Now() uint32
	NextAlarm() uint32
	Table() [7]uint32
	SetAlarm(day, hour, minute, second int) error
	SetTime(day, hour, minute, second int) error
}

// Registers is the battery-backed register bank.
type Registers interface {
	GetRegister(address uint16) (uint16, error)
	SetRegister(address uint16, value uint16) error
}

type Deps struct {
	Link      Sender
	Scheduler Scheduler
	Registers Registers
	Reset     func()

	// PeerAddress receives lines sent with transmit.
	PeerAddress uint16
}

type Command struct {
	Name  string
	Usage string
	Run   func(ctx context.Context, t *Terminal, args []string) error
}

type Terminal struct {
	out      io.Writer
	deps     Deps
	commands []Command
}

func New(out io.Writer, deps Deps) *Terminal {
	t := &Terminal{out: out, deps: deps}
	t.commands = defaultCommands()
	return t
}

func (t *Terminal) Commands() []Command {
	return t.commands
}

// Lookup scans the table in order.
func (t *Terminal) Lookup(name string) (Command, bool) {
	for _, c := range t.commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

func (t *Terminal) printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

// Dispatch runs one command line and prints the prompt.
func (t *Terminal) Dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		t.printf("%s", Prompt)
		return
	}

	cmd, ok := t.Lookup(fields[0])
	switch {
	case !ok:
		t.printf("%s: command not found", line)
	case cmd.Run == nil:
		t.printf("%s: command not implemented", line)
	default:
		if err := cmd.Run(ctx, t, fields[1:]); err != nil {
			log.Debug().Err(err).Str("command", cmd.Name).Msg("Terminal command failed")
			t.printf("%s: %v\n\t%s\n", cmd.Name, err, cmd.Usage)
		}
	}

	t.printf("\n%s", Prompt)
}
