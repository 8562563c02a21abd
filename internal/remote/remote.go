package remote

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

// Command codes carried in the IRPacket command byte.
const (
	CodeSTX     uint8 = 0x02
	CodeETX     uint8 = 0x03
	CodeACK     uint8 = 0x06
	CodeNAK     uint8 = 0x15
	CodeTimeout uint8 = 0x17

	CodePower         uint8 = 0x21
	CodeBrightnessInc uint8 = 0x2D
	CodeBrightnessDec uint8 = 0x2B
	CodeBrightnessMax uint8 = 0x3E
	CodeBrightnessMin uint8 = 0x3C
)

const (
	DefaultTimeoutTicks = 30
	maxLine             = 256
)

// Link is the part of the IR link the interpreter needs.
type Link interface {
	Receive() model.IRPacket
	Send(ctx context.Context, address uint16, command uint8) error
}

// Dispatcher runs a completed terminal line.
type Dispatcher interface {
	Dispatch(ctx context.Context, line string)
}

type Options struct {
	// TimeoutTicks closes an idle terminal session.
	TimeoutTicks int
}

type Interpreter struct {
	link     Link
	dispatch Dispatcher
	console  io.Writer

	timeoutTicks int

	session bool
	idle    int
	line    []byte
	peer    uint16
}

func New(link Link, dispatch Dispatcher, console io.Writer, opts Options) *Interpreter {
	if opts.TimeoutTicks <= 0 {
		opts.TimeoutTicks = DefaultTimeoutTicks
	}
	if console == nil {
		console = io.Discard
	}
	return &Interpreter{
		link:         link,
		dispatch:     dispatch,
		console:      console,
		timeoutTicks: opts.TimeoutTicks,
		line:         make([]byte, 0, maxLine),
	}
}

func (in *Interpreter) InSession() bool {
	return in.session
}

// Tick drains at most one packet and advances the session timeout.
func (in *Interpreter) Tick(ctx context.Context) model.RemoteEvents {
	var ev model.RemoteEvents

	pkt := in.link.Receive()
	if !pkt.Empty() {
		in.idle = 0
		in.peer = pkt.Address
		if in.session {
			in.terminalByte(ctx, pkt.Command)
		} else {
			ev = in.command(pkt)
		}
		return ev
	}

	if in.session {
		in.idle++
		if in.idle >= in.timeoutTicks {
			in.session = false
			in.line = in.line[:0]
			fmt.Fprint(in.console, "\nTIMEOUT\n\n")
			log.Warn().Uint16("peer", in.peer).Msg("Terminal session timed out")
			in.reply(ctx, CodeTimeout)
		}
	}
	return ev
}

func (in *Interpreter) command(pkt model.IRPacket) model.RemoteEvents {
	var ev model.RemoteEvents

	switch pkt.Command {
	case CodeSTX:
		in.session = true
		in.line = in.line[:0]
		log.Debug().Uint16("peer", pkt.Address).Msg("Terminal session opened")
		return ev
	case CodeACK:
		fmt.Fprint(in.console, "\nACK\n\n")
		return ev
	case CodeNAK:
		fmt.Fprint(in.console, "\nNAK\n\n")
		return ev
	case CodeTimeout:
		fmt.Fprint(in.console, "\nTIMEOUT\n\n")
		return ev
	case CodePower:
		ev.Power = true
	case CodeBrightnessInc:
		ev.Brightness = model.BrightnessInc
	case CodeBrightnessDec:
		ev.Brightness = model.BrightnessDec
	case CodeBrightnessMax:
		ev.Brightness = model.BrightnessMax
	case CodeBrightnessMin:
		ev.Brightness = model.BrightnessMin
	}

	fmt.Fprintf(in.console, "\n0x%02X%02X%02X%02X.",
		pkt.Address&0xFF, pkt.Address>>8, pkt.CommandInverse, pkt.Command)
	return ev
}

func isTerminator(b uint8) bool {
	return b == '\r' || b == '\n' || b == CodeETX
}

func xorBytes(b []byte) uint8 {
	var x uint8
	for _, c := range b {
		x ^= c
	}
	return x
}

func (in *Interpreter) terminalByte(ctx context.Context, b uint8) {
	// a checksum byte can collide with a terminator code
	if isTerminator(b) && (len(in.line) == 0 || xorBytes(in.line) != b) {
		in.closeLine(ctx)
		return
	}

	if len(in.line) < maxLine {
		in.line = append(in.line, b)
	}
	if b != 0 {
		in.console.Write([]byte{b})
	}
}

func (in *Interpreter) closeLine(ctx context.Context) {
	in.session = false
	line := in.line
	in.line = in.line[:0]

	fmt.Fprint(in.console, "\n")
	if !ValidChecksum(line) {
		fmt.Fprint(in.console, "\nNAK\n\n")
		log.Warn().Uint16("peer", in.peer).Int("len", len(line)).Msg("Terminal line failed checksum")
		in.reply(ctx, CodeNAK)
		return
	}

	text := string(line[:len(line)-1])
	if in.dispatch != nil {
		in.dispatch.Dispatch(ctx, text)
	}
	fmt.Fprint(in.console, "\nACK\n\n")
	in.reply(ctx, CodeACK)
}

// ValidChecksum reports whether the last byte of line is the XOR of the others.
func ValidChecksum(line []byte) bool {
	if len(line) == 0 {
		return false
	}
	n := len(line) - 1
	return xorBytes(line[:n]) == line[n]
}

// Frame returns the command bytes that carry text as a terminal line.
func Frame(text string) []uint8 {
	out := make([]uint8, 0, len(text)+3)
	out = append(out, CodeSTX)
	out = append(out, []byte(text)...)
	out = append(out, xorBytes([]byte(text)), CodeETX)
	return out
}

func (in *Interpreter) reply(ctx context.Context, code uint8) {
	if err := in.link.Send(ctx, in.peer, code); err != nil {
		log.Error().Err(err).Uint8("code", code).Uint16("peer", in.peer).Msg("Failed to send reply")
	}
}
