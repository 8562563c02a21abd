package terminal

import (
	"context"
	"io"
)

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x7f

	maxConsoleLine = 256
	// maxBytesPerTick bounds how much typed input one tick drains.
	maxBytesPerTick = 64
)

// ByteSource is the receive side of the serial transport.
type ByteSource interface {
	NextByte() (byte, bool)
}

// Console is the line editor in front of the command table.
type Console struct {
	term *Terminal
	echo io.Writer
	line []byte
}

func NewConsole(term *Terminal, echo io.Writer) *Console {
	return &Console{term: term, echo: echo, line: make([]byte, 0, maxConsoleLine)}
}

// Poll feeds whatever input is waiting.
func (c *Console) Poll(ctx context.Context, src ByteSource) {
	for i := 0; i < maxBytesPerTick; i++ {
		b, ok := src.NextByte()
		if !ok {
			return
		}
		c.Feed(ctx, b)
	}
}

func (c *Console) Feed(ctx context.Context, b byte) {
	switch b {
	case 0:
		return
	case keyCtrlC:
		c.line = c.line[:0]
	case keyBackspace:
		if len(c.line) > 0 {
			c.line = c.line[:len(c.line)-1]
			io.WriteString(c.echo, "\x1b[D \x1b[D")
		}
	case '\r':
	case '\n':
		c.echo.Write([]byte{b})
		line := string(c.line)
		c.line = c.line[:0]
		c.term.Dispatch(ctx, line)
		return
	default:
		if len(c.line) < maxConsoleLine {
			c.line = append(c.line, b)
		}
	}
	c.echo.Write([]byte{b})
}

func (c *Console) Line() string {
	return string(c.line)
}
