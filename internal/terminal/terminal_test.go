package terminal

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
	"github.com/thatsimonsguy/sunrise-lamp/internal/remote"
)

type fakeSender struct {
	sent []uint8
	addr []uint16
}

func (f *fakeSender) Send(_ context.Context, address uint16, command uint8) error {
	f.addr = append(f.addr, address)
	f.sent = append(f.sent, command)
	return nil
}

type fakeScheduler struct {
	now   uint32
	next  uint32
	table [7]uint32
}

func (f *fakeScheduler) Now() uint32       { return f.now }
func (f *fakeScheduler) NextAlarm() uint32 { return f.next }
func (f *fakeScheduler) Table() [7]uint32  { return f.table }

func (f *fakeScheduler) SetAlarm(day, hour, minute, second int) error {
	f.table[day%7] = model.Seconds(0, uint32(hour), uint32(minute), uint32(second))
	return nil
}

func (f *fakeScheduler) SetTime(day, hour, minute, second int) error {
	f.now = model.Seconds(uint32(day), uint32(hour), uint32(minute), uint32(second))
	return nil
}

type fakeRegisters map[uint16]uint16

func (f fakeRegisters) GetRegister(a uint16) (uint16, error) { return f[a], nil }

func (f fakeRegisters) SetRegister(a uint16, v uint16) error {
	f[a] = v
	return nil
}

type rig struct {
	term   *Terminal
	out    *bytes.Buffer
	sender *fakeSender
	sched  *fakeScheduler
	regs   fakeRegisters
	resets int
}

func newRig() *rig {
	r := &rig{
		out:    &bytes.Buffer{},
		sender: &fakeSender{},
		sched:  &fakeScheduler{},
		regs:   fakeRegisters{},
	}
	r.term = New(r.out, Deps{
		Link:        r.sender,
		Scheduler:   r.sched,
		Registers:   r.regs,
		Reset:       func() { r.resets++ },
		PeerAddress: 0x0001,
	})
	return r
}

func (r *rig) run(line string) string {
	r.out.Reset()
	r.term.Dispatch(context.Background(), line)
	return r.out.String()
}

func TestLookup_TableOrder(t *testing.T) {
	r := newRig()
	var names []string
	for _, c := range r.term.Commands() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"help", "reset", "reg", "transmit", "time", "alarm", "ping"}, names)

	_, ok := r.term.Lookup("pin")
	assert.False(t, ok)
}

func TestDispatch_Unknown(t *testing.T) {
	r := newRig()
	assert.Equal(t, "bogus 1: command not found\nlamp$ ", r.run("bogus 1"))
}

func TestDispatch_EmptyLinePrintsPrompt(t *testing.T) {
	r := newRig()
	assert.Equal(t, "lamp$ ", r.run("   "))
}

func TestHelp(t *testing.T) {
	r := newRig()
	out := r.run("help")
	assert.Contains(t, out, "help reset reg transmit time alarm ping")
}

func TestPing(t *testing.T) {
	r := newRig()
	assert.Equal(t, "pong\npong\npong\n\nlamp$ ", r.run("ping 3"))
	assert.Contains(t, r.run("ping x"), "ping <count>")
}

func TestReset(t *testing.T) {
	r := newRig()
	r.run("reset")
	assert.Equal(t, 1, r.resets)
}

func TestReg_GetSet(t *testing.T) {
	r := newRig()
	r.regs[0x04] = 300

	assert.Contains(t, r.run("reg get 0x04"), "0000000100101100")

	r.run("reg set 0x04 0 1")
	assert.Equal(t, uint16(301), r.regs[0x04])

	r.run("reg set 4 8 0")
	assert.Equal(t, uint16(45), r.regs[0x04])

	assert.Contains(t, r.run("reg set 4 16 1"), "invalid usage")
	assert.Contains(t, r.run("reg poke 4"), "invalid usage")
}

func TestTransmit_FramesLine(t *testing.T) {
	r := newRig()
	r.run("transmit AB")

	assert.Equal(t, remote.Frame("AB"), r.sender.sent)
	assert.Equal(t, []uint8{remote.CodeSTX, 'A', 'B', 0x03, remote.CodeETX}, r.sender.sent)
	for _, a := range r.sender.addr {
		assert.Equal(t, uint16(0x0001), a)
	}
}

func TestTime_ShowAndSet(t *testing.T) {
	r := newRig()

	out := r.run("time set 1 5 30 0")
	assert.Equal(t, model.Seconds(1, 5, 30, 0), r.sched.now)
	assert.Contains(t, out, "106200")

	out = r.run("time")
	assert.Contains(t, out, "Current time:\nTue - 5:30:00")
	assert.Contains(t, out, "Uptime: 1 days")

	assert.Contains(t, r.run("time set 1 2"), "invalid usage")
}

func TestAlarm_ShowAndSet(t *testing.T) {
	r := newRig()

	r.run("alarm set 3 6 15")
	assert.Equal(t, uint32(6*3600+15*60), r.sched.table[3])

	r.sched.next = model.Seconds(3, 6, 15, 0)
	out := r.run("alarm")
	assert.Contains(t, out, "Alarm set for:\nThr - 6:15:00")
	assert.Contains(t, out, "Thr - 6:15:00\n")
	assert.Contains(t, out, "Mon - 0:00:00\n")

	assert.Contains(t, r.run("alarm set 3"), "invalid usage")
}

func TestConsole_LineEditing(t *testing.T) {
	r := newRig()
	echo := &bytes.Buffer{}
	c := NewConsole(r.term, echo)
	ctx := context.Background()

	for _, b := range []byte("pinx") {
		c.Feed(ctx, b)
	}
	c.Feed(ctx, keyBackspace)
	assert.Equal(t, "pin", c.Line())
	assert.Contains(t, echo.String(), "\x1b[D \x1b[D")

	c.Feed(ctx, 'g')
	c.Feed(ctx, ' ')
	c.Feed(ctx, '1')
	c.Feed(ctx, '\r')
	c.Feed(ctx, '\n')
	assert.Equal(t, "", c.Line())
	assert.Contains(t, r.out.String(), "pong\n")
}

func TestConsole_CtrlCClears(t *testing.T) {
	r := newRig()
	c := NewConsole(r.term, &bytes.Buffer{})
	ctx := context.Background()

	for _, b := range []byte("ping 9") {
		c.Feed(ctx, b)
	}
	c.Feed(ctx, keyCtrlC)
	assert.Equal(t, "", c.Line())

	c.Feed(ctx, keyBackspace)
	assert.Equal(t, "", c.Line())
}

type byteQueue []byte

func (q *byteQueue) NextByte() (byte, bool) {
	if len(*q) == 0 {
		return 0, false
	}
	b := (*q)[0]
	*q = (*q)[1:]
	return b, true
}

func TestConsole_PollDrainsSource(t *testing.T) {
	r := newRig()
	c := NewConsole(r.term, &bytes.Buffer{})
	q := byteQueue("ping 2\n")

	c.Poll(context.Background(), &q)
	require.Empty(t, q)
	assert.Equal(t, "pong\npong\n\nlamp$ ", r.out.String())
}
