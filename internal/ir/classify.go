package ir

import "time"

// Carrier frequency of the IR LED modulation.
const CarrierHz = 38000

// Receive windows, measured falling edge to falling edge.
const (
	ZeroCycle  = 1100 * time.Microsecond
	OneCycle   = 2200 * time.Microsecond
	StartCycle = 13500 * time.Microsecond
	Tolerance  = 150 * time.Microsecond

	// QuietPeriod without an edge means nobody else is transmitting.
	QuietPeriod = 45 * time.Millisecond
)

// Transmit marks and spaces. Mark+space of each symbol lands on the receive cycle.
const (
	LeadMark  = 9000 * time.Microsecond
	LeadSpace = 4500 * time.Microsecond
	BitMark   = 560 * time.Microsecond
	ZeroSpace = ZeroCycle - BitMark
	OneSpace  = OneCycle - BitMark
	StopMark  = 560 * time.Microsecond
)

type Symbol int

const (
	SymbolNoise Symbol = iota
	SymbolZero
	SymbolOne
	SymbolStart
	SymbolRepeat
)

func (s Symbol) String() string {
	switch s {
	case SymbolZero:
		return "zero"
	case SymbolOne:
		return "one"
	case SymbolStart:
		return "start"
	case SymbolRepeat:
		return "repeat"
	default:
		return "noise"
	}
}

func within(d, center time.Duration) bool {
	return d > center-Tolerance && d < center+Tolerance
}

// Classify maps the time between two falling edges to a symbol.
func Classify(d time.Duration) Symbol {
	switch {
	case d == 0:
		return SymbolRepeat
	case within(d, ZeroCycle):
		return SymbolZero
	case within(d, OneCycle):
		return SymbolOne
	case within(d, StartCycle):
		return SymbolStart
	default:
		return SymbolNoise
	}
}
