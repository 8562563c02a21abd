package ir

import "time"

const (
	PacketBits = 32
	PlanLength = 2 + 2*PacketBits + 1
)

// Plan is the transmit timing sequence in microseconds.
// Positive entries are carrier on, negative entries are carrier off.
type Plan [PlanLength]int32

func us(d time.Duration) int32 {
	return int32(d / time.Microsecond)
}

// RawWord packs a packet the way it goes on the wire, bit 0 first.
func RawWord(address uint16, command, inverse uint8) uint32 {
	return uint32(address) | uint32(command)<<16 | uint32(inverse)<<24
}

func BuildPlan(address uint16, command, inverse uint8) Plan {
	var p Plan
	p[0] = us(LeadMark)
	p[1] = -us(LeadSpace)

	raw := RawWord(address, command, inverse)
	for bit := 0; bit < PacketBits; bit++ {
		i := 2 + 2*bit
		p[i] = us(BitMark)
		if raw>>bit&1 == 0 {
			p[i+1] = -us(ZeroSpace)
		} else {
			p[i+1] = -us(OneSpace)
		}
	}

	p[PlanLength-1] = us(StopMark)
	return p
}

// Interval returns the magnitude of entry i and whether the carrier is on.
func (p *Plan) Interval(i int) (time.Duration, bool) {
	v := p[i]
	if v < 0 {
		return time.Duration(-v) * time.Microsecond, false
	}
	return time.Duration(v) * time.Microsecond, true
}

// EdgeGaps converts the plan into the falling-edge to falling-edge intervals a
// receiver sees: one gap per mark after the first.
func (p *Plan) EdgeGaps() []time.Duration {
	var gaps []time.Duration
	var acc time.Duration
	started := false
	for i := range p {
		d, on := p.Interval(i)
		if on {
			if started {
				gaps = append(gaps, acc)
			}
			started = true
			acc = 0
		}
		acc += d
	}
	return gaps
}
