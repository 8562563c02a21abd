package ir

import (
	"sync/atomic"

	"github.com/thatsimonsguy/sunrise-lamp/internal/model"
)

const RingSize = 256

// Ring is a single-producer / single-consumer packet buffer. The producer is the
// edge handler, the consumer is the application tick. One slot stays empty so
// full (head+1 == tail) and empty (head == tail) are distinct.
type Ring struct {
	slots [RingSize]model.IRPacket
	head  atomic.Uint32
	tail  atomic.Uint32
}

// Push stores p and reports whether it fit. A full ring drops p.
func (r *Ring) Push(p model.IRPacket) bool {
	head := uint8(r.head.Load())
	if head+1 == uint8(r.tail.Load()) {
		return false
	}
	r.slots[head] = p
	r.head.Store(uint32(head + 1))
	return true
}

// Pop returns the oldest packet, or model.NoPacket when empty.
func (r *Ring) Pop() model.IRPacket {
	tail := uint8(r.tail.Load())
	if tail == uint8(r.head.Load()) {
		return model.NoPacket
	}
	p := r.slots[tail]
	r.tail.Store(uint32(tail + 1))
	return p
}

func (r *Ring) Len() int {
	return int(uint8(r.head.Load()) - uint8(r.tail.Load()))
}
