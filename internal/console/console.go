// Package console carries the text terminal over a serial port.
package console

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"
	"github.com/rs/zerolog/log"
)

const (
	rxBuffer = 256
	txBuffer = 64
)

// Transport buffers a serial port so the tick loop never blocks on it.
// Received bytes are read one at a time with NextByte; writes are queued.
type Transport struct {
	port io.ReadWriteCloser

	rx chan byte
	tx chan []byte

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// Open opens the serial device at address, e.g. /dev/ttyAMA0.
func Open(address string, baud int) (*Transport, error) {
	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", address, err)
	}
	log.Info().Str("port", address).Int("baud", baud).Msg("Serial console opened")
	return New(port), nil
}

// New starts the reader and writer goroutines over port.
func New(port io.ReadWriteCloser) *Transport {
	t := &Transport{
		port: port,
		rx:   make(chan byte, rxBuffer),
		tx:   make(chan []byte, txBuffer),
		done: make(chan struct{}),
	}
	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()
	return t
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, 64)
	for {
		n, err := t.port.Read(buf)
		for _, b := range buf[:n] {
			select {
			case t.rx <- b:
			default:
				t.mu.Lock()
				t.dropped++
				t.mu.Unlock()
			}
		}
		if err != nil {
			if errors.Is(err, serial.ErrTimeout) {
				continue
			}
			select {
			case <-t.done:
			default:
				if !errors.Is(err, io.EOF) {
					log.Error().Err(err).Msg("Serial read failed")
				}
			}
			return
		}
	}
}

func (t *Transport) writeLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.done:
			return
		case p := <-t.tx:
			if _, err := t.port.Write(p); err != nil {
				log.Error().Err(err).Msg("Serial write failed")
			}
		}
	}
}

// NextByte returns the next received byte, or false if none is waiting.
func (t *Transport) NextByte() (byte, bool) {
	select {
	case b := <-t.rx:
		return b, true
	default:
		return 0, false
	}
}

// Write queues p for transmission. It blocks only when the queue is full.
func (t *Transport) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	select {
	case <-t.done:
		return 0, io.ErrClosedPipe
	default:
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	select {
	case <-t.done:
		return 0, io.ErrClosedPipe
	case t.tx <- cp:
		return len(p), nil
	}
}

// Dropped counts received bytes lost to a full buffer.
func (t *Transport) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.port.Close()
		t.wg.Wait()
	})
	return err
}
