// Package txsync serializes control replies onto the Ethernet egress
// through the shared buffer pool.
package txsync

import (
	"context"
	"fmt"
	"time"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/hal"
	"github.com/0xastro/uhd/internal/log"
	"github.com/0xastro/uhd/internal/metrics"
)

const (
	// MinFrameLen is the shortest frame handed to the pool; shorter
	// frames are zero padded.
	MinFrameLen = 64

	// DefaultBuffer is the pool slot reserved for CPU transmit.
	DefaultBuffer = 7
)

// Synchronizer owns one buffer pool slot. Send blocks until the frame has
// left the slot; it is meant to be called from the single control loop.
type Synchronizer struct {
	pool hal.BufferPool
	gate hal.StreamGate
	leds hal.LEDs
	buf  int
	port int
	log  log.Logger
}

// New returns a Synchronizer for the Ethernet port of dev. When dev has no
// stream gate, sends skip the opening wait.
func New(dev hal.Device) *Synchronizer {
	return &Synchronizer{
		pool: dev.Pool,
		gate: dev.Gate,
		leds: dev.LEDs,
		buf:  DefaultBuffer,
		port: hal.PortEth,
		log:  log.Module("txsync"),
	}
}

// Send stages frame in the slot, waits for the streaming path to leave an
// opening and transmits it. The slot is cleared whatever the outcome. A
// completion with the error bit set returns core.ErrTransmitFailed; the
// frame is not retried.
func (s *Synchronizer) Send(ctx context.Context, frame []byte) error {
	ram := s.pool.Buffer(s.buf)
	n := len(frame)
	if n < MinFrameLen {
		n = MinFrameLen
	}
	n = (n + 3) &^ 3
	if n > len(ram) {
		return fmt.Errorf("frame of %d bytes exceeds slot of %d: %w", len(frame), len(ram), core.ErrShortBuffer)
	}

	if err := s.waitBufferIdle(ctx); err != nil {
		return err
	}

	copy(ram, frame)
	clear(ram[len(frame):n])

	if s.gate != nil {
		if err := s.waitOpening(ctx); err != nil {
			return err
		}
	}

	s.pool.SendFrom(s.buf, s.port, 1, 0, n/4)

	status, err := s.waitComplete(ctx)
	s.pool.Clear(s.buf)
	if err != nil {
		return err
	}
	if status&hal.BPSError(s.buf) != 0 {
		metrics.TransmitsTotal.WithLabelValues("error").Inc()
		s.log.WithField("len", n).Warn("reply transmit failed")
		return core.ErrTransmitFailed
	}
	metrics.TransmitsTotal.WithLabelValues("ok").Inc()
	return nil
}

func (s *Synchronizer) waitBufferIdle(ctx context.Context) error {
	idle := hal.BPSIdle(s.buf)
	if s.pool.Status()&idle != 0 {
		return nil
	}

	start := time.Now()
	s.leds.Set(hal.LEDWaitIdle, hal.LEDWaitIdle)
	defer func() {
		s.leds.Set(0, hal.LEDWaitIdle)
		metrics.TransmitWaitSeconds.WithLabelValues("idle").Observe(time.Since(start).Seconds())
	}()
	for s.pool.Status()&idle == 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synchronizer) waitOpening(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	s.leds.Set(hal.LEDWaitOpening, hal.LEDWaitOpening)
	s.gate.WaitForOpening()
	s.leds.Set(0, hal.LEDWaitOpening)
	metrics.TransmitWaitSeconds.WithLabelValues("opening").Observe(time.Since(start).Seconds())
	return nil
}

func (s *Synchronizer) waitComplete(ctx context.Context) (uint32, error) {
	mask := hal.BPSDone(s.buf) | hal.BPSError(s.buf)
	for {
		st := s.pool.Status()
		if st&mask != 0 {
			return st, nil
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
}
