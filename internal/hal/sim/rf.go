package sim

import (
	"math"
	"sync"

	"github.com/0xastro/uhd/internal/hal"
	"github.com/0xastro/uhd/internal/proto"
)

// Board is a daughterboard with a synthesizer that steps in LOStep Hz.
// The DxC (digital up/down converter) absorbs the remainder so the
// baseband plus DxC equals the target.
type Board struct {
	mu       sync.Mutex
	FreqMin  float64
	FreqMax  float64
	LOStep   float64
	GainMin  int16
	GainMax  int16
	Inverted bool

	gain  int16
	tuned proto.Freq
}

func (b *Board) SetGain(gain int16) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gain < b.GainMin || gain > b.GainMax {
		return false
	}
	b.gain = gain
	return true
}

func (b *Board) Tune(target proto.Freq) (proto.TuneResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	hz := target.Hz()
	if hz < b.FreqMin || hz > b.FreqMax {
		return proto.TuneResult{}, false
	}
	step := b.LOStep
	if step <= 0 {
		step = 1
	}
	lo := math.Round(hz/step) * step
	b.tuned = target
	return proto.TuneResult{
		Baseband: proto.FreqFromHz(lo),
		DxC:      proto.FreqFromHz(hz - lo),
		Inverted: b.Inverted,
	}, true
}

// Gain returns the applied gain.
func (b *Board) Gain() int16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gain
}

// Tuned returns the last accepted target.
func (b *Board) Tuned() proto.Freq {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tuned
}

// Frontends pairs a TX and an RX board.
type Frontends struct {
	Tx, Rx *Board

	mu    sync.Mutex
	inits int
}

func (f *Frontends) TX() hal.Daughterboard { return f.Tx }
func (f *Frontends) RX() hal.Daughterboard { return f.Rx }

func (f *Frontends) Init() {
	f.mu.Lock()
	f.inits++
	f.mu.Unlock()
	f.Tx.reset()
	f.Rx.reset()
}

// Inits counts daughterboard resets.
func (f *Frontends) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

func (b *Board) reset() {
	b.mu.Lock()
	b.gain = 0
	b.tuned = 0
	b.mu.Unlock()
}

// Streamer records stream control events in order.
type Streamer struct {
	mu            sync.Mutex
	streaming     bool
	itemsPerFrame uint32
	events        []string
}

func (s *Streamer) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

func (s *Streamer) Start(itemsPerFrame uint32) {
	s.mu.Lock()
	s.streaming = true
	s.itemsPerFrame = itemsPerFrame
	s.events = append(s.events, "start")
	s.mu.Unlock()
}

func (s *Streamer) Stop() {
	s.mu.Lock()
	s.streaming = false
	s.events = append(s.events, "stop")
	s.mu.Unlock()
}

func (s *Streamer) Restart() {
	s.mu.Lock()
	s.streaming = true
	s.events = append(s.events, "restart")
	s.mu.Unlock()
}

// Events returns the stream control history.
func (s *Streamer) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// ItemsPerFrame returns the frame size of the last start.
func (s *Streamer) ItemsPerFrame() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsPerFrame
}
