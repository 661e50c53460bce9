package sim

import (
	"sync"

	"github.com/0xastro/uhd/internal/hal"
)

// Buffer pool geometry.
const (
	NumBuffers  = 8
	BufferBytes = 2048
)

// Egress receives a frame the pool transmitted to port. A non-nil error
// completes the send with the error status bit.
type Egress func(port int, frame []byte) error

// BufferPool simulates the staging RAM. Sends complete synchronously.
// HoldBusy makes the next Status calls report a slot busy, to exercise
// the idle wait.
type BufferPool struct {
	mu     sync.Mutex
	ram    [NumBuffers][]byte
	status uint32
	egress Egress

	busyPolls [NumBuffers]int
	polls     int
	sends     int
}

func NewBufferPool(egress Egress) *BufferPool {
	p := &BufferPool{egress: egress}
	for i := range p.ram {
		p.ram[i] = make([]byte, BufferBytes)
		p.status |= hal.BPSIdle(i)
	}
	return p
}

// SetEgress replaces the transmit hook.
func (p *BufferPool) SetEgress(e Egress) {
	p.mu.Lock()
	p.egress = e
	p.mu.Unlock()
}

// HoldBusy keeps buf non-idle for the next n status polls.
func (p *BufferPool) HoldBusy(buf, n int) {
	p.mu.Lock()
	p.busyPolls[buf] = n
	p.mu.Unlock()
}

func (p *BufferPool) Status() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	s := p.status
	for i, n := range p.busyPolls {
		if n > 0 {
			p.busyPolls[i]--
			s &^= hal.BPSIdle(i)
		}
	}
	return s
}

func (p *BufferPool) Buffer(buf int) []byte { return p.ram[buf] }

func (p *BufferPool) SendFrom(buf, port, step, first, last int) {
	p.mu.Lock()
	p.status &^= hal.BPSIdle(buf) | hal.BPSDone(buf) | hal.BPSError(buf)
	frame := make([]byte, (last-first)*4)
	copy(frame, p.ram[buf][first*4:last*4])
	egress := p.egress
	p.sends++
	p.mu.Unlock()

	var err error
	if egress != nil {
		err = egress(port, frame)
	}

	p.mu.Lock()
	if err != nil {
		p.status |= hal.BPSError(buf)
	} else {
		p.status |= hal.BPSDone(buf)
	}
	p.mu.Unlock()
}

func (p *BufferPool) Clear(buf int) {
	p.mu.Lock()
	p.status &^= hal.BPSDone(buf) | hal.BPSError(buf)
	p.status |= hal.BPSIdle(buf)
	p.mu.Unlock()
}

// Polls counts Status reads.
func (p *BufferPool) Polls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls
}

// Sends counts SendFrom calls.
func (p *BufferPool) Sends() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sends
}

// Gate is a stream gate that is always open; it counts waits.
type Gate struct {
	mu    sync.Mutex
	waits int
}

func (g *Gate) WaitForOpening() {
	g.mu.Lock()
	g.waits++
	g.mu.Unlock()
}

func (g *Gate) Waits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waits
}
