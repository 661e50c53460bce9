package sim

import (
	"encoding/binary"
	"sync"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/proto"
)

// Register names used in the journal.
const (
	RegTimeTicks  = "time.ticks"
	RegTimeImm    = "time.imm"
	RegTimeSecs   = "time.secs"
	RegTimeFlags  = "time.flags"
	RegClockRef   = "clock.ref"
	RegRxDecim    = "dsp_rx.decim_rate"
	RegRxScaleIQ  = "dsp_rx.scale_iq"
	RegTxInterp   = "dsp_tx.interp_rate"
	RegTxScaleIQ  = "dsp_tx.scale_iq"
	RegGPIOStream = "dsp_rx.gpio_stream_enable"
	RegGPIOWrite  = "gpio.io"
	RegGPIODDR    = "gpio.ddr"
	RegGPIOSels   = "gpio.sels"
	RegLEDs       = "leds"
)

// Memory is a sparse word-addressed register space.
type Memory struct {
	mu    sync.Mutex
	words map[uint32]uint32
}

func NewMemory() *Memory { return &Memory{words: make(map[uint32]uint32)} }

func (m *Memory) ReadAt(addr uint32, p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range p {
		a := addr + uint32(i)
		var w [4]byte
		binary.BigEndian.PutUint32(w[:], m.words[a&^3])
		p[i] = w[a&3]
	}
}

func (m *Memory) WriteAt(addr uint32, p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range p {
		a := addr + uint32(i)
		var w [4]byte
		binary.BigEndian.PutUint32(w[:], m.words[a&^3])
		w[a&3] = v
		m.words[a&^3] = binary.BigEndian.Uint32(w[:])
	}
}

// Word returns the register word containing addr.
func (m *Memory) Word(addr uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[addr&^3]
}

// SetWord stores a register word.
func (m *Memory) SetWord(addr, v uint32) {
	m.mu.Lock()
	m.words[addr&^3] = v
	m.mu.Unlock()
}

// TimeRegs journals every field write.
type TimeRegs struct{ j *Journal }

func (t TimeRegs) SetTicks(ticks uint32) { t.j.record(RegTimeTicks, ticks) }
func (t TimeRegs) SetImmediate(imm bool) {
	var v uint32
	if imm {
		v = 1
	}
	t.j.record(RegTimeImm, v)
}
func (t TimeRegs) SetSeconds(secs uint32)   { t.j.record(RegTimeSecs, secs) }
func (t TimeRegs) SetPPSFlags(flags uint32) { t.j.record(RegTimeFlags, flags) }

type ClockCtl struct{ j *Journal }

func (c ClockCtl) ConfigureRef(ref uint32) { c.j.record(RegClockRef, ref) }

type DSP struct{ j *Journal }

func (d DSP) SetRxDecimRate(v uint32)      { d.j.record(RegRxDecim, v) }
func (d DSP) SetRxScaleIQ(v uint32)        { d.j.record(RegRxScaleIQ, v) }
func (d DSP) SetTxInterpRate(v uint32)     { d.j.record(RegTxInterp, v) }
func (d DSP) SetTxScaleIQ(v uint32)        { d.j.record(RegTxScaleIQ, v) }
func (d DSP) SetGPIOStreamEnable(v uint32) { d.j.record(RegGPIOStream, v) }

// GPIO keeps two 16-bit banks.
type GPIO struct {
	j     *Journal
	mu    sync.Mutex
	io    [2]uint16
	ddr   [2]uint16
	sels  [2][proto.GPIOSelsCount]byte
	input [2]uint16
}

// SetInput drives the pins configured as inputs of a bank.
func (g *GPIO) SetInput(bank int, v uint16) {
	g.mu.Lock()
	g.input[bank&1] = v
	g.mu.Unlock()
}

func (g *GPIO) Read(bank int) uint16 {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := bank & 1
	return (g.io[b] & g.ddr[b]) | (g.input[b] &^ g.ddr[b])
}

func (g *GPIO) Write(bank int, value, mask uint16) {
	g.mu.Lock()
	b := bank & 1
	g.io[b] = (g.io[b] &^ mask) | (value & mask)
	v := g.io[b]
	g.mu.Unlock()
	g.j.record(RegGPIOWrite, uint32(b)<<16|uint32(v))
}

func (g *GPIO) SetDDR(bank int, value, mask uint16) {
	g.mu.Lock()
	b := bank & 1
	g.ddr[b] = (g.ddr[b] &^ mask) | (value & mask)
	v := g.ddr[b]
	g.mu.Unlock()
	g.j.record(RegGPIODDR, uint32(b)<<16|uint32(v))
}

func (g *GPIO) SetSels(bank int, sels [proto.GPIOSelsCount]byte) {
	g.mu.Lock()
	g.sels[bank&1] = sels
	g.mu.Unlock()
	g.j.record(RegGPIOSels, uint32(bank&1))
}

// Sels returns the selector string of a bank.
func (g *GPIO) Sels(bank int) [proto.GPIOSelsCount]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sels[bank&1]
}

// LEDs keeps the indicator state.
type LEDs struct {
	j     *Journal
	mu    sync.Mutex
	state uint32
}

func (l *LEDs) Set(value, mask uint32) {
	l.mu.Lock()
	l.state = (l.state &^ mask) | (value & mask)
	s := l.state
	l.mu.Unlock()
	l.j.record(RegLEDs, s)
}

func (l *LEDs) State() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Ethernet holds the MAC address; BurnMAC fails when ReadOnly is set.
type Ethernet struct {
	mu       sync.Mutex
	mac      core.MAC
	ReadOnly bool
}

func (e *Ethernet) MAC() core.MAC {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mac
}

func (e *Ethernet) BurnMAC(addr core.MAC) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ReadOnly {
		return false
	}
	e.mac = addr
	return true
}
