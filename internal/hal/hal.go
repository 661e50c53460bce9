// Package hal declares the hardware collaborators of the control path.
// Each interface is the narrow boundary the command handlers and the
// transmit path touch; register layout beyond these fields belongs to the
// implementations.
package hal

import (
	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/proto"
)

// Memory is the memory-mapped register bus used by PEEK and POKE.
// Addresses are absolute. Implementations perform word-aligned accesses.
type Memory interface {
	ReadAt(addr uint32, p []byte)
	WriteAt(addr uint32, p []byte)
}

// TimeRegs is the 64-bit time register. Writing the seconds field latches
// the pending ticks and mode, so it must be written last.
type TimeRegs interface {
	SetTicks(ticks uint32)
	SetImmediate(imm bool)
	SetSeconds(secs uint32)
	SetPPSFlags(flags uint32)
}

// PPS control bits written by SetPPSFlags.
const (
	PPSPolarityPos = 1 << 0
	PPSSourceMIMO  = 1 << 1
)

// ClockCtl selects the reference clock source (proto.ClockRef* values).
type ClockCtl interface {
	ConfigureRef(ref uint32)
}

// DSP is the subset of the TX/RX DSP register set the control path writes.
// Rate registers take hb1<<9 | hb2<<8 | cic.
type DSP interface {
	SetRxDecimRate(v uint32)
	SetRxScaleIQ(v uint32)
	SetTxInterpRate(v uint32)
	SetTxScaleIQ(v uint32)
	SetGPIOStreamEnable(v uint32)
}

// GPIO is the per-bank general purpose I/O block.
type GPIO interface {
	Read(bank int) uint16
	Write(bank int, value, mask uint16)
	SetDDR(bank int, value, mask uint16)
	SetSels(bank int, sels [proto.GPIOSelsCount]byte)
}

// Daughterboard is one RF front end.
type Daughterboard interface {
	SetGain(gain int16) bool
	Tune(target proto.Freq) (proto.TuneResult, bool)
}

// Frontends groups the two daughterboards and their reset.
type Frontends interface {
	TX() Daughterboard
	RX() Daughterboard
	Init()
}

// Streamer is the RX data-streaming engine.
type Streamer interface {
	IsStreaming() bool
	Start(itemsPerFrame uint32)
	Stop()
	Restart()
}

// Ethernet is the MAC identity accessor.
type Ethernet interface {
	MAC() core.MAC
	// BurnMAC stores a new address in non-volatile memory.
	BurnMAC(addr core.MAC) bool
}

// Buffer pool status bits for one slot.
func BPSIdle(buf int) uint32  { return 1 << uint(buf) }
func BPSDone(buf int) uint32  { return 1 << uint(buf+8) }
func BPSError(buf int) uint32 { return 1 << uint(buf+16) }

// Egress ports of the buffer pool router.
const (
	PortSERDES = 0
	PortDSP    = 1
	PortEth    = 2
	PortRAM    = 3
)

// BufferPool is the shared frame staging RAM and its status/control
// registers.
type BufferPool interface {
	Status() uint32
	// Buffer returns the RAM of one slot.
	Buffer(buf int) []byte
	// SendFrom starts transmission of words [first, last) of buf to port.
	SendFrom(buf, port, step, first, last int)
	Clear(buf int)
}

// StreamGate is the DMA streaming engine as a producer on the Ethernet
// egress. WaitForOpening returns when a frame may be sent without
// interleaving with its output.
type StreamGate interface {
	WaitForOpening()
}

// LEDs drives the front panel indicators.
type LEDs interface {
	Set(value, mask uint32)
}

// LED bits.
const (
	LEDWaitIdle    = 0x4
	LEDWaitOpening = 0x8
	LEDRJ45        = 0x10
)

// Device bundles every collaborator of the control path.
type Device struct {
	Memory    Memory
	Time      TimeRegs
	Clock     ClockCtl
	DSP       DSP
	GPIO      GPIO
	Frontends Frontends
	Streamer  Streamer
	Ethernet  Ethernet
	Pool      BufferPool
	LEDs      LEDs

	// Gate is nil unless a streaming path may be sending to Ethernet.
	Gate StreamGate

	HWRevMajor uint8
	HWRevMinor uint8
}
