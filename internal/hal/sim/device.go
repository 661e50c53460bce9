package sim

import (
	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/hal"
)

// Options configures a simulated device.
type Options struct {
	MAC        core.MAC
	HWRevMajor uint8
	HWRevMinor uint8
	Egress     Egress

	// Streaming installs a stream gate in front of the Ethernet egress.
	Streaming bool
}

// Device owns every simulated collaborator; tests reach into the parts to
// inspect side effects.
type Device struct {
	Journal   *Journal
	Memory    *Memory
	GPIO      *GPIO
	LEDs      *LEDs
	Ethernet  *Ethernet
	Frontends *Frontends
	Streamer  *Streamer
	Pool      *BufferPool
	Gate      *Gate

	opts Options
}

func New(opts Options) *Device {
	j := &Journal{}
	return &Device{
		Journal:  j,
		Memory:   NewMemory(),
		GPIO:     &GPIO{j: j},
		LEDs:     &LEDs{j: j},
		Ethernet: &Ethernet{mac: opts.MAC},
		Frontends: &Frontends{
			Tx: &Board{FreqMin: -200e6, FreqMax: 200e6, LOStep: 1e6, GainMin: 0, GainMax: 25 * 128},
			Rx: &Board{FreqMin: -200e6, FreqMax: 200e6, LOStep: 1e6, GainMin: 0, GainMax: 31 * 128},
		},
		Streamer: &Streamer{},
		Pool:     NewBufferPool(opts.Egress),
		Gate:     &Gate{},
		opts:     opts,
	}
}

// HAL returns the collaborator bundle the control path consumes.
func (d *Device) HAL() hal.Device {
	dev := hal.Device{
		Memory:     d.Memory,
		Time:       TimeRegs{j: d.Journal},
		Clock:      ClockCtl{j: d.Journal},
		DSP:        DSP{j: d.Journal},
		GPIO:       d.GPIO,
		Frontends:  d.Frontends,
		Streamer:   d.Streamer,
		Ethernet:   d.Ethernet,
		Pool:       d.Pool,
		LEDs:       d.LEDs,
		HWRevMajor: d.opts.HWRevMajor,
		HWRevMinor: d.opts.HWRevMinor,
	}
	if d.opts.Streaming {
		dev.Gate = d.Gate
	}
	return dev
}
