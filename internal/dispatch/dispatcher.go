// Package dispatch walks a control request, runs each subpacket against the
// device and packs the replies.
package dispatch

import (
	"github.com/0xastro/uhd/internal/hal"
	"github.com/0xastro/uhd/internal/log"
	"github.com/0xastro/uhd/internal/metrics"
	"github.com/0xastro/uhd/internal/proto"
)

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithCICRange overrides the accepted residual CIC factor range.
func WithCICRange(lo, hi uint32) Option {
	return func(d *Dispatcher) {
		d.h.cicMin = lo
		d.h.cicMax = hi
	}
}

// WithLogger replaces the module logger.
func WithLogger(l log.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
		d.h.log = l
	}
}

// Dispatcher routes request subpackets by opcode. The routing table is fixed
// at construction.
type Dispatcher struct {
	table [256]handlerFunc
	h     *handlers
	log   log.Logger
}

// New returns a Dispatcher bound to dev.
func New(dev hal.Device, opts ...Option) *Dispatcher {
	l := log.Module("dispatch")
	d := &Dispatcher{
		h:   &handlers{dev: dev, cicMin: MinCICRate, cicMax: MaxCICRate, log: l},
		log: l,
	}
	for _, opt := range opts {
		opt(d)
	}

	h := d.h
	d.table = [256]handlerFunc{
		proto.OpID:            h.id,
		proto.OpBurnMACAddr:   generic(h.burnMACAddr),
		proto.OpConfigRxV2:    h.configRX,
		proto.OpConfigTxV2:    h.configTX,
		proto.OpStartRxStream: generic(h.startRxStreaming),
		proto.OpStopRx:        generic(h.stopRx),
		proto.OpDboardInfo:    h.dboardInfo,
		proto.OpPeek:          h.peek,
		proto.OpPoke:          generic(h.poke),
		proto.OpSetTxLOOffset: generic(h.setLOOffset),
		proto.OpSetRxLOOffset: generic(h.setLOOffset),
		proto.OpResetDB:       generic(h.resetDB),
		proto.OpGPIOSetDDR:    generic(h.gpioSetDDR),
		proto.OpGPIOSetSels:   generic(h.gpioSetSels),
		proto.OpGPIORead:      h.gpioRead,
		proto.OpGPIOWrite:     generic(h.gpioWrite),
		proto.OpGPIOStream:    generic(h.gpioStream),
		proto.OpSetTime:       generic(h.setTime),
		proto.OpConfigClock:   generic(h.configClock),
	}
	return d
}

// Process runs every subpacket of request in order and writes the packed
// replies, terminated by an end-of-packet subpacket, into reply. It returns
// the number of reply bytes. At most proto.ReplyCapacity bytes are used.
//
// Unknown opcodes produce no reply. A subpacket whose declared length is
// shorter than a header or runs past the end of request ends the walk.
func (d *Dispatcher) Process(request, reply []byte) int {
	if len(reply) > proto.ReplyCapacity {
		reply = reply[:proto.ReplyCapacity]
	}

	rn := 0
	for len(request) >= proto.HeaderLen {
		hdr, _ := proto.DecodeHeader(request)
		if hdr.Opcode == proto.OpEOP {
			break
		}
		n := int(hdr.Len)
		if n < proto.HeaderLen || n > len(request) {
			d.log.WithFields(map[string]interface{}{
				"opcode": hdr.Opcode.String(),
				"len":    n,
				"left":   len(request),
			}).Warn("malformed subpacket")
			metrics.SubpacketsTotal.WithLabelValues(hdr.Opcode.String(), metrics.ResultMalformed).Inc()
			break
		}

		rn += d.run(hdr, request[:n], reply[rn:])

		adv := proto.Align4(n)
		if adv > len(request) {
			adv = len(request)
		}
		request = request[adv:]
	}

	out := reply[rn:]
	w := proto.PutEOP(out)
	return rn + pad(out, w)
}

// run dispatches one subpacket and returns how far the reply cursor moves.
func (d *Dispatcher) run(hdr proto.Header, sub, out []byte) int {
	fn := d.table[hdr.Opcode]
	if fn == nil {
		d.log.WithFields(map[string]interface{}{
			"opcode": uint8(hdr.Opcode),
			"rid":    hdr.RID,
		}).Warn("unhandled opcode")
		metrics.SubpacketsTotal.WithLabelValues(hdr.Opcode.String(), metrics.ResultUnknown).Inc()
		return 0
	}

	w, ok := fn(hdr, sub, out)
	result := metrics.ResultOK
	switch {
	case w == 0:
		result = metrics.ResultNoRoom
	case !ok:
		result = metrics.ResultFailed
	}
	metrics.SubpacketsTotal.WithLabelValues(hdr.Opcode.String(), result).Inc()
	return pad(out, w)
}

// pad zeroes the alignment bytes after a w-byte reply and returns the
// aligned length, clamped to out.
func pad(out []byte, w int) int {
	a := proto.Align4(w)
	if a > len(out) {
		a = len(out)
	}
	for i := w; i < a; i++ {
		out[i] = 0
	}
	return a
}
