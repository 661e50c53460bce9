package dispatch

import (
	"github.com/0xastro/uhd/internal/hal"
	"github.com/0xastro/uhd/internal/log"
	"github.com/0xastro/uhd/internal/proto"
)

// handlerFunc runs one request subpacket. req is exactly the declared
// subpacket; out is the remaining reply space. It returns the reply length
// (0 when out has no room) and whether the command succeeded.
type handlerFunc func(hdr proto.Header, req, out []byte) (int, bool)

// effectFunc is a command whose only reply is the generic ok flag.
type effectFunc func(hdr proto.Header, req []byte) bool

type handlers struct {
	dev    hal.Device
	cicMin uint32
	cicMax uint32
	log    log.Logger
}

// generic runs fn and then answers with a generic reply. The side effect
// happens even when there is no room to report it.
func generic(fn effectFunc) handlerFunc {
	return func(hdr proto.Header, req, out []byte) (int, bool) {
		ok := fn(hdr, req)
		return proto.PutGeneric(out, hdr, ok), ok
	}
}

func (h *handlers) id(hdr proto.Header, req, out []byte) (int, bool) {
	r := proto.IDReply{
		RID:   hdr.RID,
		Addr:  h.dev.Ethernet.MAC(),
		HWRev: uint16(h.dev.HWRevMajor)<<8 | uint16(h.dev.HWRevMinor),
	}
	return r.Put(out), true
}

// setTime writes ticks and the latch mode before seconds; the seconds
// write latches all fields.
func (h *handlers) setTime(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeSetTime(req)
	if err != nil {
		return false
	}
	t := h.dev.Time
	t.SetTicks(p.Ticks)
	switch p.Flag {
	case proto.SetTimeNow:
		t.SetImmediate(true)
	case proto.SetTimePPS:
		t.SetImmediate(false)
	}
	t.SetSeconds(p.Secs)
	return true
}

func (h *handlers) configClock(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeConfigClock(req)
	if err != nil {
		return false
	}
	h.dev.Clock.ConfigureRef(p.Flags & proto.ClockRefMask)

	var pps uint32
	if p.Flags&proto.ClockPPSPolarityPos != 0 {
		pps |= hal.PPSPolarityPos
	}
	if p.Flags&proto.ClockPPSSourceMIMO != 0 {
		pps |= hal.PPSSourceMIMO
	}
	h.dev.Time.SetPPSFlags(pps)
	return true
}

type direction int

const (
	dirTX direction = iota
	dirRX
)

func (d direction) String() string {
	if d == dirTX {
		return "tx"
	}
	return "rx"
}

func (h *handlers) configTX(hdr proto.Header, req, out []byte) (int, bool) {
	return h.configure(dirTX, hdr, req, out)
}

func (h *handlers) configRX(hdr proto.Header, req, out []byte) (int, bool) {
	return h.configure(dirRX, hdr, req, out)
}

// configure applies each field selected by the valid mask in turn. A
// failing field clears ok but does not undo fields already applied.
func (h *handlers) configure(dir direction, hdr proto.Header, req, out []byte) (int, bool) {
	if len(out) < proto.ConfigReplyLen {
		return 0, false
	}
	p, err := proto.DecodeConfig(req)
	if err != nil {
		return proto.PutGeneric(out, hdr, false), false
	}

	db := h.dev.Frontends.RX()
	if dir == dirTX {
		db = h.dev.Frontends.TX()
	}

	var tune proto.TuneResult
	ok := true

	if p.Valid&proto.CfgValidGain != 0 {
		ok = db.SetGain(p.Gain) && ok
	}

	if p.Valid&proto.CfgValidFreq != 0 {
		wasStreaming := h.dev.Streamer.IsStreaming()
		if wasStreaming {
			h.dev.Streamer.Stop()
		}
		res, tuneOK := db.Tune(p.Freq)
		if tuneOK {
			tune = res
		}
		ok = tuneOK && ok
		if h.log.IsDebugEnabled() {
			h.log.WithFields(map[string]interface{}{
				"dir":      dir.String(),
				"target":   p.Freq.Hz(),
				"baseband": tune.Baseband.Hz(),
				"dxc":      tune.DxC.Hz(),
				"residual": tune.Residual.Hz(),
				"inverted": tune.Inverted,
				"ok":       tuneOK,
			}).Debug("tune")
		}
		if wasStreaming {
			h.dev.Streamer.Restart()
		}
	}

	if p.Valid&proto.CfgValidInterpDecim != 0 {
		rc, rateOK := DecomposeRate(p.Rate, h.cicMin, h.cicMax)
		if !rateOK {
			ok = false
		} else if dir == dirTX {
			h.dev.DSP.SetTxInterpRate(rc.Register())
		} else {
			h.dev.DSP.SetRxDecimRate(rc.Register())
		}
	}

	if p.Valid&proto.CfgValidScaleIQ != 0 {
		if dir == dirTX {
			h.dev.DSP.SetTxScaleIQ(p.ScaleIQ)
		} else {
			h.dev.DSP.SetRxScaleIQ(p.ScaleIQ)
		}
	}

	r := proto.ConfigReply{Opcode: hdr.Opcode.Reply(), RID: hdr.RID, OK: ok, TuneResult: tune}
	return r.Put(out), ok
}

// dboardInfo answers with zeroed front-end records; the daughterboard
// layer does not report its ranges yet.
func (h *handlers) dboardInfo(hdr proto.Header, req, out []byte) (int, bool) {
	return proto.DboardInfoReply{RID: hdr.RID, OK: true}.Put(out), true
}

func (h *handlers) peek(hdr proto.Header, req, out []byte) (int, bool) {
	p, err := proto.DecodePeek(req)
	if err != nil {
		return proto.PutGeneric(out, hdr, false), false
	}
	if p.Bytes > proto.PeekMaxBytes || int(p.Bytes)+proto.PeekReplyHeaderLen > len(out) {
		h.log.WithFields(map[string]interface{}{
			"addr":  p.Addr,
			"bytes": p.Bytes,
			"space": len(out),
		}).Warn("peek: insufficient reply packet space")
		return 0, false
	}
	n := int(p.Bytes)
	h.dev.Memory.ReadAt(p.Addr, out[proto.PeekReplyHeaderLen:proto.PeekReplyHeaderLen+n])
	return proto.PutPeekReplyHeader(out, hdr.RID, n), true
}

// poke writes the request's trailing bytes to an absolute address. The
// destination is not bounds-checked: the control link is trusted.
func (h *handlers) poke(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodePoke(req)
	if err != nil {
		return false
	}
	h.dev.Memory.WriteAt(p.Addr, p.Data)
	return true
}

func (h *handlers) setLOOffset(hdr proto.Header, req []byte) bool {
	h.log.WithField("opcode", hdr.Opcode.String()).Debug("lo offset not supported by daughterboard binding")
	return false
}

func (h *handlers) startRxStreaming(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeStartRxStream(req)
	if err != nil {
		return false
	}
	h.dev.Streamer.Start(p.ItemsPerFrame)
	return true
}

func (h *handlers) stopRx(hdr proto.Header, req []byte) bool {
	h.dev.Streamer.Stop()
	return true
}

func (h *handlers) burnMACAddr(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeBurnMACAddr(req)
	if err != nil {
		return false
	}
	return h.dev.Ethernet.BurnMAC(p.Addr)
}

func (h *handlers) resetDB(hdr proto.Header, req []byte) bool {
	h.dev.Frontends.Init()
	return true
}

func (h *handlers) gpioSetDDR(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeGPIO(req)
	if err != nil {
		return false
	}
	h.dev.GPIO.SetDDR(p.Bank(), p.Value, p.Mask)
	return true
}

func (h *handlers) gpioSetSels(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeGPIOSetSels(req)
	if err != nil {
		return false
	}
	h.dev.GPIO.SetSels(p.Bank(), p.Sels)
	return true
}

func (h *handlers) gpioWrite(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeGPIO(req)
	if err != nil {
		return false
	}
	h.dev.GPIO.Write(p.Bank(), p.Value, p.Mask)
	return true
}

func (h *handlers) gpioStream(hdr proto.Header, req []byte) bool {
	p, err := proto.DecodeGPIO(req)
	if err != nil {
		return false
	}
	h.dev.DSP.SetGPIOStreamEnable(uint32(p.Value))
	return true
}

func (h *handlers) gpioRead(hdr proto.Header, req, out []byte) (int, bool) {
	p, err := proto.DecodeGPIO(req)
	if err != nil {
		return proto.PutGeneric(out, hdr, false), false
	}
	r := proto.GPIOReadReply{RID: hdr.RID, OK: true, Value: h.dev.GPIO.Read(p.Bank())}
	return r.Put(out), true
}
