package netframe

import (
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/log"
	"github.com/0xastro/uhd/internal/metrics"
)

// Well-known UDP ports of the device.
const (
	DefaultControlPort = 49152
	DefaultDataPort    = 49153
)

// Verdict is the ingress decision for one frame.
type Verdict int

const (
	// VerdictDrop means the frame is not for the control path and is
	// consumed without further action.
	VerdictDrop Verdict = iota
	// VerdictControl means the payload is a control request.
	VerdictControl
	// VerdictData means the frame belongs to the streaming path and must be
	// passed on untouched.
	VerdictData
)

func (v Verdict) String() string {
	switch v {
	case VerdictControl:
		return metrics.ClassControl
	case VerdictData:
		return metrics.ClassData
	default:
		return metrics.ClassIgnored
	}
}

// ControlFunc receives the UDP payload of a control frame. The slice
// aliases the frame and is only valid during the call.
type ControlFunc func(payload []byte)

// Classifier sorts received frames into control, data and everything else,
// updating the session with the addressing it observes. It keeps decoding
// state between calls and must be used from a single goroutine.
type Classifier struct {
	sess        *core.Session
	controlPort uint16
	dataPort    uint16
	onControl   ControlFunc

	parser  *gopacket.DecodingLayerParser
	eth     layers.Ethernet
	ip4     layers.IPv4
	udp     layers.UDP
	decoded []gopacket.LayerType

	log log.Logger
}

// NewClassifier returns a Classifier bound to sess. onControl may be nil
// when only Classify is used.
func NewClassifier(sess *core.Session, controlPort, dataPort uint16, onControl ControlFunc) *Classifier {
	c := &Classifier{
		sess:        sess,
		controlPort: controlPort,
		dataPort:    dataPort,
		onControl:   onControl,
		decoded:     make([]gopacket.LayerType, 0, 4),
		log:         log.Module("ingress"),
	}
	c.parser = gopacket.NewDecodingLayerParser(
		layers.LayerTypeEthernet,
		&c.eth,
		&c.ip4,
		&c.udp,
	)
	c.parser.IgnoreUnsupported = true
	return c
}

// Classify decodes frame and returns its verdict. For control frames the
// session peer is updated and the UDP payload returned; for data frames
// the data ports are recorded.
func (c *Classifier) Classify(frame []byte) (Verdict, []byte) {
	v, payload := c.classify(frame)
	metrics.FramesTotal.WithLabelValues(v.String()).Inc()
	return v, payload
}

func (c *Classifier) classify(frame []byte) (Verdict, []byte) {
	c.decoded = c.decoded[:0]
	if err := c.parser.DecodeLayers(frame, &c.decoded); err != nil {
		if c.log.IsTraceEnabled() {
			c.log.WithError(err).WithField("len", len(frame)).Trace("undecodable frame")
		}
		return VerdictDrop, nil
	}

	var isIPv4, isUDP bool
	for _, lt := range c.decoded {
		switch lt {
		case layers.LayerTypeIPv4:
			isIPv4 = true
		case layers.LayerTypeUDP:
			isUDP = true
		}
	}
	if !isIPv4 || !isUDP {
		return VerdictDrop, nil
	}

	src, dst := uint16(c.udp.SrcPort), uint16(c.udp.DstPort)
	switch dst {
	case c.controlPort:
		var mac core.MAC
		copy(mac[:], c.eth.SrcMAC)
		ip, _ := netip.AddrFromSlice(c.ip4.SrcIP.To4())
		c.sess.ObserveControl(mac, ip, src, dst)
		return VerdictControl, c.udp.Payload
	case c.dataPort:
		c.sess.ObserveData(src, dst)
		return VerdictData, nil
	default:
		return VerdictDrop, nil
	}
}

// Inspect is the receive hook of the Ethernet driver. Control payloads go
// to the ControlFunc. It reports whether the frame was consumed; only
// data-channel frames are left for the streaming path.
func (c *Classifier) Inspect(frame []byte) bool {
	v, payload := c.Classify(frame)
	switch v {
	case VerdictControl:
		if c.onControl != nil {
			c.onControl(payload)
		}
		return true
	case VerdictData:
		return false
	default:
		return true
	}
}
