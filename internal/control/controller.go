// Package control ties the ingress classifier, the subpacket dispatcher
// and the transmit synchronizer into the device's control loop.
package control

import (
	"context"
	"errors"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/core/netframe"
	"github.com/0xastro/uhd/internal/dispatch"
	"github.com/0xastro/uhd/internal/hal"
	"github.com/0xastro/uhd/internal/log"
	"github.com/0xastro/uhd/internal/metrics"
	"github.com/0xastro/uhd/internal/proto"
	"github.com/0xastro/uhd/internal/txsync"
)

// maxFrameLen bounds a reply frame: headers plus a full reply payload.
const maxFrameLen = netframe.ReplyHeaderLen + proto.ReplyCapacity

// FrameSource yields received Ethernet frames. ReadFrame blocks until a
// frame arrives or ctx is done; the returned slice is valid until the next
// call.
type FrameSource interface {
	ReadFrame(ctx context.Context) ([]byte, error)
}

// DataSink receives frames the control path did not consume.
type DataSink interface {
	WriteData(frame []byte) error
}

// DataSinkFunc adapts a function to DataSink.
type DataSinkFunc func(frame []byte) error

func (f DataSinkFunc) WriteData(frame []byte) error { return f(frame) }

// Config holds the controller's addressing and DSP limits.
type Config struct {
	ControlPort uint16
	DataPort    uint16
	CICMin      uint32
	CICMax      uint32
}

// DefaultConfig returns the standard ports and CIC range.
func DefaultConfig() Config {
	return Config{
		ControlPort: netframe.DefaultControlPort,
		DataPort:    netframe.DefaultDataPort,
		CICMin:      dispatch.MinCICRate,
		CICMax:      dispatch.MaxCICRate,
	}
}

// Controller is the foreground control loop. It is not safe for
// concurrent use.
type Controller struct {
	dev        hal.Device
	sess       *core.Session
	classifier *netframe.Classifier
	dispatcher *dispatch.Dispatcher
	tx         *txsync.Synchronizer

	// scratch reused for every request
	reply   []byte
	frame   []byte
	pending []byte
	hasReq  bool

	log log.Logger
}

// New builds a Controller for dev.
func New(dev hal.Device, cfg Config) *Controller {
	c := &Controller{
		dev:   dev,
		sess:  core.NewSession(dev.Ethernet.MAC()),
		reply: make([]byte, proto.ReplyCapacity),
		frame: make([]byte, maxFrameLen),
		log:   log.Module("control"),
	}
	c.classifier = netframe.NewClassifier(c.sess, cfg.ControlPort, cfg.DataPort, c.onControl)
	c.dispatcher = dispatch.New(dev, dispatch.WithCICRange(cfg.CICMin, cfg.CICMax))
	c.tx = txsync.New(dev)
	return c
}

// Session exposes the control session.
func (c *Controller) Session() *core.Session { return c.sess }

func (c *Controller) onControl(payload []byte) {
	c.pending = payload
	c.hasReq = true
}

// HandleFrame inspects one received frame. Control requests are executed
// and answered before it returns. It reports whether the frame was
// consumed; unconsumed frames belong to the streaming path.
func (c *Controller) HandleFrame(ctx context.Context, frame []byte) bool {
	c.hasReq = false
	consumed := c.classifier.Inspect(frame)
	if c.hasReq {
		c.handleControl(ctx, c.pending)
		c.pending = nil
		c.hasReq = false
	}
	return consumed
}

func (c *Controller) handleControl(ctx context.Context, request []byte) {
	n := c.dispatcher.Process(request, c.reply)

	// the address may have been re-burned by this very request
	c.sess.Device = c.dev.Ethernet.MAC()

	fl, err := netframe.BuildReply(c.sess, c.reply[:n], c.frame)
	if err != nil {
		c.log.WithError(err).Warn("build reply")
		return
	}
	if err := c.tx.Send(ctx, c.frame[:fl]); err != nil {
		c.log.WithError(err).WithField("peer", c.sess.Peer.String()).Warn("send reply")
	}
}

// Run reads frames from src until ctx is done or the source closes.
// Frames the control path leaves are written to sink when it is non-nil.
func (c *Controller) Run(ctx context.Context, src FrameSource, sink DataSink) error {
	for {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, core.ErrLinkClosed) {
				return nil
			}
			return err
		}
		if c.HandleFrame(ctx, frame) || sink == nil {
			continue
		}
		if err := sink.WriteData(frame); err != nil {
			c.log.WithError(err).Debug("data sink")
		}
	}
}

// OnLinkChange is the PHY callback. speed is in Mb/s; zero means down.
func (c *Controller) OnLinkChange(speed int) {
	up := speed != 0
	c.sess.SetLinkUp(up)
	if up {
		c.dev.LEDs.Set(hal.LEDRJ45, hal.LEDRJ45)
		metrics.LinkUp.Set(1)
		c.log.WithField("speed", speed).Info("ethernet link up")
	} else {
		c.dev.LEDs.Set(0, hal.LEDRJ45)
		metrics.LinkUp.Set(0)
		c.log.Info("ethernet link down")
	}
}
