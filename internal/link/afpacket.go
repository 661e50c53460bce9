//go:build linux

package link

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket/afpacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/log"
)

const afpacketName = "afpacket"

// AFPacketOptions configures the TPACKET_V3 driver.
type AFPacketOptions struct {
	SnapLen      int           `mapstructure:"snap_len"`
	BufferSizeMB int           `mapstructure:"buffer_size_mb"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	BPFFilter    string        `mapstructure:"bpf_filter"`
}

func defaultAFPacketOptions() AFPacketOptions {
	return AFPacketOptions{
		SnapLen:      2048,
		BufferSizeMB: 4,
		PollTimeout:  100 * time.Millisecond,
	}
}

type afpacketLink struct {
	handle *afpacket.TPacket
}

func init() {
	Register(afpacketName, openAFPacket)
}

func openAFPacket(cfg Config) (FrameLink, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("afpacket: device is required: %w", core.ErrConfigInvalid)
	}
	opts := defaultAFPacketOptions()
	if err := decodeOptions(cfg.Options, &opts); err != nil {
		return nil, fmt.Errorf("afpacket options: %w", err)
	}
	frameSize, blockSize, numBlocks, err := ringGeometry(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, err
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(cfg.Device),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(opts.PollTimeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create TPacket handle: %w", err)
	}

	if opts.BPFFilter != "" {
		if err := setBPF(tp, opts.SnapLen, opts.BPFFilter); err != nil {
			tp.Close()
			return nil, err
		}
	}
	log.Module("link").WithFields(map[string]interface{}{
		"driver":     afpacketName,
		"device":     cfg.Device,
		"frame_size": frameSize,
		"block_size": blockSize,
		"num_blocks": numBlocks,
	}).Info("link opened")
	return &afpacketLink{handle: tp}, nil
}

// setBPF compiles filter with libpcap and installs it on the ring socket.
func setBPF(tp *afpacket.TPacket, snapLen int, filter string) error {
	insns, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, snapLen, filter)
	if err != nil {
		return fmt.Errorf("failed to compile BPF filter %q: %w", filter, err)
	}
	raw := make([]bpf.RawInstruction, len(insns))
	for i, in := range insns {
		raw[i] = bpf.RawInstruction{Op: in.Code, Jt: in.Jt, Jf: in.Jf, K: in.K}
	}
	if err := tp.SetBPF(raw); err != nil {
		return fmt.Errorf("failed to set BPF: %w", err)
	}
	return nil
}

func (l *afpacketLink) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, _, err := l.handle.ZeroCopyReadPacketData()
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, afpacket.ErrTimeout), errors.Is(err, afpacket.ErrPoll):
			continue
		default:
			return nil, err
		}
	}
}

func (l *afpacketLink) WriteFrame(frame []byte) error {
	return l.handle.WritePacketData(frame)
}

func (l *afpacketLink) Close() error {
	l.handle.Close()
	return nil
}
