package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/log"
)

const pcapName = "pcap"

// PcapOptions configures the libpcap driver.
type PcapOptions struct {
	SnapLen     int           `mapstructure:"snap_len"`
	Promiscuous bool          `mapstructure:"promiscuous"`
	Timeout     time.Duration `mapstructure:"timeout"`
	BPFFilter   string        `mapstructure:"bpf_filter"`
}

func defaultPcapOptions() PcapOptions {
	return PcapOptions{
		SnapLen:     2048,
		Promiscuous: true,
		Timeout:     100 * time.Millisecond,
	}
}

type pcapLink struct {
	handle *pcap.Handle
}

func init() {
	Register(pcapName, openPcap)
}

func openPcap(cfg Config) (FrameLink, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("pcap: device is required: %w", core.ErrConfigInvalid)
	}
	opts := defaultPcapOptions()
	if err := decodeOptions(cfg.Options, &opts); err != nil {
		return nil, fmt.Errorf("pcap options: %w", err)
	}

	h, err := pcap.OpenLive(cfg.Device, int32(opts.SnapLen), opts.Promiscuous, opts.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Device, err)
	}
	if opts.BPFFilter != "" {
		if err := h.SetBPFFilter(opts.BPFFilter); err != nil {
			h.Close()
			return nil, fmt.Errorf("failed to apply BPF filter %q: %w", opts.BPFFilter, err)
		}
	}
	log.Module("link").WithFields(map[string]interface{}{
		"driver": pcapName,
		"device": cfg.Device,
		"filter": opts.BPFFilter,
	}).Info("link opened")
	return &pcapLink{handle: h}, nil
}

func (l *pcapLink) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, _, err := l.handle.ZeroCopyReadPacketData()
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, pcap.NextErrorTimeoutExpired):
			continue
		case errors.Is(err, io.EOF):
			return nil, core.ErrLinkClosed
		default:
			return nil, err
		}
	}
}

func (l *pcapLink) WriteFrame(frame []byte) error {
	return l.handle.WritePacketData(frame)
}

func (l *pcapLink) Close() error {
	l.handle.Close()
	return nil
}
