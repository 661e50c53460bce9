package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/0xastro/uhd/internal/core"
)

const fileName = "file"

// FileOptions configures the capture-file driver. Frames are replayed from
// Input; written frames are appended to Output when it is set.
type FileOptions struct {
	Input   string `mapstructure:"input"`
	Output  string `mapstructure:"output"`
	SnapLen int    `mapstructure:"snap_len"`
}

type fileLink struct {
	in     *os.File
	r      *pcapgo.Reader
	out    *os.File
	w      *pcapgo.Writer
	closed bool
}

func init() {
	Register(fileName, openFile)
}

func openFile(cfg Config) (FrameLink, error) {
	opts := FileOptions{SnapLen: 65536}
	if err := decodeOptions(cfg.Options, &opts); err != nil {
		return nil, fmt.Errorf("file options: %w", err)
	}
	if opts.Input == "" {
		return nil, fmt.Errorf("file: input is required: %w", core.ErrConfigInvalid)
	}

	l := &fileLink{}
	var err error
	if l.in, err = os.Open(opts.Input); err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", opts.Input, err)
	}
	if l.r, err = pcapgo.NewReader(l.in); err != nil {
		l.in.Close()
		return nil, fmt.Errorf("failed to read pcap file %s: %w", opts.Input, err)
	}
	if opts.Output != "" {
		if l.out, err = os.Create(opts.Output); err != nil {
			l.in.Close()
			return nil, err
		}
		l.w = pcapgo.NewWriter(l.out)
		if err = l.w.WriteFileHeader(uint32(opts.SnapLen), layers.LinkTypeEthernet); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

func (l *fileLink) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := l.r.ReadPacketData()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrLinkClosed
	}
	return data, err
}

func (l *fileLink) WriteFrame(frame []byte) error {
	if l.w == nil {
		return nil
	}
	return l.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     time.Now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}, frame)
}

func (l *fileLink) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	err := l.in.Close()
	if l.out != nil {
		if cerr := l.out.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
