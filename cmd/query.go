package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/proto"
)

// Queries understood by the query command.
const (
	queryID         = "id"
	queryDboardInfo = "dboard-info"
	queryPeek       = "peek"
	queryGPIORead   = "gpio-read"
)

type queryOptions struct {
	addr      string
	timeout   time.Duration
	peekAddr  uint32
	peekBytes uint32
	bank      uint8
}

var queryOpts queryOptions

var queryCmd = &cobra.Command{
	Use:   "query {id|dboard-info|peek|gpio-read}",
	Short: "Send one control request to a device and print the reply",
	Long: `Encode a control request, send it over UDP to a device's control port and
decode the reply.

Examples:
  u2ctl query id --addr 192.168.10.2:49152
  u2ctl query peek --at 0x1000 --bytes 16
  u2ctl query gpio-read --bank 1`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{queryID, queryDboardInfo, queryPeek, queryGPIORead},
	RunE: func(cmd *cobra.Command, args []string) error {
		ex := &udpExchanger{addr: queryOpts.addr, timeout: queryOpts.timeout}
		return runQuery(cmd.Context(), ex, args[0], queryOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryOpts.addr, "addr", "192.168.10.2:49152", "device control address")
	f.DurationVar(&queryOpts.timeout, "timeout", time.Second, "reply timeout")
	f.Uint32Var(&queryOpts.peekAddr, "at", 0, "peek address")
	f.Uint32Var(&queryOpts.peekBytes, "bytes", 4, "peek length")
	f.Uint8Var(&queryOpts.bank, "bank", 0, "gpio bank (0 tx, 1 rx)")
}

// exchanger sends one request payload and returns the reply payload.
type exchanger interface {
	Exchange(ctx context.Context, req []byte) ([]byte, error)
}

type udpExchanger struct {
	addr    string
	timeout time.Duration
}

func (u *udpExchanger) Exchange(ctx context.Context, req []byte) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", u.addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(u.timeout)); err != nil {
		return nil, err
	}
	if _, err := conn.Write(req); err != nil {
		return nil, err
	}
	buf := make([]byte, proto.ReplyCapacity)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("no reply from %s: %w", u.addr, err)
	}
	return buf[:n], nil
}

func buildQuery(op string, o queryOptions) ([]byte, error) {
	const rid = 1
	b := proto.NewBuilder(make([]byte, proto.MaxSubpacketLen))

	var put func([]byte) int
	switch op {
	case queryID:
		put = func(p []byte) int { return proto.PutRequest(p, proto.OpID, rid) }
	case queryDboardInfo:
		put = func(p []byte) int { return proto.PutRequest(p, proto.OpDboardInfo, rid) }
	case queryPeek:
		put = proto.Peek{
			Header: proto.Header{Opcode: proto.OpPeek, RID: rid},
			Addr:   o.peekAddr,
			Bytes:  o.peekBytes,
		}.Put
	case queryGPIORead:
		put = proto.GPIORequest{Header: proto.Header{Opcode: proto.OpGPIORead, RID: rid, Flag: o.bank}}.Put
	default:
		return nil, fmt.Errorf("unknown query %q", op)
	}
	if err := b.Add(put); err != nil {
		return nil, err
	}
	return b.Finish()
}

func runQuery(ctx context.Context, ex exchanger, op string, o queryOptions, w io.Writer) error {
	req, err := buildQuery(op, o)
	if err != nil {
		return err
	}
	reply, err := ex.Exchange(ctx, req)
	if err != nil {
		return err
	}
	return printReply(w, reply)
}

func printReply(w io.Writer, reply []byte) error {
	rest := reply
	for {
		sub, h, next, ok := proto.Next(rest)
		if !ok {
			break
		}
		rest = next

		switch h.Opcode {
		case proto.OpID.Reply():
			r, err := proto.DecodeIDReply(sub)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s rid=%d mac=%s hw_rev=%d.%d\n",
				proto.OpID, r.RID, core.MAC(r.Addr), r.HWRev>>8, r.HWRev&0xff)
		case proto.OpDboardInfo.Reply():
			r, err := proto.DecodeDboardInfoReply(sub)
			if err != nil {
				return err
			}
			for _, db := range []struct {
				name string
				info proto.DBInfo
			}{{"tx", r.TX}, {"rx", r.RX}} {
				fmt.Fprintf(w, "%s rid=%d %s dbid=%d freq=[%.0f, %.0f] gain=[%d, %d] step=%d\n",
					proto.OpDboardInfo, r.RID, db.name, db.info.DBID,
					db.info.FreqMin.Hz(), db.info.FreqMax.Hz(),
					db.info.GainMin, db.info.GainMax, db.info.GainStep)
			}
		case proto.OpPeek.Reply():
			data, err := proto.PeekReplyData(sub)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s rid=%d data=%s\n", proto.OpPeek, h.RID, hex.EncodeToString(data))
		case proto.OpGPIORead.Reply():
			r, err := proto.DecodeGPIOReadReply(sub)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s rid=%d ok=%t value=0x%04x\n", proto.OpGPIORead, r.RID, r.OK, r.Value)
		default:
			fmt.Fprintf(w, "%s rid=%d ok=%t\n", h.Opcode, h.RID, h.OK())
		}
	}
	if len(rest) == 0 {
		return fmt.Errorf("reply has no end marker: %w", core.ErrPacketTooShort)
	}
	return nil
}
