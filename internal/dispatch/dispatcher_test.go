package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xastro/uhd/internal/core"
	"github.com/0xastro/uhd/internal/hal/sim"
	"github.com/0xastro/uhd/internal/proto"
)

var testMAC = core.MAC{0x00, 0x50, 0xc2, 0x85, 0x30, 0x01}

func newTestDispatcher(t *testing.T) (*Dispatcher, *sim.Device) {
	t.Helper()
	dev := sim.New(sim.Options{MAC: testMAC, HWRevMajor: 3, HWRevMinor: 1})
	return New(dev.HAL()), dev
}

func request(t *testing.T, puts ...func([]byte) int) []byte {
	t.Helper()
	b := proto.NewBuilder(make([]byte, 2048))
	for _, put := range puts {
		require.NoError(t, b.Add(put))
	}
	out, err := b.Finish()
	require.NoError(t, err)
	return out
}

func headerOnly(op proto.Opcode, rid uint8) func([]byte) int {
	return func(b []byte) int { return proto.PutRequest(b, op, rid) }
}

// process runs req and splits the reply into subpackets, checking that it
// ends with exactly one EOP.
func process(t *testing.T, d *Dispatcher, req []byte) [][]byte {
	t.Helper()
	reply := make([]byte, proto.ReplyCapacity)
	n := d.Process(req, reply)
	require.GreaterOrEqual(t, n, proto.HeaderLen)
	require.Zero(t, n%4)

	var subs [][]byte
	rest := reply[:n]
	for {
		sub, _, next, ok := proto.Next(rest)
		if !ok {
			break
		}
		subs = append(subs, sub)
		rest = next
	}
	require.Len(t, rest, proto.HeaderLen, "reply must end with a single EOP")
	h, err := proto.DecodeHeader(rest)
	require.NoError(t, err)
	assert.Equal(t, proto.OpEOP, h.Opcode)
	return subs
}

func header(t *testing.T, sub []byte) proto.Header {
	t.Helper()
	h, err := proto.DecodeHeader(sub)
	require.NoError(t, err)
	return h
}

func TestProcessEmptyRequest(t *testing.T) {
	d, _ := newTestDispatcher(t)

	for _, req := range [][]byte{nil, {0, 4, 0, 0}, {1, 2}} {
		reply := make([]byte, proto.ReplyCapacity)
		n := d.Process(req, reply)
		assert.Equal(t, 4, n)
		assert.Equal(t, []byte{0, 4, 0, 0}, reply[:n])
	}
}

func TestProcessReplyOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	req := request(t,
		headerOnly(proto.OpID, 1),
		headerOnly(proto.Opcode(99), 2),
		headerOnly(proto.OpStopRx, 3),
		proto.GPIORequest{Header: proto.Header{Opcode: proto.OpGPIORead, RID: 4}}.Put,
	)
	subs := process(t, d, req)
	require.Len(t, subs, 3)

	var rids []uint8
	var ops []proto.Opcode
	for _, s := range subs {
		h := header(t, s)
		rids = append(rids, h.RID)
		ops = append(ops, h.Opcode)
	}
	assert.Equal(t, []uint8{1, 3, 4}, rids)
	assert.Equal(t, []proto.Opcode{proto.OpID.Reply(), proto.OpStopRx.Reply(), proto.OpGPIORead.Reply()}, ops)
}

func TestProcessAdvancesByAlignedLength(t *testing.T) {
	d, dev := newTestDispatcher(t)

	// ID declared as 5 bytes, padded to 8; STOP_RX must be found at 8.
	req := []byte{
		byte(proto.OpID), 5, 7, 0, 0xee, 0, 0, 0,
		byte(proto.OpStopRx), 4, 8, 0,
		0, 4, 0, 0,
	}
	subs := process(t, d, req)
	require.Len(t, subs, 2)
	assert.Equal(t, uint8(7), header(t, subs[0]).RID)
	assert.Equal(t, uint8(8), header(t, subs[1]).RID)
	assert.Equal(t, []string{"stop"}, dev.Streamer.Events())
}

func TestProcessStopsOnOverrun(t *testing.T) {
	d, dev := newTestDispatcher(t)

	req := []byte{
		byte(proto.OpStopRx), 4, 1, 0,
		byte(proto.OpResetDB), 24, 2, 0, 0, 0, 0, 0,
	}
	subs := process(t, d, req)
	require.Len(t, subs, 1)
	assert.Equal(t, uint8(1), header(t, subs[0]).RID)
	assert.Zero(t, dev.Frontends.Inits())

	// A declared length below the header size also ends the walk.
	req = []byte{byte(proto.OpStopRx), 2, 1, 0, byte(proto.OpResetDB), 4, 2, 0}
	assert.Empty(t, process(t, d, req))
}

func TestProcessNoRoom(t *testing.T) {
	d, _ := newTestDispatcher(t)

	req := request(t, headerOnly(proto.OpID, 1))
	reply := make([]byte, 8)
	n := d.Process(req, reply)
	assert.Equal(t, 4, n)
	assert.Equal(t, proto.OpEOP, proto.Opcode(reply[0]))

	n = d.Process(req, make([]byte, 2))
	assert.Zero(t, n)
}

func TestProcessReplyCapacity(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var puts []func([]byte) int
	for i := 0; i < 40; i++ {
		puts = append(puts, headerOnly(proto.OpDboardInfo, uint8(i)))
	}
	reply := make([]byte, 4096)
	n := d.Process(request(t, puts...), reply)

	// 16 records of 60 bytes fit in 1008, the 17th does not, the EOP does.
	assert.Equal(t, 16*proto.DboardInfoReplyLen+proto.HeaderLen, n)
	assert.LessOrEqual(t, n, proto.ReplyCapacity)
}

func TestIDReply(t *testing.T) {
	d, dev := newTestDispatcher(t)
	newMAC := core.MAC{0x02, 0, 0, 0, 0, 0x09}

	subs := process(t, d, request(t,
		proto.BurnMACAddr{Header: proto.Header{Opcode: proto.OpBurnMACAddr, RID: 1}, Addr: newMAC}.Put,
		headerOnly(proto.OpID, 2),
	))
	require.Len(t, subs, 2)
	assert.True(t, header(t, subs[0]).OK())

	id, err := proto.DecodeIDReply(subs[1])
	require.NoError(t, err)
	assert.Equal(t, uint8(2), id.RID)
	assert.Equal(t, [6]byte(newMAC), id.Addr)
	assert.Equal(t, uint16(0x0301), id.HWRev)
	assert.Equal(t, newMAC, dev.Ethernet.MAC())

	dev.Ethernet.ReadOnly = true
	subs = process(t, d, request(t,
		proto.BurnMACAddr{Header: proto.Header{Opcode: proto.OpBurnMACAddr, RID: 3}, Addr: testMAC}.Put,
	))
	require.Len(t, subs, 1)
	assert.False(t, header(t, subs[0]).OK())
}

func configRequest(op proto.Opcode, rid uint8, c proto.ConfigRequest) func([]byte) int {
	c.Opcode = op
	c.RID = rid
	return c.Put
}

func TestConfigRxDecimation(t *testing.T) {
	tests := []struct {
		name   string
		decim  uint32
		ok     bool
		reg    uint32
		hasReg bool
	}{
		{"eight", 8, true, 0x302, true},
		{"three", 3, true, 0x003, true},
		{"out of range", 1024, false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, dev := newTestDispatcher(t)
			subs := process(t, d, request(t, configRequest(proto.OpConfigRxV2, 5, proto.ConfigRequest{
				Valid:   proto.CfgValidGain | proto.CfgValidInterpDecim | proto.CfgValidScaleIQ,
				Gain:    640,
				Rate:    tt.decim,
				ScaleIQ: 0x12345,
			})))
			require.Len(t, subs, 1)

			r, err := proto.DecodeConfigReply(subs[0])
			require.NoError(t, err)
			assert.Equal(t, proto.OpConfigRxV2.Reply(), r.Opcode)
			assert.Equal(t, uint8(5), r.RID)
			assert.Equal(t, tt.ok, r.OK)

			reg, ok := dev.Journal.Last(sim.RegRxDecim)
			assert.Equal(t, tt.hasReg, ok)
			assert.Equal(t, tt.reg, reg)

			// Gain and scale apply whatever happens to the rate.
			assert.Equal(t, int16(640), dev.Frontends.Rx.Gain())
			scale, ok := dev.Journal.Last(sim.RegRxScaleIQ)
			assert.True(t, ok)
			assert.Equal(t, uint32(0x12345), scale)
			_, ok = dev.Journal.Last(sim.RegTxInterp)
			assert.False(t, ok)
		})
	}
}

func TestConfigTxTune(t *testing.T) {
	d, dev := newTestDispatcher(t)
	dev.Streamer.Start(360)

	target := proto.FreqFromHz(100.25e6)
	subs := process(t, d, request(t, configRequest(proto.OpConfigTxV2, 1, proto.ConfigRequest{
		Valid: proto.CfgValidFreq | proto.CfgValidInterpDecim,
		Freq:  target,
		Rate:  4,
	})))
	require.Len(t, subs, 1)
	r, err := proto.DecodeConfigReply(subs[0])
	require.NoError(t, err)
	assert.True(t, r.OK)
	assert.Equal(t, proto.OpConfigTxV2.Reply(), r.Opcode)
	assert.Equal(t, proto.FreqFromHz(100e6), r.Baseband)
	assert.Equal(t, proto.FreqFromHz(0.25e6), r.DxC)
	assert.Equal(t, target, dev.Frontends.Tx.Tuned())
	assert.Equal(t, []string{"start", "stop", "restart"}, dev.Streamer.Events())

	reg, ok := dev.Journal.Last(sim.RegTxInterp)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x301), reg)

	// Out of range: failure, zero tune result, no stream toggling when idle.
	dev.Streamer.Stop()
	subs = process(t, d, request(t, configRequest(proto.OpConfigTxV2, 2, proto.ConfigRequest{
		Valid: proto.CfgValidFreq,
		Freq:  proto.FreqFromHz(1e9),
	})))
	require.Len(t, subs, 1)
	r, err = proto.DecodeConfigReply(subs[0])
	require.NoError(t, err)
	assert.False(t, r.OK)
	assert.Equal(t, proto.TuneResult{}, r.TuneResult)
	assert.Equal(t, []string{"start", "stop", "restart", "stop"}, dev.Streamer.Events())
}

func TestConfigShortRequest(t *testing.T) {
	d, dev := newTestDispatcher(t)

	req := []byte{byte(proto.OpConfigRxV2), 8, 9, 0, 0, 0x0f, 0, 0, 0, 4, 0, 0}
	subs := process(t, d, req)
	require.Len(t, subs, 1)
	h := header(t, subs[0])
	assert.Equal(t, proto.OpConfigRxV2.Reply(), h.Opcode)
	assert.Equal(t, uint8(proto.HeaderLen), h.Len)
	assert.Equal(t, uint8(9), h.RID)
	assert.False(t, h.OK())
	assert.Empty(t, dev.Journal.Writes())
}

func TestSetTimeWritesSecondsLast(t *testing.T) {
	tests := []struct {
		name string
		flag uint8
		imm  uint32
	}{
		{"now", proto.SetTimeNow, 1},
		{"next pps", proto.SetTimePPS, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, dev := newTestDispatcher(t)
			subs := process(t, d, request(t, proto.SetTime{
				Header: proto.Header{Opcode: proto.OpSetTime, RID: 1, Flag: tt.flag},
				Secs:   1700000000,
				Ticks:  12345,
			}.Put))
			require.Len(t, subs, 1)
			assert.True(t, header(t, subs[0]).OK())

			assert.Equal(t, []sim.Write{
				{Reg: sim.RegTimeTicks, Value: 12345},
				{Reg: sim.RegTimeImm, Value: tt.imm},
				{Reg: sim.RegTimeSecs, Value: 1700000000},
			}, dev.Journal.Writes())
		})
	}
}

func TestConfigClock(t *testing.T) {
	d, dev := newTestDispatcher(t)

	subs := process(t, d, request(t, proto.ConfigClock{
		Header: proto.Header{Opcode: proto.OpConfigClock, RID: 1},
		Flags:  proto.ClockRefSMA | proto.ClockPPSSourceMIMO | proto.ClockPPSPolarityPos,
	}.Put))
	require.Len(t, subs, 1)
	assert.True(t, header(t, subs[0]).OK())

	ref, _ := dev.Journal.Last(sim.RegClockRef)
	assert.Equal(t, uint32(proto.ClockRefSMA), ref)
	pps, _ := dev.Journal.Last(sim.RegTimeFlags)
	assert.Equal(t, uint32(3), pps)
}

func TestPokeThenPeek(t *testing.T) {
	d, _ := newTestDispatcher(t)
	data := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02, 0x03, 0x04}

	subs := process(t, d, request(t,
		proto.Poke{Header: proto.Header{Opcode: proto.OpPoke, RID: 1}, Addr: 0x1000, Data: data}.Put,
		proto.Peek{Header: proto.Header{Opcode: proto.OpPeek, RID: 2}, Addr: 0x1000, Bytes: 8}.Put,
	))
	require.Len(t, subs, 2)
	assert.True(t, header(t, subs[0]).OK())

	h := header(t, subs[1])
	assert.Equal(t, proto.OpPeek.Reply(), h.Opcode)
	assert.Equal(t, uint8(12), h.Len)
	got, err := proto.PeekReplyData(subs[1])
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPeekTooLarge(t *testing.T) {
	d, _ := newTestDispatcher(t)

	subs := process(t, d, request(t,
		proto.Peek{Header: proto.Header{Opcode: proto.OpPeek, RID: 1}, Addr: 0, Bytes: proto.PeekMaxBytes + 1}.Put,
		proto.Peek{Header: proto.Header{Opcode: proto.OpPeek, RID: 2}, Addr: 0, Bytes: 0xffffffff}.Put,
		headerOnly(proto.OpStopRx, 3),
	))
	require.Len(t, subs, 1)
	assert.Equal(t, uint8(3), header(t, subs[0]).RID)
}

func TestLOOffsetFails(t *testing.T) {
	d, _ := newTestDispatcher(t)

	subs := process(t, d, request(t,
		proto.FreqRequest{Header: proto.Header{Opcode: proto.OpSetTxLOOffset, RID: 1}, Freq: proto.FreqFromHz(1e3)}.Put,
		proto.FreqRequest{Header: proto.Header{Opcode: proto.OpSetRxLOOffset, RID: 2}, Freq: proto.FreqFromHz(-1e3)}.Put,
	))
	require.Len(t, subs, 2)
	for _, s := range subs {
		assert.False(t, header(t, s).OK())
	}
}

func TestGPIO(t *testing.T) {
	d, dev := newTestDispatcher(t)
	dev.GPIO.SetInput(1, 0xff00)

	var sels [proto.GPIOSelsCount]byte
	copy(sels[:], "aaaaaaaassssssss")
	gpio := func(op proto.Opcode, rid uint8, v, m uint16) func([]byte) int {
		return proto.GPIORequest{Header: proto.Header{Opcode: op, RID: rid, Flag: 1}, Value: v, Mask: m}.Put
	}

	subs := process(t, d, request(t,
		gpio(proto.OpGPIOSetDDR, 1, 0x00ff, 0x00ff),
		gpio(proto.OpGPIOWrite, 2, 0x00a5, 0x00ff),
		proto.GPIOSetSels{Header: proto.Header{Opcode: proto.OpGPIOSetSels, RID: 3, Flag: 1}, Sels: sels}.Put,
		gpio(proto.OpGPIORead, 4, 0, 0),
		gpio(proto.OpGPIOStream, 5, 1, 0),
	))
	require.Len(t, subs, 5)

	r, err := proto.DecodeGPIOReadReply(subs[3])
	require.NoError(t, err)
	assert.True(t, r.OK)
	assert.Equal(t, uint16(0xffa5), r.Value)
	assert.Equal(t, sels, dev.GPIO.Sels(1))

	en, ok := dev.Journal.Last(sim.RegGPIOStream)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), en)
}

func TestStreamingAndReset(t *testing.T) {
	d, dev := newTestDispatcher(t)

	subs := process(t, d, request(t,
		proto.StartRxStream{Header: proto.Header{Opcode: proto.OpStartRxStream, RID: 1}, ItemsPerFrame: 371}.Put,
		headerOnly(proto.OpStopRx, 2),
		headerOnly(proto.OpResetDB, 3),
		headerOnly(proto.OpDboardInfo, 4),
	))
	require.Len(t, subs, 4)
	assert.Equal(t, uint32(371), dev.Streamer.ItemsPerFrame())
	assert.Equal(t, []string{"start", "stop"}, dev.Streamer.Events())
	assert.Equal(t, 1, dev.Frontends.Inits())

	info, err := proto.DecodeDboardInfoReply(subs[3])
	require.NoError(t, err)
	assert.True(t, info.OK)
	assert.Equal(t, proto.DBInfo{}, info.TX)
}
