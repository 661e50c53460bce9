package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreqHiLo(t *testing.T) {
	tests := []struct {
		name   string
		hz     float64
		hi, lo uint32
	}{
		{"zero", 0, 0, 0},
		{"one hz", 1, 0, 1 << 20},
		{"2.4 GHz", 2.4e9, 0x0008f0d1, 0x80000000},
		{"minus one hz", -1, 0xffffffff, 0xfff00000},
		{"half hz", 0.5, 0, 1 << 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FreqFromHz(tt.hz)
			assert.Equal(t, tt.hi, f.Hi())
			assert.Equal(t, tt.lo, f.Lo())
			assert.Equal(t, f, FreqFromHiLo(tt.hi, tt.lo))
			assert.Equal(t, tt.hz, f.Hz())
		})
	}
}

func TestOpcodeString(t *testing.T) {
	assert.Equal(t, "CONFIG_TX_V2", OpConfigTxV2.String())
	assert.Equal(t, "CONFIG_TX_V2_REPLY", OpConfigTxV2.Reply().String())
	assert.Equal(t, "EOP", OpEOP.String())
	assert.Equal(t, "OP_99", Opcode(99).String())
	assert.True(t, OpPeek.Reply().IsReply())
	assert.False(t, OpPeek.IsReply())
	assert.Equal(t, Opcode(0x81), OpID.Reply())
}

func TestAlign4(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 4, 4: 4, 5: 8, 251: 252, 252: 252} {
		assert.Equal(t, want, Align4(n), "n=%d", n)
	}
}

func TestGenericAndEOP(t *testing.T) {
	b := make([]byte, 8)
	n := PutGeneric(b, Header{Opcode: OpPoke, Len: 16, RID: 9}, true)
	assert.Equal(t, HeaderLen, n)
	assert.Equal(t, []byte{byte(OpPoke | ReplyBit), 4, 9, 1}, b[:4])

	assert.Zero(t, PutGeneric(b[:3], Header{Opcode: OpPoke}, true))
	assert.Equal(t, HeaderLen, PutEOP(b[4:]))
	assert.Equal(t, []byte{0, 4, 0, 0}, b[4:])
	assert.Zero(t, PutEOP(nil))
}

func TestDecodePoke(t *testing.T) {
	b := make([]byte, 16)
	n := Poke{Header: Header{Opcode: OpPoke, RID: 2}, Addr: 0xc000, Data: []byte{1, 2, 3, 4, 5}}.Put(b)
	require.Equal(t, 13, n)

	p, err := DecodePoke(b[:n])
	require.NoError(t, err)
	assert.Equal(t, uint32(0xc000), p.Addr)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, p.Data)

	// declared length past the slice
	b[1] = 20
	_, err = DecodePoke(b[:n])
	assert.ErrorIs(t, err, ErrBadLength)

	// declared length shorter than the fixed part
	b[1] = 6
	_, err = DecodePoke(b[:n])
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = DecodePoke(b[:7])
	assert.ErrorIs(t, err, ErrShortSubpacket)

	assert.Zero(t, Poke{Data: make([]byte, MaxSubpacketLen)}.Put(make([]byte, 512)))
}

func TestDecodeConfig(t *testing.T) {
	b := []byte{
		byte(OpConfigRxV2), 24, 5, 0,
		0x00, 0x0f, 0xff, 0xf6, // valid, gain -10
		0x00, 0x00, 0x5f, 0x5e, 0x10, 0x00, 0x00, 0x00, // 100 MHz
		0x00, 0x00, 0x00, 0x08,
		0x00, 0x01, 0x23, 0x45,
	}
	c, err := DecodeConfig(b)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), c.RID)
	assert.Equal(t, uint16(0x0f), c.Valid)
	assert.Equal(t, int16(-10), c.Gain)
	assert.Equal(t, 100e6, c.Freq.Hz())
	assert.Equal(t, uint32(8), c.Rate)
	assert.Equal(t, uint32(0x12345), c.ScaleIQ)

	_, err = DecodeConfig(b[:23])
	assert.ErrorIs(t, err, ErrShortSubpacket)
}

func TestConfigReplyLayout(t *testing.T) {
	b := make([]byte, ConfigReplyLen)
	n := ConfigReply{
		Opcode: OpConfigTxV2.Reply(),
		RID:    3,
		OK:     true,
		TuneResult: TuneResult{
			Baseband: FreqFromHz(1),
			DxC:      FreqFromHz(-1),
			Inverted: true,
		},
	}.Put(b)
	require.Equal(t, ConfigReplyLen, n)
	assert.Equal(t, []byte{byte(OpConfigTxV2 | ReplyBit), 32, 3, 0}, b[:4])

	r, err := DecodeConfigReply(b)
	require.NoError(t, err)
	assert.True(t, r.OK)
	assert.True(t, r.Inverted)
	assert.Equal(t, FreqFromHz(-1), r.DxC)
	assert.Zero(t, ConfigReply{}.Put(b[:31]))
}

func TestNextAndBuilder(t *testing.T) {
	buf := make([]byte, 64)
	bld := NewBuilder(buf)
	require.NoError(t, bld.Add(func(b []byte) int { return PutRequest(b, OpID, 1) }))
	require.NoError(t, bld.Add(Poke{Header: Header{Opcode: OpPoke, RID: 2}, Data: []byte{0xff}}.Put))
	require.NoError(t, bld.Add(func(b []byte) int { return PutRequest(b, OpStopRx, 3) }))
	out, err := bld.Finish()
	require.NoError(t, err)
	assert.Len(t, out, 4+12+4+4)
	assert.Equal(t, byte(0), out[13], "poke padding must be zeroed")

	var rids []uint8
	var lens []int
	rest := out
	for {
		sub, h, next, ok := Next(rest)
		if !ok {
			break
		}
		rids = append(rids, h.RID)
		lens = append(lens, len(sub))
		rest = next
	}
	assert.Equal(t, []uint8{1, 2, 3}, rids)
	assert.Equal(t, []int{4, 9, 4}, lens)
	assert.Equal(t, []byte{0, 4, 0, 0}, rest)

	// no room for the EOP
	bld = NewBuilder(make([]byte, 6))
	require.NoError(t, bld.Add(func(b []byte) int { return PutRequest(b, OpID, 1) }))
	_, err = bld.Finish()
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestNextRejectsBadLengths(t *testing.T) {
	_, _, _, ok := Next([]byte{byte(OpID), 3, 0, 0})
	assert.False(t, ok)
	_, _, _, ok = Next([]byte{byte(OpID), 8, 0, 0})
	assert.False(t, ok)
	_, _, _, ok = Next([]byte{byte(OpID)})
	assert.False(t, ok)

	// a final subpacket whose padding is missing still parses
	sub, _, rest, ok := Next([]byte{byte(OpPoke), 9, 0, 0, 0, 0, 0, 0, 1})
	assert.True(t, ok)
	assert.Len(t, sub, 9)
	assert.Empty(t, rest)
}
