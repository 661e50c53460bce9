package proto

import "encoding/binary"

var be = binary.BigEndian

// Config valid bits select which fields of a CONFIG_TX/RX request apply.
const (
	CfgValidGain        = 0x0001
	CfgValidFreq        = 0x0002
	CfgValidInterpDecim = 0x0004
	CfgValidScaleIQ     = 0x0008
)

// Clock configuration flags.
const (
	ClockRefMask        = 0x0f
	ClockRefNone        = 0x00
	ClockRefSMA         = 0x01
	ClockRefMIMO        = 0x02
	ClockPPSSourceSMA   = 0x00 << 4
	ClockPPSSourceMIMO  = 0x01 << 4
	ClockPPSPolarityNeg = 0x00 << 5
	ClockPPSPolarityPos = 0x01 << 5
)

// SET_TIME latch modes, carried in the header flag.
const (
	SetTimeNow = 0 // latch immediately
	SetTimePPS = 1 // latch on the next PPS edge
)

// Fixed request sizes.
const (
	ConfigRequestLen = 24
	StartRxStreamLen = 8
	BurnMACAddrLen   = 12
	ConfigClockLen   = 8
	SetTimeLen       = 12
	PeekLen          = 12
	PokeHeaderLen    = 8
	FreqRequestLen   = 12
	GPIORequestLen   = 8
	GPIOSetSelsLen   = 20
	GPIOSelsCount    = 16
)

// ConfigRequest is CONFIG_TX_V2 or CONFIG_RX_V2. Rate is the interpolation
// factor for TX and the decimation factor for RX.
type ConfigRequest struct {
	Header
	Valid   uint16
	Gain    int16
	Freq    Freq
	Rate    uint32
	ScaleIQ uint32
}

func DecodeConfig(b []byte) (ConfigRequest, error) {
	if len(b) < ConfigRequestLen {
		return ConfigRequest{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	return ConfigRequest{
		Header:  h,
		Valid:   be.Uint16(b[4:6]),
		Gain:    int16(be.Uint16(b[6:8])),
		Freq:    FreqFromHiLo(be.Uint32(b[8:12]), be.Uint32(b[12:16])),
		Rate:    be.Uint32(b[16:20]),
		ScaleIQ: be.Uint32(b[20:24]),
	}, nil
}

func (r ConfigRequest) Put(b []byte) int {
	if len(b) < ConfigRequestLen {
		return 0
	}
	r.Len = ConfigRequestLen
	r.Header.Put(b)
	be.PutUint16(b[4:6], r.Valid)
	be.PutUint16(b[6:8], uint16(r.Gain))
	be.PutUint32(b[8:12], r.Freq.Hi())
	be.PutUint32(b[12:16], r.Freq.Lo())
	be.PutUint32(b[16:20], r.Rate)
	be.PutUint32(b[20:24], r.ScaleIQ)
	return ConfigRequestLen
}

type StartRxStream struct {
	Header
	ItemsPerFrame uint32
}

func DecodeStartRxStream(b []byte) (StartRxStream, error) {
	if len(b) < StartRxStreamLen {
		return StartRxStream{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	return StartRxStream{Header: h, ItemsPerFrame: be.Uint32(b[4:8])}, nil
}

func (r StartRxStream) Put(b []byte) int {
	if len(b) < StartRxStreamLen {
		return 0
	}
	r.Len = StartRxStreamLen
	r.Header.Put(b)
	be.PutUint32(b[4:8], r.ItemsPerFrame)
	return StartRxStreamLen
}

type BurnMACAddr struct {
	Header
	Addr [6]byte
}

func DecodeBurnMACAddr(b []byte) (BurnMACAddr, error) {
	if len(b) < BurnMACAddrLen {
		return BurnMACAddr{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	r := BurnMACAddr{Header: h}
	copy(r.Addr[:], b[4:10])
	return r, nil
}

func (r BurnMACAddr) Put(b []byte) int {
	if len(b) < BurnMACAddrLen {
		return 0
	}
	r.Len = BurnMACAddrLen
	r.Header.Put(b)
	copy(b[4:10], r.Addr[:])
	be.PutUint16(b[10:12], 0)
	return BurnMACAddrLen
}

type ConfigClock struct {
	Header
	Flags uint32
}

func DecodeConfigClock(b []byte) (ConfigClock, error) {
	if len(b) < ConfigClockLen {
		return ConfigClock{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	return ConfigClock{Header: h, Flags: be.Uint32(b[4:8])}, nil
}

func (r ConfigClock) Put(b []byte) int {
	if len(b) < ConfigClockLen {
		return 0
	}
	r.Len = ConfigClockLen
	r.Header.Put(b)
	be.PutUint32(b[4:8], r.Flags)
	return ConfigClockLen
}

// SetTime carries the latch mode in Header.Flag.
type SetTime struct {
	Header
	Secs  uint32
	Ticks uint32
}

func DecodeSetTime(b []byte) (SetTime, error) {
	if len(b) < SetTimeLen {
		return SetTime{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	return SetTime{Header: h, Secs: be.Uint32(b[4:8]), Ticks: be.Uint32(b[8:12])}, nil
}

func (r SetTime) Put(b []byte) int {
	if len(b) < SetTimeLen {
		return 0
	}
	r.Len = SetTimeLen
	r.Header.Put(b)
	be.PutUint32(b[4:8], r.Secs)
	be.PutUint32(b[8:12], r.Ticks)
	return SetTimeLen
}

type Peek struct {
	Header
	Addr  uint32
	Bytes uint32
}

func DecodePeek(b []byte) (Peek, error) {
	if len(b) < PeekLen {
		return Peek{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	return Peek{Header: h, Addr: be.Uint32(b[4:8]), Bytes: be.Uint32(b[8:12])}, nil
}

func (r Peek) Put(b []byte) int {
	if len(b) < PeekLen {
		return 0
	}
	r.Len = PeekLen
	r.Header.Put(b)
	be.PutUint32(b[4:8], r.Addr)
	be.PutUint32(b[8:12], r.Bytes)
	return PeekLen
}

// Poke writes Data at Addr. The data length is the declared subpacket
// length minus PokeHeaderLen; Data aliases the request buffer.
type Poke struct {
	Header
	Addr uint32
	Data []byte
}

// DecodePoke expects b to be exactly the declared subpacket.
func DecodePoke(b []byte) (Poke, error) {
	if len(b) < PokeHeaderLen {
		return Poke{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	if int(h.Len) < PokeHeaderLen || int(h.Len) > len(b) {
		return Poke{}, ErrBadLength
	}
	return Poke{Header: h, Addr: be.Uint32(b[4:8]), Data: b[PokeHeaderLen:h.Len]}, nil
}

func (r Poke) Put(b []byte) int {
	n := PokeHeaderLen + len(r.Data)
	if n > MaxSubpacketLen || len(b) < n {
		return 0
	}
	r.Len = uint8(n)
	r.Header.Put(b)
	be.PutUint32(b[4:8], r.Addr)
	copy(b[PokeHeaderLen:], r.Data)
	return n
}

// FreqRequest is SET_TX_LO_OFFSET / SET_RX_LO_OFFSET.
type FreqRequest struct {
	Header
	Freq Freq
}

func DecodeFreq(b []byte) (FreqRequest, error) {
	if len(b) < FreqRequestLen {
		return FreqRequest{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	return FreqRequest{Header: h, Freq: FreqFromHiLo(be.Uint32(b[4:8]), be.Uint32(b[8:12]))}, nil
}

func (r FreqRequest) Put(b []byte) int {
	if len(b) < FreqRequestLen {
		return 0
	}
	r.Len = FreqRequestLen
	r.Header.Put(b)
	be.PutUint32(b[4:8], r.Freq.Hi())
	be.PutUint32(b[8:12], r.Freq.Lo())
	return FreqRequestLen
}

// GPIORequest is GPIO_SET_DDR, GPIO_WRITE, GPIO_READ or GPIO_STREAM; the
// bank is carried in Header.Flag.
type GPIORequest struct {
	Header
	Value uint16
	Mask  uint16
}

func (r GPIORequest) Bank() int { return int(r.Flag) }

func DecodeGPIO(b []byte) (GPIORequest, error) {
	if len(b) < GPIORequestLen {
		return GPIORequest{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	return GPIORequest{Header: h, Value: be.Uint16(b[4:6]), Mask: be.Uint16(b[6:8])}, nil
}

func (r GPIORequest) Put(b []byte) int {
	if len(b) < GPIORequestLen {
		return 0
	}
	r.Len = GPIORequestLen
	r.Header.Put(b)
	be.PutUint16(b[4:6], r.Value)
	be.PutUint16(b[6:8], r.Mask)
	return GPIORequestLen
}

// GPIOSetSels assigns a source selector character to each of the bank's
// 16 pins.
type GPIOSetSels struct {
	Header
	Sels [GPIOSelsCount]byte
}

func (r GPIOSetSels) Bank() int { return int(r.Flag) }

func DecodeGPIOSetSels(b []byte) (GPIOSetSels, error) {
	if len(b) < GPIOSetSelsLen {
		return GPIOSetSels{}, ErrShortSubpacket
	}
	h, _ := DecodeHeader(b)
	r := GPIOSetSels{Header: h}
	copy(r.Sels[:], b[4:20])
	return r, nil
}

func (r GPIOSetSels) Put(b []byte) int {
	if len(b) < GPIOSetSelsLen {
		return 0
	}
	r.Len = GPIOSetSelsLen
	r.Header.Put(b)
	copy(b[4:20], r.Sels[:])
	return GPIOSetSelsLen
}

// PutRequest writes a header-only request such as ID, STOP_RX, RESET_DB
// or DBOARD_INFO.
func PutRequest(b []byte, op Opcode, rid uint8) int {
	if len(b) < HeaderLen {
		return 0
	}
	Header{Opcode: op, Len: HeaderLen, RID: rid}.Put(b)
	return HeaderLen
}
