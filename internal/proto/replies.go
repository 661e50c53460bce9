package proto

// Fixed reply sizes.
const (
	IDReplyLen         = 20
	ConfigReplyLen     = 32
	DBInfoLen          = 28
	DboardInfoReplyLen = HeaderLen + 2*DBInfoLen
	GPIOReadReplyLen   = 8
	PeekReplyHeaderLen = HeaderLen
	PeekMaxBytes       = MaxSubpacketLen - PeekReplyHeaderLen
)

// IDReply identifies the hardware. The md5sum fields are reserved and
// sent as zero.
type IDReply struct {
	RID     uint8
	Addr    [6]byte
	HWRev   uint16
	FPGAMD5 [4]byte
	SWMD5   [4]byte
}

func (r IDReply) Put(b []byte) int {
	if len(b) < IDReplyLen {
		return 0
	}
	Header{Opcode: OpID.Reply(), Len: IDReplyLen, RID: r.RID}.Put(b)
	copy(b[4:10], r.Addr[:])
	be.PutUint16(b[10:12], r.HWRev)
	copy(b[12:16], r.FPGAMD5[:])
	copy(b[16:20], r.SWMD5[:])
	return IDReplyLen
}

func DecodeIDReply(b []byte) (IDReply, error) {
	if len(b) < IDReplyLen {
		return IDReply{}, ErrShortSubpacket
	}
	r := IDReply{RID: b[2], HWRev: be.Uint16(b[10:12])}
	copy(r.Addr[:], b[4:10])
	copy(r.FPGAMD5[:], b[12:16])
	copy(r.SWMD5[:], b[16:20])
	return r, nil
}

// TuneResult describes the outcome of one tuning attempt.
type TuneResult struct {
	Baseband Freq
	DxC      Freq
	Residual Freq
	Inverted bool
}

// ConfigReply answers CONFIG_TX_V2 / CONFIG_RX_V2.
type ConfigReply struct {
	Opcode Opcode
	RID    uint8
	OK     bool
	TuneResult
}

func (r ConfigReply) Put(b []byte) int {
	if len(b) < ConfigReplyLen {
		return 0
	}
	Header{Opcode: r.Opcode, Len: ConfigReplyLen, RID: r.RID}.Put(b)
	be.PutUint16(b[4:6], uint16(boolByte(r.OK)))
	be.PutUint16(b[6:8], uint16(boolByte(r.Inverted)))
	be.PutUint32(b[8:12], r.Baseband.Hi())
	be.PutUint32(b[12:16], r.Baseband.Lo())
	be.PutUint32(b[16:20], r.DxC.Hi())
	be.PutUint32(b[20:24], r.DxC.Lo())
	be.PutUint32(b[24:28], r.Residual.Hi())
	be.PutUint32(b[28:32], r.Residual.Lo())
	return ConfigReplyLen
}

func DecodeConfigReply(b []byte) (ConfigReply, error) {
	if len(b) < ConfigReplyLen {
		return ConfigReply{}, ErrShortSubpacket
	}
	return ConfigReply{
		Opcode: Opcode(b[0]),
		RID:    b[2],
		OK:     be.Uint16(b[4:6]) != 0,
		TuneResult: TuneResult{
			Inverted: be.Uint16(b[6:8]) != 0,
			Baseband: FreqFromHiLo(be.Uint32(b[8:12]), be.Uint32(b[12:16])),
			DxC:      FreqFromHiLo(be.Uint32(b[16:20]), be.Uint32(b[20:24])),
			Residual: FreqFromHiLo(be.Uint32(b[24:28]), be.Uint32(b[28:32])),
		},
	}, nil
}

// DBInfo describes one daughterboard front end.
type DBInfo struct {
	DBID     int32
	FreqMin  Freq
	FreqMax  Freq
	GainMin  int16
	GainMax  int16
	GainStep int16
}

func (d DBInfo) put(b []byte) {
	be.PutUint32(b[0:4], uint32(d.DBID))
	be.PutUint32(b[4:8], d.FreqMin.Hi())
	be.PutUint32(b[8:12], d.FreqMin.Lo())
	be.PutUint32(b[12:16], d.FreqMax.Hi())
	be.PutUint32(b[16:20], d.FreqMax.Lo())
	be.PutUint16(b[20:22], uint16(d.GainMin))
	be.PutUint16(b[22:24], uint16(d.GainMax))
	be.PutUint16(b[24:26], uint16(d.GainStep))
	be.PutUint16(b[26:28], 0)
}

func decodeDBInfo(b []byte) DBInfo {
	return DBInfo{
		DBID:     int32(be.Uint32(b[0:4])),
		FreqMin:  FreqFromHiLo(be.Uint32(b[4:8]), be.Uint32(b[8:12])),
		FreqMax:  FreqFromHiLo(be.Uint32(b[12:16]), be.Uint32(b[16:20])),
		GainMin:  int16(be.Uint16(b[20:22])),
		GainMax:  int16(be.Uint16(b[22:24])),
		GainStep: int16(be.Uint16(b[24:26])),
	}
}

type DboardInfoReply struct {
	RID uint8
	OK  bool
	TX  DBInfo
	RX  DBInfo
}

func (r DboardInfoReply) Put(b []byte) int {
	if len(b) < DboardInfoReplyLen {
		return 0
	}
	Header{Opcode: OpDboardInfo.Reply(), Len: DboardInfoReplyLen, RID: r.RID, Flag: boolByte(r.OK)}.Put(b)
	r.TX.put(b[4 : 4+DBInfoLen])
	r.RX.put(b[4+DBInfoLen : 4+2*DBInfoLen])
	return DboardInfoReplyLen
}

func DecodeDboardInfoReply(b []byte) (DboardInfoReply, error) {
	if len(b) < DboardInfoReplyLen {
		return DboardInfoReply{}, ErrShortSubpacket
	}
	return DboardInfoReply{
		RID: b[2],
		OK:  b[3] != 0,
		TX:  decodeDBInfo(b[4 : 4+DBInfoLen]),
		RX:  decodeDBInfo(b[4+DBInfoLen : 4+2*DBInfoLen]),
	}, nil
}

type GPIOReadReply struct {
	RID   uint8
	OK    bool
	Value uint16
}

func (r GPIOReadReply) Put(b []byte) int {
	if len(b) < GPIOReadReplyLen {
		return 0
	}
	Header{Opcode: OpGPIORead.Reply(), Len: GPIOReadReplyLen, RID: r.RID, Flag: boolByte(r.OK)}.Put(b)
	be.PutUint16(b[4:6], 0)
	be.PutUint16(b[6:8], r.Value)
	return GPIOReadReplyLen
}

func DecodeGPIOReadReply(b []byte) (GPIOReadReply, error) {
	if len(b) < GPIOReadReplyLen {
		return GPIOReadReply{}, ErrShortSubpacket
	}
	return GPIOReadReply{RID: b[2], OK: b[3] != 0, Value: be.Uint16(b[6:8])}, nil
}

// PutPeekReplyHeader stamps the header of a PEEK reply whose n data bytes
// follow at b[PeekReplyHeaderLen:]. The caller checks the room.
func PutPeekReplyHeader(b []byte, rid uint8, n int) int {
	total := PeekReplyHeaderLen + n
	Header{Opcode: OpPeek.Reply(), Len: uint8(total), RID: rid, Flag: 1}.Put(b)
	return total
}

// PeekReplyData returns the data bytes of a PEEK reply subpacket.
func PeekReplyData(b []byte) ([]byte, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	if int(h.Len) < PeekReplyHeaderLen || int(h.Len) > len(b) {
		return nil, ErrBadLength
	}
	return b[PeekReplyHeaderLen:h.Len], nil
}
