package proto

// Header is the common 4-byte prefix of every subpacket. Flag is
// opcode-specific: the ok flag of replies, the time type of SET_TIME, the
// bank of GPIO commands, zero elsewhere.
type Header struct {
	Opcode Opcode
	Len    uint8
	RID    uint8
	Flag   uint8
}

// DecodeHeader reads the subpacket header at the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrShortSubpacket
	}
	return Header{Opcode: Opcode(b[0]), Len: b[1], RID: b[2], Flag: b[3]}, nil
}

// Put writes h to b, which must hold HeaderLen bytes.
func (h Header) Put(b []byte) {
	b[0] = byte(h.Opcode)
	b[1] = h.Len
	b[2] = h.RID
	b[3] = h.Flag
}

// OK reports the ok flag of a reply header.
func (h Header) OK() bool { return h.Flag != 0 }

func boolByte(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

// PutGeneric writes a 4-byte reply to a request header: the reply opcode,
// the echoed request id, and ok. It returns 0 when b has no room.
func PutGeneric(b []byte, req Header, ok bool) int {
	if len(b) < HeaderLen {
		return 0
	}
	Header{Opcode: req.Opcode.Reply(), Len: HeaderLen, RID: req.RID, Flag: boolByte(ok)}.Put(b)
	return HeaderLen
}

// PutEOP writes the end-of-subpackets marker.
func PutEOP(b []byte) int {
	if len(b) < HeaderLen {
		return 0
	}
	Header{Opcode: OpEOP, Len: HeaderLen}.Put(b)
	return HeaderLen
}
