package proto

// Next splits the first subpacket off b. sub is exactly the declared
// subpacket; rest starts at the next 4-byte aligned subpacket. An EOP, a
// declared length shorter than the header, or one running past b ends the
// walk with ok == false.
func Next(b []byte) (sub []byte, h Header, rest []byte, ok bool) {
	h, err := DecodeHeader(b)
	if err != nil || h.Opcode == OpEOP {
		return nil, h, nil, false
	}
	n := int(h.Len)
	if n < HeaderLen || n > len(b) {
		return nil, h, nil, false
	}
	adv := Align4(n)
	if adv > len(b) {
		adv = len(b)
	}
	return b[:n], h, b[adv:], true
}

// Builder appends 4-byte aligned subpackets to a caller buffer. It is the
// host-side counterpart of the device dispatcher.
type Builder struct {
	buf []byte
	n   int
}

func NewBuilder(buf []byte) *Builder { return &Builder{buf: buf} }

// Add appends one subpacket using put, which must return the bytes written
// or 0 when out of room.
func (b *Builder) Add(put func([]byte) int) error {
	w := put(b.buf[b.n:])
	if w == 0 {
		return ErrShortBuffer
	}
	adv := Align4(w)
	if b.n+adv > len(b.buf) {
		return ErrShortBuffer
	}
	for i := b.n + w; i < b.n+adv; i++ {
		b.buf[i] = 0
	}
	b.n += adv
	return nil
}

// Finish appends the EOP marker and returns the encoded payload.
func (b *Builder) Finish() ([]byte, error) {
	if err := b.Add(PutEOP); err != nil {
		return nil, err
	}
	return b.buf[:b.n], nil
}
