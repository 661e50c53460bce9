// Package netframe builds and inspects the Ethernet/IPv4/UDP frames that
// carry control traffic on the raw link.
package netframe

import "encoding/binary"

// Checksum returns the Internet checksum (RFC 1071) of buf: the one's
// complement of the one's complement sum of its big-endian 16-bit words.
// A trailing odd byte is treated as the high byte of a zero-padded word.
func Checksum(buf []byte) uint16 {
	var sum uint32
	n := len(buf) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(buf[i:]))
	}
	if len(buf)&1 != 0 {
		sum += uint32(buf[n]) << 8
	}

	// fold the carries back into the low 16 bits until none remain
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
