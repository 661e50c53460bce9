package netframe

import (
	"encoding/binary"

	"github.com/0xastro/uhd/internal/core"
)

// Header sizes of the reply frame.
const (
	EthernetHeaderLen = 14
	IPv4HeaderLen     = 20
	UDPHeaderLen      = 8

	// ReplyHeaderLen is the offset of the control payload in a reply frame.
	ReplyHeaderLen = EthernetHeaderLen + IPv4HeaderLen + UDPHeaderLen
)

const (
	ipv4VersionIHL = 0x45   // version 4, 5 words, no options
	ipv4FlagDF     = 0x4000 // don't fragment
	replyTTL       = 255
)

// BuildReply writes a complete Ethernet+IPv4+UDP frame carrying payload to
// out, addressed to the session's current control peer, and returns the
// number of bytes written. The IPv4 header checksum is computed; the UDP
// checksum is left zero, which IPv4 receivers accept as "not computed".
func BuildReply(sess *core.Session, payload, out []byte) (int, error) {
	if !sess.HasPeer() {
		return 0, core.ErrNoPeer
	}
	total := ReplyHeaderLen + len(payload)
	if len(out) < total || total > 0xffff {
		return 0, core.ErrShortBuffer
	}
	peer, local := sess.Peer, sess.Local

	// Ethernet
	eth := out[:EthernetHeaderLen]
	copy(eth[0:6], peer.MAC[:])
	copy(eth[6:12], sess.Device[:])
	binary.BigEndian.PutUint16(eth[12:14], core.EtherTypeIPv4)

	// IPv4
	ip := out[EthernetHeaderLen : EthernetHeaderLen+IPv4HeaderLen]
	ip[0] = ipv4VersionIHL
	ip[1] = 0 // TOS
	binary.BigEndian.PutUint16(ip[2:4], uint16(IPv4HeaderLen+UDPHeaderLen+len(payload)))
	binary.BigEndian.PutUint16(ip[4:6], 0) // id
	binary.BigEndian.PutUint16(ip[6:8], ipv4FlagDF)
	ip[8] = replyTTL
	ip[9] = core.ProtocolUDP
	binary.BigEndian.PutUint16(ip[10:12], 0)
	src, dst := local.IP.As4(), peer.IP.As4()
	copy(ip[12:16], src[:])
	copy(ip[16:20], dst[:])
	binary.BigEndian.PutUint16(ip[10:12], Checksum(ip))

	// UDP, ports swapped relative to the request
	udp := out[EthernetHeaderLen+IPv4HeaderLen : ReplyHeaderLen]
	binary.BigEndian.PutUint16(udp[0:2], local.Port)
	binary.BigEndian.PutUint16(udp[2:4], peer.Port)
	binary.BigEndian.PutUint16(udp[4:6], uint16(UDPHeaderLen+len(payload)))
	binary.BigEndian.PutUint16(udp[6:8], 0)

	copy(out[ReplyHeaderLen:], payload)
	return total, nil
}
