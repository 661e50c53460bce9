package core

import "net/netip"

// Session is the control-path state that outlives a single packet: the
// most recent control peer (used to address replies), the data-channel
// ports observed for the streaming path, and the Ethernet link state.
//
// A Session has exactly one writer, the goroutine running the ingress
// loop. It carries no lock; last writer wins, so only one control peer is
// current at a time.
type Session struct {
	// Device is this unit's own hardware address, stamped as the source of
	// every reply frame.
	Device MAC

	// Peer is the last control-channel correspondent; Local is the address
	// the device answers from (synthesized IP, control port).
	Peer  Endpoint
	Local Endpoint

	// DataPeerPort and DataLocalPort record the UDP port pair of the last
	// data-channel frame, consumed by the streaming subsystem.
	DataPeerPort  uint16
	DataLocalPort uint16

	peerSeen bool
	linkUp   bool
}

// NewSession returns a session for a device with the given MAC.
func NewSession(device MAC) *Session {
	return &Session{Device: device}
}

// ObserveControl records the source addressing of a control frame. The
// local IP is derived from the peer IP so replies look same-subnet.
func (s *Session) ObserveControl(srcMAC MAC, srcIP netip.Addr, srcPort, dstPort uint16) {
	s.Peer = Endpoint{MAC: srcMAC, IP: srcIP, Port: srcPort}
	s.Local = Endpoint{MAC: s.Device, IP: DeriveSourceIP(srcIP), Port: dstPort}
	s.peerSeen = true
}

// ObserveData records the UDP ports of a data-channel frame.
func (s *Session) ObserveData(srcPort, dstPort uint16) {
	s.DataPeerPort = srcPort
	s.DataLocalPort = dstPort
}

// HasPeer reports whether any control frame has been seen.
func (s *Session) HasPeer() bool { return s.peerSeen }

// SetLinkUp is called from the PHY link-change path only.
func (s *Session) SetLinkUp(up bool) { s.linkUp = up }

// LinkUp reports the last link state delivered by the PHY driver.
func (s *Session) LinkUp() bool { return s.linkUp }

// DeriveSourceIP returns an address on the peer's subnet for the device to
// answer from: the low byte is incremented, skipping 0xff and 0x00.
func DeriveSourceIP(peer netip.Addr) netip.Addr {
	if !peer.Is4() {
		return peer
	}
	b := peer.As4()
	low := b[3] + 1
	if low == 0xff {
		low = 0
	}
	if low == 0x00 {
		low = 1
	}
	b[3] = low
	return netip.AddrFrom4(b)
}
