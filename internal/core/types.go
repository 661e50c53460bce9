// Package core defines core types with zero external dependencies.
package core

import (
	"fmt"
	"net/netip"
)

// MAC is a 48-bit Ethernet hardware address.
type MAC [6]byte

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// ParseMAC parses the colon separated form produced by String.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x", &m[0], &m[1], &m[2], &m[3], &m[4], &m[5])
	if err != nil || n != 6 {
		return MAC{}, fmt.Errorf("invalid mac address %q", s)
	}
	return m, nil
}

// Endpoint is one side of a UDP/IPv4 conversation on the raw link.
type Endpoint struct {
	MAC  MAC
	IP   netip.Addr
	Port uint16
}

func (e Endpoint) String() string {
	return e.MAC.String() + "/" + netip.AddrPortFrom(e.IP, e.Port).String()
}

// EtherType values.
const (
	EtherTypeIPv4  = 0x0800
	EtherTypeIPv6  = 0x86DD
	EtherTypeARP   = 0x0806
	EtherTypePause = 0x8808
)

// ProtocolUDP is the IPv4 protocol number of UDP.
const ProtocolUDP = 17
