package netframe

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xastro/uhd/internal/core"
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func udpFrame(t *testing.T, srcPort, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(hostMAC[:]),
		DstMAC:       net.HardwareAddr(deviceMAC[:]),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(hostIP.AsSlice()),
		DstIP:    net.IPv4(192, 168, 10, 2),
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	return serialize(t, eth, ip, udp, gopacket.Payload(payload))
}

func TestClassifyControl(t *testing.T) {
	sess := core.NewSession(deviceMAC)
	c := NewClassifier(sess, DefaultControlPort, DefaultDataPort, nil)
	req := []byte{0x01, 0x04, 0x07, 0x00, 0x00, 0x04, 0x00, 0x00}

	v, payload := c.Classify(udpFrame(t, 50123, DefaultControlPort, req))
	assert.Equal(t, VerdictControl, v)
	assert.Equal(t, req, payload)

	require.True(t, sess.HasPeer())
	assert.Equal(t, hostMAC, sess.Peer.MAC)
	assert.Equal(t, hostIP, sess.Peer.IP)
	assert.Equal(t, uint16(50123), sess.Peer.Port)
	assert.Equal(t, netip.MustParseAddr("192.168.10.2"), sess.Local.IP)
	assert.Equal(t, uint16(DefaultControlPort), sess.Local.Port)
}

func TestClassifyTrailingPadding(t *testing.T) {
	c := NewClassifier(core.NewSession(deviceMAC), DefaultControlPort, DefaultDataPort, nil)
	frame := udpFrame(t, 1234, DefaultControlPort, []byte{0, 4, 0, 0})
	frame = append(frame, make([]byte, 18)...) // Ethernet minimum size padding

	v, payload := c.Classify(frame)
	assert.Equal(t, VerdictControl, v)
	assert.Equal(t, []byte{0, 4, 0, 0}, payload)
}

func TestInspect(t *testing.T) {
	arp := serialize(t,
		&layers.Ethernet{
			SrcMAC:       net.HardwareAddr(hostMAC[:]),
			DstMAC:       layers.EthernetBroadcast,
			EthernetType: layers.EthernetTypeARP,
		},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   hostMAC[:],
			SourceProtAddress: hostIP.AsSlice(),
			DstHwAddress:      make([]byte, 6),
			DstProtAddress:    []byte{192, 168, 10, 2},
		},
	)

	tests := []struct {
		name     string
		frame    func(t *testing.T) []byte
		consumed bool
		verdict  Verdict
		calls    int
	}{
		{"control", func(t *testing.T) []byte { return udpFrame(t, 40000, DefaultControlPort, []byte{0, 4, 0, 0}) }, true, VerdictControl, 1},
		{"data", func(t *testing.T) []byte { return udpFrame(t, 40001, DefaultDataPort, make([]byte, 32)) }, false, VerdictData, 0},
		{"other port", func(t *testing.T) []byte { return udpFrame(t, 40002, 53, []byte{1}) }, true, VerdictDrop, 0},
		{"arp", func(t *testing.T) []byte { return arp }, true, VerdictDrop, 0},
		{"truncated", func(t *testing.T) []byte { return udpFrame(t, 1, DefaultControlPort, []byte{0, 4, 0, 0})[:20] }, true, VerdictDrop, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := core.NewSession(deviceMAC)
			calls := 0
			c := NewClassifier(sess, DefaultControlPort, DefaultDataPort, func([]byte) { calls++ })

			frame := tt.frame(t)
			assert.Equal(t, tt.consumed, c.Inspect(frame))
			assert.Equal(t, tt.calls, calls)

			v, _ := NewClassifier(core.NewSession(deviceMAC), DefaultControlPort, DefaultDataPort, nil).Classify(frame)
			assert.Equal(t, tt.verdict, v)
		})
	}
}

func TestClassifyDataRecordsPorts(t *testing.T) {
	sess := core.NewSession(deviceMAC)
	c := NewClassifier(sess, DefaultControlPort, DefaultDataPort, nil)

	v, _ := c.Classify(udpFrame(t, 40001, DefaultDataPort, make([]byte, 16)))
	assert.Equal(t, VerdictData, v)
	assert.Equal(t, uint16(40001), sess.DataPeerPort)
	assert.Equal(t, uint16(DefaultDataPort), sess.DataLocalPort)
	assert.False(t, sess.HasPeer())
}
