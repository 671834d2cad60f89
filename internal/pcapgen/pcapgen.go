// Package pcapgen synthesizes Ethernet frames and capture files carrying
// TCP or UDP traffic between simulated nodes.
package pcapgen

import (
	"fmt"
	"net"
	"os"
	"time"

	"FlowSpectra/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const snapLen = 65536

var (
	srcMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

// Packet describes one synthetic packet.
type Packet struct {
	Timestamp time.Time
	FiveTuple model.FiveTuple
	IPID      uint16 // IPv4 only
	Seq       uint32 // TCP only
	Payload   []byte
}

// Frame serializes p as an Ethernet frame with valid lengths and checksums.
func Frame(p Packet) ([]byte, error) {
	ft := p.FiveTuple
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC}

	var network gopacket.NetworkLayer
	var ipLayer gopacket.SerializableLayer
	if ft.SrcIP.To4() != nil {
		eth.EthernetType = layers.EthernetTypeIPv4
		ip := &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Id:       p.IPID,
			Protocol: layers.IPProtocol(ft.Protocol),
			SrcIP:    ft.SrcIP.To4(),
			DstIP:    ft.DstIP.To4(),
		}
		network, ipLayer = ip, ip
	} else {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip := &layers.IPv6{
			Version:    6,
			HopLimit:   64,
			NextHeader: layers.IPProtocol(ft.Protocol),
			SrcIP:      ft.SrcIP,
			DstIP:      ft.DstIP,
		}
		network, ipLayer = ip, ip
	}

	var transport gopacket.SerializableLayer
	switch layers.IPProtocol(ft.Protocol) {
	case layers.IPProtocolUDP:
		udp := &layers.UDP{SrcPort: layers.UDPPort(ft.SrcPort), DstPort: layers.UDPPort(ft.DstPort)}
		if err := udp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		transport = udp
	case layers.IPProtocolTCP:
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(ft.SrcPort),
			DstPort: layers.TCPPort(ft.DstPort),
			Seq:     p.Seq,
			ACK:     true,
			PSH:     len(p.Payload) > 0,
			Window:  65535,
		}
		if err := tcp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, err
		}
		transport = tcp
	default:
		return nil, fmt.Errorf("unsupported protocol %d", ft.Protocol)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ipLayer, transport, gopacket.Payload(p.Payload)); err != nil {
		return nil, fmt.Errorf("failed to serialize packet: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes packets to a nanosecond-resolution pcap file at path.
func WriteFile(path string, packets []Packet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pcap file: %w", err)
	}
	defer f.Close()

	w := pcapgo.NewWriterNanos(f)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("failed to write pcap header: %w", err)
	}

	for _, p := range packets {
		data, err := Frame(p)
		if err != nil {
			return err
		}
		ci := gopacket.CaptureInfo{Timestamp: p.Timestamp, CaptureLength: len(data), Length: len(data)}
		if err := w.WritePacket(ci, data); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	}
	return f.Close()
}
