package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"FlowSpectra/internal/model"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const ipv6HeaderLen = 40

// ErrUnsupportedPacket is returned for frames that carry no IPv4/IPv6 TCP or UDP packet.
var ErrUnsupportedPacket = errors.New("unsupported packet")

// ParsePacket uses gopacket to decode a raw frame and extract its flow
// identity. decoder is the link type of the capture, e.g. layers.LinkTypeEthernet.
func ParsePacket(data []byte, decoder gopacket.Decoder, timestamp time.Time) (*model.PacketInfo, error) {
	packet := gopacket.NewPacket(data, decoder, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	info := &model.PacketInfo{Timestamp: timestamp}
	hasher := fnv.New64a()
	var scratch [12]byte

	switch l := packet.NetworkLayer().(type) {
	case *layers.IPv4:
		info.FiveTuple.SrcIP = l.SrcIP
		info.FiveTuple.DstIP = l.DstIP
		info.FiveTuple.Protocol = uint8(l.Protocol)
		info.Length = int(l.Length)
		// The identification field survives forwarding, unlike TTL and checksum.
		binary.BigEndian.PutUint16(scratch[:2], l.Id)
		hasher.Write(scratch[:2])
	case *layers.IPv6:
		info.FiveTuple.SrcIP = l.SrcIP
		info.FiveTuple.DstIP = l.DstIP
		info.FiveTuple.Protocol = uint8(l.NextHeader)
		info.Length = int(l.Length) + ipv6HeaderLen
	default:
		return nil, fmt.Errorf("%w: no IP layer", ErrUnsupportedPacket)
	}

	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		info.FiveTuple.SrcPort = uint16(tcp.SrcPort)
		info.FiveTuple.DstPort = uint16(tcp.DstPort)
		binary.BigEndian.PutUint32(scratch[0:4], tcp.Seq)
		binary.BigEndian.PutUint32(scratch[4:8], tcp.Ack)
		binary.BigEndian.PutUint32(scratch[8:12], tcpFlags(tcp))
		hasher.Write(scratch[:12])
		hasher.Write(tcp.Payload)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		info.FiveTuple.SrcPort = uint16(udp.SrcPort)
		info.FiveTuple.DstPort = uint16(udp.DstPort)
		hasher.Write(udp.Payload)
	} else {
		return nil, fmt.Errorf("%w: not a TCP or UDP packet", ErrUnsupportedPacket)
	}

	info.Digest = hasher.Sum64()
	return info, nil
}

func tcpFlags(tcp *layers.TCP) uint32 {
	var f uint32
	for i, set := range []bool{tcp.FIN, tcp.SYN, tcp.RST, tcp.PSH, tcp.ACK, tcp.URG, tcp.ECE, tcp.CWR, tcp.NS} {
		if set {
			f |= 1 << i
		}
	}
	return f
}
