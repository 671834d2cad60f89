package main

import (
	"flag"
	"math/rand"
	"net"
	"time"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/pcapgen"

	"github.com/google/gopacket/layers"
	"github.com/rs/zerolog/log"
)

// Writes a matching pair of captures: everything sent goes to the tx file,
// and the packets that survive the simulated link go to the rx file.
func main() {
	txFile := flag.String("tx", "tx.pcap", "Output pcap recorded at the sender")
	rxFile := flag.String("rx", "rx.pcap", "Output pcap recorded at the receiver")
	packetCount := flag.Int("c", 1000, "Number of packets per flow")
	flows := flag.Int("flows", 2, "Number of UDP flows")
	loss := flag.Float64("loss", 0.05, "Probability that a packet is dropped")
	delay := flag.Duration("delay", 10*time.Millisecond, "Base one-way delay")
	jitter := flag.Duration("jitter", 2*time.Millisecond, "Maximum extra delay per packet")
	interval := flag.Duration("interval", time.Millisecond, "Gap between packets of one flow")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	start := time.Unix(1_700_000_000, 0).UTC()

	var tx, rx []pcapgen.Packet
	for f := 0; f < *flows; f++ {
		ft := model.FiveTuple{
			SrcIP:    net.IPv4(10, 1, 1, byte(f+1)).To4(),
			DstIP:    net.IPv4(10, 1, 2, byte(f+1)).To4(),
			SrcPort:  uint16(49153 + f),
			DstPort:  9,
			Protocol: uint8(layers.IPProtocolUDP),
		}
		for i := 0; i < *packetCount; i++ {
			sent := start.Add(time.Duration(i) * *interval)
			payload := make([]byte, 512)
			rng.Read(payload)

			p := pcapgen.Packet{Timestamp: sent, FiveTuple: ft, IPID: uint16(i), Payload: payload}
			tx = append(tx, p)

			if rng.Float64() < *loss {
				continue
			}
			p.Timestamp = sent.Add(*delay)
			if *jitter > 0 {
				p.Timestamp = p.Timestamp.Add(time.Duration(rng.Int63n(int64(*jitter))))
			}
			rx = append(rx, p)
		}
	}

	if err := pcapgen.WriteFile(*txFile, tx); err != nil {
		log.Fatal().Err(err).Msg("Failed to write tx capture")
	}
	if err := pcapgen.WriteFile(*rxFile, rx); err != nil {
		log.Fatal().Err(err).Msg("Failed to write rx capture")
	}
	log.Info().Int("tx", len(tx)).Int("rx", len(rx)).Str("tx_file", *txFile).Str("rx_file", *rxFile).Msg("Generated capture pair")
}
