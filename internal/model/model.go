package model

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket/layers"
)

// FiveTuple represents the 5-tuple of a network flow.
type FiveTuple struct {
	SrcIP    net.IP `json:"src_ip"`
	DstIP    net.IP `json:"dst_ip"`
	SrcPort  uint16 `json:"src_port"`
	DstPort  uint16 `json:"dst_port"`
	Protocol uint8  `json:"protocol"` // e.g., TCP, UDP
}

// ProtocolName returns the IANA name of the transport protocol, e.g. "UDP".
func (ft FiveTuple) ProtocolName() string {
	return layers.IPProtocol(ft.Protocol).String()
}

// String renders the tuple as "src:port -> dst:port (PROTO)".
func (ft FiveTuple) String() string {
	return fmt.Sprintf("%s -> %s (%s)",
		net.JoinHostPort(ipString(ft.SrcIP), strconv.Itoa(int(ft.SrcPort))),
		net.JoinHostPort(ipString(ft.DstIP), strconv.Itoa(int(ft.DstPort))),
		ft.ProtocolName())
}

// Key returns a dash-joined string that uniquely identifies the tuple.
func (ft FiveTuple) Key() string {
	return strings.Join([]string{
		ipString(ft.SrcIP),
		ipString(ft.DstIP),
		strconv.Itoa(int(ft.SrcPort)),
		strconv.Itoa(int(ft.DstPort)),
		strconv.Itoa(int(ft.Protocol)),
	}, "-")
}

func ipString(ip net.IP) string {
	if ip == nil {
		return "?"
	}
	return ip.String()
}

// PacketInfo holds the metadata extracted from a single captured packet.
type PacketInfo struct {
	Timestamp time.Time
	FiveTuple FiveTuple
	Length    int    // IP-layer length in bytes
	Digest    uint64 // identity of the packet across capture points
}

// FlowID is the opaque identifier assigned to a flow by the flow classifier.
type FlowID uint32

// FlowRecord holds the raw counters collected by a flow monitor for one flow.
// All times are offsets on the simulation clock. A FlowRecord is immutable
// once the run has stopped.
type FlowRecord struct {
	FlowID    FlowID    `json:"flow_id"`
	FiveTuple FiveTuple `json:"five_tuple"`

	TxPackets   uint64 `json:"tx_packets"`
	RxPackets   uint64 `json:"rx_packets"`
	LostPackets uint64 `json:"lost_packets"`
	TxBytes     uint64 `json:"tx_bytes"`
	RxBytes     uint64 `json:"rx_bytes"`

	DelaySum  time.Duration `json:"delay_sum"`
	JitterSum time.Duration `json:"jitter_sum"`

	TimeFirstTxPacket time.Duration `json:"time_first_tx_packet"`
	TimeLastTxPacket  time.Duration `json:"time_last_tx_packet"`
	TimeFirstRxPacket time.Duration `json:"time_first_rx_packet"`
	TimeLastRxPacket  time.Duration `json:"time_last_rx_packet"`

	TimesForwarded uint64 `json:"times_forwarded"`
}

// Duration returns the observed activity window of the flow, from the first
// transmitted packet to the last received one. It may be zero or negative.
func (r FlowRecord) Duration() time.Duration {
	return r.TimeLastRxPacket - r.TimeFirstTxPacket
}

// DerivedMetrics are computed from one FlowRecord or from a set of them.
type DerivedMetrics struct {
	DeliveryRatio           Metric `json:"delivery_ratio"`
	LossRatio               Metric `json:"loss_ratio"`
	MeanDelaySeconds        Metric `json:"mean_delay_seconds"`
	MeanJitterSeconds       Metric `json:"mean_jitter_seconds"`
	ThroughputBitsPerSecond Metric `json:"throughput_bps"`
}

// FlowReport pairs a flow's raw counters with its derived metrics.
type FlowReport struct {
	Record  FlowRecord     `json:"record"`
	Metrics DerivedMetrics `json:"metrics"`
}

// Summary holds run-wide totals.
type Summary struct {
	Flows         int    `json:"flows"`
	TxPackets     uint64 `json:"tx_packets"`
	RxPackets     uint64 `json:"rx_packets"`
	LostPackets   uint64 `json:"lost_packets"`
	TxBytes       uint64 `json:"tx_bytes"`
	RxBytes       uint64 `json:"rx_bytes"`
	FairnessIndex Metric `json:"fairness_index"`
}

// Report is the complete result of reducing one simulation run.
type Report struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Flows       []FlowReport   `json:"flows"`
	Aggregate   DerivedMetrics `json:"aggregate"`
	Summary     Summary        `json:"summary"`
}

// Records returns the raw records of the report in order.
func (r *Report) Records() []FlowRecord {
	records := make([]FlowRecord, len(r.Flows))
	for i, f := range r.Flows {
		records[i] = f.Record
	}
	return records
}
