package monitor

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"FlowSpectra/internal/model"
	"FlowSpectra/pkg/pcap"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// CaptureSource reconstructs flow counters from packet captures taken at the
// sending and receiving ends of the traffic.
type CaptureSource struct {
	txPaths []string
	rxPaths []string
}

// NewCaptureSource creates a source from transmit-side and receive-side pcap files.
func NewCaptureSource(txPaths, rxPaths []string) *CaptureSource {
	return &CaptureSource{txPaths: txPaths, rxPaths: rxPaths}
}

// Flows implements model.Source.
func (s *CaptureSource) Flows(ctx context.Context) ([]model.FlowRecord, error) {
	if len(s.txPaths) == 0 {
		return nil, fmt.Errorf("capture source needs at least one transmit-side capture")
	}
	tx, err := readCaptures(ctx, s.txPaths)
	if err != nil {
		return nil, err
	}
	rx, err := readCaptures(ctx, s.rxPaths)
	if err != nil {
		return nil, err
	}

	records := Classify(tx, rx)
	log.Info().Int("tx_packets", len(tx)).Int("rx_packets", len(rx)).Int("flows", len(records)).Msg("Classified captures")
	return records, nil
}

func readCaptures(ctx context.Context, paths []string) ([]*model.PacketInfo, error) {
	var all []*model.PacketInfo
	for _, path := range paths {
		packets, err := pcap.ReadAll(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read capture '%s': %w", path, err)
		}
		all = append(all, packets...)
	}
	return all, nil
}

type packetKey struct {
	flow   string
	digest uint64
}

type pendingTx struct {
	sent time.Time
	flow *flowState
}

type flowState struct {
	record    model.FlowRecord
	lastDelay time.Duration
}

// Classify assigns packets to flows by five-tuple and matches every received
// packet to the earliest unmatched transmission of the same packet. Flow IDs
// follow the order of first transmission, starting at 1. Transmissions left
// unmatched are counted as lost. Times are offsets from the earliest packet
// in either set.
func Classify(tx, rx []*model.PacketInfo) []model.FlowRecord {
	tx = sortedByTime(tx)
	rx = sortedByTime(rx)

	var epoch time.Time
	switch {
	case len(tx) > 0 && len(rx) > 0:
		epoch = tx[0].Timestamp
		if rx[0].Timestamp.Before(epoch) {
			epoch = rx[0].Timestamp
		}
	case len(tx) > 0:
		epoch = tx[0].Timestamp
	default:
		return nil
	}

	flows := make(map[string]*flowState)
	var order []*flowState
	pending := make(map[packetKey][]pendingTx)

	for _, p := range tx {
		key := p.FiveTuple.Key()
		st, ok := flows[key]
		if !ok {
			st = &flowState{record: model.FlowRecord{
				FlowID:            model.FlowID(len(order) + 1),
				FiveTuple:         p.FiveTuple,
				TimeFirstTxPacket: p.Timestamp.Sub(epoch),
			}}
			flows[key] = st
			order = append(order, st)
		}
		st.record.TxPackets++
		st.record.TxBytes += uint64(p.Length)
		st.record.TimeLastTxPacket = p.Timestamp.Sub(epoch)

		pk := packetKey{flow: key, digest: p.Digest}
		pending[pk] = append(pending[pk], pendingTx{sent: p.Timestamp, flow: st})
	}

	unmatched := 0
	for _, p := range rx {
		pk := packetKey{flow: p.FiveTuple.Key(), digest: p.Digest}
		queue := pending[pk]
		if len(queue) == 0 {
			unmatched++
			continue
		}
		sent := queue[0]
		pending[pk] = queue[1:]

		st := sent.flow
		r := &st.record
		delay := p.Timestamp.Sub(sent.sent)
		if r.RxPackets > 0 {
			r.JitterSum += absDuration(delay - st.lastDelay)
		} else {
			r.TimeFirstRxPacket = p.Timestamp.Sub(epoch)
		}
		st.lastDelay = delay
		r.DelaySum += delay
		r.RxPackets++
		r.RxBytes += uint64(p.Length)
		r.TimeLastRxPacket = p.Timestamp.Sub(epoch)
	}
	if unmatched > 0 {
		log.Debug().Int("packets", unmatched).Msg("Received packets without a matching transmission")
	}

	records := make([]model.FlowRecord, len(order))
	for i, st := range order {
		st.record.LostPackets = st.record.TxPackets - st.record.RxPackets
		records[i] = st.record
	}
	return records
}

func sortedByTime(packets []*model.PacketInfo) []*model.PacketInfo {
	out := slices.Clone(packets)
	slices.SortStableFunc(out, func(a, b *model.PacketInfo) int {
		return cmp.Compare(a.Timestamp.UnixNano(), b.Timestamp.UnixNano())
	})
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
