// Package monitor adapts the output of external flow monitors into
// model.FlowRecord snapshots.
package monitor

import (
	"cmp"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"FlowSpectra/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// ErrUnknownFlow is returned when flow statistics reference a flow that the
// classifier does not know.
var ErrUnknownFlow = errors.New("flow missing from classifier")

// Classifier maps flow identifiers to the five-tuples they were assigned for.
type Classifier map[model.FlowID]model.FiveTuple

// FindFlow returns the five-tuple of a flow.
func (c Classifier) FindFlow(id model.FlowID) (model.FiveTuple, bool) {
	ft, ok := c[id]
	return ft, ok
}

type flowmonDoc struct {
	XMLName xml.Name            `xml:"FlowMonitor"`
	Stats   []flowStatsElem     `xml:"FlowStats>Flow"`
	IPv4    []classifierElement `xml:"Ipv4FlowClassifier>Flow"`
	IPv6    []classifierElement `xml:"Ipv6FlowClassifier>Flow"`
}

type flowStatsElem struct {
	FlowID            uint32 `xml:"flowId,attr"`
	TimeFirstTxPacket string `xml:"timeFirstTxPacket,attr"`
	TimeFirstRxPacket string `xml:"timeFirstRxPacket,attr"`
	TimeLastTxPacket  string `xml:"timeLastTxPacket,attr"`
	TimeLastRxPacket  string `xml:"timeLastRxPacket,attr"`
	DelaySum          string `xml:"delaySum,attr"`
	JitterSum         string `xml:"jitterSum,attr"`
	TxBytes           uint64 `xml:"txBytes,attr"`
	RxBytes           uint64 `xml:"rxBytes,attr"`
	TxPackets         uint64 `xml:"txPackets,attr"`
	RxPackets         uint64 `xml:"rxPackets,attr"`
	LostPackets       uint64 `xml:"lostPackets,attr"`
	TimesForwarded    uint64 `xml:"timesForwarded,attr"`
}

type classifierElement struct {
	FlowID             uint32 `xml:"flowId,attr"`
	SourceAddress      string `xml:"sourceAddress,attr"`
	DestinationAddress string `xml:"destinationAddress,attr"`
	Protocol           uint8  `xml:"protocol,attr"`
	SourcePort         uint16 `xml:"sourcePort,attr"`
	DestinationPort    uint16 `xml:"destinationPort,attr"`
}

// FlowmonSource reads a FlowMonitor XML dump written at the end of a run.
type FlowmonSource struct {
	path string
}

// NewFlowmonSource creates a source for the XML file at path.
func NewFlowmonSource(path string) *FlowmonSource {
	return &FlowmonSource{path: path}
}

// Flows implements model.Source.
func (s *FlowmonSource) Flows(ctx context.Context) ([]model.FlowRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow monitor file: %w", err)
	}
	defer f.Close()

	records, _, err := ParseFlowmon(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", s.path, err)
	}
	log.Info().Str("file", s.path).Int("flows", len(records)).Msg("Loaded flow monitor snapshot")
	return records, nil
}

// ParseFlowmon decodes a FlowMonitor XML document. Records are sorted by
// ascending FlowID.
func ParseFlowmon(r io.Reader) ([]model.FlowRecord, Classifier, error) {
	var doc flowmonDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to decode XML: %w", err)
	}

	classifier := make(Classifier, len(doc.IPv4)+len(doc.IPv6))
	for _, c := range append(doc.IPv4, doc.IPv6...) {
		ft, err := c.fiveTuple()
		if err != nil {
			return nil, nil, err
		}
		classifier[model.FlowID(c.FlowID)] = ft
	}

	records := make([]model.FlowRecord, 0, len(doc.Stats))
	for _, s := range doc.Stats {
		id := model.FlowID(s.FlowID)
		ft, ok := classifier.FindFlow(id)
		if !ok {
			return nil, nil, fmt.Errorf("%w: flow %d", ErrUnknownFlow, id)
		}
		rec, err := s.record(id, ft)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
	}

	slices.SortFunc(records, func(a, b model.FlowRecord) int {
		return cmp.Compare(a.FlowID, b.FlowID)
	})
	return records, classifier, nil
}

func (c classifierElement) fiveTuple() (model.FiveTuple, error) {
	src := net.ParseIP(c.SourceAddress)
	dst := net.ParseIP(c.DestinationAddress)
	if src == nil || dst == nil {
		return model.FiveTuple{}, fmt.Errorf("flow %d: invalid address %q -> %q", c.FlowID, c.SourceAddress, c.DestinationAddress)
	}
	return model.FiveTuple{
		SrcIP:    src,
		DstIP:    dst,
		SrcPort:  c.SourcePort,
		DstPort:  c.DestinationPort,
		Protocol: c.Protocol,
	}, nil
}

func (s flowStatsElem) record(id model.FlowID, ft model.FiveTuple) (model.FlowRecord, error) {
	rec := model.FlowRecord{
		FlowID:         id,
		FiveTuple:      ft,
		TxPackets:      s.TxPackets,
		RxPackets:      s.RxPackets,
		LostPackets:    s.LostPackets,
		TxBytes:        s.TxBytes,
		RxBytes:        s.RxBytes,
		TimesForwarded: s.TimesForwarded,
	}

	times := []struct {
		attr string
		raw  string
		dst  *time.Duration
	}{
		{"timeFirstTxPacket", s.TimeFirstTxPacket, &rec.TimeFirstTxPacket},
		{"timeFirstRxPacket", s.TimeFirstRxPacket, &rec.TimeFirstRxPacket},
		{"timeLastTxPacket", s.TimeLastTxPacket, &rec.TimeLastTxPacket},
		{"timeLastRxPacket", s.TimeLastRxPacket, &rec.TimeLastRxPacket},
		{"delaySum", s.DelaySum, &rec.DelaySum},
		{"jitterSum", s.JitterSum, &rec.JitterSum},
	}
	for _, tm := range times {
		if tm.raw == "" {
			continue
		}
		d, err := ParseSimTime(tm.raw)
		if err != nil {
			return model.FlowRecord{}, fmt.Errorf("flow %d: %s: %w", id, tm.attr, err)
		}
		*tm.dst = d
	}
	return rec, nil
}

var timeUnits = map[string]float64{
	"fs":  1e-6,
	"ps":  1e-3,
	"ns":  1,
	"us":  1e3,
	"ms":  1e6,
	"s":   1e9,
	"":    1e9,
	"min": 60e9,
	"h":   3600e9,
	"d":   86400e9,
	"y":   365 * 86400e9,
}

// ParseSimTime parses a simulator time value such as "+1.5e+09ns" or "2s".
// A value without a unit is taken as seconds. Sub-nanosecond values are
// rounded to the nearest nanosecond.
func ParseSimTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	i := len(s)
	for i > 0 && s[i-1] >= 'a' && s[i-1] <= 'z' {
		i--
	}
	number, unit := s[:i], s[i:]

	mult, ok := timeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown time unit %q in %q", unit, s)
	}
	v, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time value %q: %w", s, err)
	}

	ns := math.Round(v * mult)
	if math.IsNaN(ns) || math.Abs(ns) >= math.MaxInt64 {
		return 0, fmt.Errorf("time value %q out of range", s)
	}
	return time.Duration(ns), nil
}
