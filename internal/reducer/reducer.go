// Package reducer turns raw per-flow counters into delivery ratio, delay,
// jitter and throughput figures for single flows and for a whole run.
//
// Every function here is pure: it reads an immutable snapshot and never keeps
// state between calls. Metrics whose denominator is zero or whose activity
// window is not positive are reported as model.Undefined, which carries a zero
// value.
package reducer

import (
	"time"

	"FlowSpectra/internal/model"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComputeFlowMetrics derives the metrics of a single flow.
func ComputeFlowMetrics(r model.FlowRecord) model.DerivedMetrics {
	var m model.DerivedMetrics

	if r.TxPackets > 0 {
		m.DeliveryRatio = model.Defined(float64(r.RxPackets) / float64(r.TxPackets))
		m.LossRatio = model.Defined(float64(r.LostPackets) / float64(r.TxPackets))
	}

	if r.RxPackets > 0 {
		m.MeanDelaySeconds = model.Defined(r.DelaySum.Seconds() / float64(r.RxPackets))

		if d := r.Duration(); d > 0 {
			m.ThroughputBitsPerSecond = model.Defined(float64(r.RxBytes) * 8 / d.Seconds())
		}
	}

	// Jitter is accumulated between consecutive received packets.
	if r.RxPackets > 1 {
		m.MeanJitterSeconds = model.Defined(r.JitterSum.Seconds() / float64(r.RxPackets-1))
	}

	return m
}

// ComputeAggregate derives run-wide metrics. Delivery and loss ratios are
// taken over summed counters, mean delay and jitter are the means of the
// per-flow means, and throughput is the sum of per-flow throughputs.
func ComputeAggregate(records []model.FlowRecord) model.DerivedMetrics {
	var (
		totalTx, totalRx, totalLost uint64
		delays, jitters, rates      []float64
	)

	for _, r := range records {
		totalTx += r.TxPackets
		totalRx += r.RxPackets
		totalLost += r.LostPackets

		m := ComputeFlowMetrics(r)
		if m.MeanDelaySeconds.Valid {
			delays = append(delays, m.MeanDelaySeconds.Value)
		}
		if m.MeanJitterSeconds.Valid {
			jitters = append(jitters, m.MeanJitterSeconds.Value)
		}
		if m.ThroughputBitsPerSecond.Valid {
			rates = append(rates, m.ThroughputBitsPerSecond.Value)
		}
	}

	var agg model.DerivedMetrics
	if totalTx > 0 {
		agg.DeliveryRatio = model.Defined(float64(totalRx) / float64(totalTx))
		agg.LossRatio = model.Defined(float64(totalLost) / float64(totalTx))
	}
	if len(delays) > 0 {
		agg.MeanDelaySeconds = model.Defined(stat.Mean(delays, nil))
	}
	if len(jitters) > 0 {
		agg.MeanJitterSeconds = model.Defined(stat.Mean(jitters, nil))
	}
	if len(rates) > 0 {
		agg.ThroughputBitsPerSecond = model.Defined(floats.Sum(rates))
	}
	return agg
}

// Summarize computes the run totals and Jain's fairness index over the
// throughput of every flow that transmitted at least one packet.
func Summarize(records []model.FlowRecord) model.Summary {
	s := model.Summary{Flows: len(records)}

	var rates []float64
	for _, r := range records {
		s.TxPackets += r.TxPackets
		s.RxPackets += r.RxPackets
		s.LostPackets += r.LostPackets
		s.TxBytes += r.TxBytes
		s.RxBytes += r.RxBytes

		if r.TxPackets > 0 {
			rates = append(rates, ComputeFlowMetrics(r).ThroughputBitsPerSecond.Float64())
		}
	}

	if sumSq := floats.Dot(rates, rates); len(rates) > 0 && sumSq > 0 {
		sum := floats.Sum(rates)
		s.FairnessIndex = model.Defined(sum * sum / (float64(len(rates)) * sumSq))
	}
	return s
}

// Reduce validates the records when opts.Strict is set and builds the full
// report. Flows keep the order of the input.
func Reduce(records []model.FlowRecord, opts Options) (*model.Report, error) {
	if opts.Strict {
		if err := ValidateAll(records, opts); err != nil {
			return nil, err
		}
	}

	flows := make([]model.FlowReport, len(records))
	for i, r := range records {
		flows[i] = model.FlowReport{Record: r, Metrics: ComputeFlowMetrics(r)}
	}

	return &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Flows:       flows,
		Aggregate:   ComputeAggregate(records),
		Summary:     Summarize(records),
	}, nil
}
