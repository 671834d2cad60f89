package reducer

import (
	"fmt"
	"strings"

	"FlowSpectra/internal/model"
)

// headerLayout is the timestamp layout of the run header.
const headerLayout = "2006-01-02 15:04:05 MST"

// FormatHeader renders the one-line run header printed above a report.
func FormatHeader(report *model.Report) string {
	return fmt.Sprintf("Run %s (%s)\n", report.RunID, report.GeneratedAt.Format(headerLayout))
}

// FormatReport renders one block per flow, in the given order, followed by
// an aggregate block. Undefined metrics print as zero.
func FormatReport(flows []model.FlowReport, aggregate model.DerivedMetrics) string {
	var b strings.Builder
	var totalTx, totalRx, totalLost uint64

	for _, f := range flows {
		r := f.Record
		totalTx += r.TxPackets
		totalRx += r.RxPackets
		totalLost += r.LostPackets

		fmt.Fprintf(&b, "Flow %d %s\n", r.FlowID, r.FiveTuple)
		fmt.Fprintf(&b, "  Tx Packets:     %d\n", r.TxPackets)
		fmt.Fprintf(&b, "  Rx Packets:     %d\n", r.RxPackets)
		fmt.Fprintf(&b, "  Lost Packets:   %d\n", r.LostPackets)
		writeMetrics(&b, f.Metrics)
	}

	fmt.Fprintf(&b, "Aggregate (%d flows)\n", len(flows))
	fmt.Fprintf(&b, "  Tx Packets:     %d\n", totalTx)
	fmt.Fprintf(&b, "  Rx Packets:     %d\n", totalRx)
	fmt.Fprintf(&b, "  Lost Packets:   %d\n", totalLost)
	writeMetrics(&b, aggregate)

	return b.String()
}

func writeMetrics(b *strings.Builder, m model.DerivedMetrics) {
	fmt.Fprintf(b, "  Delivery Ratio: %.4f\n", m.DeliveryRatio.Float64())
	fmt.Fprintf(b, "  Mean Delay:     %.6f s\n", m.MeanDelaySeconds.Float64())
	fmt.Fprintf(b, "  Mean Jitter:    %.6f s\n", m.MeanJitterSeconds.Float64())
	fmt.Fprintf(b, "  Throughput:     %.2f bps\n", m.ThroughputBitsPerSecond.Float64())
}
