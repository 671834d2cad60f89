package main

import (
	"fmt"
	"strings"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/reducer"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// renderReport returns the plain text report, or the flow blocks followed by a
// colored aggregate box.
func renderReport(report *model.Report, color bool) string {
	header := reducer.FormatHeader(report)
	text := reducer.FormatReport(report.Flows, report.Aggregate)
	if !color {
		return header + text
	}

	// FormatReport always ends with the aggregate block
	if i := strings.LastIndex(text, "Aggregate ("); i >= 0 {
		text = text[:i]
	}
	return titleStyle.Render(strings.TrimSuffix(header, "\n")) + "\n" + text + renderAggregate(report) + "\n"
}

func renderAggregate(report *model.Report) string {
	agg, sum := report.Aggregate, report.Summary

	delivery := agg.DeliveryRatio.String()
	if agg.DeliveryRatio.Valid {
		style := goodStyle
		if sum.LostPackets > 0 {
			style = badStyle
		}
		delivery = style.Render(fmt.Sprintf("%.4f", agg.DeliveryRatio.Value))
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("Aggregate (%d flows)", sum.Flows)),
		fmt.Sprintf("Tx/Rx/Lost:     %d / %d / %d", sum.TxPackets, sum.RxPackets, sum.LostPackets),
		"Delivery Ratio: " + delivery,
		fmt.Sprintf("Mean Delay:     %.6f s", agg.MeanDelaySeconds.Float64()),
		fmt.Sprintf("Mean Jitter:    %.6f s", agg.MeanJitterSeconds.Float64()),
		fmt.Sprintf("Throughput:     %.2f bps", agg.ThroughputBitsPerSecond.Float64()),
		"Fairness:       " + sum.FairnessIndex.String(),
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
