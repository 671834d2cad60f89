// Package alerter evaluates reports against threshold rules and sends a
// consolidated notification when any rule is triggered.
package alerter

import (
	"context"
	"fmt"
	"strings"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/gomarkdown/markdown"
	"github.com/rs/zerolog/log"
)

// Alert is one triggered rule. FlowID is zero for aggregate rules.
type Alert struct {
	Rule   config.AlerterRule
	FlowID model.FlowID
	Value  float64
}

// Alerter is responsible for evaluating reports against predefined rules
// and triggering notifications if rules are violated.
type Alerter struct {
	rules    []config.AlerterRule
	notifier model.Notifier
}

// New creates a new Alerter. A nil notifier only logs triggered alerts.
func New(cfg config.AlerterConfig, notifier model.Notifier) *Alerter {
	return &Alerter{rules: cfg.Rules, notifier: notifier}
}

// Check returns the alerts triggered by the report.
func (a *Alerter) Check(report *model.Report) []Alert {
	var alerts []Alert
	for _, rule := range a.rules {
		if rule.Scope == "flow" {
			for _, f := range report.Flows {
				m, ok := flowValue(rule.Metric, f)
				if ok && m.Valid && check(m.Value, rule.Threshold, rule.Operator) {
					alerts = append(alerts, Alert{Rule: rule, FlowID: f.Record.FlowID, Value: m.Value})
				}
			}
			continue
		}

		m, ok := aggregateValue(rule.Metric, report)
		if ok && m.Valid && check(m.Value, rule.Threshold, rule.Operator) {
			alerts = append(alerts, Alert{Rule: rule, Value: m.Value})
		}
	}
	return alerts
}

// Evaluate checks the report and notifies when at least one rule triggers.
func (a *Alerter) Evaluate(ctx context.Context, report *model.Report) error {
	alerts := a.Check(report)
	if len(alerts) == 0 {
		return nil
	}

	log.Info().Int("alerts", len(alerts)).Str("run", report.RunID).Msg("Alerter evaluation completed")
	if a.notifier == nil {
		return nil
	}

	html := markdown.ToHTML([]byte(Render(report, alerts)), nil, nil)
	subject := fmt.Sprintf("FlowSpectra Alert Summary (%d Triggered)", len(alerts))
	if err := a.notifier.Send(ctx, subject, string(html)); err != nil {
		return fmt.Errorf("failed to send alert notification: %w", err)
	}
	log.Info().Msg("Consolidated alert notification sent")
	return nil
}

// Render formats the alerts as a markdown document.
func Render(report *model.Report, alerts []Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# FlowSpectra Alert Summary\n\nRun `%s` triggered %d alert(s).\n", report.RunID, len(alerts))
	for _, al := range alerts {
		fmt.Fprintf(&b, "\n## Alert: %s\n\n", al.Rule.Name)
		if al.FlowID != 0 {
			fmt.Fprintf(&b, "- **Flow:** `%d`\n", al.FlowID)
		} else {
			b.WriteString("- **Scope:** `aggregate`\n")
		}
		fmt.Fprintf(&b, "- **Metric:** `%s`\n", al.Rule.Metric)
		fmt.Fprintf(&b, "- **Condition:** `%s %g`\n", al.Rule.Operator, al.Rule.Threshold)
		fmt.Fprintf(&b, "- **Observed Value:** `%g`\n", al.Value)
	}
	return b.String()
}

func flowValue(metric string, f model.FlowReport) (model.Metric, bool) {
	switch metric {
	case "delivery_ratio":
		return f.Metrics.DeliveryRatio, true
	case "loss_ratio":
		return f.Metrics.LossRatio, true
	case "mean_delay":
		return f.Metrics.MeanDelaySeconds, true
	case "mean_jitter":
		return f.Metrics.MeanJitterSeconds, true
	case "throughput":
		return f.Metrics.ThroughputBitsPerSecond, true
	case "lost_packets":
		return model.Defined(float64(f.Record.LostPackets)), true
	}
	log.Warn().Str("metric", metric).Msg("Unsupported metric in flow-scoped alerter rule")
	return model.Undefined, false
}

func aggregateValue(metric string, report *model.Report) (model.Metric, bool) {
	switch metric {
	case "delivery_ratio":
		return report.Aggregate.DeliveryRatio, true
	case "loss_ratio":
		return report.Aggregate.LossRatio, true
	case "mean_delay":
		return report.Aggregate.MeanDelaySeconds, true
	case "mean_jitter":
		return report.Aggregate.MeanJitterSeconds, true
	case "throughput":
		return report.Aggregate.ThroughputBitsPerSecond, true
	case "fairness":
		return report.Summary.FairnessIndex, true
	case "lost_packets":
		return model.Defined(float64(report.Summary.LostPackets)), true
	}
	log.Warn().Str("metric", metric).Msg("Unsupported metric in alerter rule")
	return model.Undefined, false
}

// check compares a value against a threshold based on an operator.
func check(value, threshold float64, operator string) bool {
	switch operator {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case "=":
		return value == threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	default:
		log.Warn().Str("operator", operator).Msg("Unknown operator in alerter rule")
		return false
	}
}
