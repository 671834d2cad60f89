package main

import (
	"strings"
	"testing"
	"time"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"
	"FlowSpectra/internal/reducer"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport(t *testing.T) *model.Report {
	t.Helper()
	report, err := reducer.Reduce([]model.FlowRecord{
		{FlowID: 1, TxPackets: 10, RxPackets: 9, LostPackets: 1, TxBytes: 1000, RxBytes: 900,
			DelaySum: 90 * time.Millisecond, TimeLastRxPacket: time.Second},
	}, reducer.Options{Strict: true})
	require.NoError(t, err)
	return report
}

func TestRenderReport(t *testing.T) {
	report := testReport(t)

	plain := renderReport(report, false)
	assert.True(t, strings.HasPrefix(plain, "Run "+report.RunID))
	assert.Contains(t, plain, "Aggregate (1 flows)")
	assert.Contains(t, plain, "  Delivery Ratio: 0.9000")

	colored := renderReport(report, true)
	assert.Contains(t, colored, "Flow 1")
	assert.Contains(t, colored, "Aggregate (1 flows)")
	assert.Contains(t, colored, "Fairness:")
	assert.Equal(t, 1, strings.Count(colored, "Aggregate (1 flows)"))
}

// parseReduceFlags parses args against a fresh copy of the reduce flag set.
func parseReduceFlags(t *testing.T, args ...string) (*cobra.Command, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "reduce"}
	addReduceFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd, cmd.ValidateFlagGroups()
}

func TestApplyReduceFlags(t *testing.T) {
	cmd, err := parseReduceFlags(t, "--tx", "a.pcap", "--tx", "b.pcap", "--rx", "c.pcap", "--strict=false")
	require.NoError(t, err)

	c := config.Default()
	c.Reducer.AllowDuplicates = true
	applyReduceFlags(cmd, c)

	assert.Equal(t, "capture", c.Source.Type)
	assert.Equal(t, []string{"a.pcap", "b.pcap"}, c.Source.Capture.TxPaths)
	assert.Equal(t, []string{"c.pcap"}, c.Source.Capture.RxPaths)
	assert.False(t, c.Reducer.Strict)
	assert.True(t, c.Reducer.AllowDuplicates, "unset flags keep the config value")
}

func TestApplyReduceFlags_SingleCaptureList(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		wantTx []string
		wantRx []string
	}{
		{"rx only keeps config tx", []string{"--rx", "other-rx.pcap"}, []string{"cfg-tx.pcap"}, []string{"other-rx.pcap"}},
		{"tx only keeps config rx", []string{"--tx", "other-tx.pcap"}, []string{"other-tx.pcap"}, []string{"cfg-rx.pcap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseReduceFlags(t, tt.args...)
			require.NoError(t, err)

			c := config.Default()
			c.Source.Type = "capture"
			c.Source.Capture.TxPaths = []string{"cfg-tx.pcap"}
			c.Source.Capture.RxPaths = []string{"cfg-rx.pcap"}
			applyReduceFlags(cmd, c)

			assert.Equal(t, "capture", c.Source.Type)
			assert.Equal(t, tt.wantTx, c.Source.Capture.TxPaths)
			assert.Equal(t, tt.wantRx, c.Source.Capture.RxPaths)
		})
	}
}

func TestReduceFlags_FlowmonExcludesCaptures(t *testing.T) {
	_, err := parseReduceFlags(t, "--flowmon", "f.xml", "--rx", "r.pcap")
	assert.Error(t, err)

	_, err = parseReduceFlags(t, "--flowmon", "f.xml", "--tx", "t.pcap")
	assert.Error(t, err)

	cmd, err := parseReduceFlags(t, "--flowmon", "f.xml")
	require.NoError(t, err)
	c := config.Default()
	applyReduceFlags(cmd, c)
	assert.Equal(t, "flowmon", c.Source.Type)
	assert.Equal(t, "f.xml", c.Source.Flowmon.Path)
	assert.True(t, c.Reducer.Strict, "strict stays on unless disabled")
}

func TestWithoutStdoutText(t *testing.T) {
	defs := []config.WriterDef{
		{Type: "text", Enabled: true},
		{Type: "text", Enabled: true, Text: config.TextWriterConfig{Path: "out.txt"}},
		{Type: "json", Enabled: true},
	}
	got := withoutStdoutText(defs)
	require.Len(t, got, 2)
	assert.Equal(t, "out.txt", got[0].Text.Path)
	assert.Equal(t, "json", got[1].Type)
}
