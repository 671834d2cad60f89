package probe

import (
	"net"
	"testing"
	"time"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/reducer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCodec(t *testing.T) {
	records := []model.FlowRecord{
		{
			FlowID: 1,
			FiveTuple: model.FiveTuple{
				SrcIP: net.ParseIP("10.1.1.1").To4(), DstIP: net.ParseIP("10.1.1.2").To4(),
				SrcPort: 49153, DstPort: 9, Protocol: 17,
			},
			TxPackets: 4, RxPackets: 3, LostPackets: 1, TxBytes: 4096, RxBytes: 3072,
			DelaySum:          30 * time.Millisecond,
			JitterSum:         2 * time.Millisecond,
			TimeFirstTxPacket: time.Second,
			TimeLastRxPacket:  2 * time.Second,
		},
		{FlowID: 2, TxPackets: 5, LostPackets: 5, TxBytes: 500},
	}
	report, err := reducer.Reduce(records, reducer.Options{Strict: true})
	require.NoError(t, err)

	data, err := EncodeReport(report)
	require.NoError(t, err)

	decoded, err := DecodeReport(data)
	require.NoError(t, err)

	assert.Equal(t, report.RunID, decoded.RunID)
	assert.True(t, report.GeneratedAt.Equal(decoded.GeneratedAt))
	assert.Equal(t, report.Aggregate, decoded.Aggregate)
	assert.Equal(t, report.Summary, decoded.Summary)
	require.Len(t, decoded.Flows, 2)
	assert.Equal(t, report.Flows[0].Metrics, decoded.Flows[0].Metrics)
	assert.Equal(t, "10.1.1.1", decoded.Flows[0].Record.FiveTuple.SrcIP.String())
	assert.Equal(t, 30*time.Millisecond, decoded.Flows[0].Record.DelaySum)
	assert.False(t, decoded.Flows[1].Metrics.MeanDelaySeconds.Valid)
}

func TestDecodeReport_Garbage(t *testing.T) {
	_, err := DecodeReport([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}
