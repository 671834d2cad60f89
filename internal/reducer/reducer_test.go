package reducer

import (
	"errors"
	"math/rand"
	"net"
	"testing"
	"time"

	"FlowSpectra/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func udpFlow(id model.FlowID) model.FlowRecord {
	return model.FlowRecord{
		FlowID: id,
		FiveTuple: model.FiveTuple{
			SrcIP:    net.ParseIP("10.1.1.1"),
			DstIP:    net.ParseIP("10.1.1.2"),
			SrcPort:  49153,
			DstPort:  9,
			Protocol: 17,
		},
	}
}

func TestComputeFlowMetrics_FullDelivery(t *testing.T) {
	r := udpFlow(1)
	r.TxPackets, r.RxPackets = 10, 10
	r.TxBytes, r.RxBytes = 10240, 10240
	r.DelaySum = 2 * time.Second
	r.TimeFirstTxPacket = 1 * time.Second
	r.TimeLastRxPacket = 3 * time.Second

	m := ComputeFlowMetrics(r)

	assert.True(t, m.DeliveryRatio.Valid)
	assert.InDelta(t, 1.0, m.DeliveryRatio.Value, 1e-12)
	assert.InDelta(t, 0.2, m.MeanDelaySeconds.Value, 1e-12)
	assert.InDelta(t, 40960.0, m.ThroughputBitsPerSecond.Value, 1e-9)
	assert.InDelta(t, 0.0, m.LossRatio.Value, 1e-12)
}

func TestComputeFlowMetrics_NothingReceived(t *testing.T) {
	r := udpFlow(1)
	r.TxPackets, r.LostPackets = 10, 10
	r.TxBytes = 10240
	r.TimeFirstTxPacket = time.Second

	m := ComputeFlowMetrics(r)

	assert.Equal(t, 0.0, m.DeliveryRatio.Value)
	assert.True(t, m.DeliveryRatio.Valid)
	assert.Equal(t, model.Undefined, m.MeanDelaySeconds)
	assert.Equal(t, model.Undefined, m.ThroughputBitsPerSecond)
	assert.Equal(t, model.Undefined, m.MeanJitterSeconds)
	assert.InDelta(t, 1.0, m.LossRatio.Value, 1e-12)
}

func TestComputeFlowMetrics_NothingSent(t *testing.T) {
	m := ComputeFlowMetrics(udpFlow(1))

	assert.Equal(t, model.DerivedMetrics{}, m)
	assert.Equal(t, 0.0, m.DeliveryRatio.Float64())
}

func TestComputeFlowMetrics_DegenerateWindow(t *testing.T) {
	tests := []struct {
		name    string
		firstTx time.Duration
		lastRx  time.Duration
	}{
		{name: "zero duration", firstTx: 2 * time.Second, lastRx: 2 * time.Second},
		{name: "inverted window", firstTx: 3 * time.Second, lastRx: 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := udpFlow(1)
			r.TxPackets, r.RxPackets = 1, 1
			r.TxBytes, r.RxBytes = 512, 512
			r.DelaySum = 10 * time.Millisecond
			r.TimeFirstTxPacket = tt.firstTx
			r.TimeLastRxPacket = tt.lastRx

			m := ComputeFlowMetrics(r)

			assert.Equal(t, 0.0, m.ThroughputBitsPerSecond.Value)
			assert.False(t, m.ThroughputBitsPerSecond.Valid)
			assert.InDelta(t, 0.01, m.MeanDelaySeconds.Value, 1e-12)
		})
	}
}

func TestComputeFlowMetrics_Jitter(t *testing.T) {
	r := udpFlow(1)
	r.TxPackets, r.RxPackets = 5, 5
	r.JitterSum = 40 * time.Millisecond

	m := ComputeFlowMetrics(r)
	require.True(t, m.MeanJitterSeconds.Valid)
	assert.InDelta(t, 0.01, m.MeanJitterSeconds.Value, 1e-12)

	r.RxPackets = 1
	assert.False(t, ComputeFlowMetrics(r).MeanJitterSeconds.Valid)
}

func TestComputeFlowMetrics_Idempotent(t *testing.T) {
	r := udpFlow(3)
	r.TxPackets, r.RxPackets = 7, 4
	r.RxBytes = 4000
	r.DelaySum = 123 * time.Millisecond
	r.TimeFirstTxPacket = 500 * time.Millisecond
	r.TimeLastRxPacket = 4 * time.Second

	assert.Equal(t, ComputeFlowMetrics(r), ComputeFlowMetrics(r))
}

func TestComputeFlowMetrics_RatioBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		r := udpFlow(model.FlowID(i))
		r.TxPackets = uint64(rng.Intn(1000) + 1)
		r.RxPackets = uint64(rng.Int63n(int64(r.TxPackets) + 1))

		ratio := ComputeFlowMetrics(r).DeliveryRatio.Value
		require.GreaterOrEqual(t, ratio, 0.0)
		require.LessOrEqual(t, ratio, 1.0)
	}
}

func twoFlows() []model.FlowRecord {
	a := udpFlow(1)
	a.TxPackets, a.RxPackets = 100, 100
	a.TxBytes, a.RxBytes = 100000, 100000
	a.DelaySum = 1 * time.Second
	a.TimeFirstTxPacket, a.TimeLastRxPacket = 1*time.Second, 2*time.Second

	b := udpFlow(2)
	b.FiveTuple.SrcPort = 49154
	b.TxPackets, b.RxPackets, b.LostPackets = 100, 50, 50
	b.TxBytes, b.RxBytes = 100000, 50000
	b.DelaySum = 1500 * time.Millisecond
	b.TimeFirstTxPacket, b.TimeLastRxPacket = 5*time.Second, 6*time.Second

	return []model.FlowRecord{a, b}
}

func TestComputeAggregate_TwoFlows(t *testing.T) {
	agg := ComputeAggregate(twoFlows())

	assert.InDelta(t, 0.75, agg.DeliveryRatio.Value, 1e-12)
	assert.InDelta(t, 1200000.0, agg.ThroughputBitsPerSecond.Value, 1e-6)
	// mean of 0.01 s and 0.03 s
	assert.InDelta(t, 0.02, agg.MeanDelaySeconds.Value, 1e-12)
	assert.InDelta(t, 0.25, agg.LossRatio.Value, 1e-12)
}

func TestComputeAggregate_Empty(t *testing.T) {
	agg := ComputeAggregate(nil)

	assert.Equal(t, 0.0, agg.DeliveryRatio.Value)
	assert.Equal(t, 0.0, agg.MeanDelaySeconds.Value)
	assert.Equal(t, 0.0, agg.ThroughputBitsPerSecond.Value)
	assert.False(t, agg.DeliveryRatio.Valid)
}

func TestComputeAggregate_DelayIgnoresSilentFlows(t *testing.T) {
	records := twoFlows()
	silent := udpFlow(3)
	silent.TxPackets, silent.LostPackets = 20, 20
	records = append(records, silent)

	agg := ComputeAggregate(records)
	assert.InDelta(t, 0.02, agg.MeanDelaySeconds.Value, 1e-12)
	assert.InDelta(t, 150.0/220.0, agg.DeliveryRatio.Value, 1e-12)
}

func randomRecords(rng *rand.Rand, n int) []model.FlowRecord {
	records := make([]model.FlowRecord, n)
	for i := range records {
		r := udpFlow(model.FlowID(i + 1))
		r.TxPackets = uint64(rng.Intn(5000) + 1)
		r.RxPackets = uint64(rng.Int63n(int64(r.TxPackets) + 1))
		r.LostPackets = r.TxPackets - r.RxPackets
		r.TxBytes = r.TxPackets * 1024
		r.RxBytes = r.RxPackets * 1024
		r.DelaySum = time.Duration(r.RxPackets) * time.Duration(rng.Intn(50)+1) * time.Millisecond
		r.JitterSum = time.Duration(rng.Intn(1000)) * time.Microsecond
		r.TimeFirstTxPacket = time.Duration(rng.Intn(10)) * time.Second
		r.TimeLastRxPacket = r.TimeFirstTxPacket + time.Duration(rng.Intn(20000))*time.Millisecond
		records[i] = r
	}
	return records
}

func TestComputeAggregate_Additivity(t *testing.T) {
	records := randomRecords(rand.New(rand.NewSource(7)), 50)

	var tx, rx uint64
	for _, r := range records {
		tx += r.TxPackets
		rx += r.RxPackets
	}

	agg := ComputeAggregate(records)
	assert.InDelta(t, float64(rx), agg.DeliveryRatio.Value*float64(tx), 1e-6)
}

func TestComputeAggregate_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	records := randomRecords(rng, 40)
	want := ComputeAggregate(records)

	shuffled := append([]model.FlowRecord(nil), records...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	got := ComputeAggregate(shuffled)

	assert.InDelta(t, want.DeliveryRatio.Value, got.DeliveryRatio.Value, 1e-12)
	assert.InDelta(t, want.MeanDelaySeconds.Value, got.MeanDelaySeconds.Value, 1e-12)
	assert.InEpsilon(t, want.ThroughputBitsPerSecond.Value, got.ThroughputBitsPerSecond.Value, 1e-12)
}

func TestSummarize(t *testing.T) {
	s := Summarize(twoFlows())

	assert.Equal(t, 2, s.Flows)
	assert.EqualValues(t, 200, s.TxPackets)
	assert.EqualValues(t, 150, s.RxPackets)
	assert.EqualValues(t, 50, s.LostPackets)
	assert.EqualValues(t, 150000, s.RxBytes)
	// (800k + 400k)^2 / (2 * (800k^2 + 400k^2)) = 0.9
	assert.InDelta(t, 0.9, s.FairnessIndex.Value, 1e-12)

	assert.False(t, Summarize(nil).FairnessIndex.Valid)
}

func TestValidate(t *testing.T) {
	base := udpFlow(9)
	base.TxPackets, base.RxPackets = 10, 8
	base.TxBytes, base.RxBytes = 1000, 800
	base.LostPackets = 2
	require.NoError(t, Validate(base, Options{}))

	tests := []struct {
		name   string
		mutate func(r *model.FlowRecord)
		opts   Options
		ok     bool
	}{
		{name: "rx exceeds tx", mutate: func(r *model.FlowRecord) { r.RxPackets = 11; r.RxBytes = 1000 }},
		{name: "duplicates allowed", mutate: func(r *model.FlowRecord) { r.RxPackets = 11; r.RxBytes = 1100 }, opts: Options{AllowDuplicates: true}, ok: true},
		{name: "rx bytes exceed tx bytes", mutate: func(r *model.FlowRecord) { r.RxBytes = 1001 }},
		{name: "lost exceeds tx", mutate: func(r *model.FlowRecord) { r.LostPackets = 11 }},
		{name: "bytes without packets", mutate: func(r *model.FlowRecord) { r.RxPackets = 0 }},
		{name: "negative delay", mutate: func(r *model.FlowRecord) { r.DelaySum = -time.Millisecond }},
		{name: "negative timestamp", mutate: func(r *model.FlowRecord) { r.TimeFirstTxPacket = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			err := Validate(r, tt.opts)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrMalformedRecord)
			assert.Contains(t, err.Error(), "flow 9")
		})
	}
}

func TestReduce(t *testing.T) {
	records := twoFlows()

	report, err := Reduce(records, Options{Strict: true})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Flows, 2)
	assert.Equal(t, model.FlowID(1), report.Flows[0].Record.FlowID)
	assert.Equal(t, model.FlowID(2), report.Flows[1].Record.FlowID)
	assert.InDelta(t, 0.5, report.Flows[1].Metrics.DeliveryRatio.Value, 1e-12)
	assert.Equal(t, ComputeAggregate(records), report.Aggregate)
	assert.Equal(t, records, report.Records())
}

func TestReduce_StrictRejectsMalformed(t *testing.T) {
	bad := udpFlow(4)
	bad.TxPackets, bad.RxPackets = 1, 3
	bad.RxBytes = 30
	worse := udpFlow(5)
	worse.LostPackets = 2

	records := append(twoFlows(), bad, worse)

	_, err := Reduce(records, Options{Strict: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.Contains(t, err.Error(), "flow 4")
	assert.Contains(t, err.Error(), "flow 5")

	report, err := Reduce(records, Options{})
	require.NoError(t, err)
	assert.Len(t, report.Flows, 4)
}
