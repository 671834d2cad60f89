package writer

import (
	"context"
	"fmt"
	"time"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS flow_metrics (
    RunID             String,
    Timestamp         DateTime,
    FlowID            UInt32,
    SrcIP             String,
    DstIP             String,
    SrcPort           UInt16,
    DstPort           UInt16,
    Protocol          UInt8,
    TxPackets         UInt64,
    RxPackets         UInt64,
    LostPackets       UInt64,
    TxBytes           UInt64,
    RxBytes           UInt64,
    DelaySumNs        Int64,
    JitterSumNs       Int64,
    TimeFirstTxNs     Int64,
    TimeLastTxNs      Int64,
    TimeFirstRxNs     Int64,
    TimeLastRxNs      Int64,
    TimesForwarded    UInt64,
    DeliveryRatio     Nullable(Float64),
    LossRatio         Nullable(Float64),
    MeanDelaySeconds  Nullable(Float64),
    MeanJitterSeconds Nullable(Float64),
    ThroughputBps     Nullable(Float64)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunID, FlowID);
`

// ClickHouseWriter implements the model.Writer interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and makes sure the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (model.Writer, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Info().Str("host", cfg.Host).Msg("Connected to ClickHouse and ensured flow_metrics exists")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

func (w *ClickHouseWriter) Name() string { return "clickhouse" }

// Write inserts one row per flow into the flow_metrics table.
func (w *ClickHouseWriter) Write(ctx context.Context, report *model.Report) error {
	if len(report.Flows) == 0 {
		return nil
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO flow_metrics")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, f := range report.Flows {
		if err := batch.Append(Row(report.RunID, report.GeneratedAt, f)...); err != nil {
			return fmt.Errorf("failed to append flow %d to batch: %w", f.Record.FlowID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Info().Int("flows", len(report.Flows)).Str("run", report.RunID).Msg("Wrote flows to ClickHouse")
	return nil
}

// Row returns the column values of one flow_metrics row, in table order.
func Row(runID string, ts time.Time, f model.FlowReport) []any {
	r, m := f.Record, f.Metrics
	return []any{
		runID,
		ts,
		uint32(r.FlowID),
		r.FiveTuple.SrcIP.String(),
		r.FiveTuple.DstIP.String(),
		r.FiveTuple.SrcPort,
		r.FiveTuple.DstPort,
		r.FiveTuple.Protocol,
		r.TxPackets,
		r.RxPackets,
		r.LostPackets,
		r.TxBytes,
		r.RxBytes,
		int64(r.DelaySum),
		int64(r.JitterSum),
		int64(r.TimeFirstTxPacket),
		int64(r.TimeLastTxPacket),
		int64(r.TimeFirstRxPacket),
		int64(r.TimeLastRxPacket),
		r.TimesForwarded,
		nullable(m.DeliveryRatio),
		nullable(m.LossRatio),
		nullable(m.MeanDelaySeconds),
		nullable(m.MeanJitterSeconds),
		nullable(m.ThroughputBitsPerSecond),
	}
}

// nullable maps an undefined metric to a NULL column value.
func nullable(m model.Metric) *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}
