// Package query reads stored runs back from ClickHouse.
package query

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ErrRunNotFound is returned by LoadRun when no rows match the run id.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes one stored run.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Flows     uint64    `json:"flows"`
	WrittenAt time.Time `json:"written_at"`
}

// Querier defines the interface for querying stored runs.
type Querier interface {
	ListRuns(ctx context.Context) ([]RunInfo, error)
	LoadRun(ctx context.Context, runID string) ([]model.FlowRecord, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn clickhouse.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (clickhouse.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
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

// ListRuns returns every stored run, newest first.
func (q *clickhouseQuerier) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT RunID, count() AS Flows, max(Timestamp) AS WrittenAt
		FROM flow_metrics
		GROUP BY RunID
		ORDER BY WrittenAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var run RunInfo
		if err := rows.Scan(&run.RunID, &run.Flows, &run.WrittenAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadRun returns the raw flow records of a run, ordered by flow id.
func (q *clickhouseQuerier) LoadRun(ctx context.Context, runID string) ([]model.FlowRecord, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT
			FlowID, SrcIP, DstIP, SrcPort, DstPort, Protocol,
			TxPackets, RxPackets, LostPackets, TxBytes, RxBytes,
			DelaySumNs, JitterSumNs,
			TimeFirstTxNs, TimeLastTxNs, TimeFirstRxNs, TimeLastRxNs,
			TimesForwarded
		FROM flow_metrics
		WHERE RunID = ?
		ORDER BY FlowID
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var records []model.FlowRecord
	for rows.Next() {
		var (
			r                                model.FlowRecord
			flowID                           uint32
			srcIP, dstIP                     string
			delay, jitter                    int64
			firstTx, lastTx, firstRx, lastRx int64
		)
		if err := rows.Scan(
			&flowID, &srcIP, &dstIP, &r.FiveTuple.SrcPort, &r.FiveTuple.DstPort, &r.FiveTuple.Protocol,
			&r.TxPackets, &r.RxPackets, &r.LostPackets, &r.TxBytes, &r.RxBytes,
			&delay, &jitter,
			&firstTx, &lastTx, &firstRx, &lastRx,
			&r.TimesForwarded,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flow record: %w", err)
		}
		r.FlowID = model.FlowID(flowID)
		r.FiveTuple.SrcIP = net.ParseIP(srcIP)
		r.FiveTuple.DstIP = net.ParseIP(dstIP)
		r.DelaySum, r.JitterSum = time.Duration(delay), time.Duration(jitter)
		r.TimeFirstTxPacket, r.TimeLastTxPacket = time.Duration(firstTx), time.Duration(lastTx)
		r.TimeFirstRxPacket, r.TimeLastRxPacket = time.Duration(firstRx), time.Duration(lastRx)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return records, nil
}
