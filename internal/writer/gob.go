package writer

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"FlowSpectra/internal/model"

	"github.com/rs/zerolog/log"
)

// SummaryData holds the metadata written next to the gob snapshot.
type SummaryData struct {
	RunID       string               `json:"run_id"`
	TotalFlows  int                  `json:"total_flows"`
	TxPackets   uint64               `json:"tx_packets"`
	RxPackets   uint64               `json:"rx_packets"`
	LostPackets uint64               `json:"lost_packets"`
	TxBytes     uint64               `json:"tx_bytes"`
	RxBytes     uint64               `json:"rx_bytes"`
	Aggregate   model.DerivedMetrics `json:"aggregate"`
	Fairness    model.Metric         `json:"fairness_index"`
	Timestamp   string               `json:"timestamp"`
}

// GobWriter writes the per-flow reports to disk in gob format.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new writer for flow report snapshots.
func NewGobWriter(rootPath string) model.Writer {
	return &GobWriter{rootPath: rootPath}
}

func (w *GobWriter) Name() string { return "gob" }

// Write stores flows.dat and summary.json in the run directory. Runs without
// flows produce no files.
func (w *GobWriter) Write(ctx context.Context, report *model.Report) error {
	if len(report.Flows) == 0 {
		return nil
	}

	dir := runDir(w.rootPath, report)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	filePath := filepath.Join(dir, "flows.dat")
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(report.Flows); err != nil {
		return fmt.Errorf("failed to encode flows to gob for file '%s': %w", filePath, err)
	}

	summary := SummaryData{
		RunID:       report.RunID,
		TotalFlows:  report.Summary.Flows,
		TxPackets:   report.Summary.TxPackets,
		RxPackets:   report.Summary.RxPackets,
		LostPackets: report.Summary.LostPackets,
		TxBytes:     report.Summary.TxBytes,
		RxBytes:     report.Summary.RxBytes,
		Aggregate:   report.Aggregate,
		Fairness:    report.Summary.FairnessIndex,
		Timestamp:   report.GeneratedAt.UTC().Format(time.RFC3339),
	}
	summaryFile, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	log.Info().Str("dir", dir).Int("flows", len(report.Flows)).Msg("Wrote gob snapshot")
	return nil
}

// ReadGobFlows decodes a flows.dat file written by GobWriter.
func ReadGobFlows(path string) ([]model.FlowReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var flows []model.FlowReport
	if err := gob.NewDecoder(f).Decode(&flows); err != nil {
		return nil, fmt.Errorf("failed to decode gob file '%s': %w", path, err)
	}
	return flows, nil
}
