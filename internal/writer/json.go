package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"FlowSpectra/internal/model"

	"github.com/rs/zerolog/log"
)

// JSONWriter writes the full report as indented JSON.
type JSONWriter struct {
	rootPath string
}

// NewJSONWriter creates a writer rooted at rootPath.
func NewJSONWriter(rootPath string) model.Writer {
	return &JSONWriter{rootPath: rootPath}
}

func (w *JSONWriter) Name() string { return "json" }

func (w *JSONWriter) Write(ctx context.Context, report *model.Report) error {
	dir := runDir(w.rootPath, report)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, "report.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report to json: %w", err)
	}

	log.Info().Str("path", path).Msg("Wrote JSON report")
	return nil
}
