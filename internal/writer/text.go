package writer

import (
	"context"
	"fmt"
	"io"
	"os"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/reducer"
)

// TextWriter renders the human-readable report to a file, or to stdout when
// no path is set.
type TextWriter struct {
	path string
	out  io.Writer
}

// NewTextWriter creates a text writer. An empty path selects stdout.
func NewTextWriter(path string) model.Writer {
	return &TextWriter{path: path, out: os.Stdout}
}

func (w *TextWriter) Name() string { return "text" }

// Write renders the report. A file target is truncated on every call.
func (w *TextWriter) Write(ctx context.Context, report *model.Report) error {
	out := w.out
	if w.path != "" {
		f, err := os.Create(w.path)
		if err != nil {
			return fmt.Errorf("failed to create report file '%s': %w", w.path, err)
		}
		defer f.Close()
		out = f
	}

	text := reducer.FormatHeader(report) + reducer.FormatReport(report.Flows, report.Aggregate)
	if _, err := io.WriteString(out, text); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
