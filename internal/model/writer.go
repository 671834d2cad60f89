package model

import "context"

// Writer defines a generic interface for emitting a reduced report to a sink.
type Writer interface {
	// Name identifies the writer in logs and errors.
	Name() string

	// Write persists or renders the report.
	Write(ctx context.Context, report *Report) error
}
