// Package writer holds the report sinks. Each sink registers itself with the
// factory under its config type name.
package writer

import (
	"path/filepath"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

// timestampLayout names snapshot directories.
const timestampLayout = "2006-01-02_15-04-05"

func init() {
	factory.RegisterWriter("text", func(def config.WriterDef) (model.Writer, error) {
		return NewTextWriter(def.Text.Path), nil
	})
	factory.RegisterWriter("json", func(def config.WriterDef) (model.Writer, error) {
		return NewJSONWriter(def.JSON.RootPath), nil
	})
	factory.RegisterWriter("gob", func(def config.WriterDef) (model.Writer, error) {
		return NewGobWriter(def.Gob.RootPath), nil
	})
	factory.RegisterWriter("clickhouse", func(def config.WriterDef) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse)
	})
}

// runDir returns <root>/<timestamp>/<run id> for a report.
func runDir(root string, report *model.Report) string {
	return filepath.Join(root, report.GeneratedAt.Format(timestampLayout), report.RunID)
}
