// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"FlowSpectra/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs a logger on log.Logger according to cfg. Logs go to stderr
// so that reports printed on stdout stay clean.
func Setup(cfg config.LogConfig) error {
	return setup(cfg, os.Stderr)
}

func setup(cfg config.LogConfig, out io.Writer) error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	switch cfg.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	case "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}
