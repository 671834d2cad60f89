// Package manager runs one reduction end to end: load records from a source,
// reduce them, then fan the report out to writers, the alerter and NATS.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"FlowSpectra/internal/alerter"
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
	"FlowSpectra/internal/monitor"
	"FlowSpectra/internal/notification"
	"FlowSpectra/internal/probe"
	"FlowSpectra/internal/reducer"
	_ "FlowSpectra/internal/writer" // Registers the report writers

	"github.com/rs/zerolog/log"
)

// Manager orchestrates a reduction and its sinks.
type Manager struct {
	writers   []model.Writer
	alerter   *alerter.Alerter
	publisher model.Publisher
	opts      reducer.Options
}

// New creates a Manager from already built parts. alerter and publisher may be nil.
func New(writers []model.Writer, alertr *alerter.Alerter, publisher model.Publisher, opts reducer.Options) *Manager {
	return &Manager{writers: writers, alerter: alertr, publisher: publisher, opts: opts}
}

// NewManager builds the writers, alerter and publisher named in the config.
func NewManager(cfg *config.Config) (*Manager, error) {
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		return nil, err
	}

	var alertr *alerter.Alerter
	if cfg.Alerter.Enabled {
		var notifier model.Notifier
		if cfg.SMTP.Host != "" {
			notifier = notification.NewEmailNotifier(cfg.SMTP)
		} else {
			log.Warn().Msg("Alerter is enabled but no SMTP host is configured, alerts will only be logged")
		}
		alertr = alerter.New(cfg.Alerter, notifier)
		log.Info().Int("rules", len(cfg.Alerter.Rules)).Msg("Alerter enabled")
	}

	var publisher model.Publisher
	if cfg.NATS.Enabled {
		p, err := probe.NewPublisher(cfg.NATS)
		if err != nil {
			return nil, err
		}
		publisher = p
	}

	return New(writers, alertr, publisher, reducer.Options{
		Strict:          cfg.Reducer.Strict,
		AllowDuplicates: cfg.Reducer.AllowDuplicates,
	}), nil
}

// NewSource returns the record source selected by the config.
func NewSource(cfg config.SourceConfig) (model.Source, error) {
	switch cfg.Type {
	case "", "flowmon":
		if cfg.Flowmon.Path == "" {
			return nil, fmt.Errorf("flowmon source requires a path")
		}
		return monitor.NewFlowmonSource(cfg.Flowmon.Path), nil
	case "capture":
		return monitor.NewCaptureSource(cfg.Capture.TxPaths, cfg.Capture.RxPaths), nil
	default:
		return nil, fmt.Errorf("unknown source type: '%s'", cfg.Type)
	}
}

// Run reduces the source's records and hands the report to every sink. The
// report is returned together with the joined sink errors, if any.
func (m *Manager) Run(ctx context.Context, src model.Source) (*model.Report, error) {
	records, err := src.Flows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow records: %w", err)
	}

	report, err := reducer.Reduce(records, m.opts)
	if err != nil {
		return nil, err
	}
	log.Info().Str("run", report.RunID).Int("flows", len(report.Flows)).Str("options", m.opts.String()).Msg("Reduced flow records")

	var errs []error
	if err := m.write(ctx, report); err != nil {
		errs = append(errs, err)
	}

	if m.alerter != nil {
		if err := m.alerter.Evaluate(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(report); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish report: %w", err))
		}
	}

	return report, errors.Join(errs...)
}

// write runs every writer concurrently. One failing writer does not stop the others.
func (m *Manager) write(ctx context.Context, report *model.Report) error {
	errs := make([]error, len(m.writers))

	var wg sync.WaitGroup
	wg.Add(len(m.writers))
	for i, w := range m.writers {
		go func(i int, w model.Writer) {
			defer wg.Done()
			if err := w.Write(ctx, report); err != nil {
				log.Error().Err(err).Str("writer", w.Name()).Msg("Error writing report")
				errs[i] = fmt.Errorf("writer %s: %w", w.Name(), err)
			}
		}(i, w)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Close releases the publisher.
func (m *Manager) Close() {
	if m.publisher != nil {
		m.publisher.Close()
	}
}
