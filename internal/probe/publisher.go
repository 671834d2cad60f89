package probe

import (
	"fmt"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher is responsible for publishing reports to a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("flowspectra-publisher"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}
	log.Info().Str("url", cfg.URL).Msg("Connected to NATS server")
	return &Publisher{nc: nc, subject: cfg.Subject}, nil
}

// Publish encodes the report and publishes it to the configured subject.
func (p *Publisher) Publish(report *model.Report) error {
	data, err := EncodeReport(report)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish report %s: %w", report.RunID, err)
	}
	return p.nc.Flush()
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Info().Msg("NATS connection drained and closed")
	}
}

var _ model.Publisher = (*Publisher)(nil)
