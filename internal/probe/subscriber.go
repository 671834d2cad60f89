package probe

import (
	"fmt"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// ReportHandler is a function that processes a received report.
type ReportHandler func(report *model.Report)

// Subscriber is responsible for subscribing to a NATS subject and processing messages.
type Subscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
}

// NewSubscriber creates a new NATS subscriber.
func NewSubscriber(cfg config.NATSConfig) (*Subscriber, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("flowspectra-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", cfg.URL, err)
	}
	log.Info().Str("url", cfg.URL).Msg("Connected to NATS server")
	return &Subscriber{nc: nc, subject: cfg.Subject}, nil
}

// Start subscribes to the subject and hands every decoded report to handler.
func (s *Subscriber) Start(handler ReportHandler) error {
	sub, err := s.nc.Subscribe(s.subject, func(msg *nats.Msg) {
		report, err := DecodeReport(msg.Data)
		if err != nil {
			log.Error().Err(err).Msg("Dropping undecodable report message")
			return
		}
		handler(report)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to '%s': %w", s.subject, err)
	}
	s.sub = sub
	log.Info().Str("subject", s.subject).Msg("Subscribed, waiting for reports")
	return nil
}

// Close unsubscribes and closes the NATS connection.
func (s *Subscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Info().Msg("NATS connection closed")
	}
}
