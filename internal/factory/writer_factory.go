package factory

import (
	"fmt"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/rs/zerolog/log"
)

// WriterFactory builds a writer from its config definition.
type WriterFactory func(def config.WriterDef) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// CreateWriters builds every enabled writer in the config.
func CreateWriters(cfg *config.Config) ([]model.Writer, error) {
	var writers []model.Writer

	for _, def := range cfg.Writers {
		if !def.Enabled {
			continue
		}
		log.Debug().Str("type", def.Type).Msg("Creating writer")

		factory, ok := registry[def.Type]
		if !ok {
			return nil, fmt.Errorf("unknown writer type: '%s'", def.Type)
		}

		writer, err := factory(def)
		if err != nil {
			return nil, fmt.Errorf("error creating writer type '%s': %w", def.Type, err)
		}

		writers = append(writers, writer)
	}

	return writers, nil
}
