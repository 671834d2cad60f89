package factory

import (
	"context"
	"errors"
	"testing"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedWriter string

func (w namedWriter) Name() string                               { return string(w) }
func (w namedWriter) Write(context.Context, *model.Report) error { return nil }

func init() {
	RegisterWriter("test-ok", func(def config.WriterDef) (model.Writer, error) {
		return namedWriter(def.Text.Path), nil
	})
	RegisterWriter("test-fail", func(config.WriterDef) (model.Writer, error) {
		return nil, errors.New("boom")
	})
}

func TestCreateWriters(t *testing.T) {
	cfg := &config.Config{Writers: []config.WriterDef{
		{Type: "test-ok", Enabled: true, Text: config.TextWriterConfig{Path: "a"}},
		{Type: "test-fail", Enabled: false},
		{Type: "test-ok", Enabled: true, Text: config.TextWriterConfig{Path: "b"}},
	}}

	writers, err := CreateWriters(cfg)
	require.NoError(t, err)
	require.Len(t, writers, 2)
	assert.Equal(t, "a", writers[0].Name())
	assert.Equal(t, "b", writers[1].Name())
}

func TestCreateWriters_Errors(t *testing.T) {
	_, err := CreateWriters(&config.Config{Writers: []config.WriterDef{{Type: "parquet", Enabled: true}}})
	assert.ErrorContains(t, err, "unknown writer type")

	_, err = CreateWriters(&config.Config{Writers: []config.WriterDef{{Type: "test-fail", Enabled: true}}})
	assert.ErrorContains(t, err, "boom")
}

func TestRegisterWriter_Duplicate(t *testing.T) {
	assert.Panics(t, func() {
		RegisterWriter("test-ok", func(config.WriterDef) (model.Writer, error) { return nil, nil })
	})
}
