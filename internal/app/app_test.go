package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/config"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/dialog"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/orchestrator"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/transcript"
)

func TestNewWithTranscript(t *testing.T) {
	cfg := config.Default()
	cfg.Transcript.Enabled = true
	cfg.Transcript.Path = filepath.Join(t.TempDir(), "t.db")

	a, err := New(cfg)
	require.NoError(t, err)
	a.Start()

	res := a.Engine.Process(context.Background(), orchestrator.Message{SessionID: "cli", Text: "Qual o preço do almoço?"})
	assert.Equal(t, dialog.TypeAnswer, res.Response.Type)
	assert.Equal(t, 1, a.Store.Len())

	a.Close()

	ts, err := transcript.Open(cfg.Transcript.Path)
	require.NoError(t, err)
	defer ts.Close()

	records, err := ts.List(context.Background(), "cli", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Qual o preço do almoço?", records[0].UserMessage)
}

func TestNewWithoutTranscript(t *testing.T) {
	a, err := New(config.Default())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Transcripts())

	families, err := a.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewMissingCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(cfg)
	assert.ErrorContains(t, err, "load catalog")
}
