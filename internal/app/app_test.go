package app

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legal-rag/internal/config"
	"github.com/bull/legal-rag/internal/domain"
	"github.com/bull/legal-rag/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Embedding.APIKey = "test-key"
	cfg.Embedding.Dimension = 4
	cfg.Index.Backend = "sqlite"
	cfg.Index.SQLitePath = filepath.Join(t.TempDir(), "index.db")
	cfg.Extract.OCR = false
	return cfg
}

func quietLogger() *slog.Logger {
	return NewLogger(&bytes.Buffer{}, slog.LevelError)
}

func TestNew_SQLiteWithoutGeneration(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Pipeline)
	assert.NotNil(t, a.Retriever)
	assert.NotNil(t, a.GitHub)
	assert.Nil(t, a.Answers)

	stats, err := a.Index.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultIndexName, stats.Name)
	assert.Equal(t, 4, stats.Dimension)
	assert.Zero(t, stats.RecordCount)
}

func TestNew_WithGeneration(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.APIKey = "sk-test"

	a, err := New(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Answers)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunking.MaxChars = 0

	_, err := New(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNew_MissingEmbeddingKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.APIKey = ""

	_, err := New(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestOpenIndex_DimensionChange(t *testing.T) {
	cfg := testConfig(t)

	index, err := OpenIndex(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, index.Close())

	cfg.Embedding.Dimension = 8
	_, err = OpenIndex(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, domain.ErrIndexConfig)
}

func TestIndexSpec(t *testing.T) {
	cfg := config.Default()
	cfg.Index.Name = "contracts"
	cfg.Index.Metric = "euclidean"

	spec := IndexSpec(cfg)
	assert.Equal(t, "contracts", spec.Name)
	assert.Equal(t, 3072, spec.Dimension)
	assert.Equal(t, storage.MetricEuclidean, spec.Metric)
	assert.Equal(t, "us-east-1", spec.Region)
}

func TestNewProvider(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	cfg.Embedding.Provider = "openai"
	p, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}
