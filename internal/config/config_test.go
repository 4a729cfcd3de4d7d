package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legal-rag/internal/domain"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500, cfg.Chunking.MaxChars)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 3072, cfg.Embedding.Dimension)
	assert.True(t, cfg.Extract.OCR)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedding:
  provider: openai
  dimension: 1536
index:
  backend: sqlite
  sqlite_path: /tmp/x.db
chunking:
  max_chars: 800
extract:
  ocr: false
`), 0o644))

	cfg := Default()
	require.NoError(t, cfg.mergeFile(path))

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, "/tmp/x.db", cfg.Index.SQLitePath)
	assert.Equal(t, 800, cfg.Chunking.MaxChars)
	assert.False(t, cfg.Extract.OCR)
	// untouched keys keep their defaults
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 6334, cfg.Index.Qdrant.Port)
	assert.Equal(t, 10, cfg.Index.Qdrant.OpTimeoutSecs)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[index]
name = "contracts"
metric = "euclidean"

[retrieval]
top_k = 8
`), 0o644))

	cfg := Default()
	require.NoError(t, cfg.mergeFile(path))

	assert.Equal(t, "contracts", cfg.Index.Name)
	assert.Equal(t, "euclidean", cfg.Index.Metric)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	ini := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(ini, []byte("x=1"), 0o644))
	assert.ErrorIs(t, Default().mergeFile(ini), domain.ErrInvalidConfig)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("chunking: [unclosed"), 0o644))
	assert.ErrorIs(t, Default().mergeFile(bad), domain.ErrInvalidConfig)

	assert.Error(t, Default().mergeFile(filepath.Join(dir, "missing.yaml")))
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"GEMINI_API_KEY":         "gem",
		"OPENAI_API_KEY":         "oa",
		"INDEX_BACKEND":          "SQLite",
		"PINECONE_INDEX_NAME":    "legacy-name",
		"PINECONE_ENV":           "eu-west-1",
		"QDRANT_PORT":            "7000",
		"QDRANT_OP_TIMEOUT_SECS": "3",
		"PORT":                   "9090",
		"GITHUB_TOKEN":           "ghp",
		"LOG_LEVEL":              "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, "gem", cfg.Embedding.APIKey)
	assert.Equal(t, "oa", cfg.Generation.APIKey)
	assert.Equal(t, "sqlite", cfg.Index.Backend)
	assert.Equal(t, "legacy-name", cfg.Index.Name)
	assert.Equal(t, "eu-west-1", cfg.Index.Region)
	assert.Equal(t, 7000, cfg.Index.Qdrant.Port)
	assert.Equal(t, 3, cfg.Index.Qdrant.OpTimeoutSecs)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ghp", cfg.GitHub.Token)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestApplyEnv_PrefersPrimaryNames(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{
		"GOOGLE_API_KEY":      "google",
		"GEMINI_API_KEY":      "gemini",
		"INDEX_NAME":          "primary",
		"PINECONE_INDEX_NAME": "alias",
	})))
	assert.Equal(t, "google", cfg.Embedding.APIKey)
	assert.Equal(t, "primary", cfg.Index.Name)
}

func TestApplyEnv_OpenAIEmbeddingKey(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{
		"EMBEDDING_PROVIDER": "openai",
		"GOOGLE_API_KEY":     "google",
		"OPENAI_API_KEY":     "oa",
	})))
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "oa", cfg.Embedding.APIKey)
}

func TestApplyEnv_IgnoresChunkAndTopK(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{
		"CHUNK_SIZE": "10",
		"MAX_CHARS":  "10",
		"TOP_K":      "1",
	})))
	assert.Equal(t, 500, cfg.Chunking.MaxChars)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestApplyEnv_BadInteger(t *testing.T) {
	err := Default().applyEnv(envMap(map[string]string{"QDRANT_PORT": "six"}))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"provider":   func(c *Config) { c.Embedding.Provider = "cohere" },
		"dimension":  func(c *Config) { c.Embedding.Dimension = 0 },
		"backend":    func(c *Config) { c.Index.Backend = "pinecone" },
		"name":       func(c *Config) { c.Index.Name = " " },
		"metric":     func(c *Config) { c.Index.Metric = "jaccard" },
		"max chars":  func(c *Config) { c.Chunking.MaxChars = -1 },
		"top k":      func(c *Config) { c.Retrieval.TopK = 0 },
		"dpi":        func(c *Config) { c.Extract.RenderDPI = 0 },
		"port":       func(c *Config) { c.Server.Port = 70000 },
		"mode":       func(c *Config) { c.Server.Mode = "grpc" },
		"op timeout": func(c *Config) { c.Index.Qdrant.OpTimeoutSecs = -1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfig)
		})
	}
}

func TestSlogLevelFallback(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
