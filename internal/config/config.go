// Package config loads service configuration from defaults, an optional
// YAML or TOML file and the environment, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bull/legal-rag/internal/domain"
	"github.com/bull/legal-rag/internal/storage"
)

// EmbeddingConfig selects and configures the embedding service.
type EmbeddingConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	APIKey      string  `yaml:"api_key" toml:"api_key"`
	Model       string  `yaml:"model" toml:"model"`
	BaseURL     string  `yaml:"base_url" toml:"base_url"`
	Dimension   int     `yaml:"dimension" toml:"dimension"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs"`
	BatchSize   int     `yaml:"batch_size" toml:"batch_size"`
	Workers     int     `yaml:"workers" toml:"workers"`
	RateLimit   float64 `yaml:"rate_limit" toml:"rate_limit"` // requests per second, 0 = unlimited
}

// QdrantConfig contains connection details for a Qdrant server.
type QdrantConfig struct {
	Host          string `yaml:"host" toml:"host"`
	Port          int    `yaml:"port" toml:"port"`
	APIKey        string `yaml:"api_key" toml:"api_key"`
	UseTLS        bool   `yaml:"use_tls" toml:"use_tls"`
	OpTimeoutSecs int    `yaml:"op_timeout_secs" toml:"op_timeout_secs"` // per gRPC call
}

// IndexConfig selects and configures the vector index.
type IndexConfig struct {
	Backend    string       `yaml:"backend" toml:"backend"`
	Name       string       `yaml:"name" toml:"name"`
	Metric     string       `yaml:"metric" toml:"metric"`
	Cloud      string       `yaml:"cloud" toml:"cloud"`
	Region     string       `yaml:"region" toml:"region"`
	Qdrant     QdrantConfig `yaml:"qdrant" toml:"qdrant"`
	SQLitePath string       `yaml:"sqlite_path" toml:"sqlite_path"`
}

// ExtractConfig configures PDF text extraction and OCR.
type ExtractConfig struct {
	OCR         bool   `yaml:"ocr" toml:"ocr"`
	OCRLanguage string `yaml:"ocr_language" toml:"ocr_language"`
	RenderDPI   int    `yaml:"render_dpi" toml:"render_dpi"`
	Workers     int    `yaml:"workers" toml:"workers"`
	TempDir     string `yaml:"temp_dir" toml:"temp_dir"`
}

// ChunkingConfig bounds chunk size.
type ChunkingConfig struct {
	MaxChars int `yaml:"max_chars" toml:"max_chars"`
}

// RetrievalConfig sets query defaults.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" toml:"top_k"`
}

// ServerConfig configures the HTTP and MCP server.
type ServerConfig struct {
	Port int    `yaml:"port" toml:"port"`
	Mode string `yaml:"mode" toml:"mode"` // "http" or "stdio"
}

// GenerationConfig configures answer generation. Without an API key the
// ask endpoints are disabled.
type GenerationConfig struct {
	APIKey          string `yaml:"api_key" toml:"api_key"`
	Model           string `yaml:"model" toml:"model"`
	MaxContextChars int    `yaml:"max_context_chars" toml:"max_context_chars"`
}

// GitHubConfig holds GitHub credentials for repository ingestion.
type GitHubConfig struct {
	Token string `yaml:"token" toml:"token"`
}

// Config is the root configuration.
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding" toml:"embedding"`
	Index      IndexConfig      `yaml:"index" toml:"index"`
	Extract    ExtractConfig    `yaml:"extract" toml:"extract"`
	Chunking   ChunkingConfig   `yaml:"chunking" toml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" toml:"retrieval"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Generation GenerationConfig `yaml:"generation" toml:"generation"`
	GitHub     GitHubConfig     `yaml:"github" toml:"github"`
	LogLevel   string           `yaml:"log_level" toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:    "gemini",
			Dimension:   3072,
			TimeoutSecs: 30,
			BatchSize:   100,
			Workers:     4,
		},
		Index: IndexConfig{
			Backend:    "qdrant",
			Name:       storage.DefaultIndexName,
			Metric:     string(storage.MetricCosine),
			Cloud:      "aws",
			Region:     "us-east-1",
			Qdrant:     QdrantConfig{Host: "localhost", Port: 6334, OpTimeoutSecs: 10},
			SQLitePath: filepath.Join("data", "legal-rag.db"),
		},
		Extract: ExtractConfig{
			OCR:         true,
			OCRLanguage: "eng",
			RenderDPI:   150,
			Workers:     4,
		},
		Chunking:   ChunkingConfig{MaxChars: 500},
		Retrieval:  RetrievalConfig{TopK: 5},
		Server:     ServerConfig{Port: 8080, Mode: "http"},
		Generation: GenerationConfig{Model: "gpt-4o-mini", MaxContextChars: 64000},
		LogLevel:   "info",
	}
}

// Load builds a Config from defaults, the file at path (skipped when path
// is empty) and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: unsupported config format %q", domain.ErrInvalidConfig, filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidConfig, path, err)
	}
	return nil
}

// applyEnv overlays environment variables. Chunk size and top_k are never
// taken from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(keys ...string) (string, bool) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				return v, true
			}
		}
		return "", false
	}
	getInt := func(key string, dst *int) error {
		v, ok := get(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, key, v)
		}
		*dst = n
		return nil
	}

	if v, ok := get("EMBEDDING_PROVIDER"); ok {
		c.Embedding.Provider = strings.ToLower(v)
	}
	switch c.Embedding.Provider {
	case "openai":
		if v, ok := get("OPENAI_API_KEY"); ok {
			c.Embedding.APIKey = v
		}
	default:
		if v, ok := get("GOOGLE_API_KEY", "GEMINI_API_KEY"); ok {
			c.Embedding.APIKey = v
		}
	}
	if v, ok := get("OPENAI_API_KEY"); ok {
		c.Generation.APIKey = v
	}

	if v, ok := get("INDEX_BACKEND"); ok {
		c.Index.Backend = strings.ToLower(v)
	}
	if v, ok := get("INDEX_NAME", "PINECONE_INDEX_NAME"); ok {
		c.Index.Name = v
	}
	if v, ok := get("INDEX_REGION", "PINECONE_ENV"); ok {
		c.Index.Region = v
	}
	if v, ok := get("INDEX_CLOUD"); ok {
		c.Index.Cloud = v
	}
	if v, ok := get("QDRANT_HOST"); ok {
		c.Index.Qdrant.Host = v
	}
	if err := getInt("QDRANT_PORT", &c.Index.Qdrant.Port); err != nil {
		return err
	}
	if err := getInt("QDRANT_OP_TIMEOUT_SECS", &c.Index.Qdrant.OpTimeoutSecs); err != nil {
		return err
	}
	if v, ok := get("QDRANT_API_KEY", "PINECONE_API_KEY"); ok {
		c.Index.Qdrant.APIKey = v
	}
	if v, ok := get("SQLITE_PATH"); ok {
		c.Index.SQLitePath = v
	}

	if err := getInt("PORT", &c.Server.Port); err != nil {
		return err
	}
	if v, ok := get("SERVER_MODE"); ok {
		c.Server.Mode = strings.ToLower(v)
	}
	if v, ok := get("GITHUB_TOKEN"); ok {
		c.GitHub.Token = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	return nil
}

// Validate reports the first invalid setting as domain.ErrInvalidConfig.
// Credentials are checked later, by the component that needs them.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...)
	}

	switch c.Embedding.Provider {
	case "gemini", "openai":
	default:
		return invalid("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return invalid("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}

	switch c.Index.Backend {
	case "qdrant", "sqlite":
	default:
		return invalid("unknown index backend %q", c.Index.Backend)
	}
	if strings.TrimSpace(c.Index.Name) == "" {
		return invalid("index name is required")
	}
	if _, err := storage.ParseMetric(c.Index.Metric); err != nil {
		return err
	}
	if c.Index.Qdrant.OpTimeoutSecs < 0 {
		return invalid("index.qdrant.op_timeout_secs must not be negative, got %d", c.Index.Qdrant.OpTimeoutSecs)
	}

	if c.Chunking.MaxChars <= 0 {
		return invalid("chunking.max_chars must be positive, got %d", c.Chunking.MaxChars)
	}
	if c.Retrieval.TopK <= 0 {
		return invalid("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Extract.RenderDPI <= 0 {
		return invalid("extract.render_dpi must be positive, got %d", c.Extract.RenderDPI)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return invalid("server port %d out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "http", "stdio":
	default:
		return invalid("unknown server mode %q", c.Server.Mode)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
