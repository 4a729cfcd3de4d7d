// Package app builds the service graph from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/chunker"
	"github.com/bull/legal-rag/internal/config"
	"github.com/bull/legal-rag/internal/embedding"
	"github.com/bull/legal-rag/internal/extract"
	"github.com/bull/legal-rag/internal/indexer"
	"github.com/bull/legal-rag/internal/source"
	"github.com/bull/legal-rag/internal/storage"
)

// App holds every service handle the binaries need.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Index     storage.Index
	Pipeline  *indexer.Pipeline
	Retriever *indexer.Retriever
	Answers   *answer.Service // nil when generation is not configured
	GitHub    *source.GitHubClient
}

// NewLogger returns a text logger on w at level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// IndexSpec derives the index spec from cfg. An unparseable metric falls
// back to cosine; Validate rejects it earlier.
func IndexSpec(cfg *config.Config) storage.IndexSpec {
	metric, err := storage.ParseMetric(cfg.Index.Metric)
	if err != nil {
		metric = storage.MetricCosine
	}
	return storage.IndexSpec{
		Name:      cfg.Index.Name,
		Dimension: cfg.Embedding.Dimension,
		Metric:    metric,
		Cloud:     cfg.Index.Cloud,
		Region:    cfg.Index.Region,
	}
}

// OpenIndex connects to the configured backend and ensures the index exists.
func OpenIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Index, error) {
	var (
		index storage.Index
		err   error
	)
	switch cfg.Index.Backend {
	case "sqlite":
		index, err = storage.NewSQLiteStore(cfg.Index.SQLitePath, logger)
	case "qdrant":
		index, err = storage.NewQdrantStore(ctx, storage.QdrantConfig{
			Host:      cfg.Index.Qdrant.Host,
			Port:      cfg.Index.Qdrant.Port,
			APIKey:    cfg.Index.Qdrant.APIKey,
			UseTLS:    cfg.Index.Qdrant.UseTLS,
			OpTimeout: time.Duration(cfg.Index.Qdrant.OpTimeoutSecs) * time.Second,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := index.EnsureIndex(ctx, IndexSpec(cfg)); err != nil {
		index.Close()
		return nil, fmt.Errorf("ensure index: %w", err)
	}
	return index, nil
}

// NewProvider builds the configured embedding provider.
func NewProvider(cfg *config.Config) (embedding.Provider, error) {
	timeout := time.Duration(cfg.Embedding.TimeoutSecs) * time.Second
	if cfg.Embedding.Provider == "openai" {
		p, err := embedding.NewOpenAIProvider(embedding.OpenAIConfig{
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   timeout,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	p, err := embedding.NewGeminiProvider(embedding.GeminiConfig{
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   timeout,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// NewExtractor builds an extractor using whatever PDF and OCR tools are
// installed. Missing tools disable the feature with a warning.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *extract.Extractor {
	runner := extract.ExecRunner{}

	var pages extract.PageSource
	if err := extract.CheckTools("pdfinfo", "pdftotext", "pdftoppm", "pdfimages"); err != nil {
		logger.Warn("PDF support disabled", "error", err)
	} else {
		poppler := extract.NewPoppler(runner, cfg.Extract.RenderDPI)
		poppler.TempDir = cfg.Extract.TempDir
		pages = poppler
	}

	var ocr extract.OCR
	if cfg.Extract.OCR {
		if err := extract.CheckTools("tesseract"); err != nil {
			logger.Warn("OCR disabled", "error", err)
		} else {
			tesseract := extract.NewTesseract(runner, cfg.Extract.OCRLanguage)
			tesseract.TempDir = cfg.Extract.TempDir
			ocr = tesseract
		}
	}

	return extract.New(pages, ocr,
		extract.WithWorkers(cfg.Extract.Workers),
		extract.WithTempDir(cfg.Extract.TempDir),
		extract.WithLogger(logger),
	)
}

// New validates cfg and wires the full ingestion and retrieval stack.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	embedder := embedding.NewEmbedder(provider,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithWorkers(cfg.Embedding.Workers),
		embedding.WithRateLimit(cfg.Embedding.RateLimit, cfg.Embedding.Workers),
		embedding.WithLogger(logger),
	)

	chunks, err := chunker.NewChunker(cfg.Chunking.MaxChars)
	if err != nil {
		return nil, err
	}

	index, err := OpenIndex(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ghClient, err := source.NewGitHubClient(cfg.GitHub.Token)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("github client: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Index:     index,
		Pipeline:  indexer.NewPipeline(NewExtractor(cfg, logger), chunks, embedder, index, logger),
		Retriever: indexer.NewRetriever(embedder, index, logger),
		GitHub:    ghClient,
	}

	if cfg.Generation.APIKey != "" {
		client := openai.NewClient(option.WithAPIKey(cfg.Generation.APIKey))
		generator := answer.NewOpenAIGenerator(&client, cfg.Generation.Model)
		a.Answers = answer.NewService(a.Retriever, generator, cfg.Generation.MaxContextChars, logger)
	} else {
		logger.Info("Answer generation disabled, OPENAI_API_KEY not set")
	}

	return a, nil
}

// Close releases the index connection.
func (a *App) Close() error {
	if a.Index == nil {
		return nil
	}
	return a.Index.Close()
}
