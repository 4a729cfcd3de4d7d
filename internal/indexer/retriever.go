package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/legal-rag/internal/domain"
)

// DefaultTopK is the number of chunks returned when the caller does not say.
const DefaultTopK = 5

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher runs a nearest-neighbour query.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedChunk, error)
}

// Retriever answers free-text queries against the vector index.
type Retriever struct {
	embedder QueryEmbedder
	index    Searcher
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder QueryEmbedder, index Searcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, index: index, logger: logger}
}

// Retrieve embeds query and returns up to topK chunks in the index's
// similarity order, unmodified. topK 0 selects DefaultTopK.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfig, topK)
	}
	if topK == 0 {
		topK = DefaultTopK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.index.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	r.logger.Debug("Retrieved chunks", "top_k", topK, "results", len(results))
	return results, nil
}
