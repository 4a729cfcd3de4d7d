// Package storage persists embedded chunks and answers nearest-neighbour queries.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/legal-rag/internal/domain"
)

// Metric is the similarity function an index ranks by.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricDotProduct Metric = "dotproduct"
	MetricEuclidean  Metric = "euclidean"
)

// ParseMetric maps a configured metric name to a Metric. Empty means cosine.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine":
		return MetricCosine, nil
	case "dotproduct", "dot":
		return MetricDotProduct, nil
	case "euclidean", "euclid":
		return MetricEuclidean, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, s)
}

// DefaultIndexName is used when no index name is configured.
const DefaultIndexName = "legal-docs"

// IndexSpec describes the index to create or attach to. Cloud and Region are
// informational for self-hosted backends.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    Metric
	Cloud     string
	Region    string
}

// Validate rejects an unusable index definition before any backend call.
func (s IndexSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: index name is required", domain.ErrInvalidConfig)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: index dimension must be positive, got %d", domain.ErrInvalidConfig, s.Dimension)
	}
	if _, err := ParseMetric(string(s.Metric)); err != nil {
		return err
	}
	return nil
}

// Stats summarises an index.
type Stats struct {
	Name        string `json:"name"`
	Backend     string `json:"backend"`
	Dimension   int    `json:"dimension"`
	Metric      Metric `json:"metric"`
	RecordCount uint64 `json:"record_count"`
}

// Index is a vector index holding (id, vector, metadata) records.
//
// Upsert is all-or-nothing from the caller's view: the whole batch is
// accepted or an error is returned and the batch must be retried.
// Query returns results ordered by descending similarity; an empty index
// yields an empty slice, not an error.
type Index interface {
	EnsureIndex(ctx context.Context, spec IndexSpec) error
	Upsert(ctx context.Context, records []domain.VectorRecord) (int, error)
	Query(ctx context.Context, vector []float32, topK int) ([]domain.RetrievedChunk, error)
	Stats(ctx context.Context) (*Stats, error)
	Reset(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// validateRecords rejects the batch before anything is written.
func validateRecords(records []domain.VectorRecord, dimension int) error {
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("%w: record %d has no id", domain.ErrInvalidInput, i)
		}
		if len(r.Values) != dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				ErrDimensionMismatch, r.ID, len(r.Values), dimension)
		}
	}
	return nil
}

func validateQuery(vector []float32, topK, dimension int) error {
	if topK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidConfig, topK)
	}
	if len(vector) != dimension {
		return fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), dimension)
	}
	return nil
}
