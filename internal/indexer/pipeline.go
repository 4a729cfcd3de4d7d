// Package indexer turns documents into indexed chunks and answers retrieval queries.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/legal-rag/internal/chunker"
	"github.com/bull/legal-rag/internal/domain"
	"github.com/bull/legal-rag/internal/extract"
	"github.com/bull/legal-rag/internal/sanitize"
)

// Extractor produces the raw text of a document.
type Extractor interface {
	Extract(ctx context.Context, doc domain.Document) (*extract.Result, error)
}

// Embedder maps texts to vectors in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordWriter persists a batch of vector records.
type RecordWriter interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) (int, error)
}

// Processed is a document that went through extraction, redaction,
// normalisation and chunking but was not persisted.
type Processed struct {
	DocID  string
	Chunks []domain.Chunk
	Images []domain.EmbeddedImage
}

// IngestResult describes one ingested document.
type IngestResult struct {
	DocID      string
	ChunkCount int
	Images     []domain.EmbeddedImage
}

// BatchResult contains statistics about a multi-document ingestion.
type BatchResult struct {
	Total     int
	Succeeded int
	Chunks    int
	Failed    []FailedDoc
	Duration  time.Duration
}

// FailedDoc represents a document that failed to ingest.
type FailedDoc struct {
	Filename string
	Reason   string
}

// Pipeline orchestrates ingestion from raw bytes to the vector index.
type Pipeline struct {
	extractor Extractor
	chunker   *chunker.Chunker
	embedder  Embedder
	index     RecordWriter
	logger    *slog.Logger
	newID     func() string
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	extractor Extractor,
	chunker *chunker.Chunker,
	embedder Embedder,
	index RecordWriter,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Process extracts, redacts, normalises and chunks doc without embedding or
// storing anything. A document without an id gets a fresh one.
func (p *Pipeline) Process(ctx context.Context, doc domain.Document) (*Processed, error) {
	if doc.ID == "" {
		doc.ID = p.newID()
	}

	extracted, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.Filename, err)
	}

	text := sanitize.Normalize(sanitize.Redact(extracted.Text))

	chunks, err := p.chunker.Chunk(doc.ID, text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Filename, err)
	}
	p.logger.Debug("Processed document", "doc_id", doc.ID, "pages", len(extracted.Pages), "chunks", len(chunks))

	return &Processed{DocID: doc.ID, Chunks: chunks, Images: extracted.Images}, nil
}

// Ingest assigns doc a fresh id, processes it, embeds every chunk and
// upserts all records in one batch. Nothing is written unless every step
// before the upsert succeeded.
func (p *Pipeline) Ingest(ctx context.Context, doc domain.Document) (*IngestResult, error) {
	start := time.Now()
	doc.ID = p.newID()

	processed, err := p.Process(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(processed.Chunks) == 0 {
		return nil, fmt.Errorf("%w: %s: no text after normalisation", domain.ErrExtraction, doc.Filename)
	}

	texts := make([]string, len(processed.Chunks))
	for i, chunk := range processed.Chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", doc.ID, err)
	}
	if len(vectors) != len(processed.Chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks of %s",
			domain.ErrEmbedding, len(vectors), len(processed.Chunks), doc.ID)
	}

	records := make([]domain.VectorRecord, len(processed.Chunks))
	for i, chunk := range processed.Chunks {
		records[i] = domain.NewVectorRecord(chunk, vectors[i])
	}

	stored, err := p.index.Upsert(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("store chunks of %s: %w", doc.ID, err)
	}

	p.logger.Info("Ingested document",
		"doc_id", doc.ID,
		"type", doc.Type,
		"chunks", stored,
		"images", len(processed.Images),
		"duration", time.Since(start),
	)
	return &IngestResult{DocID: doc.ID, ChunkCount: stored, Images: processed.Images}, nil
}

// IngestAll ingests every document, recording failures and moving on.
// It stops early only when ctx is done.
func (p *Pipeline) IngestAll(ctx context.Context, docs []domain.Document) (*BatchResult, error) {
	start := time.Now()
	result := &BatchResult{Total: len(docs)}
	p.logger.Info("Starting ingestion", "documents", len(docs))

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		ingested, err := p.Ingest(ctx, doc)
		if err != nil {
			p.logger.Warn("Failed to ingest document", "filename", doc.Filename, "error", err)
			result.Failed = append(result.Failed, FailedDoc{
				Filename: doc.Filename,
				Reason:   err.Error(),
			})
			continue
		}
		result.Succeeded++
		result.Chunks += ingested.ChunkCount
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete",
		"successful", result.Succeeded,
		"failed", len(result.Failed),
		"chunks", result.Chunks,
		"duration", result.Duration,
	)
	return result, nil
}
