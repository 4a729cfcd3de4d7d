// Package embedding maps text to fixed-dimension vectors through an external embedding service.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bull/legal-rag/internal/domain"
)

const (
	// DefaultBatchSize keeps request bodies well under provider limits
	// (Gemini accepts at most 100 requests per batch).
	DefaultBatchSize = 100

	// DefaultWorkers is the number of batches in flight at once.
	DefaultWorkers = 4
)

// Embedder batches texts, embeds batches concurrently and retries
// retryable failures with exponential backoff. Output order always
// matches input order.
type Embedder struct {
	provider   Provider
	batchSize  int
	workers    int
	limiter    *rate.Limiter
	maxElapsed time.Duration
	logger     *slog.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithBatchSize sets the number of texts per request.
func WithBatchSize(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithWorkers sets the number of concurrent requests.
func WithWorkers(n int) Option {
	return func(e *Embedder) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithRateLimit caps requests per second. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Embedder) {
		if rps <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxElapsed bounds the total time spent retrying one batch.
func WithMaxElapsed(d time.Duration) Option {
	return func(e *Embedder) {
		e.maxElapsed = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEmbedder creates a new Embedder around provider.
func NewEmbedder(provider Provider, opts ...Option) *Embedder {
	e := &Embedder{
		provider:   provider,
		batchSize:  DefaultBatchSize,
		workers:    DefaultWorkers,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		maxElapsed: 30 * time.Second,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			batch, err := e.embedBatchWithRetry(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery embeds a single text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatchWithRetry embeds one batch. Retryable errors back off and retry;
// anything else fails immediately.
func (e *Embedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			err = fmt.Errorf("%w: rate limiter: %w", domain.ErrEmbedding, err)
			if !errors.Is(err, context.Canceled) {
				err = domain.Transient(err)
			}
			return backoff.Permanent(err)
		}

		out, err := e.provider.EmbedBatch(ctx, texts)
		if err != nil {
			if domain.IsRetryable(err) && ctx.Err() == nil {
				e.logger.Warn("Embedding request failed, retrying", "provider", e.provider.Name(), "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		if len(out) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: %s returned %d vectors for %d texts",
				domain.ErrEmbedding, e.provider.Name(), len(out), len(texts)))
		}
		for i, v := range out {
			if len(v) == 0 {
				return backoff.Permanent(fmt.Errorf("%w: %s returned an empty vector at %d",
					domain.ErrEmbedding, e.provider.Name(), i))
			}
		}
		vectors = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = e.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		// Retry hands back the bare context error when ctx ends mid-wait.
		if !errors.Is(err, domain.ErrEmbedding) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		return nil, err
	}
	return vectors, nil
}
