package embedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legal-rag/internal/domain"
)

// fakeProvider encodes each text's numeric suffix as a one-element vector.
type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	failures int // leading calls that fail
	failWith error
	short    bool
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if call <= f.failures {
		return nil, f.failWith
	}
	if f.short {
		return [][]float32{{1}}, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		n, err := strconv.Atoi(t)
		if err != nil {
			return nil, err
		}
		out[i] = []float32{float32(n)}
	}
	return out, nil
}

func numberedTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	return texts
}

func TestEmbedder_PreservesOrderAcrossBatches(t *testing.T) {
	provider := &fakeProvider{}
	e := NewEmbedder(provider, WithBatchSize(7), WithWorkers(3))

	vectors, err := e.Embed(context.Background(), numberedTexts(50))
	require.NoError(t, err)
	require.Len(t, vectors, 50)
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i)}, v, "vector %d out of order", i)
	}
	assert.Equal(t, 8, provider.calls)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	provider := &fakeProvider{}
	vectors, err := NewEmbedder(provider).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Zero(t, provider.calls)
}

func TestEmbedder_RetriesRetryableErrors(t *testing.T) {
	provider := &fakeProvider{
		failures: 2,
		failWith: domain.Transient(fmt.Errorf("%w: throttled", domain.ErrEmbedding)),
	}
	e := NewEmbedder(provider, WithMaxElapsed(10*time.Second))

	vectors, err := e.Embed(context.Background(), []string{"4"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{4}}, vectors)
	assert.Equal(t, 3, provider.calls)
}

func TestEmbedder_TerminalErrorNotRetried(t *testing.T) {
	provider := &fakeProvider{
		failures: 5,
		failWith: fmt.Errorf("%w: invalid model", domain.ErrEmbedding),
	}
	e := NewEmbedder(provider)

	_, err := e.Embed(context.Background(), []string{"1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, 1, provider.calls)
}

func TestEmbedder_CountMismatchFails(t *testing.T) {
	e := NewEmbedder(&fakeProvider{short: true})

	_, err := e.Embed(context.Background(), []string{"1", "2"})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestEmbedder_CancelledContext(t *testing.T) {
	provider := &fakeProvider{
		failures: 100,
		failWith: domain.Transient(errors.New("unavailable")),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbedder(provider).Embed(ctx, []string{"1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.False(t, domain.IsRetryable(err))
	assert.LessOrEqual(t, provider.calls, 1)
}

func TestEmbedder_DeadlineDuringRetryKeepsClass(t *testing.T) {
	provider := &fakeProvider{
		failures: 1000,
		failWith: domain.Transient(fmt.Errorf("%w: throttled", domain.ErrEmbedding)),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewEmbedder(provider).Embed(ctx, []string{"1"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.True(t, domain.IsRetryable(err))
}

func TestEmbedder_RateLimiterDeadlineIsRetryable(t *testing.T) {
	provider := &fakeProvider{}
	e := NewEmbedder(provider, WithBatchSize(1), WithWorkers(1), WithRateLimit(0.01, 1))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := e.Embed(ctx, []string{"1", "2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, 1, provider.calls)
}

func TestEmbedder_EmbedQuery(t *testing.T) {
	vec, err := NewEmbedder(&fakeProvider{}).EmbedQuery(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, []float32{12}, vec)
}

func TestEmbedder_RateLimitedStillCompletes(t *testing.T) {
	var calls atomic.Int32
	provider := &countingProvider{calls: &calls}
	e := NewEmbedder(provider, WithBatchSize(1), WithRateLimit(1000, 1))

	_, err := e.Embed(context.Background(), numberedTexts(5))
	require.NoError(t, err)
	assert.Equal(t, int32(5), calls.Load())
}

type countingProvider struct {
	calls *atomic.Int32
}

func (c *countingProvider) Name() string { return "counting" }

func (c *countingProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(1)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2}
	}
	return out, nil
}
