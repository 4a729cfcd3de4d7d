//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legal-rag/internal/domain"
)

// setupTestStorage creates a Qdrant store with a throwaway collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T, dimension int) *QdrantStore {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := NewQdrantStore(ctx, QdrantConfig{Host: "localhost", Port: 6334}, nil)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	name := "test-" + uuid.NewString()
	require.NoError(t, store.EnsureIndex(context.Background(), IndexSpec{Name: name, Dimension: dimension}))
	t.Cleanup(func() {
		_ = store.client.DeleteCollection(context.Background(), name)
		store.Close()
	})
	return store
}

func TestQdrantStore_UpsertQueryRoundTrip(t *testing.T) {
	store := setupTestStorage(t, 3)
	ctx := context.Background()

	n, err := store.Upsert(ctx, []domain.VectorRecord{
		record("lease-0", "lease", 0, "Rent is due on the 1st.", 1, 0, 0),
		record("lease-1", "lease", 1, "Late fee is 5%.", 0, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := store.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "lease-0", results[0].ID)
	assert.Equal(t, "lease", results[0].DocID)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.Equal(t, "Rent is due on the 1st.", results[0].Text)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.RecordCount)
}

func TestQdrantStore_EnsureIndexDetectsMismatch(t *testing.T) {
	store := setupTestStorage(t, 3)
	spec, err := store.current()
	require.NoError(t, err)

	require.NoError(t, store.EnsureIndex(context.Background(), spec))

	spec.Dimension = 5
	err = store.EnsureIndex(context.Background(), spec)
	assert.ErrorIs(t, err, domain.ErrIndexConfig)
}

func TestQdrantStore_ResetEmptiesCollection(t *testing.T) {
	store := setupTestStorage(t, 2)
	ctx := context.Background()

	_, err := store.Upsert(ctx, []domain.VectorRecord{record("a-0", "a", 0, "x", 1, 1)})
	require.NoError(t, err)
	require.NoError(t, store.Reset(ctx))

	results, err := store.Query(ctx, []float32{1, 1}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
