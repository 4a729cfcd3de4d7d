package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/domain"
	"github.com/bull/legal-rag/internal/storage"
)

type mockRetriever struct {
	chunks []domain.RetrievedChunk
	err    error
	topK   int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, topK int) ([]domain.RetrievedChunk, error) {
	m.topK = topK
	return m.chunks, m.err
}

type mockIndex struct {
	stats     *storage.Stats
	healthErr error
	statsErr  error
}

func (m *mockIndex) Stats(context.Context) (*storage.Stats, error) { return m.stats, m.statsErr }
func (m *mockIndex) Health(context.Context) error                  { return m.healthErr }

type mockAsker struct {
	ans *answer.Answer
	err error
}

func (m *mockAsker) Ask(context.Context, string, int) (*answer.Answer, error) { return m.ans, m.err }

func TestSearchHandler(t *testing.T) {
	ctx := context.Background()
	chunks := []domain.RetrievedChunk{
		{ID: "d-2", Text: "Rent is due on the 1st.", Score: 0.9},
		{ID: "d-0", Text: "Parties.", Score: 0.6},
		{ID: "d-5", Text: "Signatures.", Score: 0.2},
	}

	t.Run("returns chunks in order", func(t *testing.T) {
		r := &mockRetriever{chunks: chunks}
		_, out, err := makeSearchHandler(r)(ctx, nil, SearchInput{Query: "rent"})
		require.NoError(t, err)
		assert.Equal(t, chunks, out.Results)
		assert.Empty(t, out.Message)
		assert.Equal(t, defaultTopK, r.topK)
	})

	t.Run("filters by min score", func(t *testing.T) {
		_, out, err := makeSearchHandler(&mockRetriever{chunks: chunks})(ctx, nil, SearchInput{Query: "rent", MinScore: 0.5})
		require.NoError(t, err)
		require.Len(t, out.Results, 2)
		assert.Equal(t, "d-2", out.Results[0].ID)
		assert.Equal(t, "d-0", out.Results[1].ID)
	})

	t.Run("clamps top k", func(t *testing.T) {
		r := &mockRetriever{}
		_, _, err := makeSearchHandler(r)(ctx, nil, SearchInput{Query: "rent", TopK: 500})
		require.NoError(t, err)
		assert.Equal(t, maxTopK, r.topK)
	})

	t.Run("empty result has message", func(t *testing.T) {
		_, out, err := makeSearchHandler(&mockRetriever{})(ctx, nil, SearchInput{Query: "rent"})
		require.NoError(t, err)
		assert.NotNil(t, out.Results)
		assert.NotEmpty(t, out.Message)
	})

	t.Run("propagates errors", func(t *testing.T) {
		_, _, err := makeSearchHandler(&mockRetriever{err: domain.ErrInvalidInput})(ctx, nil, SearchInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestStatusHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("healthy", func(t *testing.T) {
		idx := &mockIndex{stats: &storage.Stats{
			Name:        "legal-docs",
			Backend:     "sqlite",
			Dimension:   3072,
			Metric:      storage.MetricCosine,
			RecordCount: 42,
		}}
		_, out, err := makeStatusHandler(idx)(ctx, nil, StatusInput{})
		require.NoError(t, err)
		assert.Equal(t, StatusOutput{
			Name:        "legal-docs",
			Backend:     "sqlite",
			Dimension:   3072,
			Metric:      "cosine",
			RecordCount: 42,
			Healthy:     true,
		}, out)
	})

	t.Run("unreachable index is unhealthy", func(t *testing.T) {
		_, out, err := makeStatusHandler(&mockIndex{healthErr: errors.New("down")})(ctx, nil, StatusInput{})
		require.NoError(t, err)
		assert.False(t, out.Healthy)
	})

	t.Run("stats failure", func(t *testing.T) {
		_, _, err := makeStatusHandler(&mockIndex{statsErr: domain.ErrStore})(ctx, nil, StatusInput{})
		assert.ErrorIs(t, err, domain.ErrStore)
	})
}

func TestAskHandler(t *testing.T) {
	ctx := context.Background()

	_, out, err := makeAskHandler(&mockAsker{ans: &answer.Answer{Answer: answer.NotFoundReply}})(ctx, nil, AskInput{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, answer.NotFoundReply, out.Answer)
	assert.NotNil(t, out.Citations)

	_, _, err = makeAskHandler(&mockAsker{err: answer.ErrGeneration})(ctx, nil, AskInput{Question: "q"})
	assert.ErrorIs(t, err, answer.ErrGeneration)
}

func TestNewServer(t *testing.T) {
	s := NewServer(&Config{Retriever: &mockRetriever{}, Index: &mockIndex{}})
	require.NotNil(t, s.MCPServer())

	s = NewServer(&Config{Retriever: &mockRetriever{}, Index: &mockIndex{}, Asker: &mockAsker{}})
	require.NotNil(t, s.MCPServer())
	assert.NotNil(t, NewHTTPHandler(s, nil))
}
