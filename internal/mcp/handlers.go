package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/legal-rag/internal/domain"
)

const (
	defaultTopK = 5
	maxTopK     = 20
)

func clampTopK(k int) int {
	switch {
	case k <= 0:
		return defaultTopK
	case k > maxTopK:
		return maxTopK
	default:
		return k
	}
}

// makeSearchHandler creates the search_documents tool handler.
// Results keep the index's order; MinScore only filters.
func makeSearchHandler(retriever Retriever) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		chunks, err := retriever.Retrieve(ctx, input.Query, clampTopK(input.TopK))
		if err != nil {
			return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]domain.RetrievedChunk, 0, len(chunks))
		for _, c := range chunks {
			if c.Score < input.MinScore {
				continue
			}
			results = append(results, c)
		}

		if len(results) == 0 {
			return nil, SearchOutput{
				Results: results,
				Message: "No matching passages found. Try broader search terms or ingest more documents.",
			}, nil
		}
		return nil, SearchOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler. An
// unreachable index is reported as unhealthy, not as a tool error.
func makeStatusHandler(index IndexInfo) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		if err := index.Health(ctx); err != nil {
			return nil, StatusOutput{Healthy: false}, nil
		}

		stats, err := index.Stats(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("index stats: %w", err)
		}
		return nil, StatusOutput{
			Name:        stats.Name,
			Backend:     stats.Backend,
			Dimension:   stats.Dimension,
			Metric:      string(stats.Metric),
			RecordCount: stats.RecordCount,
			Healthy:     true,
		}, nil
	}
}

// makeAskHandler creates the ask_documents tool handler.
func makeAskHandler(asker Asker) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		ans, err := asker.Ask(ctx, input.Question, clampTopK(input.TopK))
		if err != nil {
			return nil, AskOutput{}, fmt.Errorf("ask failed: %w", err)
		}
		citations := ans.Citations
		if citations == nil {
			citations = []domain.RetrievedChunk{}
		}
		return nil, AskOutput{Answer: ans.Answer, Citations: citations}, nil
	}
}
