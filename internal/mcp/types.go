// Package mcp exposes retrieval over the indexed legal documents as MCP tools.
package mcp

import "github.com/bull/legal-rag/internal/domain"

// SearchInput defines the input parameters for the search_documents tool.
type SearchInput struct {
	Query    string  `json:"query" jsonschema:"natural-language question or phrase to search the documents for"`
	TopK     int     `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5, at most 20)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"drop chunks scoring below this similarity"`
}

// SearchOutput contains the matching chunks, best first.
type SearchOutput struct {
	Results []domain.RetrievedChunk `json:"results"`
	// Message explains an empty result.
	Message string `json:"message,omitempty"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the vector index.
type StatusOutput struct {
	Name        string `json:"name"`
	Backend     string `json:"backend"`
	Dimension   int    `json:"dimension"`
	Metric      string `json:"metric"`
	RecordCount uint64 `json:"record_count"`
	Healthy     bool   `json:"healthy"`
}

// AskInput defines the input parameters for the ask_documents tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"question to answer from the indexed documents"`
	TopK     int    `json:"top_k,omitempty" jsonschema:"number of chunks to ground the answer on (default 5)"`
}

// AskOutput is a grounded answer with the chunks it cites.
type AskOutput struct {
	Answer    string                  `json:"answer"`
	Citations []domain.RetrievedChunk `json:"citations"`
}
