package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/domain"
	"github.com/bull/legal-rag/internal/storage"
)

// Version is reported to MCP clients.
const Version = "v0.1.0"

// Retriever finds the chunks most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error)
}

// IndexInfo reports on the vector index.
type IndexInfo interface {
	Stats(ctx context.Context) (*storage.Stats, error)
	Health(ctx context.Context) error
}

// Asker answers a question from retrieved chunks.
type Asker interface {
	Ask(ctx context.Context, question string, topK int) (*answer.Answer, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	logger *slog.Logger
}

// Config holds server dependencies. Asker is optional; without it the
// ask_documents tool is not registered.
type Config struct {
	Retriever Retriever
	Index     IndexInfo
	Asker     Asker
	Logger    *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "legal-rag",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over the ingested legal documents. Returns the most similar text chunks with their scores. Personal data in the chunks is redacted.",
	}, makeSearchHandler(cfg.Retriever))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report the vector index name, backend, dimension, metric, record count and health.",
	}, makeStatusHandler(cfg.Index))

	if cfg.Asker != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "ask_documents",
			Description: "Answer a question using only the ingested legal documents, citing the chunks used.",
		}, makeAskHandler(cfg.Asker))
	}

	return &Server{server: server, logger: logger}
}

// Run serves over stdio until the client disconnects or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Serving MCP over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
