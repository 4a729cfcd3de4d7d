package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session tracking; every request stands alone.
	Stateless bool
}

// NewHTTPHandler serves s over Streamable HTTP. Mount it at /mcp.
func NewHTTPHandler(s *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.MCPServer()
	}, &mcp.StreamableHTTPOptions{Stateless: opts.Stateless})
}
