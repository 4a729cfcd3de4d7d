package api

import (
	"log/slog"
	"net/http"

	"github.com/bull/legal-rag/internal/indexer"
)

// Options wires the handlers to their services. Asker and MCP may be nil.
type Options struct {
	Ingester  Ingester
	Retriever Retriever
	Asker     Asker
	Health    HealthChecker
	MCP       http.Handler
	TopK      int
	// MaxUpload caps upload bodies in bytes. Defaults to MaxUploadBytes.
	MaxUpload int64
	Logger    *slog.Logger
}

// NewRouter returns a mux serving every endpoint.
func NewRouter(opts Options) *http.ServeMux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = indexer.DefaultTopK
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = MaxUploadBytes
	}

	h := &handlers{
		ingester:  opts.Ingester,
		retriever: opts.Retriever,
		asker:     opts.Asker,
		topK:      opts.TopK,
		maxUpload: opts.MaxUpload,
		logger:    opts.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ingest", h.ingest)
	mux.HandleFunc("POST /process", h.process)
	mux.HandleFunc("POST /query", h.query)
	mux.HandleFunc("POST /ask", h.ask)
	mux.HandleFunc("GET /health", NewHealthHandler(opts.Health))
	if opts.MCP != nil {
		mux.Handle("/mcp", opts.MCP)
	}
	mux.HandleFunc("GET /{$}", NewLandingHandler())
	return mux
}
