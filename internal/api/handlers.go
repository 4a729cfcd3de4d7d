// Package api exposes ingestion and retrieval over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bull/legal-rag/internal/answer"
	"github.com/bull/legal-rag/internal/domain"
	"github.com/bull/legal-rag/internal/indexer"
)

// MaxUploadBytes caps the size of an uploaded document.
const MaxUploadBytes = 64 << 20

// ErrUploadTooLarge reports an upload over the configured size cap.
var ErrUploadTooLarge = errors.New("upload too large")

// Ingester runs documents through the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, doc domain.Document) (*indexer.IngestResult, error)
	Process(ctx context.Context, doc domain.Document) (*indexer.Processed, error)
}

// Retriever finds the chunks most similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error)
}

// Asker answers a question from retrieved chunks.
type Asker interface {
	Ask(ctx context.Context, question string, topK int) (*answer.Answer, error)
}

// Image is the transport form of an extracted image.
type Image struct {
	Page  int    `json:"page"`
	Index int    `json:"index"`
	Data  string `json:"data"` // base64
}

// IngestResponse is returned by POST /ingest.
type IngestResponse struct {
	DocID        string  `json:"doc_id"`
	StoredChunks int     `json:"stored_chunks"`
	Images       []Image `json:"images,omitempty"`
}

// ProcessResponse is returned by POST /process.
type ProcessResponse struct {
	DocID         string   `json:"doc_id"`
	ContentGroups []string `json:"content_groups"`
	Images        []Image  `json:"images"`
}

// QueryRequest is the body of POST /query and POST /ask.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// QueryResponse is returned by POST /query.
type QueryResponse struct {
	TopChunks []domain.RetrievedChunk `json:"top_chunks"`
}

type handlers struct {
	ingester  Ingester
	retriever Retriever
	asker     Asker
	topK      int
	maxUpload int64
	logger    *slog.Logger
}

func toImages(images []domain.EmbeddedImage) []Image {
	out := make([]Image, len(images))
	for i, img := range images {
		out[i] = Image{Page: img.Page, Index: img.Index, Data: img.Base64()}
	}
	return out
}

// readUpload reads the multipart field "file" into a Document.
func (h *handlers) readUpload(w http.ResponseWriter, r *http.Request) (domain.Document, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Document{}, fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, tooLarge.Limit)
		}
		return domain.Document{}, fmt.Errorf("%w: parse upload: %w", domain.ErrInvalidInput, err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: form field \"file\" is required", domain.ErrInvalidInput)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: read upload: %w", domain.ErrInvalidInput, err)
	}
	if len(content) == 0 {
		return domain.Document{}, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, header.Filename)
	}
	return domain.NewDocument(header.Filename, content), nil
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		h.logger.Debug("Request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err)
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	includeImages := false
	if v := r.URL.Query().Get("include_images"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: include_images=%q", domain.ErrInvalidInput, v))
			return
		}
		includeImages = b
	}

	doc, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.ingester.Ingest(r.Context(), doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := IngestResponse{DocID: result.DocID, StoredChunks: result.ChunkCount}
	if includeImages {
		resp.Images = toImages(result.Images)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) process(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readUpload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	processed, err := h.ingester.Process(r.Context(), doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	groups := make([]string, len(processed.Chunks))
	for i, c := range processed.Chunks {
		groups[i] = c.Text
	}
	writeJSON(w, http.StatusOK, ProcessResponse{
		DocID:         processed.DocID,
		ContentGroups: groups,
		Images:        toImages(processed.Images),
	})
}

func (h *handlers) decodeQuery(r *http.Request) (QueryRequest, error) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, fmt.Errorf("%w: request body is empty", domain.ErrInvalidInput)
		}
		return req, fmt.Errorf("%w: decode request: %w", domain.ErrInvalidInput, err)
	}
	if req.TopK == 0 {
		req.TopK = h.topK
	}
	return req, nil
}

func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	chunks, err := h.retriever.Retrieve(r.Context(), req.Query, req.TopK)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if chunks == nil {
		chunks = []domain.RetrievedChunk{}
	}
	writeJSON(w, http.StatusOK, QueryResponse{TopChunks: chunks})
}

func (h *handlers) ask(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("answer generation is not configured"))
		return
	}

	req, err := h.decodeQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ans, err := h.asker.Ask(r.Context(), req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, answer.ErrGeneration) {
			h.logger.Error("Answer generation failed", "error", err)
			writeError(w, http.StatusBadGateway, err)
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
