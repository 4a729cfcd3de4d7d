package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/bull/legal-rag/internal/domain"
)

const (
	// GeminiModel is the default Google embedding model.
	GeminiModel = "gemini-embedding-001"

	// DefaultDimension matches gemini-embedding-001's full output size.
	DefaultDimension = 3072

	// DefaultTimeout bounds a single embedding request.
	DefaultTimeout = 30 * time.Second
)

// GeminiConfig configures the Gemini provider. BaseURL overrides the
// Generative Language API root and is mostly useful in tests.
type GeminiConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	Timeout   time.Duration
}

// GeminiProvider embeds through the Gemini API's batchEmbedContents call.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGeminiProvider creates a Gemini provider. The API key is required.
func NewGeminiProvider(cfg GeminiConfig) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", domain.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = GeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Timeout: genai.Ptr(cfg.Timeout),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", domain.ErrInvalidConfig, err)
	}

	return &GeminiProvider{
		client:    client,
		model:     strings.TrimPrefix(cfg.Model, "models/"),
		dimension: cfg.Dimension,
	}, nil
}

// Name identifies the provider in logs.
func (p *GeminiProvider) Name() string { return "gemini" }

// EmbedBatch embeds texts in one request. The response is re-encoded and
// passed through DecodeVectors so every accepted shape is handled the same
// way regardless of provider.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	var cfg *genai.EmbedContentConfig
	if p.dimension > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(p.dimension))}
	}

	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, classifyGeminiError(err)
	}
	resp.SDKHTTPResponse = nil

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: encode gemini response: %w", domain.ErrEmbedding, err)
	}
	vectors, err := DecodeVectors(body)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: gemini returned %d vectors for %d texts", domain.ErrEmbedding, len(vectors), len(texts))
	}
	return vectors, nil
}

// classifyGeminiError marks throttling, 5xx and transport failures as retryable.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError("gemini", apiErr.Code, []byte(apiErr.Message))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return statusError("gemini", apiErrPtr.Code, []byte(apiErrPtr.Message))
	}

	wrapped := fmt.Errorf("%w: gemini request: %w", domain.ErrEmbedding, err)
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(wrapped)
	}
	return wrapped
}
