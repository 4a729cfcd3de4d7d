package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bull/legal-rag/internal/domain"
)

// OpenAIModel is the default OpenAI embedding model; it yields 3072 dimensions.
const OpenAIModel = "text-embedding-3-large"

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	Timeout   time.Duration
}

// OpenAIProvider wraps the OpenAI client for embedding generation.
type OpenAIProvider struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIProvider creates an OpenAI provider and returns an error if no API key is set.
// Retries are left to Embedder, so the SDK's own retry loop is disabled.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", domain.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = OpenAIModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAIProvider{client: &client, model: cfg.Model, dimension: cfg.Dimension}, nil
}

// Name identifies the provider in logs.
func (p *OpenAIProvider) Name() string { return "openai" }

// EmbedBatch embeds texts in one request, placing vectors by their response index.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(p.model),
	}
	if p.dimension > 0 {
		params.Dimensions = openai.Int(int64(p.dimension))
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d vectors for %d texts", domain.ErrEmbedding, len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(texts))
	for _, data := range resp.Data {
		i := int(data.Index)
		if i < 0 || i >= len(vectors) || len(data.Embedding) == 0 {
			return nil, fmt.Errorf("%w: openai returned an unusable vector at index %d", domain.ErrEmbedding, data.Index)
		}
		vectors[i] = toFloat32(data.Embedding)
	}
	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("%w: openai response missing vector %d", domain.ErrEmbedding, i)
		}
	}
	return vectors, nil
}

// classifyOpenAIError marks rate limits, server errors and transport failures as retryable.
func classifyOpenAIError(err error) error {
	wrapped := fmt.Errorf("%w: openai: %w", domain.ErrEmbedding, err)
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 429 || apiErr.StatusCode >= 500 {
			return domain.Transient(wrapped)
		}
		return wrapped
	}
	return domain.Transient(wrapped)
}

// toFloat32 converts []float64 to []float32.
// The API returns float64, but the index stores float32.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
