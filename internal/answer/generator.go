// Package answer turns retrieved chunks into a grounded answer through a chat model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/bull/legal-rag/internal/domain"
)

// ErrGeneration wraps failures of the chat model.
var ErrGeneration = errors.New("answer generation failed")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DefaultModel is the chat model used when none is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// OpenAIGenerator answers prompts with OpenAI chat completions.
type OpenAIGenerator struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewOpenAIGenerator creates a generator with the given OpenAI client.
// An empty model selects DefaultModel.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	if model == "" {
		model = string(DefaultModel)
	}
	return &OpenAIGenerator{client: client, model: openai.ChatModel(model)}
}

// Generate sends prompt as a single user message and returns the reply text.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: g.model,
	})
	if err != nil {
		err = fmt.Errorf("%w: chat completion: %w", ErrGeneration, err)
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && (apiErr.StatusCode == 429 || apiErr.StatusCode >= 500) {
			return "", domain.Transient(err)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrGeneration)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
