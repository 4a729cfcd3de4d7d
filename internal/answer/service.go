package answer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/legal-rag/internal/domain"
)

// Retriever finds the chunks relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedChunk, error)
}

// Answer is a generated reply with the chunks it was grounded on.
type Answer struct {
	Answer    string                  `json:"answer"`
	Citations []domain.RetrievedChunk `json:"citation_chunks"`
}

// Service answers questions over the indexed documents.
type Service struct {
	retriever Retriever
	generator Generator
	maxChars  int
	logger    *slog.Logger
}

// NewService creates a question-answering service.
func NewService(retriever Retriever, generator Generator, maxContextChars int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		maxChars:  maxContextChars,
		logger:    logger,
	}
}

// Ask retrieves up to topK chunks and asks the generator to answer from them.
// With no relevant chunks the generator is not called.
func (s *Service) Ask(ctx context.Context, question string, topK int) (*Answer, error) {
	chunks, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &Answer{Answer: NotFoundReply, Citations: []domain.RetrievedChunk{}}, nil
	}

	text, err := s.generator.Generate(ctx, BuildPrompt(question, chunks, s.maxChars))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	s.logger.Debug("Answered question", "citations", len(chunks))
	return &Answer{Answer: text, Citations: chunks}, nil
}
