// Package chunker splits normalised document text into bounded, newline-aligned chunks.
package chunker

import (
	"fmt"
	"unicode"

	"github.com/bull/legal-rag/internal/domain"
)

// DefaultMaxChars is the chunk size bound used when none is configured.
const DefaultMaxChars = 500

// Split cuts text into chunks of at most maxChars characters (code points).
// While the remainder is longer than maxChars, the cut lands on the last
// line break at or before offset maxChars, or exactly at maxChars when the
// window has none. Whitespace around every cut is trimmed and empty chunks
// are never produced.
func Split(text string, maxChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: max chars must be positive, got %d", domain.ErrInvalidConfig, maxChars)
	}

	rest := trimRunes([]rune(text))
	var chunks []string

	for len(rest) > maxChars {
		cut := lastLineBreak(rest[:maxChars+1])
		if cut <= 0 {
			cut = maxChars
		}
		chunks = append(chunks, string(trimRunes(rest[:cut])))
		rest = trimRunes(rest[cut:])
	}

	if len(rest) > 0 {
		chunks = append(chunks, string(rest))
	}
	return chunks, nil
}

func lastLineBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '\n' {
			return i
		}
	}
	return -1
}

func trimRunes(r []rune) []rune {
	start, end := 0, len(r)
	for start < end && unicode.IsSpace(r[start]) {
		start++
	}
	for end > start && unicode.IsSpace(r[end-1]) {
		end--
	}
	return r[start:end]
}

// Chunker stamps chunk identities onto Split output.
type Chunker struct {
	maxChars int
}

// NewChunker creates a chunker with the given bound.
// A maxChars of 0 selects DefaultMaxChars; negative values are rejected.
func NewChunker(maxChars int) (*Chunker, error) {
	if maxChars == 0 {
		maxChars = DefaultMaxChars
	}
	if maxChars < 0 {
		return nil, fmt.Errorf("%w: max chars must be positive, got %d", domain.ErrInvalidConfig, maxChars)
	}
	return &Chunker{maxChars: maxChars}, nil
}

// MaxChars returns the configured bound.
func (c *Chunker) MaxChars() int {
	return c.maxChars
}

// Chunk splits text and assigns ids "{docID}-{i}" in document order.
func (c *Chunker) Chunk(docID, text string) ([]domain.Chunk, error) {
	parts, err := Split(text, c.maxChars)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = domain.Chunk{
			ID:    domain.ChunkID(docID, i),
			DocID: docID,
			Index: i,
			Text:  part,
		}
	}
	return chunks, nil
}
