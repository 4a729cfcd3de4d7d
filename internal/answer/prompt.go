package answer

import (
	"fmt"
	"strings"

	"github.com/bull/legal-rag/internal/domain"
)

// DefaultMaxContextChars bounds the context section of a prompt.
// Rough estimate: 1 token ≈ 4 characters, so about 16k tokens.
const DefaultMaxContextChars = 64000

const contextSeparator = "\n\n---\n"

// NotFoundReply is what the model is told to say when the context lacks the answer.
const NotFoundReply = "I cannot find this information in the document."

const promptTemplate = `You are a legal assistant designed to explain legal documents to everyday users.

Below is text extracted from legal documents. Use ONLY this information.

Context:
%s

User Question: %s

Provide a clear, direct answer in plain language. If the answer is not in the context, say %q`

// BuildPrompt grounds question in the chunk texts, joined in retrieval order.
// The context is cut to maxChars characters; maxChars <= 0 selects DefaultMaxContextChars.
func BuildPrompt(question string, chunks []domain.RetrievedChunk, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	context := truncateRunes(strings.Join(texts, contextSeparator), maxChars)
	return fmt.Sprintf(promptTemplate, context, strings.TrimSpace(question), NotFoundReply)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
