package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bull/legal-rag/internal/domain"
)

// Provider calls one embedding service with a single batch of texts.
// Implementations return one vector per input, in input order, and mark
// transport, timeout and throttling failures with domain.Transient.
type Provider interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// statusError classifies a non-2xx HTTP status.
func statusError(provider string, status int, body []byte) error {
	err := fmt.Errorf("%w: %s returned status %d: %s", domain.ErrEmbedding, provider, status, truncate(string(body), 200))
	if status == http.StatusTooManyRequests || status >= 500 {
		return domain.Transient(err)
	}
	return err
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(strings.ToValidUTF8(s, "\uFFFD"))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
