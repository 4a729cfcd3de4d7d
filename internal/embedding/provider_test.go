package embedding

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/bull/legal-rag/internal/domain"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// Multi-byte runes are never split.
	got := truncate(strings.Repeat("é", 300), 200)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)

	got = truncate("Überweisung \xff fällig", 14)
	assert.True(t, utf8.ValidString(got))
}

func TestStatusError(t *testing.T) {
	err := statusError("gemini", http.StatusTooManyRequests, []byte("slow down"))
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.True(t, domain.IsRetryable(err))

	err = statusError("gemini", http.StatusBadGateway, nil)
	assert.True(t, domain.IsRetryable(err))

	err = statusError("gemini", http.StatusUnauthorized, []byte(strings.Repeat("日本", 300)))
	assert.False(t, domain.IsRetryable(err))
	assert.True(t, utf8.ValidString(err.Error()))
}
