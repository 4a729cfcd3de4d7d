package sanitize

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		absent   []string
	}{
		{
			name:     "email",
			input:    "contact me at a@b.com",
			contains: []string{"[EMAIL]"},
			absent:   []string{"a@b.com"},
		},
		{
			name:     "phone",
			input:    "call 1234567890 now",
			contains: []string{"[PHONE]"},
			absent:   []string{"1234567890"},
		},
		{
			name:     "eleven digits are not a phone",
			input:    "ref 12345678901.",
			contains: []string{"12345678901"},
			absent:   []string{"[PHONE]"},
		},
		{
			name:     "name",
			input:    "signed by John Smith today",
			contains: []string{"[NAME]"},
			absent:   []string{"John Smith"},
		},
		{
			name:     "address",
			input:    "lives at 221 baker street",
			contains: []string{"[ADDRESS]"},
			absent:   []string{"baker street"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Redact(tc.input)
			for _, s := range tc.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tc.absent {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestRedact_OrderedRules(t *testing.T) {
	// The e-mail rule consumes the whole token before the name rule can see it.
	got := Redact("mail Jane.Doe@firm.com")
	assert.Equal(t, "mail [EMAIL]", got)
}

func TestRedact_LeavesPlainTextAlone(t *testing.T) {
	input := "the tenant shall pay rent monthly."
	assert.Equal(t, input, Redact(input))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"blank lines collapse", "Rent is due on the 1st.\n\n\nLate fee is 5%.", "Rent is due on the 1st.\nLate fee is 5%."},
		{"page markers removed", "Clause 1\nPage 12\nClause 2", "Clause 1 Clause 2"},
		{"space runs squeezed", "the   lessee\t\tshall", "the lessee shall"},
		{"trimmed", "  \n text \n ", "text"},
		{"marker exposed by removal", "PaPage 1ge 2 end", "end"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	alphabet := []string{"a", "B", "Page", " ", "  ", "\n", "\n\n", "\t", "1", "42", "Pa", "ge", ".", "\r\n"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		var b strings.Builder
		for j := 0; j < rng.Intn(40); j++ {
			b.WriteString(alphabet[rng.Intn(len(alphabet))])
		}
		input := b.String()
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}
