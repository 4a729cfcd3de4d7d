// Package sanitize masks personal data in extracted text and normalises layout noise.
package sanitize

import "regexp"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Order matters: later patterns run over text already rewritten by earlier ones.
var redactionRules = []rule{
	{regexp.MustCompile(`\S+@\S+`), "[EMAIL]"},
	{regexp.MustCompile(`\b\d{10}\b`), "[PHONE]"},
	{regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`), "[NAME]"},
	{regexp.MustCompile(`\d{1,5} [A-Za-z ]+`), "[ADDRESS]"},
}

// Redact replaces e-mail addresses, 10-digit phone numbers, two-word
// capitalised names and street-address-like runs with placeholders.
// It is pattern based, so both false positives and misses are expected.
func Redact(text string) string {
	for _, r := range redactionRules {
		text = r.pattern.ReplaceAllLiteralString(text, r.replacement)
	}
	return text
}
