package sanitize

import (
	"regexp"
	"strings"
)

var (
	lineBreakRuns = regexp.MustCompile(`\n+`)
	pageMarkers   = regexp.MustCompile(`Page \d+`)
	spaceRuns     = regexp.MustCompile(`\s{2,}`)
)

// Normalize collapses repeated line breaks, drops "Page N" artifacts,
// squeezes whitespace runs to one space and trims the result.
//
// The steps repeat until nothing changes: removing a page marker can
// join text into a new one ("PaPage 1ge 2"). Every pass that changes
// the text shortens it, so the loop terminates.
func Normalize(text string) string {
	for {
		next := normalizeOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func normalizeOnce(text string) string {
	text = lineBreakRuns.ReplaceAllLiteralString(text, "\n")
	text = pageMarkers.ReplaceAllLiteralString(text, "")
	text = spaceRuns.ReplaceAllLiteralString(text, " ")
	return strings.TrimSpace(text)
}
