package textutil

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from free text supplied by clients, collapses
// surrounding whitespace and truncates to maxRunes (0 means no limit).
func PlainText(value string, maxRunes int) string {
	cleaned := strict.Sanitize(value)
	cleaned = strings.TrimSpace(html.UnescapeString(cleaned))
	if maxRunes > 0 && utf8.RuneCountInString(cleaned) > maxRunes {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return cleaned
}
