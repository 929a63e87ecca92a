// Package textnorm cleans free text before it is joined and embedded.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize strips diacritics, lowercases and collapses whitespace.
// Runes that have no ASCII base form are dropped.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = norm.NFKD.String(s)
	}

	var b strings.Builder
	b.Grow(len(decomposed))

	space := false
	for _, r := range decomposed {
		if r >= utf8.RuneSelf {
			continue
		}
		if unicode.IsSpace(r) {
			space = b.Len() > 0
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// NormalizeValue normalizes v when it is a string and returns "" otherwise.
func NormalizeValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Normalize(s)
}
