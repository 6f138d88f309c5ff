// Package textnorm canonicalises person names and phone numbers so that the
// contact book and spreadsheet identifiers can be compared directly.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name lower-cases s, strips combining accents and trims surrounding
// whitespace. The result is a fixed point: Name(Name(s)) == Name(s).
func Name(s string) string {
	if s == "" {
		return ""
	}
	// transform.Chain holds per-call state, so build it per call.
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Phone keeps only the ASCII digits of s ("+55 (11) 9999-0000" -> "551199990000").
func Phone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
