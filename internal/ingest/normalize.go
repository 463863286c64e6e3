package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// NormalizeName converts a directory or header name into a lowercase ASCII
// identifier: accents are stripped (NFD, drop Mn, NFC), runs of anything
// outside [a-z0-9] become a single underscore, and edge underscores are
// trimmed. An empty result becomes "col" and a leading digit gets a "col_"
// prefix so the name stays a bare SQL identifier.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, utf8BOM)))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case !prevUnderscore:
			b.WriteByte('_')
			prevUnderscore = true
		}
	}
	name := strings.Trim(b.String(), "_")
	switch {
	case name == "":
		return "col"
	case name[0] >= '0' && name[0] <= '9':
		return "col_" + name
	}
	return name
}

// normalizeHeader strips the BOM from the first cell and normalises every
// header. Duplicate names after normalisation get a numeric suffix.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		n := NormalizeName(h)
		if c := seen[n]; c > 0 {
			seen[n] = c + 1
			n = n + "_" + itoa(c+1)
		} else {
			seen[n] = 1
		}
		out[i] = n
	}
	return out
}
