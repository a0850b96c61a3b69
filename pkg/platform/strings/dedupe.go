// Package strings provides text normalization for user-supplied fields.
package strings

import (
	"strings"
	"unicode/utf8"
)

// DedupeAndTrim trims each value and drops blanks and exact duplicates,
// keeping first-seen order. Used for supporting document references.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// TrimmedLength counts characters (runes) after trimming surrounding space.
// Minimum-length rules count characters, not bytes, so accented text is not penalised.
func TrimmedLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Storable reports whether s is valid UTF-8 without NUL characters. Postgres
// text and jsonb columns reject anything else.
func Storable(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
