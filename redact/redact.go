package redact

import (
	"strings"
	"unicode/utf8"
)

// String masks the middle half of s, keeping the first and last quarter visible.
// Values shorter than 8 runes are fully masked.
func String(s string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}

	if n < 8 {
		return strings.Repeat("*", n)
	}

	runes := []rune(s)
	keep := n / 4

	return string(runes[:keep]) + strings.Repeat("*", n-2*keep) + string(runes[n-keep:])
}
