package utils

import "unicode/utf8"

// Truncate is a simple string truncate. It never cuts a multi-byte rune
// in half.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
