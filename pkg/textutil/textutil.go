// Package textutil holds rune-safe truncation helpers shared by the
// document and assistant packages.
package textutil

import "unicode/utf8"

// Truncate returns at most n characters of s. It never splits a multi-byte rune.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Preview truncates s to n characters and appends "..." when anything was cut.
func Preview(s string, n int) string {
	out := Truncate(s, n)
	if len(out) < len(s) {
		return out + "..."
	}
	return out
}

// Len returns the number of characters in s.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
