package text

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Split breaks s into parts that each fit into limit UTF-16 code units.
// It prefers to break after a newline, then after a space, and never splits
// a character. Whitespace-only parts are dropped. A non-positive limit means
// MaxMessageLength.
func Split(s string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}

	var parts []string
	for UTF16Len(s) > limit {
		cut := prefixWithin(s, limit)
		if i := strings.LastIndexByte(s[:cut], '\n'); i >= cut/2 {
			cut = i + 1
		} else if i := strings.LastIndexByte(s[:cut], ' '); i >= cut/2 {
			cut = i + 1
		}
		parts = appendNonBlank(parts, s[:cut])
		s = s[cut:]
	}

	return appendNonBlank(parts, s)
}

// prefixWithin returns the byte length of the longest prefix of s that
// fits into limit UTF-16 code units. It is at least one character long.
func prefixWithin(s string, limit int) int {
	n := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if n+w > limit {
			if i == 0 {
				_, size := utf8.DecodeRuneInString(s)
				return size
			}
			return i
		}
		n += w
	}
	return len(s)
}

func appendNonBlank(parts []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return parts
	}
	return append(parts, s)
}
