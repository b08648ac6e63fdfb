package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Handle matches "@username" tokens of one Telegram account.
// The zero value and a nil *Handle match nothing.
type Handle struct {
	username string
	re       *regexp.Regexp
}

// NewHandle builds a matcher for username, with or without the leading "@".
func NewHandle(username string) *Handle {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return &Handle{}
	}
	// Group 1 keeps the character before the handle so Strip can put it back.
	// A comma or colon right after the handle belongs to the address.
	re := regexp.MustCompile(`(?i)(^|[^\w@])@` + regexp.QuoteMeta(username) + `\b[,:]?`)
	return &Handle{username: username, re: re}
}

// Username returns the username without "@".
func (h *Handle) Username() string {
	if h == nil {
		return ""
	}
	return h.username
}

// Equals reports whether token is exactly this handle, ignoring case.
func (h *Handle) Equals(token string) bool {
	if h == nil || h.username == "" {
		return false
	}
	return strings.HasPrefix(token, "@") && strings.EqualFold(token[1:], h.username)
}

// In reports whether s contains the handle as a standalone token.
func (h *Handle) In(s string) bool {
	if h == nil || h.re == nil {
		return false
	}
	return h.re.MatchString(s)
}

// Strip removes every occurrence of the handle from s, along with a comma
// or colon directly after it.
func (h *Handle) Strip(s string) string {
	if h == nil || h.re == nil {
		return s
	}
	return h.re.ReplaceAllString(s, "$1")
}

// ContainsWord reports whether s contains word as a whitespace separated
// token, ignoring case and surrounding punctuation.
func ContainsWord(s, word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return false
	}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if strings.TrimFunc(w, unicode.IsPunct) == word {
			return true
		}
	}
	return false
}

// EntityText returns the part of s addressed by a Telegram message entity.
// Entity offsets and lengths count UTF-16 code units.
func EntityText(s string, offset, length int) (string, bool) {
	if offset < 0 || length <= 0 {
		return "", false
	}
	u := utf16.Encode([]rune(s))
	if offset+length > len(u) {
		return "", false
	}
	return string(utf16.Decode(u[offset : offset+length])), true
}

// UTF16Len returns the length of s in UTF-16 code units, the unit Telegram
// uses for offsets and message limits.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
