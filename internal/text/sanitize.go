package text

import (
	"strings"
	"unicode"
)

// normalizeLineWhitespace collapses consecutive whitespace within a line
// into a single space and trims the line.
func normalizeLineWhitespace(line string) string {
	var b strings.Builder

	space := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteRune(' ')
				space = true
			}
			continue
		}
		b.WriteRune(r)
		space = false
	}

	return strings.TrimSpace(b.String())
}

// NormalizePrompt cleans user text before it is sent to the completion
// endpoint. Line endings become LF, invisible characters are dropped,
// control characters become spaces, whitespace inside lines is collapsed
// and runs of blank lines shrink to one. Paragraph breaks are preserved.
// The result may be empty.
func NormalizePrompt(input string) string {
	if input == "" {
		return ""
	}

	s := strings.ReplaceAll(input, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = invisibleReplacer.Replace(s)
	s = controlCharsRegex.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = normalizeLineWhitespace(lines[i])
	}

	s = strings.Join(lines, "\n")
	s = multipleNewlinesRegex.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}
