// Package text prepares message text on its way between Telegram and the
// completion endpoint: prompt normalization, mention handling and splitting
// of long replies.
package text

import (
	"regexp"
	"strings"
)

// MaxMessageLength is Telegram's limit for a single text message, in UTF-16 code units.
const MaxMessageLength = 4096

// Regular expressions and replacers used for prompt normalization.
var (
	// controlCharsRegex matches ASCII control characters except tab and newline.
	controlCharsRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	// multipleNewlinesRegex collapses runs of 3+ newlines into a paragraph break.
	multipleNewlinesRegex = regexp.MustCompile("\n{3,}")

	// invisibleReplacer drops invisible format characters and maps unusual
	// spaces and separators to their plain equivalents.
	invisibleReplacer = strings.NewReplacer(
		"\u2060", "", // word joiner
		"\uFEFF", "", // byte order mark
		"\u00AD", "", // soft hyphen
		"\u200E", "", // left-to-right mark
		"\u200F", "", // right-to-left mark
		"\u200B", "", // zero width space

		"\u2028", "\n", // line separator
		"\u2029", "\n\n", // paragraph separator
		"\u00A0", " ", // no-break space
		"\u2009", " ",
		"\u200A", " ",
		"\u202F", " ",
		"\u205F", " ",
		"\u3000", " ",
	)
)
