package handlers

import (
	"sort"
	"unicode/utf16"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/gptrelay/internal/text"
)

// Mentioned reports whether msg addresses the bot.
func (h *MentionHandler) Mentioned(msg *models.Message) bool {
	if msg == nil {
		return false
	}
	content, entities := messageContent(msg)

	for _, e := range entities {
		switch e.Type {
		case models.MessageEntityTypeMention:
			if token, ok := text.EntityText(content, e.Offset, e.Length); ok && h.handle.Equals(token) {
				return true
			}
		case models.MessageEntityTypeTextMention:
			if h.isBot(e.User) {
				return true
			}
		}
	}

	if h.handle.In(content) {
		return true
	}
	for _, alias := range h.deps.Settings.MentionAliases {
		if text.ContainsWord(content, alias) {
			return true
		}
	}

	if r := msg.ReplyToMessage; r != nil && h.isBot(r.From) {
		return true
	}

	return msg.Chat.Type == models.ChatTypePrivate && h.deps.Settings.ReplyInPrivate
}

// Prompt returns the text to forward: the message without references to
// the bot, normalized. It is empty when nothing else was written.
func (h *MentionHandler) Prompt(msg *models.Message) string {
	content, entities := messageContent(msg)

	var ranges [][2]int
	for _, e := range entities {
		if e.Type == models.MessageEntityTypeTextMention && h.isBot(e.User) {
			ranges = append(ranges, [2]int{e.Offset, e.Offset + e.Length})
		}
	}
	content = cutUTF16Ranges(content, ranges)

	return text.NormalizePrompt(h.handle.Strip(content))
}

func (h *MentionHandler) isBot(u *models.User) bool {
	return u != nil && h.deps.Identity.ID != 0 && u.ID == h.deps.Identity.ID
}

// cutUTF16Ranges removes the given [start, end) ranges, measured in UTF-16
// code units, from s, together with a comma or colon that directly follows
// a range. Ranges outside s are ignored.
func cutUTF16Ranges(s string, ranges [][2]int) string {
	if len(ranges) == 0 {
		return s
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i][0] < ranges[j][0] })

	u := utf16.Encode([]rune(s))
	out := make([]uint16, 0, len(u))
	pos := 0
	for _, r := range ranges {
		start, end := r[0], r[1]
		if start < pos || start >= end || end > len(u) {
			continue
		}
		out = append(out, u[pos:start]...)
		out = append(out, ' ')
		if end < len(u) && (u[end] == ',' || u[end] == ':') {
			end++
		}
		pos = end
	}
	out = append(out, u[pos:]...)

	return string(utf16.Decode(out))
}
