package signals

import (
	"strings"

	"github.com/rivo/uniseg"
)

func isEmojiRune(r rune) bool {
	return (r >= 0x1F000 && r <= 0x1FFFF) || (r >= 0x2600 && r <= 0x27BF) || r == 0x2B50 || r == 0x2B55
}

// Returns every emoji grapheme cluster in the text, in order, including repeats. Skin-tone modifiers and variation selectors are kept; use normalizeEmoji to compare.
func ExtractEmojis(s string) []string {
	out := []string{}
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		if isEmojiRune(gr.Runes()[0]) {
			out = append(out, gr.Str())
		}
	}
	return out
}

// Strips emoji presentation selectors and skin-tone modifiers, so "👍🏽" and "👍" look the same. Returns empty string for non-emoji input.
func normalizeEmoji(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if r == 0xFE0F || r == 0xFE0E || (r >= 0x1F3FB && r <= 0x1F3FF) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	for _, r := range out {
		if !isEmojiRune(r) {
			return ""
		}
		break
	}
	return out
}
