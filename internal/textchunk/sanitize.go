package textchunk

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlPattern          = regexp.MustCompile(`https?://\S+`)
	fencedCodePattern   = regexp.MustCompile("(?s)```.*?```")
	inlineCodePattern   = regexp.MustCompile("`[^`]*`")
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
)

// SanitizeForSpeech removes markup and symbol noise so piped markdown or
// shell output sounds conversational when spoken.
func SanitizeForSpeech(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	raw = fencedCodePattern.ReplaceAllString(raw, " ")
	raw = inlineCodePattern.ReplaceAllString(raw, " ")
	raw = markdownLinkPattern.ReplaceAllString(raw, "$1")
	raw = urlPattern.ReplaceAllString(raw, " ")

	raw = strings.NewReplacer(
		"*", " ",
		"_", " ",
		"#", " ",
		"~", " ",
		"|", " ",
		"<", " ",
		">", " ",
	).Replace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	prevSpace := true

	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsControl(r):
			continue
		case unicode.In(r, unicode.So, unicode.Sm, unicode.Sk):
			// Emoji and symbol glyphs sound unnatural when spoken.
			continue
		case isSpeechSafePunctuation(r):
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsPunct(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

func isSpeechSafePunctuation(r rune) bool {
	switch r {
	case '.', ',', '!', '?', ':', ';', '\'', '"', '-', '(', ')':
		return true
	default:
		return false
	}
}
