// Package textchunk splits prose into bounded pieces for synthesis.
//
// The TTS model degrades on long inputs, so text is cut at sentence
// boundaries when possible and clause boundaries when a single sentence
// is too long. Splitting is best-effort: a comma-delimited clause longer
// than the limit is emitted as-is rather than broken mid-word.
package textchunk

import (
	"regexp"
	"strings"
)

// DefaultMaxChars is the chunk size used when the caller passes a
// non-positive limit.
const DefaultMaxChars = 200

var (
	sentenceEndPattern = regexp.MustCompile(`([.!?])\s+`)
	clausePattern      = regexp.MustCompile(`,\s*`)
)

// Split cuts text into chunks of at most maxChars characters, preferring
// sentence boundaries and falling back to comma boundaries for sentences
// that exceed the limit on their own. Chunks come back in input order.
// A clause longer than maxChars is returned verbatim; the limit is a
// target, not a hard cap. Empty or unsplittable input yields a single
// chunk holding the trimmed text.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	trimmed := strings.TrimSpace(text)
	sentences := splitSentences(trimmed)

	var chunks []string
	var current string

	for _, sentence := range sentences {
		if len(current)+len(sentence)+1 <= maxChars {
			current = strings.TrimSpace(current + " " + sentence)
			continue
		}
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
		if len(sentence) > maxChars {
			// Clause fallback. Parts keep their order and are accepted
			// even when still over the limit.
			for _, part := range clausePattern.Split(sentence, -1) {
				part = strings.TrimSpace(part)
				if part != "" {
					chunks = append(chunks, part)
				}
			}
			continue
		}
		current = sentence
	}
	if current != "" {
		chunks = append(chunks, current)
	}

	if len(chunks) == 0 {
		return []string{trimmed}
	}
	return chunks
}

// splitSentences breaks text after terminal punctuation followed by
// whitespace, keeping the punctuation attached to its sentence.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}
	marked := sentenceEndPattern.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
