package textchunk

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentenceBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{
			name:     "two sentences that fit alone but not together",
			text:     "Hello world. This is a test.",
			maxChars: 15,
			want:     []string{"Hello world.", "This is a test."},
		},
		{
			name:     "sentences accumulate while under the limit",
			text:     "One. Two. Three.",
			maxChars: 200,
			want:     []string{"One. Two. Three."},
		},
		{
			name:     "question and exclamation are boundaries too",
			text:     "Really? Yes! Good.",
			maxChars: 8,
			want:     []string{"Really?", "Yes!", "Good."},
		},
		{
			name:     "empty input yields one empty chunk",
			text:     "",
			maxChars: 200,
			want:     []string{""},
		},
		{
			name:     "whitespace-only input is trimmed",
			text:     "   \n\t  ",
			maxChars: 200,
			want:     []string{""},
		},
		{
			name:     "short text without punctuation passes through",
			text:     "just a phrase",
			maxChars: 200,
			want:     []string{"just a phrase"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.maxChars)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Split(%q, %d) = %q, want %q", tt.text, tt.maxChars, got, tt.want)
			}
		})
	}
}

func TestSplitCommaFallback(t *testing.T) {
	text := "A very long sentence with no punctuation that exceeds the limit by itself, truly"
	got := Split(text, 20)
	want := []string{
		"A very long sentence with no punctuation that exceeds the limit by itself",
		"truly",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Split() = %q, want %q", got, want)
	}
	// First part still exceeds the limit. It is accepted as-is: the
	// clause fallback does not subdivide further.
	if len(got[0]) <= 20 {
		t.Fatalf("expected oversized first part, got %d chars", len(got[0]))
	}
}

func TestSplitOversizedSentenceFlushesRunningChunk(t *testing.T) {
	text := "Short one. " + strings.Repeat("word ", 10) + "before comma, after comma"
	got := Split(text, 20)
	if got[0] != "Short one." {
		t.Fatalf("first chunk = %q, want the accumulated short sentence", got[0])
	}
	if len(got) < 3 {
		t.Fatalf("expected running chunk flush plus comma parts, got %q", got)
	}
}

func TestSplitOrderAndNoEmptyChunks(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon. Zeta eta theta iota! Kappa? Lambda mu nu."
	got := Split(text, 25)

	joined := strings.Join(got, " ")
	if joined != text {
		t.Fatalf("chunks out of order or content lost:\n got %q\nwant %q", joined, text)
	}
	for i, c := range got {
		if strings.TrimSpace(c) == "" {
			t.Fatalf("chunk %d is empty in %q", i, got)
		}
		if len(c) > 25 {
			t.Fatalf("chunk %d exceeds limit without a comma fallback: %q", i, c)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := "First sentence here. Second sentence here. Third one, with a clause, is longer than the rest of them combined for sure."
	a := Split(text, 30)
	b := Split(text, 30)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Split is not deterministic: %q vs %q", a, b)
	}
}

func TestSplitDefaultLimit(t *testing.T) {
	text := "One sentence. Another sentence."
	if got := Split(text, 0); len(got) != 1 || got[0] != text {
		t.Fatalf("Split with non-positive limit = %q, want single default-limit chunk", got)
	}
}
