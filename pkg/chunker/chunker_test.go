package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextIsOneChunk(t *testing.T) {
	chunks := Split("a short order of the court", DefaultOptions())
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[0].TokenCount == 0 {
		t.Errorf("chunk = %+v", chunks[0])
	}
}

func TestSplitRecursivePrefersParagraphs(t *testing.T) {
	para := strings.Repeat("the court held that the appeal must succeed. ", 20)
	text := para + "\n\n" + para + "\n\n" + para

	chunks := Split(text, Options{Size: 1000, Strategy: "recursive"})
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		if utf8.RuneCountInString(c.Content) > 1000 {
			t.Errorf("chunk %d is %d runes, over the limit", i, utf8.RuneCountInString(c.Content))
		}
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestSplitFixedOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30) // 300 runes
	chunks := Split(text, Options{Size: 100, Overlap: 20, Strategy: "fixed"})
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	// Each step advances by size-overlap, so neighbors share 20 runes.
	first := chunks[0].Content
	second := chunks[1].Content
	if !strings.HasPrefix(second, first[len(first)-20:]) {
		t.Error("consecutive fixed chunks do not overlap")
	}
}

func TestSplitSentenceKeepsSentencesIntact(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one ends it. Fourth closes."
	chunks := Split(text, Options{Size: 45, Strategy: "sentence"})
	for _, c := range chunks {
		trimmed := strings.TrimSpace(c.Content)
		if !strings.HasSuffix(trimmed, ".") {
			t.Errorf("chunk %q does not end on a sentence boundary", trimmed)
		}
	}
}

func TestSplitDropsEmptyPieces(t *testing.T) {
	chunks := Split("\n\n  \n\n", DefaultOptions())
	if len(chunks) != 0 {
		t.Fatalf("got %d chunks from whitespace, want 0", len(chunks))
	}
}
