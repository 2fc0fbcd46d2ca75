package chunker

import (
	"strings"
	"unicode/utf8"
)

// Options controls how text is split. Size and Overlap are in characters.
type Options struct {
	Size     int
	Overlap  int
	Strategy string // "recursive", "fixed", "sentence"
}

func DefaultOptions() Options {
	return Options{
		Size:     1500,
		Overlap:  200,
		Strategy: "recursive",
	}
}

// Chunk is one suggested piece of a document.
type Chunk struct {
	Content    string
	Index      int
	TokenCount int
}

// Split cuts text into chunks for operator review. The recursive strategy
// prefers paragraph and sentence boundaries over hard cuts.
func Split(text string, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = 1500
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	var parts []string
	switch opts.Strategy {
	case "fixed":
		parts = splitFixed(text, opts.Size, opts.Overlap)
	case "sentence":
		parts = splitSentenceGroups(text, opts.Size)
	default:
		parts = splitRecursive(text, []string{"\n\n", "\n", ". ", " "}, opts.Size)
	}

	chunks := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Content:    part,
			Index:      len(chunks),
			TokenCount: EstimateTokens(part),
		})
	}
	return chunks
}

// EstimateTokens approximates the token count; close enough for budgeting.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

func splitFixed(text string, size, overlap int) []string {
	var parts []string
	runes := []rune(text)

	step := size - overlap
	if step <= 0 {
		step = size
	}
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

func splitRecursive(text string, separators []string, size int) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	if len(separators) == 0 {
		return splitFixed(text, size, 0)
	}

	sep := separators[0]
	pieces := strings.Split(text, sep)

	var parts []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+sep+piece) > size {
			parts = append(parts, splitRecursive(current.String(), separators[1:], size)...)
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		parts = append(parts, splitRecursive(current.String(), separators[1:], size)...)
	}
	return parts
}

func splitSentenceGroups(text string, size int) []string {
	sentences := splitSentences(text)

	var parts []string
	var current strings.Builder
	for _, s := range sentences {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+s) > size {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
