// Package ingest turns already-extracted course text into store-ready
// document chunks. Decoding PDFs or audio happens upstream; this package
// only splits, filters, and stamps provenance.
package ingest

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits text into overlapping chunks, preferring to break at
// paragraph, line, sentence, and word boundaries, in that order.
type Chunker struct {
	size    int // max chunk length in runes
	overlap int // runes carried over between consecutive chunks
}

// separators tried best-first when looking for a break point.
var separators = []string{"\n\n", "\n", ". ", " "}

// NewChunker creates a Chunker. size <= 0 defaults to 1000 runes; overlap is
// clamped to below size (negative means default 200).
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 200
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks text. Whitespace-only chunks are dropped; whitespace-only
// input yields nil.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakPoint searches backwards from the size limit for the best separator.
// Separators found in the first half of the window are ignored so chunks
// stay reasonably full.
func (c *Chunker) breakPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	half := len(window) / 2
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > half {
			return start + utf8.RuneCountInString(window[:idx+len(sep)])
		}
	}
	return limit
}
