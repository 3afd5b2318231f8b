package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sturdystudy/sturdy/internal/knowledge"
)

func TestChunkerSplit(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		overlap    int
		text       string
		wantChunks int
	}{
		{
			name:       "short text stays whole",
			size:       100,
			overlap:    20,
			text:       "a single short paragraph",
			wantChunks: 1,
		},
		{
			name:       "whitespace only yields nothing",
			size:       100,
			overlap:    20,
			text:       "  \n\t  ",
			wantChunks: 0,
		},
		{
			name:       "empty yields nothing",
			size:       100,
			overlap:    20,
			text:       "",
			wantChunks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := NewChunker(tt.size, tt.overlap).Split(tt.text)
			if len(chunks) != tt.wantChunks {
				t.Errorf("Split() = %d chunks, want %d", len(chunks), tt.wantChunks)
			}
		})
	}
}

func TestChunkerRespectsSizeAndOverlap(t *testing.T) {
	sentence := "The quick brown fox jumps over the lazy dog. "
	text := strings.Repeat(sentence, 50) // ~2250 chars

	chunker := NewChunker(1000, 200)
	chunks := chunker.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want multiple", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 1000 {
			t.Errorf("chunk %d has %d runes, want <= 1000", i, len([]rune(c)))
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is whitespace only", i)
		}
	}

	// Consecutive chunks share text through the overlap.
	tail := chunks[0][len(chunks[0])-50:]
	if !strings.Contains(chunks[1], tail[:20]) {
		t.Errorf("chunk 1 does not overlap chunk 0: tail %q not found", tail[:20])
	}

	// No content is lost: every sentence start must appear somewhere.
	joined := strings.Join(chunks, " ")
	if !strings.Contains(joined, "The quick brown fox") {
		t.Error("chunked output lost source text")
	}
}

func TestChunkerPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("word ", 120) // ~600 chars
	text := para + "\n\n" + para

	chunks := NewChunker(1000, 100).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want split at paragraph", len(chunks))
	}
	// The first chunk should end at the paragraph boundary, not mid-word.
	if strings.HasSuffix(chunks[0], "wor") {
		t.Errorf("chunk 0 ends mid-word: %q", chunks[0][len(chunks[0])-20:])
	}
}

// recordingAdder records what was stored.
type recordingAdder struct {
	docs       []knowledge.Document
	collection string
	err        error
}

func (r *recordingAdder) Add(_ context.Context, docs []knowledge.Document, collection string) (int, error) {
	r.docs = docs
	r.collection = collection
	if r.err != nil {
		return 0, r.err
	}
	return len(docs), nil
}

func TestIngestText(t *testing.T) {
	adder := &recordingAdder{}
	ingestor := New(adder, NewChunker(1000, 200), nil)

	stored, err := ingestor.IngestText(t.Context(), "lecture notes on entropy", "week3.pdf", "alice")
	if err != nil {
		t.Fatalf("IngestText() error: %v", err)
	}
	if stored != 1 {
		t.Errorf("IngestText() = %d, want 1", stored)
	}
	if adder.collection != "alice" {
		t.Errorf("collection = %q, want alice", adder.collection)
	}
	if adder.docs[0].Metadata[knowledge.MetadataSource] != "week3.pdf" {
		t.Errorf("metadata = %v, want source stamped", adder.docs[0].Metadata)
	}
}

func TestIngestTextRejectsWhitespace(t *testing.T) {
	ingestor := New(&recordingAdder{}, NewChunker(1000, 200), nil)

	_, err := ingestor.IngestText(t.Context(), "   \n  ", "empty.pdf", "alice")
	if !errors.Is(err, ErrIngestion) {
		t.Errorf("IngestText() = %v, want ErrIngestion", err)
	}
}

func TestIngestTextPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("database down")
	ingestor := New(&recordingAdder{err: storeErr}, NewChunker(1000, 200), nil)

	_, err := ingestor.IngestText(t.Context(), "some text", "doc.pdf", "alice")
	if !errors.Is(err, storeErr) {
		t.Errorf("IngestText() = %v, want store error", err)
	}
}
