package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/jackc/pgx/v5/pgtype"
)

// mockEmbedder implements ai.Embedder. It returns one vector per input
// document and tracks the texts it was asked to embed.
type mockEmbedder struct {
	embedErr   error
	dim        int // vector size, 3 if zero
	callCount  int
	lastInputs []string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	m.lastInputs = m.lastInputs[:0]
	for _, doc := range req.Input {
		if len(doc.Content) > 0 {
			m.lastInputs = append(m.lastInputs, doc.Content[0].Text)
		}
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	dim := m.dim
	if dim == 0 {
		dim = 3
	}
	resp := &ai.EmbedResponse{}
	for i := range req.Input {
		vec := make([]float32, dim)
		vec[i%dim] = 1
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

// mockQuerier implements Querier with configurable errors and call tracking.
type mockQuerier struct {
	insertErr error
	searchErr error
	listErr   error
	countErr  error
	deleteErr error

	searchRows  []DocumentRow
	listRows    []DocumentRow
	countResult int64
	deletedRows int64

	inserted    []InsertDocumentParams
	searchCalls []SearchDocumentsParams
	listCalls   []string
	countCalls  []string
	deleteCalls []string
}

func (m *mockQuerier) InsertDocument(_ context.Context, arg InsertDocumentParams) error {
	m.inserted = append(m.inserted, arg)
	return m.insertErr
}

func (m *mockQuerier) SearchDocuments(_ context.Context, arg SearchDocumentsParams) ([]DocumentRow, error) {
	m.searchCalls = append(m.searchCalls, arg)
	return m.searchRows, m.searchErr
}

func (m *mockQuerier) ListDocuments(_ context.Context, collection string) ([]DocumentRow, error) {
	m.listCalls = append(m.listCalls, collection)
	return m.listRows, m.listErr
}

func (m *mockQuerier) CountDocuments(_ context.Context, collection string) (int64, error) {
	m.countCalls = append(m.countCalls, collection)
	return m.countResult, m.countErr
}

func (m *mockQuerier) DeleteDocuments(_ context.Context, collection string) (int64, error) {
	m.deleteCalls = append(m.deleteCalls, collection)
	return m.deletedRows, m.deleteErr
}

func TestAddDropsWhitespaceOnlyDocuments(t *testing.T) {
	querier := &mockQuerier{}
	embedder := &mockEmbedder{}
	store := New(querier, embedder, nil)

	docs := []Document{
		{Content: "photosynthesis converts light to chemical energy"},
		{Content: "   \n\t  "},
		{Content: ""},
		{Content: "mitochondria are the powerhouse of the cell"},
	}

	stored, err := store.Add(t.Context(), docs, "user-1")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if stored != 2 {
		t.Errorf("Add() = %d, want 2", stored)
	}
	if len(querier.inserted) != 2 {
		t.Fatalf("inserted %d rows, want 2", len(querier.inserted))
	}
	for _, row := range querier.inserted {
		if row.ID == "" {
			t.Error("inserted row has empty ID, want generated UUID")
		}
		if row.Collection != "user-1" {
			t.Errorf("collection = %q, want user-1", row.Collection)
		}
		if !row.CreatedAt.Valid {
			t.Error("inserted row has invalid created_at")
		}
	}
	if len(embedder.lastInputs) != 2 {
		t.Errorf("embedded %d texts, want 2 (whitespace docs must not be embedded)", len(embedder.lastInputs))
	}
}

func TestAddAllWhitespaceIsNoOp(t *testing.T) {
	querier := &mockQuerier{}
	embedder := &mockEmbedder{}
	store := New(querier, embedder, nil)

	stored, err := store.Add(t.Context(), []Document{{Content: "  "}, {Content: "\n"}}, "user-1")
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if stored != 0 {
		t.Errorf("Add() = %d, want 0", stored)
	}
	if embedder.callCount != 0 {
		t.Errorf("embedder called %d times, want 0", embedder.callCount)
	}
	if len(querier.inserted) != 0 {
		t.Errorf("inserted %d rows, want 0", len(querier.inserted))
	}
}

func TestAddEmbedderError(t *testing.T) {
	embedErr := errors.New("quota exceeded")
	store := New(&mockQuerier{}, &mockEmbedder{embedErr: embedErr}, nil)

	_, err := store.Add(t.Context(), []Document{{Content: "some text"}}, "user-1")
	if !errors.Is(err, embedErr) {
		t.Errorf("Add() = %v, want wrapped %v", err, embedErr)
	}
}

func TestRetrieve(t *testing.T) {
	now := time.Now()
	querier := &mockQuerier{
		searchRows: []DocumentRow{
			{
				ID:         "doc-1",
				Content:    "cell membranes are selectively permeable",
				Metadata:   []byte(`{"source":"bio.pdf"}`),
				CreatedAt:  pgtype.Timestamptz{Time: now, Valid: true},
				Similarity: 0.92,
			},
			{
				ID:         "doc-2",
				Content:    "osmosis is diffusion of water",
				Metadata:   []byte(`not json`),
				Similarity: 0.81,
			},
		},
	}
	store := New(querier, &mockEmbedder{}, nil)

	results, err := store.Retrieve(t.Context(), "how do membranes work", "user-1", 4)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Document.ID != "doc-1" || results[0].Similarity != 0.92 {
		t.Errorf("first result = %+v, want doc-1 with similarity 0.92", results[0])
	}
	if results[0].Document.Metadata["source"] != "bio.pdf" {
		t.Errorf("metadata = %v, want source=bio.pdf", results[0].Document.Metadata)
	}
	// Broken metadata degrades to an empty map, never a nil map or an error.
	if results[1].Document.Metadata == nil || len(results[1].Document.Metadata) != 0 {
		t.Errorf("broken metadata = %v, want empty map", results[1].Document.Metadata)
	}

	if len(querier.searchCalls) != 1 {
		t.Fatalf("search called %d times, want 1", len(querier.searchCalls))
	}
	call := querier.searchCalls[0]
	if call.Collection != "user-1" || call.ResultLimit != 4 {
		t.Errorf("search params = %+v, want collection user-1, limit 4", call)
	}
}

func TestRetrieveInvalidTopK(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	_, err := store.Retrieve(t.Context(), "query", "user-1", 0)
	if !errors.Is(err, ErrRetrieval) {
		t.Errorf("Retrieve(k=0) = %v, want ErrRetrieval", err)
	}
}

func TestRetrieveSearchErrorWrapsSentinel(t *testing.T) {
	querier := &mockQuerier{searchErr: errors.New("connection refused")}
	store := New(querier, &mockEmbedder{}, nil)

	_, err := store.Retrieve(t.Context(), "query", "user-1", 4)
	if !errors.Is(err, ErrRetrieval) {
		t.Errorf("Retrieve() = %v, want ErrRetrieval", err)
	}
}

func TestRetrieveEmptyCollection(t *testing.T) {
	store := New(&mockQuerier{}, &mockEmbedder{}, nil)

	results, err := store.Retrieve(t.Context(), "anything", "empty-user", 4)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty collection, want 0", len(results))
	}
}

func TestRetrieveAll(t *testing.T) {
	querier := &mockQuerier{
		listRows: []DocumentRow{
			{ID: "a", Content: "first chunk"},
			{ID: "b", Content: "second chunk"},
		},
	}
	store := New(querier, &mockEmbedder{}, nil)

	docs, err := store.RetrieveAll(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("RetrieveAll() error: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "a" || docs[1].ID != "b" {
		t.Errorf("RetrieveAll() = %+v, want [a b] in order", docs)
	}
	if len(querier.listCalls) != 1 || querier.listCalls[0] != "user-1" {
		t.Errorf("list calls = %v, want [user-1]", querier.listCalls)
	}
}

func TestCount(t *testing.T) {
	querier := &mockQuerier{countResult: 42}
	store := New(querier, &mockEmbedder{}, nil)

	n, err := store.Count(t.Context(), "user-1")
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 42 {
		t.Errorf("Count() = %d, want 42", n)
	}
}

func TestClearMissingCollectionIsNoOp(t *testing.T) {
	querier := &mockQuerier{deletedRows: 0}
	store := New(querier, &mockEmbedder{}, nil)

	if err := store.Clear(t.Context(), "never-existed"); err != nil {
		t.Errorf("Clear() error: %v", err)
	}
}
