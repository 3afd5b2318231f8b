// Package knowledge stores and retrieves per-user study material with vector
// similarity search on PostgreSQL + pgvector.
//
// Every operation is scoped by a collection name, one per user. Collections
// are implicit: writing to one creates it, clearing one empties it.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/sturdystudy/sturdy/internal/log"
)

// ErrRetrieval indicates the store could not embed a query or reach the
// database. Callers surface it as a request error; nothing is retried.
var ErrRetrieval = errors.New("retrieval failed")

// searchTimeout bounds a single vector search so a slow query cannot pin a
// request goroutine.
const searchTimeout = 10 * time.Second

// Store manages study documents with vector search.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// New creates a Store. logger may be nil for tests.
func New(querier Querier, embedder ai.Embedder, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// Add embeds and stores documents in a collection, returning how many were
// stored. Documents with empty or whitespace-only content are dropped before
// embedding; adding zero usable documents is a no-op returning 0, nil.
//
// Missing IDs are assigned; missing timestamps get the current time.
func (s *Store) Add(ctx context.Context, docs []Document, collection string) (int, error) {
	usable := make([]Document, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Content) == "" {
			continue
		}
		usable = append(usable, d)
	}
	if len(usable) == 0 {
		return 0, nil
	}

	embeddings, err := s.embed(ctx, contents(usable))
	if err != nil {
		return 0, fmt.Errorf("embedding %d documents: %w", len(usable), err)
	}

	now := time.Now()
	for i, d := range usable {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		metadataJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return i, fmt.Errorf("marshaling metadata for %q: %w", d.ID, err)
		}
		if err := s.queries.InsertDocument(ctx, InsertDocumentParams{
			ID:         d.ID,
			Collection: collection,
			Content:    d.Content,
			Embedding:  &embeddings[i],
			Metadata:   metadataJSON,
			CreatedAt:  pgtype.Timestamptz{Time: d.CreatedAt, Valid: true},
		}); err != nil {
			return i, fmt.Errorf("storing document %q: %w", d.ID, err)
		}
	}

	s.logger.Debug("added documents",
		"collection", collection, "stored", len(usable), "dropped", len(docs)-len(usable))
	return len(usable), nil
}

// Retrieve returns up to k documents from a collection most similar to the
// query, best first. An empty collection yields an empty slice, not an error.
func (s *Store) Retrieve(ctx context.Context, query, collection string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: top-k must be positive, got %d", ErrRetrieval, k)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embeddings, err := s.embed(queryCtx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrRetrieval, err)
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		Collection:     collection,
		QueryEmbedding: &embeddings[0],
		ResultLimit:    clampLimit(k),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	return rowsToResults(rows, s.logger), nil
}

// RetrieveAll returns every document in a collection in insertion order.
// Results carry no similarity score. Used by exam generation, which needs the
// whole corpus rather than a query neighborhood.
func (s *Store) RetrieveAll(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.queries.ListDocuments(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rowsToResults(rows, s.logger) {
		docs = append(docs, r.Document)
	}
	return docs, nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	count, err := s.queries.CountDocuments(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	// 32-bit overflow guard.
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Clear removes all documents in a collection. Clearing a collection that
// does not exist is a no-op.
func (s *Store) Clear(ctx context.Context, collection string) error {
	deleted, err := s.queries.DeleteDocuments(ctx, collection)
	if err != nil {
		return fmt.Errorf("clearing collection %q: %w", collection, err)
	}
	s.logger.Debug("cleared collection", "collection", collection, "deleted", deleted)
	return nil
}

// embed generates vectors for the given texts, truncated to VectorDimension.
func (s *Store) embed(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	dim := VectorDimension
	input := make([]*ai.Document, len(texts))
	for i, t := range texts {
		input[i] = ai.DocumentFromText(t, nil)
	}
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   input,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([]pgvector.Vector, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		out[i] = pgvector.NewVector(e.Embedding)
	}
	return out, nil
}

func contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}

func clampLimit(k int) int32 {
	if k > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(k)
}

// rowsToResults converts raw rows to the business model. Unparseable metadata
// is logged and replaced with an empty map rather than failing the search.
func rowsToResults(rows []DocumentRow, logger log.Logger) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			}
		}
		if metadata == nil {
			metadata = make(map[string]string)
		}

		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: createdAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}
