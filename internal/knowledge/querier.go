package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// InsertDocumentParams carries one row for InsertDocument.
type InsertDocumentParams struct {
	ID         string
	Collection string
	Content    string
	Embedding  *pgvector.Vector
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
}

// SearchDocumentsParams configures a similarity search within one collection.
type SearchDocumentsParams struct {
	Collection     string
	QueryEmbedding *pgvector.Vector
	ResultLimit    int32
}

// DocumentRow is a raw documents-table row. Similarity is populated only by
// SearchDocuments; ListDocuments leaves it zero.
type DocumentRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float32
}

// Querier defines the database operations Store needs. The interface lives on
// the consumer side so tests can substitute an in-memory implementation.
type Querier interface {
	// InsertDocument inserts a single document row.
	InsertDocument(ctx context.Context, arg InsertDocumentParams) error

	// SearchDocuments returns the nearest rows in a collection by cosine
	// distance, best first.
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error)

	// ListDocuments returns every row in a collection in insertion order.
	ListDocuments(ctx context.Context, collection string) ([]DocumentRow, error)

	// CountDocuments counts rows in a collection.
	CountDocuments(ctx context.Context, collection string) (int64, error)

	// DeleteDocuments removes all rows in a collection, returning how many.
	DeleteDocuments(ctx context.Context, collection string) (int64, error)
}

// PGQuerier implements Querier on a pgx connection pool. The pool must have
// pgvector types registered (see app.ProvideDBPool).
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier wraps a pool in a Querier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

func (q *PGQuerier) InsertDocument(ctx context.Context, arg InsertDocumentParams) error {
	const stmt = `
		INSERT INTO documents (id, collection, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := q.pool.Exec(ctx, stmt,
		arg.ID, arg.Collection, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting document %q: %w", arg.ID, err)
	}
	return nil
}

func (q *PGQuerier) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error) {
	// <=> is cosine distance; similarity = 1 - distance.
	const stmt = `
		SELECT id, content, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE collection = $2
		ORDER BY embedding <=> $1
		LIMIT $3`
	rows, err := q.pool.Query(ctx, stmt, arg.QueryEmbedding, arg.Collection, arg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()
	return scanRows(rows, true)
}

func (q *PGQuerier) ListDocuments(ctx context.Context, collection string) ([]DocumentRow, error) {
	const stmt = `
		SELECT id, content, metadata, created_at
		FROM documents
		WHERE collection = $1
		ORDER BY created_at, id`
	rows, err := q.pool.Query(ctx, stmt, collection)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()
	return scanRows(rows, false)
}

func (q *PGQuerier) CountDocuments(ctx context.Context, collection string) (int64, error) {
	const stmt = `SELECT COUNT(*) FROM documents WHERE collection = $1`
	var count int64
	if err := q.pool.QueryRow(ctx, stmt, collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

func (q *PGQuerier) DeleteDocuments(ctx context.Context, collection string) (int64, error) {
	const stmt = `DELETE FROM documents WHERE collection = $1`
	tag, err := q.pool.Exec(ctx, stmt, collection)
	if err != nil {
		return 0, fmt.Errorf("deleting documents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRows(rows pgx.Rows, withSimilarity bool) ([]DocumentRow, error) {
	var out []DocumentRow
	for rows.Next() {
		var r DocumentRow
		var err error
		if withSimilarity {
			err = rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity)
		} else {
			err = rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading document rows: %w", err)
	}
	return out, nil
}
