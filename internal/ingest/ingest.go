package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/sturdystudy/sturdy/internal/knowledge"
	"github.com/sturdystudy/sturdy/internal/log"
)

// ErrIngestion indicates the supplied text produced no storable chunks.
var ErrIngestion = errors.New("ingestion failed")

// Adder is the slice of the knowledge store the ingestor needs.
type Adder interface {
	Add(ctx context.Context, docs []knowledge.Document, collection string) (int, error)
}

// Ingestor chunks extracted text and stores it under a collection.
type Ingestor struct {
	store   Adder
	chunker *Chunker
	logger  log.Logger
}

// New creates an Ingestor.
func New(store Adder, chunker *Chunker, logger log.Logger) *Ingestor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{store: store, chunker: chunker, logger: logger}
}

// IngestText splits text into chunks stamped with their source and stores
// them, returning how many chunks were stored. Text that chunks to nothing
// (empty, whitespace, or filtered out entirely) fails with ErrIngestion.
func (i *Ingestor) IngestText(ctx context.Context, text, source, collection string) (int, error) {
	chunks := i.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no substantive text in %q", ErrIngestion, source)
	}

	docs := make([]knowledge.Document, len(chunks))
	for idx, chunk := range chunks {
		docs[idx] = knowledge.Document{
			Content:  chunk,
			Metadata: map[string]string{knowledge.MetadataSource: source},
		}
	}

	stored, err := i.store.Add(ctx, docs, collection)
	if err != nil {
		return 0, fmt.Errorf("storing chunks from %q: %w", source, err)
	}

	i.logger.Info("ingested document",
		"source", source, "collection", collection, "chunks", stored)
	return stored, nil
}
