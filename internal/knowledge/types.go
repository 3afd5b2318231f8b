package knowledge

import "time"

// VectorDimension is the embedding size stored in the documents table.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation via OutputDimensionality; 768 keeps index size reasonable with
// negligible retrieval quality loss.
const VectorDimension int32 = 768

// MetadataSource is the metadata key holding the origin of a document
// (file name, URL). Used by source-annotated context formatting.
const MetadataSource = "source"

// Document is one retrievable unit of study material. Content is a chunk of
// already-extracted text; Metadata carries provenance.
type Document struct {
	ID        string            // UUID
	Content   string            // chunk text
	Metadata  map[string]string // provenance (source, page, ...)
	CreatedAt time.Time
}

// Result is a single similarity search hit.
type Result struct {
	Document   Document
	Similarity float32 // cosine similarity (0-1)
}
