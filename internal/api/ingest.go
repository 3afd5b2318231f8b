package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sturdystudy/sturdy/internal/log"
)

// maxIngestBytes bounds one ingestion request body. Course documents arrive
// as pre-extracted text, so 10 MiB is generous.
const maxIngestBytes = 10 << 20

// Ingestor chunks and stores extracted text; satisfied by *ingest.Ingestor.
type Ingestor interface {
	IngestText(ctx context.Context, text, source, collection string) (int, error)
}

// IngestHandler handles document ingestion endpoints.
type IngestHandler struct {
	ingestor Ingestor
	logger   log.Logger
}

// NewIngestHandler creates an ingest handler.
func NewIngestHandler(ingestor Ingestor, logger log.Logger) *IngestHandler {
	return &IngestHandler{ingestor: ingestor, logger: logger}
}

// RegisterRoutes registers ingestion routes on the given mux.
func (h *IngestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/ingest", h.ingest)
}

// IngestRequest is the request body for ingesting a document.
type IngestRequest struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	Collection string `json:"collection"`
}

// IngestResponse reports how many chunks one document produced.
type IngestResponse struct {
	Collection   string `json:"collection"`
	Source       string `json:"source"`
	ChunksStored int    `json:"chunks_stored"`
}

func (h *IngestHandler) ingest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBytes)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Collection == "" {
		writeError(w, http.StatusBadRequest, "missing_collection", "collection is required", h.logger)
		return
	}
	if req.Source == "" {
		req.Source = "untitled"
	}

	stored, err := h.ingestor.IngestText(r.Context(), req.Text, req.Source, req.Collection)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		Collection:   req.Collection,
		Source:       req.Source,
		ChunksStored: stored,
	}, h.logger)
}
