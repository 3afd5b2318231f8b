package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sturdystudy/sturdy/internal/log"
)

// ProblemFinder runs the web search augmentation pipeline; satisfied by
// *websearch.Augmentor.
type ProblemFinder interface {
	FindPracticeProblems(ctx context.Context, topic, collection string) (string, error)
}

// SearchHandler handles the practice-problem search endpoint.
type SearchHandler struct {
	finder ProblemFinder
	logger log.Logger
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(finder ProblemFinder, logger log.Logger) *SearchHandler {
	return &SearchHandler{finder: finder, logger: logger}
}

// RegisterRoutes registers search routes on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/search", h.search)
}

// SearchRequest is the request body for practice-problem search.
type SearchRequest struct {
	Topic      string `json:"topic"`
	Collection string `json:"collection"`
}

// SearchResponse carries the filtered practice problems.
type SearchResponse struct {
	Problems string `json:"problems"`
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Topic == "" || req.Collection == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "topic and collection are required", h.logger)
		return
	}

	problems, err := h.finder.FindPracticeProblems(r.Context(), req.Topic, req.Collection)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Problems: problems}, h.logger)
}
