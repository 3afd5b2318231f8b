package api

import (
	"encoding/json"
	"net/http"

	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/log"
)

// StudyHandler handles the whole-corpus study aids and definition lookup.
type StudyHandler struct {
	prioritize ChainRunner
	conceptMap ChainRunner
	definition ChainRunner
	logger     log.Logger
}

// NewStudyHandler creates a study handler.
func NewStudyHandler(prioritize, conceptMap, definition ChainRunner, logger log.Logger) *StudyHandler {
	return &StudyHandler{
		prioritize: prioritize,
		conceptMap: conceptMap,
		definition: definition,
		logger:     logger,
	}
}

// RegisterRoutes registers study routes on the given mux.
func (h *StudyHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/prioritize", h.prioritizeTopics)
	mux.HandleFunc("POST /api/v1/concept-map", h.buildConceptMap)
	mux.HandleFunc("POST /api/v1/definition", h.lookupDefinition)
}

// CollectionRequest is the request body for whole-corpus operations.
type CollectionRequest struct {
	Collection string `json:"collection"`
}

func (h *StudyHandler) prioritizeTopics(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCollectionRequest(w, r, h.logger)
	if !ok {
		return
	}

	plan, err := h.prioritize.Run(r.Context(), chain.Request{Collection: req.Collection})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plan": plan}, h.logger)
}

func (h *StudyHandler) buildConceptMap(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCollectionRequest(w, r, h.logger)
	if !ok {
		return
	}

	dot, err := h.conceptMap.Run(r.Context(), chain.Request{Collection: req.Collection})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"dot": dot}, h.logger)
}

// DefinitionRequest is the request body for definition lookup.
type DefinitionRequest struct {
	Term       string `json:"term"`
	Collection string `json:"collection"`
}

func (h *StudyHandler) lookupDefinition(w http.ResponseWriter, r *http.Request) {
	var req DefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Term == "" || req.Collection == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "term and collection are required", h.logger)
		return
	}

	definition, err := h.definition.Run(r.Context(), chain.Request{
		Collection: req.Collection,
		Query:      req.Term,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"definition": definition}, h.logger)
}

func decodeCollectionRequest(w http.ResponseWriter, r *http.Request, logger log.Logger) (CollectionRequest, bool) {
	var req CollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", logger)
		return req, false
	}
	if req.Collection == "" {
		writeError(w, http.StatusBadRequest, "missing_collection", "collection is required", logger)
		return req, false
	}
	return req, true
}
