package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/ingest"
	"github.com/sturdystudy/sturdy/internal/job"
	"github.com/sturdystudy/sturdy/internal/log"
)

// ErrorResponse is the JSON error body every endpoint uses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Encodes into a buffer first so headers are only sent after successful
// encoding; an encoding failure still yields a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding JSON response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("writing response body", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}

// writeDomainError maps sentinel errors from the domain packages onto HTTP
// statuses. Anything unrecognized is a 500 with the detail kept server-side.
func writeDomainError(w http.ResponseWriter, err error, logger log.Logger) {
	switch {
	case errors.Is(err, job.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "no such job", logger)
	case errors.Is(err, job.ErrEmptyCorpus):
		writeError(w, http.StatusConflict, "empty_corpus", "collection has no documents", logger)
	case errors.Is(err, job.ErrInvalidQuestionCount):
		writeError(w, http.StatusBadRequest, "invalid_question_count", err.Error(), logger)
	case errors.Is(err, ingest.ErrIngestion):
		writeError(w, http.StatusBadRequest, "empty_document", "document contains no substantive text", logger)
	case errors.Is(err, chain.ErrGenerationFormat):
		writeError(w, http.StatusBadGateway, "generation_format", "model output did not match the expected format", logger)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", logger)
	}
}
