package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/sturdystudy/sturdy/internal/job"
	"github.com/sturdystudy/sturdy/internal/log"
)

// ExamStarter validates and launches exam generation jobs; satisfied by
// *job.Runner.
type ExamStarter interface {
	StartExam(ctx context.Context, collection string, numQuestions int) (*job.Job, error)
}

// JobGetter loads a job by ID; satisfied by *job.Store.
type JobGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*job.Job, error)
}

// ExamHandler handles exam job endpoints.
type ExamHandler struct {
	exams  ExamStarter
	jobs   JobGetter
	logger log.Logger
}

// NewExamHandler creates an exam handler.
func NewExamHandler(exams ExamStarter, jobs JobGetter, logger log.Logger) *ExamHandler {
	return &ExamHandler{exams: exams, jobs: jobs, logger: logger}
}

// RegisterRoutes registers exam routes on the given mux.
func (h *ExamHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/exams", h.create)
	mux.HandleFunc("GET /api/v1/exams/{id}", h.get)
}

// CreateExamRequest is the request body for launching an exam job.
type CreateExamRequest struct {
	Collection   string `json:"collection"`
	NumQuestions int    `json:"num_questions"`
}

func (h *ExamHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Collection == "" {
		writeError(w, http.StatusBadRequest, "missing_collection", "collection is required", h.logger)
		return
	}

	created, err := h.exams.StartExam(r.Context(), req.Collection, req.NumQuestions)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusAccepted, jobPayload(created), h.logger)
}

func (h *ExamHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "job ID must be a UUID", h.logger)
		return
	}

	found, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, jobPayload(found), h.logger)
}

// jobPayload renders a job for clients. Result is embedded as raw JSON so
// completed exams come back as a structure, not an escaped string.
func jobPayload(j *job.Job) map[string]any {
	p := map[string]any{
		"id":            j.ID,
		"collection":    j.Collection,
		"num_questions": j.NumQuestions,
		"status":        j.Status,
		"created_at":    j.CreatedAt,
		"updated_at":    j.UpdatedAt,
	}
	if j.Result != "" {
		p["result"] = json.RawMessage(j.Result)
	}
	if j.Error != "" {
		p["error"] = j.Error
	}
	return p
}
