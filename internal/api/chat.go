package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sturdystudy/sturdy/internal/agent"
	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/log"
)

// ChainRunner is one executable chain; satisfied by *chain.Chain.
type ChainRunner interface {
	Run(ctx context.Context, req chain.Request) (string, error)
}

// QuestionAgent routes a question and executes the chosen branch; satisfied
// by *agent.Agent.
type QuestionAgent interface {
	Run(ctx context.Context, question, collection string) (*agent.State, error)
}

// ChatHandler handles the routed chat and tutoring endpoints.
type ChatHandler struct {
	agent  QuestionAgent
	tutor  ChainRunner
	logger log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(questionAgent QuestionAgent, tutor ChainRunner, logger log.Logger) *ChatHandler {
	return &ChatHandler{agent: questionAgent, tutor: tutor, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.chat)
	mux.HandleFunc("POST /api/v1/tutor", h.tutorTurn)
}

// ChatRequest is the request body for the routed chat endpoint.
type ChatRequest struct {
	Question   string `json:"question"`
	Collection string `json:"collection"`
}

// ChatResponse carries the routed result. Exactly one of Answer and Quiz is
// set, matching Decision.
type ChatResponse struct {
	Decision string          `json:"decision"`
	Answer   string          `json:"answer,omitempty"`
	Quiz     json.RawMessage `json:"quiz,omitempty"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Question == "" || req.Collection == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "question and collection are required", h.logger)
		return
	}

	state, err := h.agent.Run(r.Context(), req.Question, req.Collection)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	resp := ChatResponse{Decision: string(state.Decision), Answer: state.Answer}
	if state.Quiz != "" {
		resp.Quiz = json.RawMessage(state.Quiz)
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

// TutorRequest is the request body for one tutoring turn. History carries the
// prior turns of the conversation; the core never persists them.
type TutorRequest struct {
	Topic      string          `json:"topic"`
	Collection string          `json:"collection"`
	History    []chain.Message `json:"history"`
}

// TutorResponse carries the tutor's next message.
type TutorResponse struct {
	Reply string `json:"reply"`
}

func (h *ChatHandler) tutorTurn(w http.ResponseWriter, r *http.Request) {
	var req TutorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if req.Topic == "" || req.Collection == "" {
		writeError(w, http.StatusBadRequest, "missing_field", "topic and collection are required", h.logger)
		return
	}
	for _, m := range req.History {
		if m.Role != "user" && m.Role != "assistant" {
			writeError(w, http.StatusBadRequest, "invalid_role", "history roles must be user or assistant", h.logger)
			return
		}
	}

	reply, err := h.tutor.Run(r.Context(), chain.Request{
		Collection: req.Collection,
		Query:      req.Topic,
		History:    req.History,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, TutorResponse{Reply: reply}, h.logger)
}
