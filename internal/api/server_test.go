package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sturdystudy/sturdy/internal/agent"
	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/ingest"
	"github.com/sturdystudy/sturdy/internal/job"
)

type stubIngestor struct {
	stored int
	err    error
	text   string
	source string
}

func (s *stubIngestor) IngestText(_ context.Context, text, source, _ string) (int, error) {
	s.text = text
	s.source = source
	return s.stored, s.err
}

type stubAgent struct {
	state *agent.State
	err   error
}

func (s *stubAgent) Run(context.Context, string, string) (*agent.State, error) {
	return s.state, s.err
}

type stubChain struct {
	out string
	err error
	req chain.Request
}

func (s *stubChain) Run(_ context.Context, req chain.Request) (string, error) {
	s.req = req
	return s.out, s.err
}

type stubFinder struct {
	out string
	err error
}

func (s *stubFinder) FindPracticeProblems(context.Context, string, string) (string, error) {
	return s.out, s.err
}

type stubExams struct {
	job *job.Job
	err error
}

func (s *stubExams) StartExam(context.Context, string, int) (*job.Job, error) {
	return s.job, s.err
}

type stubJobs struct {
	job *job.Job
	err error
}

func (s *stubJobs) Get(context.Context, uuid.UUID) (*job.Job, error) {
	return s.job, s.err
}

// testServer builds a server around the given config, filling unset handler
// dependencies with benign stubs.
func testServer(cfg ServerConfig) *Server {
	if cfg.Ingestor == nil {
		cfg.Ingestor = &stubIngestor{stored: 1}
	}
	if cfg.Agent == nil {
		cfg.Agent = &stubAgent{state: &agent.State{Decision: "rag", Answer: "hello"}}
	}
	if cfg.Tutor == nil {
		cfg.Tutor = &stubChain{out: "tutor says hi"}
	}
	if cfg.Prioritize == nil {
		cfg.Prioritize = &stubChain{out: "study X first"}
	}
	if cfg.ConceptMap == nil {
		cfg.ConceptMap = &stubChain{out: "digraph G {}"}
	}
	if cfg.Definition == nil {
		cfg.Definition = &stubChain{out: "a definition"}
	}
	if cfg.Finder == nil {
		cfg.Finder = &stubFinder{out: "problems"}
	}
	if cfg.Exams == nil {
		cfg.Exams = &stubExams{}
	}
	if cfg.Jobs == nil {
		cfg.Jobs = &stubJobs{}
	}
	return NewServer(cfg)
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestIngestEndpoint(t *testing.T) {
	ingestor := &stubIngestor{stored: 7}
	srv := testServer(ServerConfig{Ingestor: ingestor})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/ingest",
		`{"text": "lecture notes", "source": "week1.pdf", "collection": "alice"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
	}

	var resp IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ChunksStored != 7 || resp.Source != "week1.pdf" {
		t.Errorf("response = %+v, want 7 chunks from week1.pdf", resp)
	}
	if ingestor.text != "lecture notes" {
		t.Errorf("ingestor received text %q", ingestor.text)
	}
}

func TestIngestValidation(t *testing.T) {
	srv := testServer(ServerConfig{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing collection", `{"text": "x"}`, http.StatusBadRequest},
		{"malformed body", `{"text": `, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/ingest", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	srv := testServer(ServerConfig{
		Ingestor: &stubIngestor{err: fmt.Errorf("wrapped: %w", ingest.ErrIngestion)},
	})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/ingest",
		`{"text": "   ", "collection": "alice"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error != "empty_document" {
		t.Errorf("error code = %q, want empty_document", resp.Error)
	}
}

func TestChatAnswerBranch(t *testing.T) {
	srv := testServer(ServerConfig{
		Agent: &stubAgent{state: &agent.State{Decision: agent.DecideRAG, Answer: "entropy measures disorder"}},
	})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/chat",
		`{"question": "what is entropy?", "collection": "alice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	var resp ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Decision != "rag" || resp.Answer == "" || resp.Quiz != nil {
		t.Errorf("response = %+v, want rag decision with answer only", resp)
	}
}

func TestChatQuizBranchReturnsRawJSON(t *testing.T) {
	quizJSON := `{"questions": [{"question_text": "Q?", "options": ["a", "b", "c", "d"], "correct_answer": "a"}]}`
	srv := testServer(ServerConfig{
		Agent: &stubAgent{state: &agent.State{Decision: agent.DecideQuiz, Quiz: quizJSON}},
	})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/chat",
		`{"question": "quiz me", "collection": "alice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	// The quiz must come back as a JSON object, not an escaped string.
	var resp struct {
		Decision string `json:"decision"`
		Quiz     struct {
			Questions []map[string]any `json:"questions"`
		} `json:"quiz"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Decision != "quiz" || len(resp.Quiz.Questions) != 1 {
		t.Errorf("response = %+v, want quiz with one question", resp)
	}
}

func TestTutorEndpoint(t *testing.T) {
	tutor := &stubChain{out: "what do you already know?"}
	srv := testServer(ServerConfig{Tutor: tutor})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/tutor",
		`{"topic": "entropy", "collection": "alice", "history": [{"role": "user", "content": "hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}
	if tutor.req.Query != "entropy" || len(tutor.req.History) != 1 {
		t.Errorf("tutor request = %+v, want topic and history forwarded", tutor.req)
	}
}

func TestTutorRejectsUnknownRole(t *testing.T) {
	srv := testServer(ServerConfig{})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/tutor",
		`{"topic": "entropy", "collection": "alice", "history": [{"role": "system", "content": "x"}]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStudyEndpoints(t *testing.T) {
	srv := testServer(ServerConfig{
		Prioritize: &stubChain{out: "1. thermodynamics"},
		ConceptMap: &stubChain{out: `digraph G { "a" -> "b" }`},
		Definition: &stubChain{out: "entropy: a measure of disorder"},
	})

	tests := []struct {
		path string
		body string
		key  string
	}{
		{"/api/v1/prioritize", `{"collection": "alice"}`, "plan"},
		{"/api/v1/concept-map", `{"collection": "alice"}`, "dot"},
		{"/api/v1/definition", `{"term": "entropy", "collection": "alice"}`, "definition"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doJSON(t, srv.Handler(), http.MethodPost, tt.path, tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
			}
			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if resp[tt.key] == "" {
				t.Errorf("response %v missing %q", resp, tt.key)
			}
		})
	}
}

func TestDefinitionRequiresTerm(t *testing.T) {
	srv := testServer(ServerConfig{})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/definition", `{"collection": "alice"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv := testServer(ServerConfig{Finder: &stubFinder{out: "1. Compute the entropy of..."}})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/search",
		`{"topic": "entropy", "collection": "alice"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Problems == "" {
		t.Error("response missing problems")
	}
}

func TestCreateExamAccepted(t *testing.T) {
	created := &job.Job{
		ID:           uuid.New(),
		Collection:   "alice",
		NumQuestions: 10,
		Status:       job.StatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	srv := testServer(ServerConfig{Exams: &stubExams{job: created}})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/exams",
		`{"collection": "alice", "num_questions": 10}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["id"] != created.ID.String() || resp["status"] != "pending" {
		t.Errorf("response = %v, want pending job %s", resp, created.ID)
	}
	if _, ok := resp["result"]; ok {
		t.Error("pending job payload carries a result")
	}
}

func TestCreateExamEmptyCorpus(t *testing.T) {
	srv := testServer(ServerConfig{
		Exams: &stubExams{err: fmt.Errorf("checking: %w", job.ErrEmptyCorpus)},
	})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/exams",
		`{"collection": "empty", "num_questions": 10}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Error != "empty_corpus" {
		t.Errorf("error code = %q, want empty_corpus", resp.Error)
	}
}

func TestCreateExamInvalidCount(t *testing.T) {
	srv := testServer(ServerConfig{
		Exams: &stubExams{err: job.ErrInvalidQuestionCount},
	})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/exams",
		`{"collection": "alice", "num_questions": 0}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetExamResultEmbeddedAsJSON(t *testing.T) {
	done := &job.Job{
		ID:         uuid.New(),
		Collection: "alice",
		Status:     job.StatusComplete,
		Result:     `{"questions": [{"question_text": "Q?", "options": ["a", "b", "c", "d"], "correct_answer": "a"}]}`,
	}
	srv := testServer(ServerConfig{Jobs: &stubJobs{job: done}})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/exams/"+done.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	var resp struct {
		Status string `json:"status"`
		Result struct {
			Questions []map[string]any `json:"questions"`
		} `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "complete" || len(resp.Result.Questions) != 1 {
		t.Errorf("response = %+v, want complete job with embedded questions", resp)
	}
}

func TestGetExamNotFound(t *testing.T) {
	srv := testServer(ServerConfig{Jobs: &stubJobs{err: job.ErrNotFound}})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/exams/"+uuid.NewString(), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetExamBadID(t *testing.T) {
	srv := testServer(ServerConfig{})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/exams/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGenerationFormatMapsToBadGateway(t *testing.T) {
	srv := testServer(ServerConfig{
		ConceptMap: &stubChain{err: fmt.Errorf("chain concept-map: %w", chain.ErrGenerationFormat)},
	})

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/concept-map", `{"collection": "alice"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502: %s", w.Code, w.Body)
	}
}

func TestHealthProbes(t *testing.T) {
	srv := testServer(ServerConfig{})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", w.Code)
	}

	// No pool configured, so readiness must fail.
	w = doJSON(t, srv.Handler(), http.MethodGet, "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz status = %d, want 503", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := testServer(ServerConfig{})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/exams/not-a-uuid", "")
	if _, err := uuid.Parse(w.Header().Get("X-Request-ID")); err != nil {
		t.Errorf("X-Request-ID = %q, want a UUID", w.Header().Get("X-Request-ID"))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(ServerConfig{})

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/chat", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}
