// Package api exposes the study assistant over HTTP.
//
// Endpoints:
//
//	POST /api/v1/ingest       store a document's text in a collection
//	POST /api/v1/chat         routed question answering (rag or quiz)
//	POST /api/v1/tutor        one Socratic tutoring turn
//	POST /api/v1/prioritize   whole-corpus study priorities
//	POST /api/v1/concept-map  whole-corpus Graphviz concept map
//	POST /api/v1/definition   word-for-word definition lookup
//	POST /api/v1/search       web-sourced practice problems
//	POST /api/v1/exams        launch an exam generation job
//	GET  /api/v1/exams/{id}   poll an exam job
//	GET  /healthz             liveness probe
//	GET  /readyz              readiness probe (database ping)
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, request ID, logging
//   - ratelimit.go: per-IP token bucket
//   - health.go: probes
//   - response.go: JSON response helpers and error mapping
//   - one file per resource handler
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sturdystudy/sturdy/internal/log"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to block Slowloris-style abuse.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Chain
	// calls wait on a model, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// ServerConfig bundles the dependencies of the HTTP server.
type ServerConfig struct {
	Logger     log.Logger
	Ingestor   Ingestor
	Agent      QuestionAgent
	Tutor      ChainRunner
	Prioritize ChainRunner
	ConceptMap ChainRunner
	Definition ChainRunner
	Finder     ProblemFinder
	Exams      ExamStarter
	Jobs       JobGetter
	Pool       *pgxpool.Pool // readiness probe; nil reports not ready
	RateBurst  int           // per-IP burst, 0 means default 60
	TrustProxy bool          // trust X-Real-IP/X-Forwarded-For
}

// Server is the HTTP server for the study assistant API.
type Server struct {
	handler http.Handler
	logger  log.Logger
}

// NewServer creates a server with all routes registered and the middleware
// stack applied: recovery, request ID, logging, rate limit, routes.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	NewIngestHandler(cfg.Ingestor, logger).RegisterRoutes(mux)
	NewChatHandler(cfg.Agent, cfg.Tutor, logger).RegisterRoutes(mux)
	NewStudyHandler(cfg.Prioritize, cfg.ConceptMap, cfg.Definition, logger).RegisterRoutes(mux)
	NewSearchHandler(cfg.Finder, logger).RegisterRoutes(mux)
	NewExamHandler(cfg.Exams, cfg.Jobs, logger).RegisterRoutes(mux)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	stack := middlewareChain(mux,
		recoveryMiddleware(logger),
		requestIDMiddleware(),
		loggingMiddleware(logger),
		rateLimitMiddleware(rl, cfg.TrustProxy, logger),
	)

	// Probes sit outside the middleware stack so monitoring never trips the
	// rate limiter.
	top := http.NewServeMux()
	NewHealthHandler(cfg.Pool, logger).RegisterRoutes(top)
	top.Handle("/", stack)

	return &Server{handler: top, logger: logger}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
