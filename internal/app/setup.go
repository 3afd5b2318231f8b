package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/sturdystudy/sturdy/db"
	"github.com/sturdystudy/sturdy/internal/agent"
	"github.com/sturdystudy/sturdy/internal/api"
	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/config"
	"github.com/sturdystudy/sturdy/internal/ingest"
	"github.com/sturdystudy/sturdy/internal/job"
	"github.com/sturdystudy/sturdy/internal/knowledge"
	"github.com/sturdystudy/sturdy/internal/log"
	"github.com/sturdystudy/sturdy/internal/observability"
	"github.com/sturdystudy/sturdy/internal/websearch"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must come before Genkit init so spans from model calls are
	// picked up by the registered processor.
	if cfg.Otel.Enabled {
		a.otelCleanup = provideTracing(ctx, cfg, logger)
	}

	pool, dbCleanup, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.Pool = pool

	g, err := provideGenkit(ctx, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(knowledge.NewPGQuerier(pool), embedder, logger)
	a.Chains = provideChains(g, a.Knowledge, cfg, logger)

	router := agent.NewRouter(g, cfg.RouterModelName, logger)
	a.Agent = agent.New(router, a.Chains.Answer, a.Chains.Quiz, logger)

	a.Augmentor = provideAugmentor(a.Chains, cfg, logger)
	a.Ingestor = ingest.New(a.Knowledge, ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap), logger)

	a.Jobs = job.NewStore(job.NewPGQuerier(pool), logger)
	a.JobRunner = job.NewRunner(a.Jobs, a.Knowledge, a.Chains.Exam, 0, logger)

	a.Server = api.NewServer(api.ServerConfig{
		Logger:     logger,
		Ingestor:   a.Ingestor,
		Agent:      a.Agent,
		Tutor:      a.Chains.Tutor,
		Prioritize: a.Chains.Prioritize,
		ConceptMap: a.Chains.ConceptMap,
		Definition: a.Chains.Definition,
		Finder:     a.Augmentor,
		Exams:      a.JobRunner,
		Jobs:       a.Jobs,
		Pool:       pool,
		RateBurst:  cfg.RateBurst,
		TrustProxy: cfg.TrustProxy,
	})

	return a, nil
}

// provideTracing registers the OTLP exporter and returns a cleanup that
// flushes pending spans with a bounded timeout.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	shutdown, err := observability.SetupTracing(ctx, observability.Config{
		Endpoint:    cfg.Otel.Endpoint,
		Environment: cfg.Otel.Environment,
		ServiceName: cfg.Otel.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("tracing setup failed, continuing without", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool with
// pgvector types registered on every connection.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The plugin
// reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context, logger log.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	logger.Info("initialized Genkit with Google AI provider")
	return g, nil
}

// provideChains builds every chain variant over the shared dependencies.
func provideChains(g *genkit.Genkit, retriever chain.Retriever, cfg *config.Config, logger log.Logger) Chains {
	deps := chain.Deps{
		G:         g,
		Retriever: retriever,
		Models: chain.Models{
			Primary: cfg.ModelName,
			Fast:    cfg.RouterModelName,
		},
		TopK:   cfg.TopK,
		Logger: logger,
	}
	return Chains{
		Answer:         chain.NewAnswer(deps),
		Quiz:           chain.NewQuiz(deps),
		Exam:           chain.NewExam(deps),
		Prioritize:     chain.NewPrioritize(deps),
		ConceptMap:     chain.NewConceptMap(deps),
		Tutor:          chain.NewTutor(deps),
		Definition:     chain.NewDefinition(deps),
		QuerySynthesis: chain.NewQuerySynthesis(deps),
		ResultAnalysis: chain.NewResultAnalysis(deps),
	}
}

// provideAugmentor wires the web search pipeline. Page fetching is optional;
// when disabled the analysis chain works from result snippets.
func provideAugmentor(chains Chains, cfg *config.Config, logger log.Logger) *websearch.Augmentor {
	client := websearch.NewClient(cfg.Search.BaseURL, cfg.Search.MaxResults, logger)

	var fetcher websearch.PageFetcher
	if cfg.Search.FetchPages {
		fetcher = websearch.NewFetcher(websearch.FetcherConfig{
			Parallelism: cfg.Search.Parallelism,
			Delay:       time.Duration(cfg.Search.DelayMs) * time.Millisecond,
			Timeout:     time.Duration(cfg.Search.TimeoutMs) * time.Millisecond,
		}, logger)
	}

	return websearch.NewAugmentor(
		chains.QuerySynthesis,
		chains.ResultAnalysis,
		client,
		fetcher,
		logger,
	)
}
