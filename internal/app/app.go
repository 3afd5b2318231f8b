// Package app provides application initialization and dependency injection.
//
// App is the container that wires configuration, the database pool, Genkit,
// the knowledge store, the chains, the agent, web search, and the job runner
// together. Everything flows through constructors; there are no package-level
// singletons.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sturdystudy/sturdy/internal/agent"
	"github.com/sturdystudy/sturdy/internal/api"
	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/config"
	"github.com/sturdystudy/sturdy/internal/ingest"
	"github.com/sturdystudy/sturdy/internal/job"
	"github.com/sturdystudy/sturdy/internal/knowledge"
	"github.com/sturdystudy/sturdy/internal/log"
	"github.com/sturdystudy/sturdy/internal/mcp"
	"github.com/sturdystudy/sturdy/internal/websearch"
)

// Chains holds every configured chain variant.
type Chains struct {
	Answer         *chain.Chain
	Quiz           *chain.Chain
	Exam           *chain.Chain
	Prioritize     *chain.Chain
	ConceptMap     *chain.Chain
	Tutor          *chain.Chain
	Definition     *chain.Chain
	QuerySynthesis *chain.Chain
	ResultAnalysis *chain.Chain
}

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Knowledge *knowledge.Store
	Chains    Chains
	Agent     *agent.Agent
	Augmentor *websearch.Augmentor
	Ingestor  *ingest.Ingestor
	Jobs      *job.Store
	JobRunner *job.Runner
	Server    *api.Server

	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully shuts down all resources. In-flight exam jobs are waited
// for so their terminal state lands in the database before the pool closes.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.JobRunner != nil {
		a.JobRunner.Wait()
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// MCPServer builds an MCP server over the app's agent and quiz chain.
func (a *App) MCPServer(name, version string) (*mcp.Server, error) {
	return mcp.NewServer(mcp.Config{
		Name:    name,
		Version: version,
		Agent:   a.Agent,
		Quiz:    a.Chains.Quiz,
		Logger:  a.Logger,
	})
}
