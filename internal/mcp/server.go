// Package mcp exposes the study assistant as MCP tools over stdio, so MCP
// clients (editors, agent hosts) can ask questions against a user's course
// material and generate quizzes from it.
package mcp

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sturdystudy/sturdy/internal/agent"
	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/log"
)

// QuestionAgent routes a question and executes the chosen branch; satisfied
// by *agent.Agent.
type QuestionAgent interface {
	Run(ctx context.Context, question, collection string) (*agent.State, error)
}

// QuizChain generates a quiz; satisfied by *chain.Chain.
type QuizChain interface {
	Run(ctx context.Context, req chain.Request) (string, error)
}

// Server wraps the MCP SDK server around the study assistant's core.
type Server struct {
	mcpServer *mcp.Server
	agent     QuestionAgent
	quiz      QuizChain
	logger    log.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Agent   QuestionAgent
	Quiz    QuizChain
	Logger  log.Logger
}

// NewServer creates an MCP server with the ask and generateQuiz tools
// registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Agent == nil || cfg.Quiz == nil {
		return nil, fmt.Errorf("agent and quiz chain are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		agent:  cfg.Agent,
		quiz:   cfg.Quiz,
		logger: logger,
	}

	if err := s.registerAsk(); err != nil {
		return nil, fmt.Errorf("registering ask: %w", err)
	}
	if err := s.registerGenerateQuiz(); err != nil {
		return nil, fmt.Errorf("registering generateQuiz: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// transport closes or the context is cancelled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Question   string `json:"question" jsonschema:"The question to answer from the stored course material"`
	Collection string `json:"collection" jsonschema:"The collection (user) whose documents to search"`
}

// registerAsk registers the routed question-answering tool. The router may
// pick the quiz branch if the question asks for one; either way the result
// comes back as text.
func (s *Server) registerAsk() error {
	inputSchema, err := jsonschema.For[AskInput](nil)
	if err != nil {
		return fmt.Errorf("creating input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the stored course material for a collection. Questions asking for a quiz are routed to quiz generation.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, any, error) {
		if in.Question == "" || in.Collection == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "question and collection are required"}},
				IsError: true,
			}, nil, nil
		}

		state, err := s.agent.Run(ctx, in.Question, in.Collection)
		if err != nil {
			s.logger.Warn("ask tool failed", "error", err)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("request failed: %v", err)}},
				IsError: true,
			}, nil, nil
		}

		text := state.Answer
		if state.Decision == agent.DecideQuiz {
			text = state.Quiz
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})

	return nil
}

// GenerateQuizInput defines the input schema for the generateQuiz tool.
type GenerateQuizInput struct {
	Request    string `json:"request" jsonschema:"What the quiz should cover, in the user's own words"`
	Collection string `json:"collection" jsonschema:"The collection (user) whose documents to quiz from"`
}

// registerGenerateQuiz registers the direct quiz generation tool. Output is
// the validated quiz JSON.
func (s *Server) registerGenerateQuiz() error {
	inputSchema, err := jsonschema.For[GenerateQuizInput](nil)
	if err != nil {
		return fmt.Errorf("creating input schema: %w", err)
	}

	tool := &mcp.Tool{
		Name:        "generateQuiz",
		Description: "Generate a multiple-choice quiz as JSON from the stored course material matching the request.",
		InputSchema: inputSchema,
	}

	mcp.AddTool(s.mcpServer, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in GenerateQuizInput) (*mcp.CallToolResult, any, error) {
		if in.Request == "" || in.Collection == "" {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "request and collection are required"}},
				IsError: true,
			}, nil, nil
		}

		quiz, err := s.quiz.Run(ctx, chain.Request{
			Collection: in.Collection,
			Query:      in.Request,
		})
		if err != nil {
			s.logger.Warn("generateQuiz tool failed", "error", err)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("quiz generation failed: %v", err)}},
				IsError: true,
			}, nil, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: quiz}},
		}, nil, nil
	})

	return nil
}
