// Package agent routes a chat request to the right chain and runs it through
// an explicit state machine.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/sturdystudy/sturdy/internal/log"
)

// Decision is the router's verdict on a question.
type Decision string

const (
	// DecideRAG answers the question from course material.
	DecideRAG Decision = "rag"
	// DecideQuiz generates a quiz instead of an answer.
	DecideQuiz Decision = "quiz"
)

const routerTemplate = `
Analyze the user's question and decide which tool to use.
Respond with "rag" if the user is asking a question.
Respond with "quiz" if the user is asking to be quizzed or for a test.

User Question:
{question}

Your decision (rag or quiz):
`

// Router classifies questions with a single low-temperature model call.
type Router struct {
	g      *genkit.Genkit
	model  string
	logger log.Logger
}

// NewRouter creates a Router using the given (fast) model.
func NewRouter(g *genkit.Genkit, model string, logger log.Logger) *Router {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Router{g: g, model: model, logger: logger}
}

// Decide classifies a question. Any reply containing "quiz" (case-insensitive)
// selects the quiz branch; every other reply, including unexpected ones,
// defaults to rag. The call is never retried.
func (r *Router) Decide(ctx context.Context, question string) (Decision, error) {
	prompt := strings.Replace(routerTemplate, "{question}", question, 1)

	resp, err := genkit.Generate(ctx, r.g,
		ai.WithModelName(r.model),
		ai.WithPrompt(prompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0)),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("routing question: %w", err)
	}

	decision := DecideRAG
	if strings.Contains(strings.ToLower(resp.Text()), "quiz") {
		decision = DecideQuiz
	}
	r.logger.Debug("routed question", "decision", decision)
	return decision, nil
}
