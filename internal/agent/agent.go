package agent

import (
	"context"
	"fmt"

	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/log"
)

// State is the shared request state the agent mutates as it advances. Answer
// and Quiz are mutually exclusive: exactly one is populated on success,
// matching the router's decision.
type State struct {
	Question   string
	Collection string
	Decision   Decision
	Answer     string
	Quiz       string
}

// Runner is one executable chain. Both branch chains satisfy it.
type Runner interface {
	Run(ctx context.Context, req chain.Request) (string, error)
}

// Decider classifies the question; satisfied by *Router.
type Decider interface {
	Decide(ctx context.Context, question string) (Decision, error)
}

// Agent routes a question and executes the chosen branch. State lives only
// for the duration of one Run call; nothing is persisted between requests.
type Agent struct {
	router Decider
	answer Runner
	quiz   Runner
	logger log.Logger
}

// New creates an Agent from a router and the two branch chains.
func New(router Decider, answer, quiz Runner, logger log.Logger) *Agent {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Agent{
		router: router,
		answer: answer,
		quiz:   quiz,
		logger: logger,
	}
}

// Run executes router -> branch -> end for one question and returns the
// final state.
func (a *Agent) Run(ctx context.Context, question, collection string) (*State, error) {
	state := &State{
		Question:   question,
		Collection: collection,
	}

	decision, err := a.router.Decide(ctx, question)
	if err != nil {
		return nil, err
	}
	state.Decision = decision

	req := chain.Request{Collection: collection, Query: question}
	switch decision {
	case DecideRAG:
		answer, err := a.answer.Run(ctx, req)
		if err != nil {
			return nil, err
		}
		state.Answer = answer
	case DecideQuiz:
		quiz, err := a.quiz.Run(ctx, req)
		if err != nil {
			return nil, err
		}
		state.Quiz = quiz
	default:
		return nil, fmt.Errorf("unknown routing decision %q", decision)
	}

	a.logger.Info("agent run completed", "decision", state.Decision, "collection", collection)
	return state, nil
}
