package chain

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/sturdystudy/sturdy/internal/knowledge"
	"github.com/sturdystudy/sturdy/internal/log"
)

// RetrievalMode selects how a chain sources its context.
type RetrievalMode int

const (
	// RetrieveNone uses only the context supplied on the request.
	RetrieveNone RetrievalMode = iota
	// RetrieveTopK runs a similarity search with the request query.
	RetrieveTopK
	// RetrieveEverything loads the whole collection.
	RetrieveEverything
)

// Retriever is the slice of the knowledge store chains depend on.
type Retriever interface {
	Retrieve(ctx context.Context, query, collection string, k int) ([]knowledge.Result, error)
	RetrieveAll(ctx context.Context, collection string) ([]knowledge.Document, error)
}

// Message is one turn of tutor chat history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Request carries the inputs for one chain run. Query doubles as the
// retrieval query and the {question}/{topic}/{term} template value.
type Request struct {
	Collection   string
	Query        string
	NumQuestions int       // exam only
	History      []Message // tutor only
	Context      string    // pre-formatted context; skips retrieval when set
}

// Chain is one configured prompt chain. Construct via the New* variants;
// fields pin the template, retrieval behavior, model, and output contract.
//
// Safe for concurrent use.
type Chain struct {
	name          string
	template      string // user prompt template
	system        string // system prompt template (tutor), "" otherwise
	mode          RetrievalMode
	includeSource bool
	parser        Parser
	model         string
	temperature   float32
	topK          int

	g         *genkit.Genkit
	retriever Retriever
	logger    log.Logger
}

// Name identifies the chain variant in logs and job records.
func (c *Chain) Name() string { return c.name }

// Run resolves context, fills the template, calls the model once, and parses
// the output. Model output failing the chain's contract returns
// ErrGenerationFormat without retrying.
func (c *Chain) Run(ctx context.Context, req Request) (string, error) {
	contextText, err := c.resolveContext(ctx, req)
	if err != nil {
		return "", err
	}

	vars := map[string]string{
		"{context}":         contextText,
		"{scraped_content}": contextText,
		"{question}":        req.Query,
		"{topic}":           req.Query,
		"{term}":            req.Query,
		"{user_question}":   req.Query,
		"{num_questions}":   strconv.Itoa(req.NumQuestions),
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(c.model),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(c.temperature),
		}),
	}

	if c.system != "" {
		opts = append(opts,
			ai.WithSystem(fill(c.system, vars)),
			ai.WithMessages(append(historyMessages(req.History), ai.NewUserTextMessage(req.Query))...),
		)
	} else {
		opts = append(opts, ai.WithPrompt(fill(c.template, vars)))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("chain %s: generating: %w", c.name, err)
	}

	out, err := c.parser(resp.Text())
	if err != nil {
		c.logger.Warn("chain output failed parsing",
			"chain", c.name, "error", err, "output_length", len(resp.Text()))
		return "", fmt.Errorf("chain %s: %w", c.name, err)
	}

	c.logger.Debug("chain completed", "chain", c.name, "collection", req.Collection)
	return out, nil
}

// resolveContext honors request-supplied context first, then the chain's
// retrieval mode. An empty corpus produces an empty context, not an error.
func (c *Chain) resolveContext(ctx context.Context, req Request) (string, error) {
	if req.Context != "" {
		return req.Context, nil
	}
	switch c.mode {
	case RetrieveNone:
		return "", nil
	case RetrieveTopK:
		results, err := c.retriever.Retrieve(ctx, req.Query, req.Collection, c.topK)
		if err != nil {
			return "", fmt.Errorf("chain %s: %w", c.name, err)
		}
		return Format(resultDocs(results), c.includeSource), nil
	case RetrieveEverything:
		docs, err := c.retriever.RetrieveAll(ctx, req.Collection)
		if err != nil {
			return "", fmt.Errorf("chain %s: %w", c.name, err)
		}
		return Format(docs, c.includeSource), nil
	default:
		return "", fmt.Errorf("chain %s: unknown retrieval mode %d", c.name, c.mode)
	}
}

func historyMessages(history []Message) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case "user":
			msgs = append(msgs, ai.NewUserTextMessage(m.Content))
		case "assistant":
			msgs = append(msgs, ai.NewModelTextMessage(m.Content))
		}
	}
	return msgs
}

// fill substitutes template placeholders. Placeholders absent from the
// template are ignored; unknown text is left untouched.
func fill(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, k, v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
