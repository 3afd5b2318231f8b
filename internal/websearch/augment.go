package websearch

import (
	"context"
	"fmt"
	"strings"

	"github.com/sturdystudy/sturdy/internal/chain"
	"github.com/sturdystudy/sturdy/internal/log"
)

// pageSeparator joins scraped pages into one analysis context.
const pageSeparator = "\n\n--- NEW PAGE ---\n\n"

// noContentMessage stands in for the scraped content when nothing usable
// came back; the analysis chain turns it into an explanation for the user.
const noContentMessage = "No content found."

// Runner is one executable chain (query synthesis or result analysis).
type Runner interface {
	Run(ctx context.Context, req chain.Request) (string, error)
}

// Searcher finds search hits for a query; satisfied by *Client.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// PageFetcher extracts text from result pages; satisfied by *Fetcher.
// May be nil to analyze snippets only.
type PageFetcher interface {
	Fetch(urls []string) []Page
}

// Augmentor runs the full practice-problem pipeline: synthesize a search
// query from the user's own material, search, optionally fetch pages, and
// filter the content down to practice problems.
type Augmentor struct {
	synthesize Runner
	analyze    Runner
	searcher   Searcher
	fetcher    PageFetcher
	logger     log.Logger
}

// NewAugmentor creates an Augmentor. fetcher may be nil.
func NewAugmentor(synthesize, analyze Runner, searcher Searcher, fetcher PageFetcher, logger log.Logger) *Augmentor {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Augmentor{
		synthesize: synthesize,
		analyze:    analyze,
		searcher:   searcher,
		fetcher:    fetcher,
		logger:     logger,
	}
}

// FindPracticeProblems returns a filtered list of practice problems for the
// topic. Search and fetch failures degrade: the analysis chain still runs
// and explains what went wrong instead of the request failing.
func (a *Augmentor) FindPracticeProblems(ctx context.Context, topic, collection string) (string, error) {
	query, err := a.synthesize.Run(ctx, chain.Request{Collection: collection, Query: topic})
	if err != nil {
		return "", fmt.Errorf("synthesizing search query: %w", err)
	}
	query = strings.TrimSpace(query)

	content := a.gather(ctx, query)

	out, err := a.analyze.Run(ctx, chain.Request{Query: topic, Context: content})
	if err != nil {
		return "", fmt.Errorf("analyzing search results: %w", err)
	}
	return out, nil
}

// gather turns a search query into analysis context, degrading to an
// explanatory message on failure.
func (a *Augmentor) gather(ctx context.Context, query string) string {
	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		a.logger.Warn("web search failed, degrading", "error", err)
		return fmt.Sprintf("An error occurred while searching: %v", err)
	}
	if len(results) == 0 {
		return noContentMessage
	}

	if a.fetcher != nil {
		urls := make([]string, len(results))
		for i, r := range results {
			urls[i] = r.URL
		}
		if pages := a.fetcher.Fetch(urls); len(pages) > 0 {
			parts := make([]string, len(pages))
			for i, p := range pages {
				parts[i] = p.Content
			}
			return strings.Join(parts, pageSeparator)
		}
		a.logger.Warn("page fetching yielded nothing, falling back to snippets")
	}

	// Snippet fallback keeps the pipeline useful without page access.
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Snippet == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)\n%s", r.Title, r.URL, r.Snippet))
	}
	if len(parts) == 0 {
		return noContentMessage
	}
	return strings.Join(parts, pageSeparator)
}
