package websearch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sturdystudy/sturdy/internal/chain"
)

type stubRunner struct {
	response string
	err      error
	requests []chain.Request
}

func (s *stubRunner) Run(_ context.Context, req chain.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.response, s.err
}

type stubSearcher struct {
	results []SearchResult
	err     error
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) ([]SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

type stubFetcher struct {
	pages []Page
	urls  []string
}

func (s *stubFetcher) Fetch(urls []string) []Page {
	s.urls = urls
	return s.pages
}

func TestFindPracticeProblems(t *testing.T) {
	synth := &stubRunner{response: "calculus chain rule practice problems site:edu\n"}
	analyze := &stubRunner{response: "1. Differentiate f(x) = sin(x^2)."}
	searcher := &stubSearcher{results: []SearchResult{
		{Title: "Problems", URL: "https://a.example/p", Snippet: "chain rule drills"},
	}}
	fetcher := &stubFetcher{pages: []Page{
		{URL: "https://a.example/p", Content: "Problem 1: differentiate sin(x^2)"},
	}}

	aug := NewAugmentor(synth, analyze, searcher, fetcher, nil)
	out, err := aug.FindPracticeProblems(t.Context(), "chain rule", "alice")
	if err != nil {
		t.Fatalf("FindPracticeProblems() error: %v", err)
	}
	if out != "1. Differentiate f(x) = sin(x^2)." {
		t.Errorf("out = %q, want analysis output", out)
	}

	// Synthesized query is trimmed before searching.
	if len(searcher.queries) != 1 || searcher.queries[0] != "calculus chain rule practice problems site:edu" {
		t.Errorf("search queries = %q, want trimmed synthesized query", searcher.queries)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://a.example/p" {
		t.Errorf("fetched urls = %v, want result url", fetcher.urls)
	}
	// Analysis receives the fetched page content as context.
	if len(analyze.requests) != 1 || !strings.Contains(analyze.requests[0].Context, "Problem 1") {
		t.Errorf("analysis context = %q, want fetched content", analyze.requests[0].Context)
	}
	if analyze.requests[0].Query != "chain rule" {
		t.Errorf("analysis topic = %q, want chain rule", analyze.requests[0].Query)
	}
}

func TestFindPracticeProblemsDegradesOnSearchFailure(t *testing.T) {
	synth := &stubRunner{response: "some query"}
	analyze := &stubRunner{response: "I could not search the web right now."}
	searcher := &stubSearcher{err: ErrSearchFailed}

	aug := NewAugmentor(synth, analyze, searcher, nil, nil)
	out, err := aug.FindPracticeProblems(t.Context(), "topic", "alice")
	if err != nil {
		t.Fatalf("FindPracticeProblems() must degrade, got error: %v", err)
	}
	if out == "" {
		t.Fatal("expected degraded output")
	}
	if !strings.Contains(analyze.requests[0].Context, "An error occurred while searching") {
		t.Errorf("analysis context = %q, want error explanation", analyze.requests[0].Context)
	}
}

func TestFindPracticeProblemsSnippetFallback(t *testing.T) {
	synth := &stubRunner{response: "q"}
	analyze := &stubRunner{response: "here are problems"}
	searcher := &stubSearcher{results: []SearchResult{
		{Title: "Hits", URL: "https://a.example", Snippet: "integral drills"},
	}}
	fetcher := &stubFetcher{} // fetch yields nothing

	aug := NewAugmentor(synth, analyze, searcher, fetcher, nil)
	_, err := aug.FindPracticeProblems(t.Context(), "integrals", "alice")
	if err != nil {
		t.Fatalf("FindPracticeProblems() error: %v", err)
	}
	ctx := analyze.requests[0].Context
	if !strings.Contains(ctx, "integral drills") {
		t.Errorf("analysis context = %q, want snippet fallback", ctx)
	}
}

func TestFindPracticeProblemsNoResults(t *testing.T) {
	synth := &stubRunner{response: "q"}
	analyze := &stubRunner{response: "nothing found"}
	searcher := &stubSearcher{} // zero results

	aug := NewAugmentor(synth, analyze, searcher, nil, nil)
	_, err := aug.FindPracticeProblems(t.Context(), "topic", "alice")
	if err != nil {
		t.Fatalf("FindPracticeProblems() error: %v", err)
	}
	if analyze.requests[0].Context != noContentMessage {
		t.Errorf("analysis context = %q, want %q", analyze.requests[0].Context, noContentMessage)
	}
}

func TestFindPracticeProblemsSynthesisErrorFails(t *testing.T) {
	synthErr := errors.New("model down")
	aug := NewAugmentor(&stubRunner{err: synthErr}, &stubRunner{}, &stubSearcher{}, nil, nil)

	_, err := aug.FindPracticeProblems(t.Context(), "topic", "alice")
	if !errors.Is(err, synthErr) {
		t.Errorf("FindPracticeProblems() = %v, want synthesis error", err)
	}
}
