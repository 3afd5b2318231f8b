package app

import (
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/sturdystudy/sturdy/internal/config"
	"github.com/sturdystudy/sturdy/internal/log"
)

func TestCloseOnEmptyApp(t *testing.T) {
	a := &App{}
	if err := a.Close(); err != nil {
		t.Errorf("Close() on empty app: %v", err)
	}
}

func TestProvideChainsBuildsAllVariants(t *testing.T) {
	g := genkit.Init(t.Context())
	cfg := &config.Config{
		ModelName:       "gemini-2.5-pro",
		RouterModelName: "gemini-2.5-flash",
		TopK:            4,
	}

	chains := provideChains(g, nil, cfg, log.NewNop())

	named := map[string]interface{ Name() string }{
		"answer":          chains.Answer,
		"quiz":            chains.Quiz,
		"exam":            chains.Exam,
		"prioritize":      chains.Prioritize,
		"concept-map":     chains.ConceptMap,
		"tutor":           chains.Tutor,
		"definition":      chains.Definition,
		"query-synthesis": chains.QuerySynthesis,
		"result-analysis": chains.ResultAnalysis,
	}
	for want, c := range named {
		if c == nil {
			t.Errorf("chain %q is nil", want)
			continue
		}
		if got := c.Name(); got != want {
			t.Errorf("chain name = %q, want %q", got, want)
		}
	}
}

func TestProvideAugmentor(t *testing.T) {
	g := genkit.Init(t.Context())
	cfg := &config.Config{
		ModelName:       "gemini-2.5-pro",
		RouterModelName: "gemini-2.5-flash",
		TopK:            4,
	}
	cfg.Search.BaseURL = "http://localhost:8888"
	cfg.Search.MaxResults = 5

	chains := provideChains(g, nil, cfg, log.NewNop())
	if a := provideAugmentor(chains, cfg, log.NewNop()); a == nil {
		t.Error("provideAugmentor() returned nil")
	}

	cfg.Search.FetchPages = true
	if a := provideAugmentor(chains, cfg, log.NewNop()); a == nil {
		t.Error("provideAugmentor() with page fetching returned nil")
	}
}

func TestMCPServerRequiresAgent(t *testing.T) {
	a := &App{Logger: log.NewNop()}
	if _, err := a.MCPServer("sturdy", "test"); err == nil {
		t.Error("MCPServer() without agent succeeded, want error")
	}
}
