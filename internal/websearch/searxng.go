// Package websearch finds practice problems on the open web: a SearXNG
// query, optional page fetching, and a model pass that filters the haul down
// to actual problems.
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/sturdystudy/sturdy/internal/log"
)

// MaxResults caps how many search hits are considered per query.
const MaxResults = 5

// ErrSearchFailed indicates the SearXNG instance was unreachable or returned
// an unusable response.
var ErrSearchFailed = errors.New("web search failed")

// SearchResult is one search hit with its tag-stripped snippet.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Client queries a SearXNG instance over its JSON API.
type Client struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a SearXNG client. maxResults above MaxResults is clamped.
func NewClient(baseURL string, maxResults int, logger log.Logger) *Client {
	if maxResults <= 0 || maxResults > MaxResults {
		maxResults = MaxResults
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// searxResponse mirrors the fields we use from SearXNG's JSON format.
type searxResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search runs one query and returns at most maxResults hits. Snippets are
// stripped of HTML tags.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrSearchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSearchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrSearchFailed, err)
	}

	var parsed searxResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrSearchFailed, err)
	}

	results := make([]SearchResult, 0, c.maxResults)
	for _, r := range parsed.Results {
		if len(results) == c.maxResults {
			break
		}
		if r.URL == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: stripTags(r.Content),
		})
	}

	c.logger.Debug("search completed", "query_length", len(query), "results", len(results))
	return results, nil
}

// stripTags removes HTML markup from a snippet, keeping only text content.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return strings.TrimSpace(s)
	}
	var sb strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			sb.Write(tokenizer.Text())
		}
	}
	return strings.TrimSpace(sb.String())
}
