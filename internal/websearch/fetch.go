package websearch

import (
	"bytes"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/sturdystudy/sturdy/internal/log"
)

// FetcherConfig bounds page fetching. Zero values fall back to defaults.
type FetcherConfig struct {
	Parallelism int           // concurrent requests per domain (default 2)
	Delay       time.Duration // delay between requests per domain (default 1s)
	Timeout     time.Duration // per-request timeout (default 30s)
	UserAgent   string
}

func (c FetcherConfig) withDefaults() FetcherConfig {
	if c.Parallelism <= 0 {
		c.Parallelism = 2
	}
	if c.Delay <= 0 {
		c.Delay = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "sturdy/1.0 (study assistant)"
	}
	return c
}

// originURLKey carries the originally requested URL through redirects.
const originURLKey = "origin_url"

// Page is the extracted text of one fetched result page.
type Page struct {
	URL     string
	Content string
}

// Fetcher downloads result pages politely and extracts their readable text.
// Extraction tries readability first and falls back to paragraph text.
type Fetcher struct {
	cfg    FetcherConfig
	logger log.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig, logger log.Logger) *Fetcher {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Fetcher{cfg: cfg.withDefaults(), logger: logger}
}

// Fetch downloads the given URLs concurrently and returns pages with usable
// text. Failed or empty pages are logged and skipped; order follows input.
func (f *Fetcher) Fetch(urls []string) []Page {
	if len(urls) == 0 {
		return nil
	}

	c := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(f.cfg.UserAgent),
		colly.MaxDepth(1),
	)
	c.SetRequestTimeout(f.cfg.Timeout)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: f.cfg.Parallelism,
		Delay:       f.cfg.Delay,
	}); err != nil {
		f.logger.Warn("configuring fetch limits", "error", err)
	}

	var mu sync.Mutex
	pages := make(map[string]string, len(urls))

	// r.Request.URL reflects the final URL after redirects; results are keyed
	// by the URL the search returned, carried in the request context, so
	// redirected pages still match their input.
	c.OnResponse(func(r *colly.Response) {
		origin := r.Ctx.Get(originURLKey)
		if origin == "" {
			origin = r.Request.URL.String()
		}
		text := extractText(r.Body, r.Request.URL)
		if text == "" {
			f.logger.Debug("page yielded no text", "url", origin)
			return
		}
		mu.Lock()
		pages[origin] = text
		mu.Unlock()
	})
	c.OnError(func(r *colly.Response, err error) {
		f.logger.Debug("page fetch failed", "url", r.Request.URL.String(), "error", err)
	})

	for _, u := range urls {
		rctx := colly.NewContext()
		rctx.Put(originURLKey, u)
		if err := c.Request("GET", u, nil, rctx, nil); err != nil {
			f.logger.Debug("skipping url", "url", u, "error", err)
		}
	}
	c.Wait()

	out := make([]Page, 0, len(pages))
	for _, u := range urls {
		if text, ok := pages[u]; ok {
			out = append(out, Page{URL: u, Content: text})
		}
	}
	return out
}

// extractText pulls readable text from an HTML body. Readability handles
// article-like pages; the goquery fallback collects paragraph text from
// everything else.
func extractText(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			return text
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	doc.Find("p, li, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	})
	return strings.TrimSpace(sb.String())
}
