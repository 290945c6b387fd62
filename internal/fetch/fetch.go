// Package fetch is the page-retrieval collaborator: plain HTTP GETs with
// crawl-context-aware headers, returning responses that expose both the raw
// body and a parsed goquery document.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-crawler/internal/models"
)

// maxBodySize caps how much of a response body is read. Listing and detail
// pages on the covered sites stay well under this.
const maxBodySize = 10 << 20

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Response is one fetched page. The goquery document is parsed lazily and
// cached, so JSON endpoints never pay for HTML parsing.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

// Document parses the body as HTML. Safe to call repeatedly.
func (r *Response) Document() (*goquery.Document, error) {
	r.docOnce.Do(func() {
		r.doc, r.docErr = goquery.NewDocumentFromReader(strings.NewReader(string(r.Body)))
		if r.docErr != nil {
			r.docErr = fmt.Errorf("failed to parse HTML: %w", r.docErr)
		}
	})
	return r.doc, r.docErr
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return nil
}

// Options configures the HTTP client.
type Options struct {
	Timeout    time.Duration
	UserAgents []string
}

// Client fetches pages over HTTP. User agents rotate round-robin across
// requests; Accept-Language follows the crawl context's language.
type Client struct {
	http       *http.Client
	userAgents []string
	logger     *slog.Logger

	mu    sync.Mutex
	uaIdx int
}

// NewClient builds a fetch client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	uas := opts.UserAgents
	if len(uas) == 0 {
		uas = defaultUserAgents
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		userAgents: uas,
		logger:     logger.With("component", "fetch"),
	}
}

// Fetch retrieves one URL. Non-2xx statuses are errors; the caller decides
// whether the failure stays local to its branch.
func (c *Client) Fetch(ctx context.Context, url string, cc models.CrawlContext) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", c.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage(cc.LanguageCode))

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d for %s", res.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	c.logger.Debug("fetched page",
		"url", url,
		"status", res.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start))

	return &Response{URL: url, StatusCode: res.StatusCode, Body: body}, nil
}

func (c *Client) nextUserAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ua := c.userAgents[c.uaIdx%len(c.userAgents)]
	c.uaIdx++
	return ua
}

func acceptLanguage(lang string) string {
	if lang == "" {
		return "en-US,en;q=0.9"
	}
	return fmt.Sprintf("%s;q=1.0,en;q=0.8", lang)
}
