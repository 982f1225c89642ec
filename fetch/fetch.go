// CLAUDE:SUMMARY HTTP page acquisition with body cap and sufficiency signal; Loader escalates SPA shells to the headless renderer.
// Package fetch acquires the HTML a selector is synthesized against.
//
// A plain HTTP GET covers static pages. When the body looks like an SPA
// shell (see IsSufficient) the Loader escalates to a Renderer, normally a
// headless Chrome driven by Rod, whose serializer keeps open shadow roots
// as declarative <template shadowrootmode> elements.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazyhaar/uniqsel/dom"
)

// DefaultMaxBody caps the bytes read from one response.
const DefaultMaxBody = 10 << 20

// Page is an acquired document.
type Page struct {
	URL        string    `json:"url"`
	HTML       []byte    `json:"-"`
	StatusCode int       `json:"status_code,omitempty"`
	Sufficient bool      `json:"sufficient"`
	Rendered   bool      `json:"rendered"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Document parses the page.
func (p *Page) Document() (*dom.Document, error) {
	return dom.ParseBytes(p.HTML)
}

// Fetcher performs HTTP GETs.
type Fetcher struct {
	client  *http.Client
	ua      string
	maxBody int64
	logger  *slog.Logger
	guard   bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.ua = ua
		}
	}
}

// WithMaxBody caps the body size. Zero or negative keeps DefaultMaxBody.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher with a 30s timeout and a 10MB body cap.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		ua:      "Mozilla/5.0 (compatible; uniqsel/1.0)",
		maxBody: DefaultMaxBody,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.guard {
		f.client = guardClient(f.client)
	}
	return f
}

// Fetch GETs pageURL. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if f.guard {
		if err := ValidateURL(pageURL); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch: %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	p := &Page{
		URL:        pageURL,
		HTML:       body,
		StatusCode: resp.StatusCode,
		Sufficient: IsSufficient(body),
		FetchedAt:  time.Now().UTC(),
	}
	f.logger.Debug("fetch: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "sufficient", p.Sufficient)
	return p, nil
}

// Renderer produces the live DOM of a page as HTML.
type Renderer interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// Loader fetches over HTTP and escalates to a Renderer when the static body
// is insufficient. A nil Renderer disables escalation.
type Loader struct {
	fetcher  *Fetcher
	renderer Renderer
	logger   *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(f *Fetcher, r Renderer, logger *slog.Logger) *Loader {
	if f == nil {
		f = NewFetcher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fetcher: f, renderer: r, logger: logger}
}

// Load returns the best available HTML for pageURL. A failed render falls
// back to the static body; a failed fetch is retried through the renderer.
func (l *Loader) Load(ctx context.Context, pageURL string) (*Page, error) {
	p, err := l.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if l.renderer == nil || errors.Is(err, ErrUnsafeURL) {
			return nil, err
		}
		l.logger.Info("fetch: http failed, rendering", "url", pageURL, "error", err)
		return l.render(ctx, pageURL)
	}
	if p.Sufficient || l.renderer == nil {
		return p, nil
	}

	l.logger.Info("fetch: static body insufficient, rendering", "url", pageURL, "size", len(p.HTML))
	rp, err := l.render(ctx, pageURL)
	if err != nil {
		l.logger.Warn("fetch: render failed, keeping static body", "url", pageURL, "error", err)
		return p, nil
	}
	rp.StatusCode = p.StatusCode
	return rp, nil
}

func (l *Loader) render(ctx context.Context, pageURL string) (*Page, error) {
	body, err := l.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: render %s: %w", pageURL, err)
	}
	return &Page{
		URL:        pageURL,
		HTML:       body,
		Sufficient: IsSufficient(body),
		Rendered:   true,
		FetchedAt:  time.Now().UTC(),
	}, nil
}
