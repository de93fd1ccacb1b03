// Package fetcher implements the HTTP-only acquisition path: a single GET,
// no JavaScript. Server-rendered pages are analysed from this directly;
// IsSufficient tells the caller when a browser render is needed instead.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"
)

// Result is the outcome of an HTTP fetch.
type Result struct {
	URL         string
	FinalURL    string // after redirects
	HTML        []byte
	StatusCode  int
	ContentType string
	Sufficient  bool // the static HTML is usable without a browser
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetcher: %s: HTTP %d", e.URL, e.Code)
}

// Fetcher performs HTTP GETs.
type Fetcher struct {
	client  *http.Client
	ua      string
	maxBody int64
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the client timeout. Ignored after WithClient.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithMaxBody caps how many body bytes are read. Default 10 MB.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) { f.maxBody = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		ua:      "Mozilla/5.0 (compatible; locforge/1.0)",
		maxBody: 10 << 20,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs a URL. Non-2xx responses and non-HTML content types are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "" {
		mt, _, _ := mime.ParseMediaType(ct)
		switch mt {
		case "text/html", "application/xhtml+xml", "text/plain", "":
		default:
			return nil, fmt.Errorf("fetcher: %s: unsupported content type %q", pageURL, mt)
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	res := &Result{
		URL:         pageURL,
		FinalURL:    resp.Request.URL.String(),
		HTML:        body,
		StatusCode:  resp.StatusCode,
		ContentType: ct,
		Sufficient:  IsSufficient(body),
	}

	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "status", resp.StatusCode,
		"size", len(body), "sufficient", res.Sufficient)

	return res, nil
}

// Render fetches pageURL and returns its HTML as served.
func (f *Fetcher) Render(ctx context.Context, pageURL string) ([]byte, error) {
	res, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return res.HTML, nil
}
