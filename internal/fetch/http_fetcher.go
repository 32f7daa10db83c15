package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"golang.org/x/time/rate"
)

const (
	// MinHTMLBytes is the smallest response treated as a page.
	MinHTMLBytes = 100
	maxBodyBytes = 10 << 20
)

var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
}

// Page is a fetched HTML document and the URL it was served from after redirects.
type Page struct {
	URL  string
	HTML string
}

// HTTPFetcher is the plain fetch path: one GET with browser-like headers.
type HTTPFetcher struct {
	client  *http.Client
	limiter *hostLimiter
	logger  *slog.Logger
}

type HTTPOption func(*HTTPFetcher)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithHostRate limits requests per host. rate.Inf disables the limiter.
func WithHostRate(limit rate.Limit, burst int) HTTPOption {
	return func(f *HTTPFetcher) {
		f.limiter = newHostLimiter(limit, burst)
	}
}

func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(f *HTTPFetcher) {
		f.logger = l
	}
}

func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: newHostLimiter(rate.Every(time.Second), 2),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get fetches rawURL following redirects. Blocking statuses (403, 429, 503) are reported as
// blocked, other non-2xx statuses as http_status.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (*Page, error) {
	domain := record.Domain(rawURL)
	if err := f.limiter.Wait(ctx, domain); err != nil {
		return nil, classifyTransport(domain, err)
	}

	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return nil, classifyTransport(domain, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable:
		return nil, newError(ReasonBlocked, domain, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, newError(ReasonHTTPStatus, domain, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(domain, err)
	}
	if len(body) < MinHTMLBytes {
		return nil, newError(ReasonEmpty, domain, fmt.Sprintf("%d bytes", len(body)), nil)
	}

	f.logger.Debug("fetched page", "url", rawURL, "status", resp.StatusCode, "bytes", len(body))
	return &Page{URL: resp.Request.URL.String(), HTML: string(body)}, nil
}

// FinalURL follows redirects and returns where rawURL ends up without reading the body.
func (f *HTTPFetcher) FinalURL(ctx context.Context, rawURL string) (string, error) {
	resp, err := f.do(ctx, rawURL)
	if err != nil {
		return "", classifyTransport(record.Domain(rawURL), err)
	}
	resp.Body.Close()
	return resp.Request.URL.String(), nil
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}
	return f.client.Do(req)
}
