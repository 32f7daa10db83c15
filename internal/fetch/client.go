package fetch

import (
	"context"
	"log/slog"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

// PageGetter loads one page. HTTPFetcher and BrowserFetcher implement it.
type PageGetter interface {
	Get(ctx context.Context, rawURL string) (*Page, error)
}

// Client fetches article text for the extraction controller. The enhanced path uses the
// browser and falls back to the plain path within the same attempt when the browser fails.
type Client struct {
	plain     *HTTPFetcher
	enhanced  PageGetter
	extractor *Extractor
	logger    *slog.Logger
}

type ClientOption func(*Client)

// WithEnhanced sets the page getter for the enhanced path. Without it every fetch is plain.
func WithEnhanced(g PageGetter) ClientOption {
	return func(c *Client) {
		c.enhanced = g
	}
}

func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

func NewClient(plain *HTTPFetcher, opts ...ClientOption) *Client {
	c := &Client{
		plain:     plain,
		extractor: NewExtractor(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRaw returns the readable text of rawURL. Length checks are left to the caller.
// Google News links are resolved first; callers that already resolved pay nothing extra.
func (c *Client) FetchRaw(ctx context.Context, rawURL string, useEnhanced bool) (string, error) {
	rawURL, err := c.Resolve(ctx, rawURL)
	if err != nil {
		return "", err
	}

	page, err := c.get(ctx, rawURL, useEnhanced)
	if err != nil {
		return "", err
	}

	text, err := c.extractor.Extract(page.URL, page.HTML)
	if err != nil {
		return "", newError(ReasonEmpty, record.Domain(rawURL), "", err)
	}
	if text == "" {
		return "", newError(ReasonEmpty, record.Domain(rawURL), "no readable text", nil)
	}
	return text, nil
}

func (c *Client) get(ctx context.Context, rawURL string, useEnhanced bool) (*Page, error) {
	if useEnhanced && c.enhanced != nil {
		page, err := c.enhanced.Get(ctx, rawURL)
		if err == nil {
			return page, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		c.logger.Info("enhanced fetch failed, falling back to plain", "domain", record.Domain(rawURL), "error", err)
	}
	return c.plain.Get(ctx, rawURL)
}
