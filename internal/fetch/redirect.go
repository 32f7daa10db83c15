package fetch

import (
	"context"
	"strings"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

const googleNewsHost = "news.google.com"

// IsGoogleNews reports whether rawURL is a Google News wrapper link.
func IsGoogleNews(rawURL string) bool {
	return record.Domain(rawURL) == googleNewsHost
}

// Resolve returns the publisher URL for a Google News link and any other URL unchanged.
func (c *Client) Resolve(ctx context.Context, rawURL string) (string, error) {
	if !IsGoogleNews(rawURL) {
		return rawURL, nil
	}
	return c.resolveRedirect(ctx, rawURL)
}

// resolveRedirect follows a Google News link to the publisher URL. A link that does not leave
// Google News is a redirect failure.
func (c *Client) resolveRedirect(ctx context.Context, rawURL string) (string, error) {
	final, err := c.plain.FinalURL(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if final == rawURL || strings.Contains(final, googleNewsHost) {
		return "", newError(ReasonRedirect, googleNewsHost, "did not resolve to an external article", nil)
	}

	c.logger.Debug("resolved google news redirect", "domain", record.Domain(final))
	return final, nil
}
