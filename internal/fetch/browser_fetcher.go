package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"golang.org/x/sync/singleflight"
)

const defaultLaunchTimeout = 2 * time.Minute

var errBrowserClosed = errors.New("browser fetcher is closed")

// BrowserConfig configures the headless Chrome used on the enhanced path.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty launches a local one.
	RemoteURL string
	// LaunchTimeout bounds starting a local Chrome, including a first-use download.
	LaunchTimeout time.Duration
	Logger        *slog.Logger
}

// BrowserFetcher loads pages in a stealth headless Chrome. Chrome is started on first use.
type BrowserFetcher struct {
	cfg   BrowserConfig
	start singleflight.Group

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

func NewBrowserFetcher(cfg BrowserConfig) *BrowserFetcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = defaultLaunchTimeout
	}
	return &BrowserFetcher{cfg: cfg}
}

func (b *BrowserFetcher) Get(ctx context.Context, rawURL string) (*Page, error) {
	domain := record.Domain(rawURL)

	br, err := b.ensure(ctx)
	if err != nil {
		return nil, browserError(ctx, domain, "start", err)
	}

	page, err := stealth.Page(br)
	if err != nil {
		return nil, newError(ReasonBrowser, domain, "create tab", err)
	}
	defer page.Close()

	p := page.Context(ctx)
	if err := p.Navigate(rawURL); err != nil {
		return nil, browserError(ctx, domain, "navigate", err)
	}
	if err := p.WaitLoad(); err != nil {
		b.cfg.Logger.Warn("browser wait load failed", "url", rawURL, "error", err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, browserError(ctx, domain, "read DOM", err)
	}
	if len(html) < MinHTMLBytes {
		return nil, newError(ReasonEmpty, domain, fmt.Sprintf("%d bytes", len(html)), nil)
	}

	finalURL := rawURL
	if info, err := p.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}
	return &Page{URL: finalURL, HTML: html}, nil
}

func (b *BrowserFetcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.cfg.Logger.Warn("failed to close browser", "error", err)
		}
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}

// ensure returns the running browser, starting it if needed. Concurrent callers share one
// start and each stops waiting when its own ctx is done.
func (b *BrowserFetcher) ensure(ctx context.Context) (*rod.Browser, error) {
	if br, err := b.current(); br != nil || err != nil {
		return br, err
	}

	ch := b.start.DoChan("browser", func() (any, error) {
		return b.launch()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*rod.Browser), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *BrowserFetcher) current() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBrowserClosed
	}
	return b.browser, nil
}

// launch runs without holding mu and is bounded by LaunchTimeout.
func (b *BrowserFetcher) launch() (*rod.Browser, error) {
	if br, err := b.current(); br != nil || err != nil {
		return br, err
	}

	var l *launcher.Launcher
	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.LaunchTimeout)
		defer cancel()

		l = launcher.New().Context(ctx).Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch chrome: %w", err)
		}
		wsURL = u
	}

	br := rod.New().ControlURL(wsURL)
	if err := br.Connect(); err != nil {
		stopLauncher(l)
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		if err := br.Close(); err != nil {
			b.cfg.Logger.Warn("failed to close browser", "error", err)
		}
		stopLauncher(l)
		return nil, errBrowserClosed
	}
	b.browser, b.lnch = br, l
	if l != nil {
		b.cfg.Logger.Info("launched local chrome", "url", wsURL)
	}
	return br, nil
}

// stopLauncher kills a launched Chrome and removes its profile directory.
func stopLauncher(l *launcher.Launcher) {
	if l == nil {
		return
	}
	l.Kill()
	l.Cleanup()
}

func browserError(ctx context.Context, domain, step string, err error) *Error {
	if ctx.Err() != nil {
		return classifyTransport(domain, ctx.Err())
	}
	return newError(ReasonBrowser, domain, step, err)
}
