// Package app wires the engine components from configuration for the CLI and the API server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/news-digest/internal/config"
	"github.com/DjordjeVuckovic/news-digest/internal/extraction"
	"github.com/DjordjeVuckovic/news-digest/internal/fetch"
	"github.com/DjordjeVuckovic/news-digest/internal/ingest"
	"github.com/DjordjeVuckovic/news-digest/internal/selection"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/factory"
	"github.com/DjordjeVuckovic/news-digest/internal/summary"
	"golang.org/x/time/rate"
)

type Engine struct {
	Policy       *config.Policy
	Store        storage.RecordStore
	Deduplicator *ingest.Deduplicator
	Controller   *extraction.Controller
	Selector     *selection.Selector
	// Summarizer is nil when summaries are not configured.
	Summarizer summary.Summarizer

	browser *fetch.BrowserFetcher
}

type EngineOption func(*engineOptions)

type engineOptions struct {
	fetcher extraction.Fetcher
	logger  *slog.Logger
}

// WithFetcher replaces the HTTP and browser fetch stack.
func WithFetcher(f extraction.Fetcher) EngineOption {
	return func(o *engineOptions) {
		o.fetcher = f
	}
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = l
	}
}

func NewEngine(ctx context.Context, cfg *Config, opts ...EngineOption) (*Engine, error) {
	o := engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	store, err := factory.NewRecordStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create record store: %w", err)
	}

	e := &Engine{Policy: cfg.Policy, Store: store}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = e.newFetchClient(cfg.Fetch, o.logger)
	}

	e.Controller, err = extraction.NewController(store, fetcher, cfg.Policy.ExtractionPolicy(),
		extraction.WithLogger(o.logger.With("component", "extraction")),
	)
	if err != nil {
		e.Close()
		return nil, err
	}

	selOpts := []selection.Option{selection.WithLogger(o.logger.With("component", "selection"))}
	publisher, err := factory.NewPublisher(ctx, cfg.Storage)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to create selection publisher: %w", err)
	}
	if publisher != nil {
		selOpts = append(selOpts, selection.WithPublisher(publisher))
	}
	e.Selector, err = selection.NewSelector(store, cfg.Policy.SelectionParams(), selOpts...)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.Deduplicator = ingest.NewDeduplicator(store,
		ingest.WithChunkSize(cfg.Policy.Ingest.ChunkSize),
		ingest.WithLogger(o.logger.With("component", "ingest")),
	)

	if cfg.Summary != nil {
		s, err := summary.NewOllamaSummarizer(cfg.Summary.BaseURL, cfg.Summary.Model)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to create summarizer: %w", err)
		}
		e.Summarizer = s
	}

	return e, nil
}

// The controller applies domain rules to the URL the client resolves Google News links to.
var _ extraction.Resolver = (*fetch.Client)(nil)

func (e *Engine) newFetchClient(cfg FetchConfig, logger *slog.Logger) *fetch.Client {
	httpOpts := []fetch.HTTPOption{fetch.WithHTTPLogger(logger.With("component", "fetch"))}
	if cfg.HostInterval > 0 {
		httpOpts = append(httpOpts, fetch.WithHostRate(rate.Every(cfg.HostInterval), max(cfg.HostBurst, 1)))
	} else {
		httpOpts = append(httpOpts, fetch.WithHostRate(rate.Inf, 0))
	}

	clientOpts := []fetch.ClientOption{fetch.WithClientLogger(logger.With("component", "fetch"))}
	if cfg.Enhanced {
		e.browser = fetch.NewBrowserFetcher(fetch.BrowserConfig{
			RemoteURL:     cfg.BrowserURL,
			LaunchTimeout: cfg.LaunchTimeout,
			Logger:        logger.With("component", "browser"),
		})
		clientOpts = append(clientOpts, fetch.WithEnhanced(e.browser))
	}

	return fetch.NewClient(fetch.NewHTTPFetcher(httpOpts...), clientOpts...)
}

// Close releases the browser and the store.
func (e *Engine) Close() {
	if e.browser != nil {
		e.browser.Close()
	}
	if e.Store != nil {
		e.Store.Close()
	}
}
