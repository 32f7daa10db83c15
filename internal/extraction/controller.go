package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var ErrPassInProgress = fmt.Errorf("extraction pass already running: %w", apperr.ErrConflict)

const maxErrorLength = 512

// Fetcher retrieves the readable text of a URL. The deadline is carried by ctx.
type Fetcher interface {
	FetchRaw(ctx context.Context, url string, useEnhanced bool) (string, error)
}

// Resolver maps a wrapper link, such as a Google News article link, to the publisher URL.
// A Fetcher that also implements Resolver has domain rules applied to the resolved URL.
type Resolver interface {
	Resolve(ctx context.Context, url string) (string, error)
}

type PassRequest struct {
	Window   time.Duration
	MaxBatch int
	// MaxAttempts overrides the policy budget when positive.
	MaxAttempts int
}

type PassResult struct {
	PassID    uuid.UUID `json:"passId"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
}

func (r *PassResult) add(o PassResult) {
	r.Attempted += o.Attempted
	r.Succeeded += o.Succeeded
	r.Failed += o.Failed
	r.Skipped += o.Skipped
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
)

// Controller runs extraction passes over due records. At most one pass runs at a time.
type Controller struct {
	store    storage.ExtractionStore
	fetcher  Fetcher
	resolver Resolver
	policy   Policy
	now     func() time.Time
	logger  *slog.Logger

	passLock sync.Mutex
}

type Option func(*Controller)

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

func NewController(store storage.ExtractionStore, fetcher Fetcher, policy Policy, opts ...Option) (*Controller, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extraction policy: %w", err)
	}

	c := &Controller{
		store:   store,
		fetcher: fetcher,
		policy:  policy,
		now:     time.Now,
		logger:  slog.Default(),
	}
	if r, ok := fetcher.(Resolver); ok {
		c.resolver = r
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) validate(req PassRequest) (int, error) {
	if req.Window <= 0 {
		return 0, apperr.NewValidation("window must be positive")
	}
	if req.MaxBatch < 1 {
		return 0, apperr.NewValidation("max batch must be at least 1")
	}
	if req.MaxAttempts < 0 {
		return 0, apperr.NewValidation("max attempts must not be negative")
	}
	if req.MaxAttempts == 0 {
		return c.policy.MaxAttempts, nil
	}
	return req.MaxAttempts, nil
}

// RunPass attempts every due record in the window once. Per-record failures are recorded
// on the record; only store failures and cancellation are returned.
func (c *Controller) RunPass(ctx context.Context, req PassRequest) (PassResult, error) {
	if !c.passLock.TryLock() {
		return PassResult{}, ErrPassInProgress
	}
	defer c.passLock.Unlock()

	return c.runPass(ctx, req)
}

func (c *Controller) runPass(ctx context.Context, req PassRequest) (PassResult, error) {
	maxAttempts, err := c.validate(req)
	if err != nil {
		return PassResult{}, err
	}

	result := PassResult{PassID: uuid.New()}
	start := c.now()
	logger := c.logger.With("pass_id", result.PassID)

	due, err := c.store.DueForExtraction(ctx, storage.DueQuery{
		Since:       start.Add(-req.Window),
		Now:         start,
		MaxAttempts: maxAttempts,
		Limit:       req.MaxBatch,
	})
	if err != nil {
		return result, fmt.Errorf("failed to load due records: %w", err)
	}
	if len(due) == 0 {
		logger.Info("no records due for extraction")
		return result, nil
	}

	logger.Info("starting extraction pass", "due", len(due), "max_attempts", maxAttempts, "workers", c.policy.Workers)

	var countersLock sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.policy.Workers)

	for _, r := range due {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out, err := c.process(gctx, logger, r, maxAttempts)
			if err != nil {
				return err
			}

			countersLock.Lock()
			defer countersLock.Unlock()
			switch out {
			case outcomeSucceeded:
				result.Attempted++
				result.Succeeded++
			case outcomeFailed:
				result.Attempted++
				result.Failed++
			case outcomeSkipped:
				result.Skipped++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("extraction pass aborted", "error", err, "attempted", result.Attempted)
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("extraction pass cancelled: %w", err)
	}

	logger.Info("extraction pass completed",
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", c.now().Sub(start),
	)
	return result, nil
}

func (c *Controller) process(ctx context.Context, logger *slog.Logger, r record.Record, maxAttempts int) (outcome, error) {
	actx, cancel := context.WithTimeout(ctx, c.policy.FetchTimeout)
	defer cancel()

	url, err := c.resolve(actx, r.URL)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if err != nil {
		return c.fail(ctx, logger, r, maxAttempts, record.Domain(r.URL), false, c.attemptError(actx, err))
	}
	domain := record.Domain(url)

	if c.policy.SkipDomains.Match(domain) {
		err := c.apply(ctx, storage.Transition{
			ID:               r.ID,
			ExpectedStatus:   r.Status(),
			ExpectedAttempts: r.Attempts,
			State:            record.Skipped{},
			Attempts:         r.Attempts,
			LastError:        "skipped domain " + domain,
		})
		if err != nil {
			return 0, err
		}
		logger.Debug("record skipped", "id", r.ID, "domain", domain)
		return outcomeSkipped, nil
	}

	useEnhanced := c.policy.UseEnhanced(domain, r.Attempts, maxAttempts)
	text, fetchErr := c.fetch(actx, url, useEnhanced)

	// A cancelled pass leaves the record untouched so the attempt is not consumed.
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if fetchErr != nil {
		return c.fail(ctx, logger, r, maxAttempts, domain, useEnhanced, fetchErr)
	}

	err = c.apply(ctx, storage.Transition{
		ID:               r.ID,
		ExpectedStatus:   r.Status(),
		ExpectedAttempts: r.Attempts,
		State:            record.Ok{ContentText: text},
		Attempts:         r.Attempts,
	})
	if err != nil {
		return 0, err
	}
	logger.Info("record extracted", "id", r.ID, "domain", domain, "chars", utf8.RuneCountInString(text), "enhanced", useEnhanced)
	return outcomeSucceeded, nil
}

// resolve returns the URL the domain rules and the fetch apply to.
func (c *Controller) resolve(ctx context.Context, url string) (string, error) {
	if c.resolver == nil {
		return url, nil
	}
	resolved, err := c.resolver.Resolve(ctx, url)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", record.Domain(url), err)
	}
	return resolved, nil
}

func (c *Controller) fail(ctx context.Context, logger *slog.Logger, r record.Record, maxAttempts int, domain string, useEnhanced bool, cause error) (outcome, error) {
	t := c.failureTransition(r, maxAttempts, cause)
	if err := c.apply(ctx, t); err != nil {
		return 0, err
	}
	logger.Warn("record extraction failed",
		"id", r.ID,
		"domain", domain,
		"attempts", t.Attempts,
		"state", t.State.Status(),
		"enhanced", useEnhanced,
		"error", cause,
	)
	return outcomeFailed, nil
}

// fetch runs under the attempt deadline set by process.
func (c *Controller) fetch(ctx context.Context, url string, useEnhanced bool) (string, error) {
	text, err := c.fetcher.FetchRaw(ctx, url, useEnhanced)
	if err != nil {
		return "", c.attemptError(ctx, err)
	}

	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < c.policy.MinContentLength {
		return "", fmt.Errorf("text too short (%d < %d)", n, c.policy.MinContentLength)
	}
	return text, nil
}

func (c *Controller) attemptError(actx context.Context, err error) error {
	if errors.Is(actx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timeout after %s: %w", c.policy.FetchTimeout, err)
	}
	return err
}

// failureTransition consumes one attempt and either schedules a retry or gives up.
func (c *Controller) failureTransition(r record.Record, maxAttempts int, cause error) storage.Transition {
	attempts := r.Attempts + 1

	var state record.ExtractionState = record.FailedPermanent{}
	if attempts < maxAttempts {
		next := c.now().Add(c.policy.Backoff(attempts))
		state = record.Pending{NextEligibleAt: &next}
	}

	msg := cause.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength]
	}

	return storage.Transition{
		ID:               r.ID,
		ExpectedStatus:   r.Status(),
		ExpectedAttempts: r.Attempts,
		State:            state,
		Attempts:         attempts,
		LastError:        msg,
	}
}

func (c *Controller) apply(ctx context.Context, t storage.Transition) error {
	if err := c.store.ApplyTransition(ctx, t); err != nil {
		return fmt.Errorf("failed to record %s for record %d: %w", t.State.Status(), t.ID, err)
	}
	return nil
}

type DrainRequest struct {
	PassRequest
	MaxPasses int
}

type DrainResult struct {
	Passes int        `json:"passes"`
	Total  PassResult `json:"total"`
}

// RunUntilDrained repeats passes until one finds nothing to do or MaxPasses is reached.
func (c *Controller) RunUntilDrained(ctx context.Context, req DrainRequest) (DrainResult, error) {
	if req.MaxPasses < 1 {
		return DrainResult{}, apperr.NewValidation("max passes must be at least 1")
	}
	if !c.passLock.TryLock() {
		return DrainResult{}, ErrPassInProgress
	}
	defer c.passLock.Unlock()

	var drained DrainResult
	for drained.Passes < req.MaxPasses {
		res, err := c.runPass(ctx, req.PassRequest)
		if err != nil {
			return drained, err
		}
		drained.Passes++
		drained.Total.PassID = res.PassID
		drained.Total.add(res)

		if res.Attempted+res.Skipped == 0 {
			break
		}
	}
	return drained, nil
}
