package extraction

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/in_mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = "A sufficiently long body of article text."

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fetchCall struct {
	url      string
	enhanced bool
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	fn    func(ctx context.Context, url string, enhanced bool) (string, error)
}

func (f *fakeFetcher) FetchRaw(ctx context.Context, url string, enhanced bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{url: url, enhanced: enhanced})
	f.mu.Unlock()
	return f.fn(ctx, url, enhanced)
}

func (f *fakeFetcher) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

func succeeding() *fakeFetcher {
	return &fakeFetcher{fn: func(context.Context, string, bool) (string, error) { return "  " + article + "\n", nil }}
}

func failing() *fakeFetcher {
	return &fakeFetcher{fn: func(context.Context, string, bool) (string, error) { return "", errors.New("blocked: http 403") }}
}

func setup(t *testing.T, f Fetcher, p Policy, urls ...string) (*Controller, *in_mem.Store, *fakeClock, []record.ID) {
	t.Helper()
	store := in_mem.NewStore()
	clock := newFakeClock()

	batch := make([]record.RawRecord, len(urls))
	for i, u := range urls {
		batch[i] = record.RawRecord{URL: u, Title: u, SourceName: "src"}
	}
	ids, err := store.UpsertRecords(context.Background(), batch, clock.Now().Add(-time.Hour))
	require.NoError(t, err)

	c, err := NewController(store, f, p, WithClock(clock.Now))
	require.NoError(t, err)
	return c, store, clock, ids
}

func pass() PassRequest {
	return PassRequest{Window: 24 * time.Hour, MaxBatch: 50}
}

func get(t *testing.T, s *in_mem.Store, id record.ID) *record.Record {
	t.Helper()
	r, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func TestController_SuccessStoresTrimmedText(t *testing.T) {
	c, store, _, ids := setup(t, succeeding(), testPolicy(), "https://a.example/1")

	res, err := c.RunPass(context.Background(), pass())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, res.Succeeded)
	assert.NotZero(t, res.PassID)

	r := get(t, store, ids[0])
	assert.Equal(t, record.Ok{ContentText: article}, r.State)
	assert.Zero(t, r.Attempts)
}

func TestController_BackoffStrictlyIncreasesUntilPermanent(t *testing.T) {
	p := testPolicy()
	p.MaxAttempts = 3
	c, store, clock, ids := setup(t, failing(), p, "https://a.example/1")
	ctx := context.Background()

	var delays []time.Duration
	var nexts []time.Time
	for i := 1; i <= 2; i++ {
		failedAt := clock.Now()
		res, err := c.RunPass(ctx, pass())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)

		r := get(t, store, ids[0])
		assert.Equal(t, i, r.Attempts)
		pending, ok := r.State.(record.Pending)
		require.True(t, ok, "attempt %d should stay pending", i)
		require.NotNil(t, pending.NextEligibleAt)
		assert.Equal(t, record.StatusFailedTransient, r.Status())

		delays = append(delays, pending.NextEligibleAt.Sub(failedAt))
		nexts = append(nexts, *pending.NextEligibleAt)

		res, err = c.RunPass(ctx, pass())
		require.NoError(t, err)
		assert.Zero(t, res.Attempted, "not due before next eligible time")

		clock.Set(*pending.NextEligibleAt)
	}

	assert.Equal(t, []time.Duration{5 * time.Minute, 30 * time.Minute}, delays)
	assert.True(t, nexts[1].After(nexts[0]))

	res, err := c.RunPass(ctx, pass())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	r := get(t, store, ids[0])
	assert.Equal(t, record.FailedPermanent{}, r.State)
	assert.Equal(t, 3, r.Attempts)
	assert.Equal(t, "blocked: http 403", r.LastError)

	clock.Set(clock.Now().Add(365 * 24 * time.Hour))
	res, err = c.RunPass(ctx, PassRequest{Window: 2 * 365 * 24 * time.Hour, MaxBatch: 10})
	require.NoError(t, err)
	assert.Zero(t, res.Attempted)
	assert.Equal(t, 3, get(t, store, ids[0]).Attempts)
}

func TestController_RequestMaxAttemptsOverridesPolicy(t *testing.T) {
	c, store, _, ids := setup(t, failing(), testPolicy(), "https://a.example/1")

	req := pass()
	req.MaxAttempts = 1
	_, err := c.RunPass(context.Background(), req)
	require.NoError(t, err)

	r := get(t, store, ids[0])
	assert.Equal(t, record.FailedPermanent{}, r.State)
	assert.Equal(t, 1, r.Attempts)
}

func TestController_SkipDomainConsumesNoAttempt(t *testing.T) {
	f := succeeding()
	c, store, _, ids := setup(t, f, testPolicy(), "https://www.paywalled.example/story")

	res, err := c.RunPass(context.Background(), pass())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Attempted)
	assert.Empty(t, f.Calls())

	r := get(t, store, ids[0])
	assert.Equal(t, record.Skipped{}, r.State)
	assert.Zero(t, r.Attempts)
}

func TestController_EnhancedPathSelection(t *testing.T) {
	f := failing()
	c, _, clock, _ := setup(t, f, testPolicy(), "https://techcrunch.com/a", "https://plain.example/b")
	ctx := context.Background()

	_, err := c.RunPass(ctx, pass())
	require.NoError(t, err)

	clock.Set(clock.Now().Add(time.Hour))
	_, err = c.RunPass(ctx, pass())
	require.NoError(t, err)

	byURL := map[string][]bool{}
	for _, call := range f.Calls() {
		byURL[call.url] = append(byURL[call.url], call.enhanced)
	}
	assert.Equal(t, []bool{true, true}, byURL["https://techcrunch.com/a"])
	assert.Equal(t, []bool{false, true}, byURL["https://plain.example/b"])
}

type resolvingFetcher struct {
	*fakeFetcher
	targets map[string]string
}

func (f *resolvingFetcher) Resolve(_ context.Context, url string) (string, error) {
	if target, ok := f.targets[url]; ok {
		if target == "" {
			return "", errors.New("did not resolve to an external article")
		}
		return target, nil
	}
	return url, nil
}

func TestController_DomainRulesUseResolvedURL(t *testing.T) {
	const (
		toEnhanced = "https://news.google.com/rss/articles/CBMi-techcrunch"
		toSkipped  = "https://news.google.com/rss/articles/CBMi-paywalled"
		unresolved = "https://news.google.com/rss/articles/CBMi-stuck"
	)
	f := &resolvingFetcher{
		fakeFetcher: succeeding(),
		targets: map[string]string{
			toEnhanced: "https://www.techcrunch.com/2025/06/01/story",
			toSkipped:  "https://paywalled.example/story",
			unresolved: "",
		},
	}
	c, store, _, ids := setup(t, f, testPolicy(), toEnhanced, toSkipped, unresolved)

	res, err := c.RunPass(context.Background(), pass())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempted)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Skipped)

	assert.Equal(t, []fetchCall{{url: "https://www.techcrunch.com/2025/06/01/story", enhanced: true}}, f.Calls())

	assert.Equal(t, record.StatusOk, get(t, store, ids[0]).Status())

	skipped := get(t, store, ids[1])
	assert.Equal(t, record.Skipped{}, skipped.State)
	assert.Zero(t, skipped.Attempts)

	stuck := get(t, store, ids[2])
	assert.Equal(t, record.StatusFailedTransient, stuck.Status())
	assert.Equal(t, 1, stuck.Attempts)
	assert.Contains(t, stuck.LastError, "resolve news.google.com")
}

func TestController_ShortTextIsFailure(t *testing.T) {
	f := &fakeFetcher{fn: func(context.Context, string, bool) (string, error) { return "tiny", nil }}
	c, store, _, ids := setup(t, f, testPolicy(), "https://a.example/1")

	res, err := c.RunPass(context.Background(), pass())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	r := get(t, store, ids[0])
	assert.Equal(t, 1, r.Attempts)
	assert.Contains(t, r.LastError, "too short")
}

func TestController_TimeoutIsFailure(t *testing.T) {
	p := testPolicy()
	p.FetchTimeout = 20 * time.Millisecond
	f := &fakeFetcher{fn: func(ctx context.Context, _ string, _ bool) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	c, store, _, ids := setup(t, f, p, "https://slow.example/1")

	res, err := c.RunPass(context.Background(), pass())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	r := get(t, store, ids[0])
	assert.Equal(t, 1, r.Attempts)
	assert.True(t, strings.HasPrefix(r.LastError, "timeout"), r.LastError)
}

func TestController_ConcurrentPassIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(context.Context, string, bool) (string, error) {
		close(started)
		<-release
		return article, nil
	}}
	c, _, _, _ := setup(t, f, testPolicy(), "https://a.example/1")

	done := make(chan error, 1)
	go func() {
		_, err := c.RunPass(context.Background(), pass())
		done <- err
	}()

	<-started
	_, err := c.RunPass(context.Background(), pass())
	assert.ErrorIs(t, err, ErrPassInProgress)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	close(release)
	assert.NoError(t, <-done)
}

func TestController_CancelledPassDoesNotConsumeAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{fn: func(fctx context.Context, _ string, _ bool) (string, error) {
		cancel()
		<-fctx.Done()
		return "", fctx.Err()
	}}
	c, store, _, ids := setup(t, f, testPolicy(), "https://a.example/1")

	_, err := c.RunPass(ctx, pass())
	assert.ErrorIs(t, err, context.Canceled)

	r := get(t, store, ids[0])
	assert.Zero(t, r.Attempts)
	assert.Equal(t, record.Pending{}, r.State)
}

type failingStore struct {
	storage.RecordStore
}

func (failingStore) ApplyTransition(context.Context, storage.Transition) error {
	return errors.New("connection reset")
}

func TestController_StoreFailureAbortsPass(t *testing.T) {
	store := in_mem.NewStore()
	_, err := store.UpsertRecords(context.Background(), []record.RawRecord{{URL: "https://a.example/1", SourceName: "s"}}, time.Now())
	require.NoError(t, err)

	c, err := NewController(failingStore{store}, succeeding(), testPolicy())
	require.NoError(t, err)

	_, err = c.RunPass(context.Background(), pass())
	assert.ErrorContains(t, err, "connection reset")
}

func TestController_InvalidRequests(t *testing.T) {
	c, _, _, _ := setup(t, succeeding(), testPolicy())

	tests := []PassRequest{
		{Window: 0, MaxBatch: 1},
		{Window: time.Hour, MaxBatch: 0},
		{Window: time.Hour, MaxBatch: 1, MaxAttempts: -1},
	}
	for _, req := range tests {
		_, err := c.RunPass(context.Background(), req)
		var ve *apperr.ValidationError
		assert.ErrorAs(t, err, &ve)
	}

	_, err := NewController(in_mem.NewStore(), succeeding(), Policy{})
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestController_BatchIsOldestFirst(t *testing.T) {
	f := succeeding()
	store := in_mem.NewStore()
	clock := newFakeClock()
	ctx := context.Background()

	_, err := store.UpsertRecords(ctx, []record.RawRecord{{URL: "https://a.example/new", SourceName: "s"}}, clock.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = store.UpsertRecords(ctx, []record.RawRecord{{URL: "https://a.example/old", SourceName: "s"}}, clock.Now().Add(-time.Hour))
	require.NoError(t, err)

	p := testPolicy()
	p.Workers = 1
	c, err := NewController(store, f, p, WithClock(clock.Now))
	require.NoError(t, err)

	res, err := c.RunPass(ctx, PassRequest{Window: 24 * time.Hour, MaxBatch: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, f.Calls(), 1)
	assert.Equal(t, "https://a.example/old", f.Calls()[0].url)
}

func TestController_RunUntilDrained(t *testing.T) {
	c, store, _, ids := setup(t, succeeding(), testPolicy(), "https://a.example/1", "https://a.example/2", "https://a.example/3")

	res, err := c.RunUntilDrained(context.Background(), DrainRequest{
		PassRequest: PassRequest{Window: 24 * time.Hour, MaxBatch: 1},
		MaxPasses:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Passes)
	assert.Equal(t, 3, res.Total.Succeeded)
	assert.Equal(t, 3, res.Total.Attempted)

	for _, id := range ids {
		assert.Equal(t, record.StatusOk, get(t, store, id).Status())
	}

	limited, err := c.RunUntilDrained(context.Background(), DrainRequest{PassRequest: pass(), MaxPasses: 0})
	assert.Error(t, err)
	assert.Zero(t, limited.Passes)
}
