// Package storagetest holds behaviour checks shared by every storage.RecordStore backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewStoreFunc returns an empty store. Cleanup is registered on t.
type NewStoreFunc func(t *testing.T) storage.RecordStore

var base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func RunConformance(t *testing.T, newStore NewStoreFunc) {
	tests := []struct {
		name string
		run  func(t *testing.T, s storage.RecordStore)
	}{
		{"UpsertIsIdempotentByURL", testUpsertIdempotent},
		{"UpsertKeepsExtractionState", testUpsertKeepsState},
		{"UpsertKeepsOptionalFieldsWhenAbsent", testUpsertKeepsOptionalFields},
		{"DueForExtractionFilters", testDueFilters},
		{"DueForExtractionOrderAndLimit", testDueOrderAndLimit},
		{"ApplyTransitionGuardsAttempts", testApplyTransitionGuard},
		{"ApplyTransitionGuardsState", testApplyTransitionGuardsState},
		{"ResetFailed", testResetFailed},
		{"CountByState", testCountByState},
		{"SelectionRoundTrip", testSelection},
		{"GetAndGetMany", testGet},
		{"DeleteDiscoveredBefore", testDelete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.run(t, newStore(t))
		})
	}
}

func raw(url, title, source string) record.RawRecord {
	return record.RawRecord{URL: url, Title: title, SourceName: source}
}

func upsert(t *testing.T, s storage.RecordStore, at time.Time, batch ...record.RawRecord) []record.ID {
	t.Helper()
	ids, err := s.UpsertRecords(context.Background(), batch, at)
	require.NoError(t, err)
	require.Len(t, ids, len(batch))
	return ids
}

func transition(t *testing.T, s storage.RecordStore, id record.ID, from int, state record.ExtractionState, attempts int) {
	t.Helper()
	require.NoError(t, s.ApplyTransition(context.Background(), storage.Transition{
		ID:               id,
		ExpectedAttempts: from,
		State:            state,
		Attempts:         attempts,
	}))
}

func testUpsertIdempotent(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	first := upsert(t, s, base, raw("https://a.example/1", "First", "A"), raw("https://a.example/2", "Second", "A"))
	again := upsert(t, s, base.Add(time.Hour), raw("https://a.example/2", "Second v2", "B"), raw("https://a.example/1", "First", "A"))

	assert.Equal(t, first[1], again[0])
	assert.Equal(t, first[0], again[1])

	r, err := s.Get(ctx, first[1])
	require.NoError(t, err)
	assert.Equal(t, "Second v2", r.Title)
	assert.Equal(t, "B", r.SourceName)
	assert.True(t, base.Add(time.Hour).Equal(r.DiscoveredAt))
	assert.Equal(t, record.Pending{}, r.State)
	assert.Zero(t, r.Attempts)
	assert.Nil(t, r.Selection)

	counts, err := s.CountByState(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, counts[record.StatusPending])
}

func testUpsertKeepsState(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	ids := upsert(t, s, base, raw("https://a.example/1", "First", "A"))
	transition(t, s, ids[0], 0, record.Ok{ContentText: "extracted body"}, 0)

	upsert(t, s, base.Add(time.Hour), raw("https://a.example/1", "Renamed", "A"))

	r, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Renamed", r.Title)
	assert.Equal(t, record.Ok{ContentText: "extracted body"}, r.State)
}

func testUpsertKeepsOptionalFields(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	published := base.Add(-2 * time.Hour)

	withOptional := raw("https://a.example/1", "First", "A")
	withOptional.Category = "technology"
	withOptional.PublishedAt = &published
	ids := upsert(t, s, base, withOptional)

	upsert(t, s, base.Add(time.Hour), raw("https://a.example/1", "First", "A"))

	r, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "technology", r.Category)
	require.NotNil(t, r.PublishedAt)
	assert.True(t, published.Equal(*r.PublishedAt))
}

func testDueFilters(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	now := base.Add(time.Hour)
	later := now.Add(time.Minute)
	earlier := now.Add(-time.Minute)

	old := upsert(t, s, base.Add(-48*time.Hour), raw("https://a.example/old", "Old", "A"))
	ids := upsert(t, s, base,
		raw("https://a.example/fresh", "Fresh", "A"),
		raw("https://a.example/waiting", "Waiting", "A"),
		raw("https://a.example/ready", "Ready", "A"),
		raw("https://a.example/exhausted", "Exhausted", "A"),
		raw("https://a.example/ok", "Ok", "A"),
		raw("https://a.example/skipped", "Skipped", "A"),
		raw("https://a.example/failed", "Failed", "A"),
	)

	transition(t, s, ids[1], 0, record.Pending{NextEligibleAt: &later}, 1)
	transition(t, s, ids[2], 0, record.Pending{NextEligibleAt: &earlier}, 1)
	transition(t, s, ids[3], 0, record.Pending{NextEligibleAt: &earlier}, 2)
	transition(t, s, ids[4], 0, record.Ok{ContentText: "body"}, 0)
	transition(t, s, ids[5], 0, record.Skipped{}, 0)
	transition(t, s, ids[6], 0, record.FailedPermanent{}, 2)

	due, err := s.DueForExtraction(ctx, storage.DueQuery{
		Since:       base.Add(-24 * time.Hour),
		Now:         now,
		MaxAttempts: 2,
		Limit:       100,
	})
	require.NoError(t, err)

	var got []record.ID
	for _, r := range due {
		got = append(got, r.ID)
	}
	assert.ElementsMatch(t, []record.ID{ids[0], ids[2]}, got)
	assert.NotContains(t, got, old[0])

	for _, r := range due {
		if r.ID == ids[2] {
			assert.Equal(t, record.StatusFailedTransient, r.Status())
			assert.Equal(t, 1, r.Attempts)
		}
	}
}

func testDueOrderAndLimit(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()

	c := upsert(t, s, base.Add(2*time.Minute), raw("https://a.example/c", "C", "A"))
	a := upsert(t, s, base, raw("https://a.example/a", "A", "A"), raw("https://a.example/b", "B", "A"))

	due, err := s.DueForExtraction(ctx, storage.DueQuery{
		Since:       base.Add(-time.Hour),
		Now:         base.Add(time.Hour),
		MaxAttempts: 3,
		Limit:       2,
	})
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, a[0], due[0].ID)
	assert.Equal(t, a[1], due[1].ID)

	due, err = s.DueForExtraction(ctx, storage.DueQuery{
		Since:       base.Add(-time.Hour),
		Now:         base.Add(time.Hour),
		MaxAttempts: 3,
		Limit:       10,
	})
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, c[0], due[2].ID)
}

func testApplyTransitionGuard(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	ids := upsert(t, s, base, raw("https://a.example/1", "First", "A"))
	next := base.Add(5 * time.Minute)

	require.NoError(t, s.ApplyTransition(ctx, storage.Transition{
		ID:               ids[0],
		ExpectedAttempts: 0,
		State:            record.Pending{NextEligibleAt: &next},
		Attempts:         1,
		LastError:        "timeout",
	}))

	err := s.ApplyTransition(ctx, storage.Transition{
		ID:               ids[0],
		ExpectedAttempts: 0,
		State:            record.FailedPermanent{},
		Attempts:         1,
	})
	assert.ErrorIs(t, err, storage.ErrConflict)

	err = s.ApplyTransition(ctx, storage.Transition{ID: ids[0] + 1000, State: record.Skipped{}})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	r, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, "timeout", r.LastError)
	p, ok := r.State.(record.Pending)
	require.True(t, ok)
	require.NotNil(t, p.NextEligibleAt)
	assert.True(t, next.Equal(*p.NextEligibleAt))
}

func testApplyTransitionGuardsState(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	ids := upsert(t, s, base, raw("https://a.example/1", "First", "A"), raw("https://a.example/2", "Second", "A"))

	transition(t, s, ids[0], 0, record.Ok{ContentText: "extracted body"}, 0)

	// A writer that loaded the row while it was pending must not overwrite the terminal state,
	// even though a success leaves the attempt count unchanged.
	err := s.ApplyTransition(ctx, storage.Transition{
		ID:               ids[0],
		ExpectedStatus:   record.StatusPending,
		ExpectedAttempts: 0,
		State:            record.Skipped{},
		Attempts:         0,
	})
	assert.ErrorIs(t, err, storage.ErrConflict)

	r, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, record.Ok{ContentText: "extracted body"}, r.State)

	next := base.Add(5 * time.Minute)
	transition(t, s, ids[1], 0, record.Pending{NextEligibleAt: &next}, 1)
	require.NoError(t, s.ApplyTransition(ctx, storage.Transition{
		ID:               ids[1],
		ExpectedStatus:   record.StatusFailedTransient,
		ExpectedAttempts: 1,
		State:            record.FailedPermanent{},
		Attempts:         2,
	}))

	r, err = s.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, record.FailedPermanent{}, r.State)
	assert.Equal(t, 2, r.Attempts)
}

func testResetFailed(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	old := upsert(t, s, base.Add(-72*time.Hour), raw("https://a.example/old", "Old", "A"))
	ids := upsert(t, s, base, raw("https://a.example/1", "First", "A"), raw("https://a.example/2", "Second", "A"))

	transition(t, s, old[0], 0, record.FailedPermanent{}, 2)
	transition(t, s, ids[0], 0, record.FailedPermanent{}, 2)
	transition(t, s, ids[1], 0, record.Skipped{}, 0)

	n, err := s.ResetFailed(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	r, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, record.Pending{}, r.State)
	assert.Zero(t, r.Attempts)

	r, err = s.Get(ctx, old[0])
	require.NoError(t, err)
	assert.Equal(t, record.FailedPermanent{}, r.State)

	r, err = s.Get(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, record.Skipped{}, r.State)
}

func testCountByState(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	next := base.Add(time.Hour)
	ids := upsert(t, s, base,
		raw("https://a.example/1", "1", "A"),
		raw("https://a.example/2", "2", "A"),
		raw("https://a.example/3", "3", "A"),
		raw("https://a.example/4", "4", "A"),
		raw("https://a.example/5", "5", "A"),
	)
	transition(t, s, ids[1], 0, record.Ok{ContentText: "body"}, 0)
	transition(t, s, ids[2], 0, record.Pending{NextEligibleAt: &next}, 1)
	transition(t, s, ids[3], 0, record.FailedPermanent{}, 1)
	transition(t, s, ids[4], 0, record.Skipped{}, 0)

	counts, err := s.CountByState(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[record.Status]int{
		record.StatusPending:         1,
		record.StatusOk:              1,
		record.StatusFailedTransient: 1,
		record.StatusFailedPermanent: 1,
		record.StatusSkipped:         1,
	}, counts)
}

func testSelection(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	since := base.Add(-time.Hour)
	ids := upsert(t, s, base,
		raw("https://a.example/1", "1", "A"),
		raw("https://a.example/2", "2", "A"),
		raw("https://a.example/3", "3", "A"),
	)
	transition(t, s, ids[0], 0, record.Ok{ContentText: "one"}, 0)
	transition(t, s, ids[1], 0, record.Ok{ContentText: "two"}, 0)

	extracted, err := s.ExtractedSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, extracted, 2)
	for _, r := range extracted {
		_, ok := r.ContentText()
		assert.True(t, ok)
	}

	require.NoError(t, s.SaveSelection(ctx, since, []storage.SelectionUpdate{
		{ID: ids[0], Selection: record.Selection{Score: 3.5, Rank: 1, Reason: "rank=1"}},
		{ID: ids[1], Selection: record.Selection{Score: 1.25, Rank: 2, Reason: "rank=2"}},
	}))

	require.NoError(t, s.SaveSelection(ctx, since, []storage.SelectionUpdate{
		{ID: ids[1], Selection: record.Selection{Score: 2, Rank: 1, Reason: "rank=1"}},
	}))

	first, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Nil(t, first.Selection)

	second, err := s.Get(ctx, ids[1])
	require.NoError(t, err)
	require.NotNil(t, second.Selection)
	assert.Equal(t, record.Selection{Score: 2, Rank: 1, Reason: "rank=1"}, *second.Selection)
}

func testGet(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	ids := upsert(t, s, base, raw("https://a.example/1", "1", "A"), raw("https://a.example/2", "2", "B"))

	_, err := s.Get(ctx, ids[1]+1000)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	many, err := s.GetMany(ctx, []record.ID{ids[1], ids[1] + 1000, ids[0]})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, ids[1], many[0].ID)
	assert.Equal(t, "B", many[0].SourceName)
	assert.Equal(t, ids[0], many[1].ID)
}

func testDelete(t *testing.T, s storage.RecordStore) {
	ctx := context.Background()
	old := upsert(t, s, base.Add(-10*24*time.Hour), raw("https://a.example/old", "Old", "A"))
	ids := upsert(t, s, base, raw("https://a.example/new", "New", "A"))

	n, err := s.DeleteDiscoveredBefore(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, old[0])
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.Get(ctx, ids[0])
	assert.NoError(t, err)

	again := upsert(t, s, base, raw("https://a.example/old", "Old", "A"))
	assert.NotEqual(t, ids[0], again[0])
}
