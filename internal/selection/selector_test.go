package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/in_mem"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioTitles = []string{
	"Central bank holds rates steady",
	"Volcano erupts near coastal town",
	"New vaccine trial shows promise",
	"Football club signs young striker",
	"Startup unveils foldable bike",
	"Heatwave breaks temperature records",
	"Museum returns looted artifacts",
	"Chipmaker reports record earnings",
	"Parliament passes housing bill",
	"Astronomers spot distant comet",
	"Airline cancels winter routes",
	"Farmers protest grain prices",
}

type fakePublisher struct {
	runID uuid.UUID
	picks []record.Record
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, runID uuid.UUID, picks []record.Record) error {
	p.runID = runID
	p.picks = picks
	return p.err
}

// seed stores 12 extracted records from three sources holding 5, 4 and 3 records.
func seed(t *testing.T, s *in_mem.Store) {
	t.Helper()
	ctx := context.Background()
	sources := []string{"A", "A", "A", "A", "A", "B", "B", "B", "B", "C", "C", "C"}

	for i, title := range scenarioTitles {
		published := now.Add(-time.Duration(i+1) * 37 * time.Minute)
		ids, err := s.UpsertRecords(ctx, []record.RawRecord{{
			URL:         fmt.Sprintf("https://%s.example/%d", sources[i], i),
			Title:       title,
			SourceName:  sources[i],
			PublishedAt: &published,
		}}, now.Add(-time.Hour))
		require.NoError(t, err)
		require.NoError(t, s.ApplyTransition(ctx, storage.Transition{
			ID:    ids[0],
			State: record.Ok{ContentText: body},
		}))
	}
}

func newTestSelector(t *testing.T, s storage.SelectionStore, opts ...Option) *Selector {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	sel, err := NewSelector(s, testParams(), opts...)
	require.NoError(t, err)
	return sel
}

func TestSelector_EndToEnd(t *testing.T) {
	store := in_mem.NewStore()
	seed(t, store)
	ctx := context.Background()

	ids, err := newTestSelector(t, store).Select(ctx, Request{Window: 24 * time.Hour, PerSourceCap: 5, FinalSize: 10})
	require.NoError(t, err)
	require.Len(t, ids, 10)

	recs, err := store.GetMany(ctx, ids)
	require.NoError(t, err)
	require.Len(t, recs, 10)

	perSource := map[string]int{}
	ranks := map[int]bool{}
	for i, r := range recs {
		perSource[r.SourceName]++
		require.NotNil(t, r.Selection, "record %d has no selection", r.ID)
		assert.Equal(t, i+1, r.Selection.Rank)
		assert.Contains(t, r.Selection.Reason, fmt.Sprintf("rank=%d;", i+1))
		ranks[r.Selection.Rank] = true
		if i > 0 {
			assert.Greater(t, recs[i-1].Selection.Score, r.Selection.Score)
		}
	}
	assert.Len(t, ranks, 10)
	for source, n := range perSource {
		assert.LessOrEqual(t, n, 5, source)
	}
}

func TestSelector_PerSourceCap(t *testing.T) {
	store := in_mem.NewStore()
	seed(t, store)
	ctx := context.Background()

	ids, err := newTestSelector(t, store).Select(ctx, Request{Window: 24 * time.Hour, PerSourceCap: 2, FinalSize: 10})
	require.NoError(t, err)
	assert.Len(t, ids, 6)

	recs, err := store.GetMany(ctx, ids)
	require.NoError(t, err)
	perSource := map[string]int{}
	for _, r := range recs {
		perSource[r.SourceName]++
	}
	assert.Equal(t, map[string]int{"A": 2, "B": 2, "C": 2}, perSource)
}

func TestSelector_IsDeterministicAndClearsPreviousRun(t *testing.T) {
	store := in_mem.NewStore()
	seed(t, store)
	ctx := context.Background()
	sel := newTestSelector(t, store)
	req := Request{Window: 24 * time.Hour, PerSourceCap: 5, FinalSize: 10}

	first, err := sel.Select(ctx, req)
	require.NoError(t, err)
	second, err := sel.Select(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	smaller, err := sel.Select(ctx, Request{Window: 24 * time.Hour, PerSourceCap: 5, FinalSize: 3})
	require.NoError(t, err)
	assert.Equal(t, first[:3], smaller)

	dropped, err := store.Get(ctx, first[9])
	require.NoError(t, err)
	assert.Nil(t, dropped.Selection)
}

func TestSelector_NearDuplicateKeepsHigherScored(t *testing.T) {
	store := in_mem.NewStore()
	ctx := context.Background()
	newer := now.Add(-time.Hour)
	older := now.Add(-5 * time.Hour)

	ids, err := store.UpsertRecords(ctx, []record.RawRecord{
		{URL: "https://a.example/1", Title: "Company X launches new AI model today", SourceName: "A", PublishedAt: &older},
		{URL: "https://b.example/1", Title: "Company X launches new AI model", SourceName: "B", PublishedAt: &newer},
	}, now.Add(-time.Hour))
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, store.ApplyTransition(ctx, storage.Transition{ID: id, State: record.Ok{ContentText: body}}))
	}

	selected, err := newTestSelector(t, store).Select(ctx, Request{Window: 24 * time.Hour, PerSourceCap: 5, FinalSize: 10})
	require.NoError(t, err)
	assert.Equal(t, []record.ID{ids[1]}, selected)
}

func TestSelector_PublishesPicks(t *testing.T) {
	store := in_mem.NewStore()
	seed(t, store)
	pub := &fakePublisher{}

	res, err := newTestSelector(t, store, WithPublisher(pub)).Run(context.Background(), Request{Window: 24 * time.Hour, PerSourceCap: 5, FinalSize: 4})
	require.NoError(t, err)

	assert.Equal(t, res.RunID, pub.runID)
	assert.Equal(t, 12, res.Candidates)
	require.Len(t, pub.picks, 4)
	for i, r := range pub.picks {
		require.NotNil(t, r.Selection)
		assert.Equal(t, i+1, r.Selection.Rank)
	}
}

func TestSelector_PublishFailureDoesNotFailSelection(t *testing.T) {
	store := in_mem.NewStore()
	seed(t, store)

	ids, err := newTestSelector(t, store, WithPublisher(&fakePublisher{err: errors.New("es down")})).
		Select(context.Background(), Request{Window: 24 * time.Hour, PerSourceCap: 5, FinalSize: 2})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestSelector_InvalidRequest(t *testing.T) {
	sel := newTestSelector(t, in_mem.NewStore())

	for _, req := range []Request{
		{Window: 0, PerSourceCap: 1, FinalSize: 1},
		{Window: time.Hour, PerSourceCap: 0, FinalSize: 1},
		{Window: time.Hour, PerSourceCap: 1, FinalSize: 0},
	} {
		_, err := sel.Select(context.Background(), req)
		var ve *apperr.ValidationError
		assert.ErrorAs(t, err, &ve)
	}

	_, err := NewSelector(in_mem.NewStore(), Params{SimilarityThreshold: 0})
	assert.ErrorIs(t, err, ErrInvalidSimilarityThreshold)
}
