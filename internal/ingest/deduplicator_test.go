package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/in_mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ingestTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return ingestTime }

func TestCollapse_KeepsFirstOccurrence(t *testing.T) {
	batch := []record.RawRecord{
		{URL: "https://a.example/x", Title: "A"},
		{URL: "  https://a.example/x ", Title: "A2"},
		{URL: "https://b.example/y", Title: "B", SourceName: "BBC"},
		{URL: "   ", Title: "no url"},
		{URL: "", Title: "empty"},
	}

	got := Collapse(batch)

	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, record.UnknownSource, got[0].SourceName)
	assert.Equal(t, "B", got[1].Title)
}

func TestDeduplicator_BatchCollapse(t *testing.T) {
	store := in_mem.NewStore()
	d := NewDeduplicator(store, WithClock(fixedClock))
	ctx := context.Background()

	ids, err := d.Ingest(ctx, []record.RawRecord{
		{URL: "https://a.example/x", Title: "A", SourceName: "S"},
		{URL: "https://a.example/x", Title: "A2", SourceName: "S"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	r, err := store.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "A", r.Title)
	assert.Equal(t, ingestTime, r.DiscoveredAt)
	assert.Equal(t, record.StatusPending, r.Status())
	assert.Zero(t, r.Attempts)
}

func TestDeduplicator_IsIdempotentAcrossRuns(t *testing.T) {
	store := in_mem.NewStore()
	ctx := context.Background()
	batch := []record.RawRecord{
		{URL: "https://a.example/1", Title: "One", SourceName: "S"},
		{URL: "https://a.example/2", Title: "Two", SourceName: "S"},
	}

	first, err := NewDeduplicator(store, WithClock(fixedClock)).Ingest(ctx, batch)
	require.NoError(t, err)

	later := ingestTime.Add(time.Hour)
	batch[0].Title = "One (updated)"
	second, err := NewDeduplicator(store, WithClock(func() time.Time { return later })).Ingest(ctx, batch)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	r, err := store.Get(ctx, first[0])
	require.NoError(t, err)
	assert.Equal(t, "One (updated)", r.Title)
	assert.Equal(t, later, r.DiscoveredAt)

	counts, err := store.CountByState(ctx, ingestTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, counts[record.StatusPending])
}

func TestDeduplicator_ChunksPreserveOrder(t *testing.T) {
	store := in_mem.NewStore()
	spy := &countingIngester{Store: store}
	d := NewDeduplicator(spy, WithChunkSize(3), WithClock(fixedClock))

	batch := make([]record.RawRecord, 10)
	for i := range batch {
		batch[i] = record.RawRecord{URL: fmt.Sprintf("https://a.example/%d", i), Title: fmt.Sprint(i)}
	}

	ids, err := d.Ingest(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, ids, 10)
	assert.Equal(t, 4, spy.calls)

	recs, err := store.GetMany(context.Background(), ids)
	require.NoError(t, err)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprint(i), r.Title)
	}
}

func TestDeduplicator_StoreFailure(t *testing.T) {
	spy := &countingIngester{Store: in_mem.NewStore(), failOn: 2}
	d := NewDeduplicator(spy, WithChunkSize(2), WithClock(fixedClock))

	batch := []record.RawRecord{
		{URL: "https://a.example/1"}, {URL: "https://a.example/2"},
		{URL: "https://a.example/3"}, {URL: "https://a.example/4"},
	}
	ids, err := d.Ingest(context.Background(), batch)

	assert.ErrorIs(t, err, errStoreDown)
	assert.Len(t, ids, 2)
}

func TestDeduplicator_EmptyBatch(t *testing.T) {
	ids, err := NewDeduplicator(in_mem.NewStore()).Ingest(context.Background(), []record.RawRecord{{URL: " "}})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

var errStoreDown = errors.New("store down")

type countingIngester struct {
	*in_mem.Store
	calls  int
	failOn int
}

func (c *countingIngester) UpsertRecords(ctx context.Context, batch []record.RawRecord, discoveredAt time.Time) ([]record.ID, error) {
	c.calls++
	if c.calls == c.failOn {
		return nil, errStoreDown
	}
	return c.Store.UpsertRecords(ctx, batch, discoveredAt)
}
