package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
)

const defaultChunkSize = 500

// Deduplicator merges raw batches into the store. Duplicates inside a batch collapse to the
// first occurrence; duplicates across batches collapse onto the stored row by URL.
type Deduplicator struct {
	store     storage.Ingester
	chunkSize int
	now       func() time.Time
	logger    *slog.Logger
}

type Option func(*Deduplicator)

func WithChunkSize(size int) Option {
	return func(d *Deduplicator) {
		if size > 0 {
			d.chunkSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Deduplicator) {
		d.now = now
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Deduplicator) {
		d.logger = l
	}
}

func NewDeduplicator(store storage.Ingester, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		store:     store,
		chunkSize: defaultChunkSize,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ingest upserts the batch and returns the record IDs in the order of the collapsed batch.
// Each chunk is written atomically; chunks written before a failure stay written.
func (d *Deduplicator) Ingest(ctx context.Context, batch []record.RawRecord) ([]record.ID, error) {
	collapsed := Collapse(batch)
	if dropped := len(batch) - len(collapsed); dropped > 0 {
		d.logger.Debug("collapsed ingest batch", "received", len(batch), "dropped", dropped)
	}
	if len(collapsed) == 0 {
		return []record.ID{}, nil
	}

	discoveredAt := d.now().UTC()
	ids := make([]record.ID, 0, len(collapsed))

	for start := 0; start < len(collapsed); start += d.chunkSize {
		if err := ctx.Err(); err != nil {
			return ids, err
		}

		end := min(start+d.chunkSize, len(collapsed))
		chunkIDs, err := d.store.UpsertRecords(ctx, collapsed[start:end], discoveredAt)
		if err != nil {
			return ids, fmt.Errorf("failed to upsert records %d-%d: %w", start, end, err)
		}
		ids = append(ids, chunkIDs...)
	}

	d.logger.Info("ingested batch", "received", len(batch), "upserted", len(ids))
	return ids, nil
}

// Collapse normalizes the batch, drops records without a URL and keeps only the first
// occurrence of every URL, in arrival order.
func Collapse(batch []record.RawRecord) []record.RawRecord {
	seen := make(map[string]struct{}, len(batch))
	out := make([]record.RawRecord, 0, len(batch))

	for _, raw := range batch {
		raw = raw.Normalize()
		if raw.URL == "" {
			slog.Warn("dropping record without url", "title", raw.Title, "source", raw.SourceName)
			continue
		}
		if _, ok := seen[raw.URL]; ok {
			continue
		}
		seen[raw.URL] = struct{}{}
		out = append(out, raw)
	}
	return out
}
