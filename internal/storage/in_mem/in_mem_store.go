package in_mem

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
)

// Store keeps records in process memory. It is meant for tests and dry runs.
type Store struct {
	storageLock sync.RWMutex
	byID        map[record.ID]*record.Record
	byURL       map[string]record.ID
	seq         record.ID
}

var _ storage.RecordStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		byID:  make(map[record.ID]*record.Record),
		byURL: make(map[string]record.ID),
	}
}

func (s *Store) UpsertRecords(ctx context.Context, batch []record.RawRecord, discoveredAt time.Time) ([]record.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	ids := make([]record.ID, 0, len(batch))
	for _, raw := range batch {
		if id, ok := s.byURL[raw.URL]; ok {
			r := s.byID[id]
			r.Title = raw.Title
			r.SourceName = raw.SourceName
			r.DiscoveredAt = discoveredAt
			if raw.Category != "" {
				r.Category = raw.Category
			}
			if raw.PublishedAt != nil {
				r.PublishedAt = copyTime(raw.PublishedAt)
			}
			ids = append(ids, id)
			continue
		}

		s.seq++
		s.byID[s.seq] = &record.Record{
			ID:           s.seq,
			URL:          raw.URL,
			Title:        raw.Title,
			SourceName:   raw.SourceName,
			Category:     raw.Category,
			PublishedAt:  copyTime(raw.PublishedAt),
			DiscoveredAt: discoveredAt,
			State:        record.Pending{},
		}
		s.byURL[raw.URL] = s.seq
		ids = append(ids, s.seq)
	}

	slog.Debug("upserted records into memory", "count", len(ids))
	return ids, nil
}

func (s *Store) DueForExtraction(ctx context.Context, q storage.DueQuery) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	var due []record.Record
	for _, r := range s.byID {
		if r.DiscoveredAt.Before(q.Since) || r.Attempts >= q.MaxAttempts {
			continue
		}
		if !record.EligibleAt(r.State, q.Now) {
			continue
		}
		due = append(due, clone(r))
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].DiscoveredAt.Equal(due[j].DiscoveredAt) {
			return due[i].DiscoveredAt.Before(due[j].DiscoveredAt)
		}
		return due[i].ID < due[j].ID
	})

	if q.Limit > 0 && len(due) > q.Limit {
		due = due[:q.Limit]
	}
	return due, nil
}

func (s *Store) ApplyTransition(ctx context.Context, t storage.Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	r, ok := s.byID[t.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if r.Attempts != t.ExpectedAttempts || record.StoredStatus(r.State) != t.ExpectedStoredState() {
		return storage.ErrConflict
	}

	r.State = t.State
	r.Attempts = t.Attempts
	r.LastError = t.LastError
	return nil
}

func (s *Store) ResetFailed(ctx context.Context, since time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	var n int64
	for _, r := range s.byID {
		if r.DiscoveredAt.Before(since) {
			continue
		}
		if _, failed := r.State.(record.FailedPermanent); !failed {
			continue
		}
		r.State = record.Pending{}
		r.Attempts = 0
		r.LastError = ""
		n++
	}
	return n, nil
}

func (s *Store) CountByState(ctx context.Context, since time.Time) (map[record.Status]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	counts := make(map[record.Status]int)
	for _, r := range s.byID {
		if r.DiscoveredAt.Before(since) {
			continue
		}
		counts[r.Status()]++
	}
	return counts, nil
}

func (s *Store) ExtractedSince(ctx context.Context, since time.Time) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	var out []record.Record
	for _, r := range s.byID {
		if r.DiscoveredAt.Before(since) {
			continue
		}
		if _, ok := r.State.(record.Ok); !ok {
			continue
		}
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveSelection(ctx context.Context, since time.Time, picks []storage.SelectionUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	for _, p := range picks {
		if _, ok := s.byID[p.ID]; !ok {
			return storage.ErrNotFound
		}
	}

	for _, r := range s.byID {
		if !r.DiscoveredAt.Before(since) {
			r.Selection = nil
		}
	}
	for _, p := range picks {
		sel := p.Selection
		s.byID[p.ID].Selection = &sel
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id record.ID) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	c := clone(r)
	return &c, nil
}

func (s *Store) GetMany(ctx context.Context, ids []record.ID) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.storageLock.RLock()
	defer s.storageLock.RUnlock()

	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.byID[id]; ok {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (s *Store) DeleteDiscoveredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	var n int64
	for id, r := range s.byID {
		if r.DiscoveredAt.Before(cutoff) {
			delete(s.byURL, r.URL)
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() {}

func clone(r *record.Record) record.Record {
	c := *r
	c.PublishedAt = copyTime(r.PublishedAt)
	if r.Selection != nil {
		sel := *r.Selection
		c.Selection = &sel
	}
	return c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
