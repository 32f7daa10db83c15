package storage

import (
	"context"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

// Ingester merges raw records into the store keyed on URL.
type Ingester interface {
	// UpsertRecords inserts new URLs as pending and refreshes the descriptive fields of
	// existing ones without touching their extraction state. The batch must not repeat a URL.
	// IDs are returned in batch order.
	UpsertRecords(ctx context.Context, batch []record.RawRecord, discoveredAt time.Time) ([]record.ID, error)
}

// DueQuery selects records the extraction controller may attempt now.
type DueQuery struct {
	Since       time.Time
	Now         time.Time
	MaxAttempts int
	Limit       int
}

// Transition is one state change written by the extraction controller. It applies only while
// the stored row still has ExpectedStatus and ExpectedAttempts; otherwise ApplyTransition
// returns ErrConflict. An empty ExpectedStatus means pending.
type Transition struct {
	ID               record.ID
	ExpectedStatus   record.Status
	ExpectedAttempts int
	State            record.ExtractionState
	Attempts         int
	LastError        string
}

// ExpectedStoredState is the state column value the row must hold for t to apply.
// Transient failures are stored as pending.
func (t Transition) ExpectedStoredState() string {
	switch t.ExpectedStatus {
	case "", record.StatusFailedTransient:
		return string(record.StatusPending)
	default:
		return string(t.ExpectedStatus)
	}
}

type ExtractionStore interface {
	// DueForExtraction returns pending records discovered since q.Since whose retry time
	// has passed and that still have attempts left, oldest discovery first.
	DueForExtraction(ctx context.Context, q DueQuery) ([]record.Record, error)
	ApplyTransition(ctx context.Context, t Transition) error
	// ResetFailed moves permanently failed records discovered since the cutoff back to pending.
	ResetFailed(ctx context.Context, since time.Time) (int64, error)
	CountByState(ctx context.Context, since time.Time) (map[record.Status]int, error)
}

// SelectionUpdate is the score and rank written back for one selected record.
type SelectionUpdate struct {
	ID        record.ID
	Selection record.Selection
}

type SelectionStore interface {
	// ExtractedSince returns ok records discovered since the cutoff.
	ExtractedSince(ctx context.Context, since time.Time) ([]record.Record, error)
	// SaveSelection clears previous selection marks in the window and writes the new ones atomically.
	SaveSelection(ctx context.Context, since time.Time, picks []SelectionUpdate) error
}

type Reader interface {
	Get(ctx context.Context, id record.ID) (*record.Record, error)
	GetMany(ctx context.Context, ids []record.ID) ([]record.Record, error)
}

type RecordStore interface {
	Ingester
	ExtractionStore
	SelectionStore
	Reader
	// DeleteDiscoveredBefore removes records older than the cutoff.
	DeleteDiscoveredBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// OrderByIDs arranges recs in the order of ids, dropping ids that have no record.
func OrderByIDs(recs []record.Record, ids []record.ID) []record.Record {
	byID := make(map[record.ID]record.Record, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}

	out := make([]record.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
