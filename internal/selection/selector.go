package selection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/google/uuid"
)

// Publisher receives every persisted selection, e.g. for digest composition.
type Publisher interface {
	Publish(ctx context.Context, runID uuid.UUID, picks []record.Record) error
}

type Result struct {
	RunID      uuid.UUID
	Candidates int
	Picks      []Pick
}

func (r *Result) IDs() []record.ID {
	ids := make([]record.ID, len(r.Picks))
	for i, p := range r.Picks {
		ids[i] = p.Record.ID
	}
	return ids
}

type Selector struct {
	store     storage.SelectionStore
	params    Params
	now       func() time.Time
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Selector)

func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		s.now = now
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Selector) {
		s.publisher = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		s.logger = l
	}
}

func NewSelector(store storage.SelectionStore, params Params, opts ...Option) (*Selector, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection params: %w", err)
	}

	s := &Selector{
		store:  store,
		params: params,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Select ranks extracted records in the window, persists score, rank and reason on the
// picks and returns their IDs in rank order.
func (s *Selector) Select(ctx context.Context, req Request) ([]record.ID, error) {
	res, err := s.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.IDs(), nil
}

func (s *Selector) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	since := now.Add(-req.Window)

	candidates, err := s.store.ExtractedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load extracted records: %w", err)
	}

	res := &Result{
		RunID:      uuid.New(),
		Candidates: len(candidates),
		Picks:      Rank(candidates, s.params, req.PerSourceCap, req.FinalSize, now),
	}

	updates := make([]storage.SelectionUpdate, len(res.Picks))
	for i, p := range res.Picks {
		updates[i] = storage.SelectionUpdate{ID: p.Record.ID, Selection: p.Selection()}
	}
	if err := s.store.SaveSelection(ctx, since, updates); err != nil {
		return nil, fmt.Errorf("failed to save selection: %w", err)
	}

	s.logger.Info("selection completed",
		"run_id", res.RunID,
		"candidates", res.Candidates,
		"selected", len(res.Picks),
		"per_source_cap", req.PerSourceCap,
		"final_size", req.FinalSize,
	)

	if s.publisher != nil && len(res.Picks) > 0 {
		s.publish(ctx, res)
	}
	return res, nil
}

// publish is best effort: the selection is already persisted.
func (s *Selector) publish(ctx context.Context, res *Result) {
	recs := make([]record.Record, len(res.Picks))
	for i, p := range res.Picks {
		r := p.Record
		sel := p.Selection()
		r.Selection = &sel
		recs[i] = r
	}

	if err := s.publisher.Publish(ctx, res.RunID, recs); err != nil {
		s.logger.Error("failed to publish selection", "run_id", res.RunID, "error", err)
	}
}
