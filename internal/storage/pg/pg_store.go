package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *ConnectionPool
	db   *pgxpool.Pool
}

var _ storage.RecordStore = (*Store)(nil)

func NewStore(pool *ConnectionPool) *Store {
	return &Store{pool: pool, db: pool.conn}
}

const columns = `id, url, title, source_name, category, published_at, discovered_at,
	extraction_state, extraction_attempts, next_eligible_at, content_text, extraction_error,
	importance_score, selection_rank, selection_reason`

const upsertRecord = `
	INSERT INTO records (url, title, source_name, category, published_at, discovered_at, extraction_state)
	VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	ON CONFLICT (url) DO UPDATE SET
		title         = EXCLUDED.title,
		source_name   = EXCLUDED.source_name,
		discovered_at = EXCLUDED.discovered_at,
		category      = COALESCE(EXCLUDED.category, records.category),
		published_at  = COALESCE(EXCLUDED.published_at, records.published_at)
	RETURNING id`

func (s *Store) UpsertRecords(ctx context.Context, batch []record.RawRecord, discoveredAt time.Time) ([]record.ID, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, r := range batch {
		b.Queue(upsertRecord, r.URL, r.Title, r.SourceName, textOrNull(r.Category), r.PublishedAt, discoveredAt)
	}

	br := tx.SendBatch(ctx, b)
	ids := make([]record.ID, 0, len(batch))
	for _, r := range batch {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			br.Close()
			return nil, fmt.Errorf("failed to upsert record %q: %w", r.URL, err)
		}
		ids = append(ids, record.ID(id))
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("failed to close upsert batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return ids, nil
}

func (s *Store) DueForExtraction(ctx context.Context, q storage.DueQuery) ([]record.Record, error) {
	var limit *int
	if q.Limit > 0 {
		limit = &q.Limit
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+columns+` FROM records
		WHERE COALESCE(extraction_state, 'pending') = 'pending'
		  AND (next_eligible_at IS NULL OR next_eligible_at <= $1)
		  AND extraction_attempts < $2
		  AND discovered_at >= $3
		ORDER BY discovered_at ASC, id ASC
		LIMIT $4`,
		q.Now, q.MaxAttempts, q.Since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due records: %w", err)
	}
	return collect(rows)
}

func (s *Store) ApplyTransition(ctx context.Context, t storage.Transition) error {
	cols := record.Encode(t.State)

	tag, err := s.db.Exec(ctx, `
		UPDATE records SET
			extraction_state    = $1,
			extraction_attempts = $2,
			next_eligible_at    = $3,
			content_text        = $4,
			extraction_error    = $5
		WHERE id = $6 AND extraction_attempts = $7
			AND COALESCE(extraction_state, 'pending') = $8`,
		*cols.StoredState,
		t.Attempts,
		cols.NextEligibleAt,
		cols.ContentText,
		textOrNull(t.LastError),
		int64(t.ID),
		t.ExpectedAttempts,
		t.ExpectedStoredState(),
	)
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM records WHERE id = $1)`, int64(t.ID)).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check record %d: %w", t.ID, err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

func (s *Store) ResetFailed(ctx context.Context, since time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE records SET
			extraction_state = 'pending', extraction_attempts = 0,
			next_eligible_at = NULL, extraction_error = NULL
		WHERE extraction_state = 'failed_permanent' AND discovered_at >= $1`,
		since)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountByState(ctx context.Context, since time.Time) (map[record.Status]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			CASE
				WHEN COALESCE(extraction_state, 'pending') = 'pending' AND next_eligible_at IS NOT NULL THEN 'failed_transient'
				ELSE COALESCE(extraction_state, 'pending')
			END AS status,
			COUNT(*)
		FROM records
		WHERE discovered_at >= $1
		GROUP BY 1`,
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[record.Status]int)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[record.Status(status)] = int(n)
	}
	return counts, rows.Err()
}

func (s *Store) ExtractedSince(ctx context.Context, since time.Time) ([]record.Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+columns+` FROM records
		WHERE extraction_state = 'ok' AND discovered_at >= $1
		ORDER BY id`,
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to query extracted records: %w", err)
	}
	return collect(rows)
}

func (s *Store) SaveSelection(ctx context.Context, since time.Time, picks []storage.SelectionUpdate) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE records SET importance_score = NULL, selection_rank = NULL, selection_reason = NULL
		WHERE discovered_at >= $1 AND selection_rank IS NOT NULL`, since); err != nil {
		return fmt.Errorf("failed to clear previous selection: %w", err)
	}

	b := &pgx.Batch{}
	for _, p := range picks {
		b.Queue(`
			UPDATE records SET importance_score = $1, selection_rank = $2, selection_reason = $3
			WHERE id = $4`,
			p.Selection.Score, p.Selection.Rank, p.Selection.Reason, int64(p.ID))
	}

	br := tx.SendBatch(ctx, b)
	for _, p := range picks {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return fmt.Errorf("failed to save selection for record %d: %w", p.ID, err)
		}
		if tag.RowsAffected() == 0 {
			br.Close()
			return fmt.Errorf("selection for record %d: %w", p.ID, storage.ErrNotFound)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close selection batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit selection: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id record.ID) (*record.Record, error) {
	rows, err := s.db.Query(ctx, `SELECT `+columns+` FROM records WHERE id = $1`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get record %d: %w", id, err)
	}
	recs, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, storage.ErrNotFound
	}
	return &recs[0], nil
}

func (s *Store) GetMany(ctx context.Context, ids []record.ID) ([]record.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}

	rows, err := s.db.Query(ctx, `SELECT `+columns+` FROM records WHERE id = ANY($1)`, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	recs, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return storage.OrderByIDs(recs, ids), nil
}

func (s *Store) DeleteDiscoveredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM records WHERE discovered_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func collect(rows pgx.Rows) ([]record.Record, error) {
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return out, nil
}

func scan(rows pgx.Rows) (record.Record, error) {
	var (
		r                         record.Record
		id                        int64
		category, lastErr, reason *string
		state, content            *string
		published, nextEligibleAt *time.Time
		score                     *float64
		rank                      *int32
	)

	err := rows.Scan(
		&id, &r.URL, &r.Title, &r.SourceName, &category, &published, &r.DiscoveredAt,
		&state, &r.Attempts, &nextEligibleAt, &content, &lastErr,
		&score, &rank, &reason,
	)
	if err != nil {
		return record.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	r.ID = record.ID(id)
	r.PublishedAt = published
	if category != nil {
		r.Category = *category
	}
	if lastErr != nil {
		r.LastError = *lastErr
	}

	r.State, err = record.Decode(record.Columns{
		StoredState:    state,
		NextEligibleAt: nextEligibleAt,
		ContentText:    content,
	})
	if err != nil {
		return record.Record{}, fmt.Errorf("record %d: %w", id, err)
	}

	if rank != nil {
		sel := record.Selection{Rank: int(*rank)}
		if score != nil {
			sel.Score = *score
		}
		if reason != nil {
			sel.Reason = *reason
		}
		r.Selection = &sel
	}
	return r, nil
}

func textOrNull(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

