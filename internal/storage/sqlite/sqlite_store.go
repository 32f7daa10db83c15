package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	_ "modernc.org/sqlite"
)

type Config struct {
	// Path is a file path or ":memory:".
	Path string
}

// Store is a storage.RecordStore over an embedded SQLite database.
// Instants are stored as unix milliseconds.
type Store struct {
	db *sql.DB
}

var _ storage.RecordStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    url                 TEXT    NOT NULL UNIQUE,
    title               TEXT    NOT NULL DEFAULT '',
    source_name         TEXT    NOT NULL DEFAULT 'unknown',
    category            TEXT,
    published_at        INTEGER,
    discovered_at       INTEGER NOT NULL,
    extraction_state    TEXT CHECK (extraction_state IS NULL OR extraction_state IN ('pending', 'ok', 'failed_permanent', 'skipped')),
    extraction_attempts INTEGER NOT NULL DEFAULT 0 CHECK (extraction_attempts >= 0),
    next_eligible_at    INTEGER,
    content_text        TEXT,
    extraction_error    TEXT,
    importance_score    REAL,
    selection_rank      INTEGER,
    selection_reason    TEXT
);
CREATE INDEX IF NOT EXISTS idx_records_discovered_at ON records (discovered_at);
`

const columns = `id, url, title, source_name, category, published_at, discovered_at,
	extraction_state, extraction_attempts, next_eligible_at, content_text, extraction_error,
	importance_score, selection_rank, selection_reason`

func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("sqlite store opened", "path", cfg.Path)
	return &Store{db: db}, nil
}

func (s *Store) UpsertRecords(ctx context.Context, batch []record.RawRecord, discoveredAt time.Time) ([]record.ID, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (url, title, source_name, category, published_at, discovered_at, extraction_state)
		VALUES (?, ?, ?, ?, ?, ?, 'pending')
		ON CONFLICT (url) DO UPDATE SET
			title         = excluded.title,
			source_name   = excluded.source_name,
			discovered_at = excluded.discovered_at,
			category      = COALESCE(excluded.category, records.category),
			published_at  = COALESCE(excluded.published_at, records.published_at)
		RETURNING id`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	ids := make([]record.ID, 0, len(batch))
	for _, r := range batch {
		var id int64
		err := stmt.QueryRowContext(ctx,
			r.URL,
			r.Title,
			r.SourceName,
			nullString(r.Category),
			millisPtr(r.PublishedAt),
			discoveredAt.UnixMilli(),
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert record %q: %w", r.URL, err)
		}
		ids = append(ids, record.ID(id))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit upsert: %w", err)
	}
	return ids, nil
}

func (s *Store) DueForExtraction(ctx context.Context, q storage.DueQuery) ([]record.Record, error) {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM records
		WHERE COALESCE(extraction_state, 'pending') = 'pending'
		  AND (next_eligible_at IS NULL OR next_eligible_at <= ?)
		  AND extraction_attempts < ?
		  AND discovered_at >= ?
		ORDER BY discovered_at ASC, id ASC
		LIMIT ?`,
		q.Now.UnixMilli(), q.MaxAttempts, q.Since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due records: %w", err)
	}
	return collect(rows)
}

func (s *Store) ApplyTransition(ctx context.Context, t storage.Transition) error {
	cols := record.Encode(t.State)

	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET
			extraction_state    = ?,
			extraction_attempts = ?,
			next_eligible_at    = ?,
			content_text        = ?,
			extraction_error    = ?
		WHERE id = ? AND extraction_attempts = ?
			AND COALESCE(extraction_state, 'pending') = ?`,
		*cols.StoredState,
		t.Attempts,
		millisPtr(cols.NextEligibleAt),
		nullStringPtr(cols.ContentText),
		nullString(t.LastError),
		int64(t.ID),
		t.ExpectedAttempts,
		t.ExpectedStoredState(),
	)
	if err != nil {
		return fmt.Errorf("failed to update record %d: %w", t.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?`, int64(t.ID)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check record %d: %w", t.ID, err)
	}
	return storage.ErrConflict
}

func (s *Store) ResetFailed(ctx context.Context, since time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET
			extraction_state = 'pending', extraction_attempts = 0,
			next_eligible_at = NULL, extraction_error = NULL
		WHERE extraction_state = 'failed_permanent' AND discovered_at >= ?`,
		since.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed records: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) CountByState(ctx context.Context, since time.Time) (map[record.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			CASE
				WHEN COALESCE(extraction_state, 'pending') = 'pending' AND next_eligible_at IS NOT NULL THEN 'failed_transient'
				ELSE COALESCE(extraction_state, 'pending')
			END AS status,
			COUNT(*)
		FROM records
		WHERE discovered_at >= ?
		GROUP BY status`,
		since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[record.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[record.Status(status)] = n
	}
	return counts, rows.Err()
}

func (s *Store) ExtractedSince(ctx context.Context, since time.Time) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+` FROM records
		WHERE extraction_state = 'ok' AND discovered_at >= ?
		ORDER BY id`,
		since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query extracted records: %w", err)
	}
	return collect(rows)
}

func (s *Store) SaveSelection(ctx context.Context, since time.Time, picks []storage.SelectionUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE records SET importance_score = NULL, selection_rank = NULL, selection_reason = NULL
		WHERE discovered_at >= ?`, since.UnixMilli()); err != nil {
		return fmt.Errorf("failed to clear previous selection: %w", err)
	}

	for _, p := range picks {
		res, err := tx.ExecContext(ctx, `
			UPDATE records SET importance_score = ?, selection_rank = ?, selection_reason = ?
			WHERE id = ?`,
			p.Selection.Score, p.Selection.Rank, p.Selection.Reason, int64(p.ID))
		if err != nil {
			return fmt.Errorf("failed to save selection for record %d: %w", p.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("selection for record %d: %w", p.ID, storage.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit selection: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id record.ID) (*record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM records WHERE id = ?`, int64(id))
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

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = int64(id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM records WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
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
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE discovered_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		slog.Error("failed to close sqlite store", "error", err)
	}
}

func collect(rows *sql.Rows) ([]record.Record, error) {
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

func scan(rows *sql.Rows) (record.Record, error) {
	var (
		r                                   record.Record
		id                                  int64
		category, state, content, lastErr   sql.NullString
		reason                              sql.NullString
		published, discovered, nextEligible sql.NullInt64
		rank                                sql.NullInt64
		score                               sql.NullFloat64
	)

	err := rows.Scan(
		&id, &r.URL, &r.Title, &r.SourceName, &category, &published, &discovered,
		&state, &r.Attempts, &nextEligible, &content, &lastErr,
		&score, &rank, &reason,
	)
	if err != nil {
		return record.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	r.ID = record.ID(id)
	r.Category = category.String
	r.LastError = lastErr.String
	r.PublishedAt = fromMillis(published)
	r.DiscoveredAt = time.UnixMilli(discovered.Int64).UTC()

	cols := record.Columns{NextEligibleAt: fromMillis(nextEligible)}
	if state.Valid {
		cols.StoredState = &state.String
	}
	if content.Valid {
		cols.ContentText = &content.String
	}
	r.State, err = record.Decode(cols)
	if err != nil {
		return record.Record{}, fmt.Errorf("record %d: %w", id, err)
	}

	if rank.Valid {
		r.Selection = &record.Selection{Score: score.Float64, Rank: int(rank.Int64), Reason: reason.String}
	}
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func millisPtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
