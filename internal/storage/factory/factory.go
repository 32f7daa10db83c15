package factory

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/es"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/pg"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/sqlite"
)

// NewRecordStore creates a storage.RecordStore based on the storage type
func NewRecordStore(ctx context.Context, cfg *StorageConfig) (storage.RecordStore, error) {
	switch cfg.Type {
	case storage.PG:
		if cfg.Pg == nil {
			return nil, fmt.Errorf("missing PostgreSQL configuration")
		}
		pool, err := pg.NewConnectionPool(ctx, *cfg.Pg)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}
		return pg.NewStore(pool), nil

	case storage.SQLite:
		if cfg.SQLite == nil {
			return nil, fmt.Errorf("missing SQLite configuration")
		}
		s, err := sqlite.Open(ctx, *cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite store: %w", err)
		}
		return s, nil

	case storage.InMem:
		return in_mem.NewStore(), nil

	default:
		return nil, fmt.Errorf(string(storage.ErrUnsupportedStorer), cfg.Type)
	}
}

// NewPublisher returns nil when no Elasticsearch target is configured.
func NewPublisher(ctx context.Context, cfg *StorageConfig) (*es.Publisher, error) {
	if cfg.Es == nil {
		return nil, nil
	}
	return es.NewPublisher(ctx, *cfg.Es)
}
