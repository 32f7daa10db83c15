package factory

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/DjordjeVuckovic/news-digest/internal/storage"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/es"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/pg"
	"github.com/DjordjeVuckovic/news-digest/internal/storage/sqlite"
	"github.com/DjordjeVuckovic/news-digest/pkg/utils"
)

type StorageConfig struct {
	storage.Type
	Pg     *pg.PoolConfig
	SQLite *sqlite.Config
	// Es is set when selections should also be published to Elasticsearch.
	Es *es.ClientConfig
}

var supportedTypes = []storage.Type{storage.PG, storage.SQLite, storage.InMem}

func LoadEnv() (*StorageConfig, error) {
	storageType := (storage.Type)(os.Getenv("STORAGE_TYPE"))
	if storageType == "" {
		slog.Error("STORAGE_TYPE environment variable is not set")
		return nil, fmt.Errorf("STORAGE_TYPE environment variable is not set")
	}
	if storageType != storage.PG && storageType != storage.SQLite && storageType != storage.InMem {
		slog.Error("Invalid STORAGE_TYPE environment variable value", "value", storageType)
		return nil, fmt.Errorf(
			"invalid STORAGE_TYPE environment variable value: %s, expected one of %v",
			storageType,
			supportedTypes)
	}

	cfg := &StorageConfig{Type: storageType}

	switch storageType {
	case storage.PG:
		pgCfg := &pg.PoolConfig{
			ConnStr:        os.Getenv("PG_CONNECTION_STRING"),
			ConnectRetries: 5,
		}
		if pgCfg.ConnStr == "" {
			slog.Error("PostgreSQL connection string is not set")
			return nil, fmt.Errorf("PostgreSQL connection string is not set")
		}
		if v := os.Getenv("PG_MAX_CONNS"); v != "" {
			n, err := strconv.ParseInt(v, 10, 32)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid PG_MAX_CONNS value: %q", v)
			}
			pgCfg.MaxConns = int32(n)
		}
		cfg.Pg = pgCfg
	case storage.SQLite:
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "news_digest.db"
		}
		cfg.SQLite = &sqlite.Config{Path: path}
	}

	if addrs := os.Getenv("ES_ADDRESSES"); addrs != "" {
		esCfg := &es.ClientConfig{
			Addresses: utils.SplitAndTrim(addrs, ","),
			IndexName: os.Getenv("ES_INDEX_NAME"),
			Username:  os.Getenv("ES_USERNAME"),
			Password:  os.Getenv("ES_PASSWORD"),
		}
		if err := esCfg.Validate(); err != nil {
			slog.Error("Elasticsearch configuration is incomplete", "addresses", esCfg.Addresses, "indexName", esCfg.IndexName)
			return nil, fmt.Errorf("elasticsearch configuration is incomplete: %w", err)
		}
		cfg.Es = esCfg
	}

	return cfg, nil
}
