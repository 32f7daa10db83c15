package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/google/uuid"
)

// Publisher indexes the records of a selection run so digest composition can read them.
type Publisher struct {
	client       *elasticsearch.TypedClient
	indexName    string
	indexBuilder *IndexBuilder
}

func NewPublisher(ctx context.Context, config ClientConfig) (*Publisher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	p := &Publisher{
		client:       client,
		indexName:    config.IndexName,
		indexBuilder: NewIndexBuilder(),
	}

	if err := p.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return p, nil
}

func (p *Publisher) Publish(ctx context.Context, runID uuid.UUID, picks []record.Record) error {
	if len(picks) == 0 {
		return nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         p.indexName,
		Client:        p.client,
		NumWorkers:    2,
		FlushBytes:    5e+6,
		FlushInterval: 5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var successful, failed atomic.Int64
	selectedAt := time.Now().UTC()

	for _, r := range picks {
		doc := p.indexBuilder.mapToDocument(runID, r, selectedAt)

		body, err := json.Marshal(doc)
		if err != nil {
			slog.Error("failed to marshal selection document", "error", err, "id", doc.ID)
			failed.Add(1)
			continue
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: runID.String() + "-" + doc.ID,
			Body:       bytes.NewReader(body),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				successful.Add(1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					slog.Error("bulk index error", "error", err, "id", item.DocumentID)
				} else {
					slog.Error("bulk index error", "status", res.Status, "error", res.Error.Type, "reason", res.Error.Reason, "id", item.DocumentID)
				}
			},
		})
		if err != nil {
			failed.Add(1)
			slog.Error("failed to add document to bulk indexer", "error", err, "id", doc.ID)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to close bulk indexer: %w", err)
	}

	slog.Info("selection published",
		"run_id", runID,
		"successful", successful.Load(),
		"failed", failed.Load(),
		"index", p.indexName)

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("failed to publish %d out of %d records", n, len(picks))
	}
	return nil
}

func (p *Publisher) EnsureIndex(ctx context.Context) error {
	exists, err := p.client.Indices.Exists(p.indexName).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	if exists {
		slog.Debug("index already exists", "index", p.indexName)
		return nil
	}

	settings := p.indexBuilder.buildSettings()
	mappings := p.indexBuilder.buildMapping()

	res, err := p.client.Indices.Create(p.indexName).
		Settings(&settings).
		Mappings(&mappings).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("index creation was not acknowledged")
	}

	slog.Info("index created", "index", p.indexName)
	return nil
}
