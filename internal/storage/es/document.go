package es

import (
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/google/uuid"
)

// SelectionDocument is one selected record as indexed for downstream digest composition.
type SelectionDocument struct {
	ID           string     `json:"id"`
	RunID        string     `json:"run_id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	SourceName   string     `json:"source_name"`
	Category     string     `json:"category,omitempty"`
	Content      string     `json:"content"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	DiscoveredAt time.Time  `json:"discovered_at"`
	Rank         int        `json:"rank"`
	Score        float64    `json:"score"`
	Reason       string     `json:"reason"`
	SelectedAt   time.Time  `json:"selected_at"`
}

type IndexBuilder struct {
	analyzer string
}

func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{analyzer: "digest_analyzer"}
}

func (b *IndexBuilder) mapToDocument(runID uuid.UUID, r record.Record, selectedAt time.Time) SelectionDocument {
	doc := SelectionDocument{
		ID:           strconv.FormatInt(int64(r.ID), 10),
		RunID:        runID.String(),
		URL:          r.URL,
		Title:        r.Title,
		SourceName:   r.SourceName,
		Category:     r.Category,
		PublishedAt:  r.PublishedAt,
		DiscoveredAt: r.DiscoveredAt,
		SelectedAt:   selectedAt,
	}
	if text, ok := r.ContentText(); ok {
		doc.Content = text
	}
	if r.Selection != nil {
		doc.Rank = r.Selection.Rank
		doc.Score = r.Selection.Score
		doc.Reason = r.Selection.Reason
	}
	return doc
}

func (b *IndexBuilder) buildSettings() types.IndexSettings {
	return types.IndexSettings{
		Analysis: &types.IndexSettingsAnalysis{
			Analyzer: map[string]types.Analyzer{
				b.analyzer: types.StandardAnalyzer{
					Stopwords: []string{"_english_"},
				},
			},
		},
	}
}

func (b *IndexBuilder) buildMapping() types.TypeMapping {
	return types.TypeMapping{
		Properties: map[string]types.Property{
			"id":            types.NewKeywordProperty(),
			"run_id":        types.NewKeywordProperty(),
			"url":           types.NewKeywordProperty(),
			"title":         b.textWithKeyword(),
			"source_name":   types.NewKeywordProperty(),
			"category":      types.NewKeywordProperty(),
			"content":       b.text(),
			"published_at":  types.NewDateProperty(),
			"discovered_at": types.NewDateProperty(),
			"rank":          types.NewIntegerNumberProperty(),
			"score":         types.NewDoubleNumberProperty(),
			"reason":        types.NewKeywordProperty(),
			"selected_at":   types.NewDateProperty(),
		},
	}
}

func (b *IndexBuilder) text() types.Property {
	prop := types.NewTextProperty()
	prop.Analyzer = &b.analyzer
	return prop
}

func (b *IndexBuilder) textWithKeyword() types.Property {
	prop := types.NewTextProperty()
	prop.Analyzer = &b.analyzer
	prop.Fields = map[string]types.Property{
		"keyword": types.NewKeywordProperty(),
	}
	return prop
}
