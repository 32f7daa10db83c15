package dto

import (
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

type Record struct {
	ID             record.ID         `json:"id"`
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	SourceName     string            `json:"sourceName"`
	Category       string            `json:"category,omitempty"`
	PublishedAt    *time.Time        `json:"publishedAt,omitempty"`
	DiscoveredAt   time.Time         `json:"discoveredAt"`
	Status         record.Status     `json:"status" swaggertype:"string" enums:"pending,failed_transient,ok,failed_permanent,skipped"`
	Attempts       int               `json:"extractionAttempts"`
	NextEligibleAt *time.Time        `json:"nextEligibleAt,omitempty"`
	LastError      string            `json:"lastError,omitempty"`
	Content        string            `json:"content,omitempty"`
	Selection      *record.Selection `json:"selection,omitempty"`
}

// FromRecord maps a stored record to its API shape. Content is included only when withContent is set.
func FromRecord(r record.Record, withContent bool) Record {
	out := Record{
		ID:           r.ID,
		URL:          r.URL,
		Title:        r.Title,
		SourceName:   r.SourceName,
		Category:     r.Category,
		PublishedAt:  r.PublishedAt,
		DiscoveredAt: r.DiscoveredAt,
		Status:       r.Status(),
		Attempts:     r.Attempts,
		LastError:    r.LastError,
		Selection:    r.Selection,
	}
	if p, ok := r.State.(record.Pending); ok {
		out.NextEligibleAt = p.NextEligibleAt
	}
	if withContent {
		out.Content, _ = r.ContentText()
	}
	return out
}

func FromRecords(recs []record.Record) []Record {
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = FromRecord(r, false)
	}
	return out
}
