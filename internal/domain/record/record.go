package record

import (
	"net/url"
	"strings"
	"time"
)

type ID int64

// Record is one discovered piece of content, identified by its URL.
type Record struct {
	ID           ID              `json:"id"`
	URL          string          `json:"url"`
	Title        string          `json:"title"`
	SourceName   string          `json:"sourceName"`
	Category     string          `json:"category,omitempty"`
	PublishedAt  *time.Time      `json:"publishedAt,omitempty"`
	DiscoveredAt time.Time       `json:"discoveredAt"`
	State        ExtractionState `json:"-"`
	Attempts     int             `json:"extractionAttempts"`
	LastError    string          `json:"lastError,omitempty"`
	Selection    *Selection      `json:"selection,omitempty"`
}

// Selection holds what the selector wrote back onto a record.
type Selection struct {
	Score  float64 `json:"importanceScore"`
	Rank   int     `json:"rank"`
	Reason string  `json:"selectionReason"`
}

// RawRecord is a record as delivered by a source, before it has an identity in the store.
type RawRecord struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	SourceName  string     `json:"sourceName"`
	Category    string     `json:"category,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

const UnknownSource = "unknown"

// Normalize trims descriptive fields and fills the source name.
func (r RawRecord) Normalize() RawRecord {
	r.URL = strings.TrimSpace(r.URL)
	r.Title = strings.TrimSpace(r.Title)
	r.SourceName = strings.TrimSpace(r.SourceName)
	r.Category = strings.TrimSpace(r.Category)
	if r.SourceName == "" {
		r.SourceName = UnknownSource
	}
	return r
}

// ContentText returns the extracted body. It is only present for Ok records.
func (r Record) ContentText() (string, bool) {
	if ok, isOk := r.State.(Ok); isOk {
		return ok.ContentText, true
	}
	return "", false
}

// Status returns the label of the record's extraction state.
func (r Record) Status() Status {
	if r.State == nil {
		return StatusPending
	}
	return r.State.Status()
}

// ReferenceTime is the instant the record's age is measured from.
func (r Record) ReferenceTime() time.Time {
	if r.PublishedAt != nil && !r.PublishedAt.IsZero() {
		return *r.PublishedAt
	}
	return r.DiscoveredAt
}

// Domain returns the lowercased host of the record URL without a leading "www.".
func (r Record) Domain() string {
	return Domain(r.URL)
}

func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
