package dto

import (
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
	"github.com/DjordjeVuckovic/news-digest/internal/config"
	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/extraction"
	"github.com/DjordjeVuckovic/news-digest/internal/selection"
	"github.com/google/uuid"
)

type IngestRequest struct {
	Records []record.RawRecord `json:"records"`
}

type IngestResponse struct {
	IDs []record.ID `json:"ids"`
}

// ExtractionRequest runs one pass, or passes until drained when Drain is set.
// Zero values fall back to the configured run defaults.
type ExtractionRequest struct {
	WindowHours int  `json:"windowHours"`
	MaxBatch    int  `json:"maxBatch"`
	MaxAttempts int  `json:"maxAttempts"`
	Drain       bool `json:"drain"`
	MaxPasses   int  `json:"maxPasses"`
}

func (r ExtractionRequest) ToDrainRequest(d config.RunDefaults) (extraction.DrainRequest, error) {
	if r.WindowHours < 0 || r.MaxBatch < 0 || r.MaxAttempts < 0 || r.MaxPasses < 0 {
		return extraction.DrainRequest{}, apperr.NewValidation("extraction parameters must not be negative")
	}
	req := extraction.DrainRequest{
		PassRequest: extraction.PassRequest{
			Window:      hoursOr(r.WindowHours, d.Window),
			MaxBatch:    intOr(r.MaxBatch, d.MaxBatch),
			MaxAttempts: r.MaxAttempts,
		},
		MaxPasses: intOr(r.MaxPasses, d.MaxPasses),
	}
	return req, nil
}

type SelectionRequest struct {
	WindowHours  int `json:"windowHours"`
	PerSourceCap int `json:"perSourceCap"`
	FinalSize    int `json:"finalSize"`
}

func (r SelectionRequest) ToRequest(d config.RunDefaults) selection.Request {
	// Negative values are passed through so the selector rejects them.
	window := d.Window
	if r.WindowHours != 0 {
		window = time.Duration(r.WindowHours) * time.Hour
	}
	return selection.Request{
		Window:       window,
		PerSourceCap: intOr(r.PerSourceCap, d.PerSourceCap),
		FinalSize:    intOr(r.FinalSize, d.FinalSize),
	}
}

type SelectionResponse struct {
	RunID      uuid.UUID `json:"runId"`
	Candidates int       `json:"candidates"`
	Records    []Record  `json:"records"`
}

type WindowRequest struct {
	WindowHours int `json:"windowHours"`
}

type ResetResponse struct {
	Reset int64 `json:"reset"`
}

type StatusResponse struct {
	WindowHours int                   `json:"windowHours"`
	Counts      map[record.Status]int `json:"counts"`
}

type SweepRequest struct {
	OlderThanHours int `json:"olderThanHours"`
}

type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}

// WindowOr converts hours to a duration, using def when hours is zero.
func WindowOr(hours int, def time.Duration) (time.Duration, error) {
	if hours < 0 {
		return 0, apperr.NewValidation("hours must not be negative")
	}
	return hoursOr(hours, def), nil
}

func hoursOr(hours int, def time.Duration) time.Duration {
	if hours == 0 {
		return def
	}
	return time.Duration(hours) * time.Hour
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
