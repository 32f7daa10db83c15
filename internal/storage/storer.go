package storage

import (
	"fmt"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
)

type Type string

const (
	PG     Type = "pg"
	SQLite Type = "sqlite"
	InMem  Type = "in_mem"
)

var (
	ErrNotFound = fmt.Errorf("record %w", apperr.ErrNotFound)
	// ErrConflict is returned when a transition finds the row's attempt counter already advanced.
	ErrConflict = fmt.Errorf("record changed concurrently: %w", apperr.ErrConflict)
)

type StorerError string

const (
	ErrUnsupportedStorer StorerError = "unsupported storer type: %s"
)

func (e StorerError) Error() string {
	return string(e)
}
