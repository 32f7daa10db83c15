package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

// Reader decodes a batch of raw records from a source file.
type Reader interface {
	Read() ([]record.RawRecord, error)
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadFile picks a reader by file extension: .csv, or .jsonl / .ndjson for JSON lines.
func ReadFile(path string) ([]record.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var r Reader
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		r = NewCSVReader(f)
	case ".jsonl", ".ndjson":
		r = NewJSONLReader(f)
	default:
		return nil, fmt.Errorf("unsupported batch file extension: %q", ext)
	}
	return r.Read()
}

func parseTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", value)
}
