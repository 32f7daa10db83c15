package reader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

var ErrMissingURLColumn = errors.New("csv header has no url column")

// CSVReader reads records from a CSV with a header row. Known columns are
// url, title, source, category and published_at; others are ignored.
type CSVReader struct {
	reader io.Reader
}

func NewCSVReader(reader io.Reader) *CSVReader {
	return &CSVReader{
		reader: reader,
	}
}

func (cr *CSVReader) Read() ([]record.RawRecord, error) {
	csvReader := csv.NewReader(cr.reader)
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := columns["url"]; !ok {
		return nil, ErrMissingURLColumn
	}

	var records []record.RawRecord
	for line := 2; ; line++ {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		published, err := parseTime(field("published_at"))
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		records = append(records, record.RawRecord{
			URL:         field("url"),
			Title:       field("title"),
			SourceName:  field("source"),
			Category:    field("category"),
			PublishedAt: published,
		})
	}

	return records, nil
}
