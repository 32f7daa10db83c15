package reader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

type jsonLine struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	SourceName  string `json:"sourceName"`
	Category    string `json:"category"`
	PublishedAt string `json:"published_at"`
}

// JSONLReader reads one JSON object per line. Blank lines are skipped.
type JSONLReader struct {
	reader io.Reader
}

func NewJSONLReader(reader io.Reader) *JSONLReader {
	return &JSONLReader{
		reader: reader,
	}
}

func (jr *JSONLReader) Read() ([]record.RawRecord, error) {
	scanner := bufio.NewScanner(jr.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var records []record.RawRecord
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var l jsonLine
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}

		published, err := parseTime(l.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", line, err)
		}

		source := l.Source
		if source == "" {
			source = l.SourceName
		}
		records = append(records, record.RawRecord{
			URL:         l.URL,
			Title:       l.Title,
			SourceName:  source,
			Category:    l.Category,
			PublishedAt: published,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jsonl: %w", err)
	}

	return records, nil
}
