package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/extraction"
	"github.com/DjordjeVuckovic/news-digest/internal/summary"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit(t *testing.T) {
	assert.Equal(t, 10, runewidth.StringWidth(fit("short", 10)))
	assert.Equal(t, 10, runewidth.StringWidth(fit("東京で大規模な地震が発生しました", 10)))
	assert.True(t, strings.HasSuffix(fit("a very long headline indeed", 10), "…"))
}

func TestWriteSelection(t *testing.T) {
	recs := []record.Record{
		{ID: 1, Title: "Chipmaker reports record earnings", SourceName: "Reuters",
			Selection: &record.Selection{Rank: 1, Score: 3.25, Reason: "rank=1;score=3.2500;topic=finance"}},
		{ID: 2, Title: "Not selected", SourceName: "BBC"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSelection(&buf, recs))

	out := buf.String()
	assert.Contains(t, out, "Rank")
	assert.Contains(t, out, "3.2500")
	assert.Contains(t, out, "topic=finance")
	assert.NotContains(t, out, "Not selected")
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, map[record.Status]int{
		record.StatusOk:      3,
		record.StatusSkipped: 1,
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2+len(statusOrder)+1)
	assert.Contains(t, lines[len(lines)-1], "4")
	assert.Contains(t, buf.String(), "failed_permanent")
}

func TestWritePassAndDrain(t *testing.T) {
	res := extraction.PassResult{PassID: uuid.New(), Attempted: 5, Succeeded: 3, Failed: 2, Skipped: 1}

	var buf bytes.Buffer
	require.NoError(t, WritePass(&buf, res))
	assert.Contains(t, buf.String(), res.PassID.String())

	buf.Reset()
	require.NoError(t, WriteDrain(&buf, extraction.DrainResult{Passes: 2, Total: res}))
	assert.Contains(t, buf.String(), "Passes")
}

func TestWriteSummaries(t *testing.T) {
	rows := []SummaryRow{
		{
			Record:  record.Record{Title: "A", SourceName: "S", Selection: &record.Selection{Rank: 1}},
			Summary: &summary.Summary{OneLiner: "One.", Bullets: []string{"x", "y", "z"}},
		},
		{
			Record: record.Record{Title: "B", SourceName: "S", Selection: &record.Selection{Rank: 2}},
			Err:    errors.New("model offline"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, rows))
	assert.Contains(t, buf.String(), "#1 A (S)")
	assert.Contains(t, buf.String(), "  - z")
	assert.Contains(t, buf.String(), "summary failed: model offline")
}
