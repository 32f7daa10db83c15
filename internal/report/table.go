// Package report renders engine results as aligned text tables for the CLI.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/extraction"
	"github.com/DjordjeVuckovic/news-digest/internal/summary"
	"github.com/mattn/go-runewidth"
)

const titleWidth = 60

var statusOrder = []record.Status{
	record.StatusPending,
	record.StatusFailedTransient,
	record.StatusOk,
	record.StatusFailedPermanent,
	record.StatusSkipped,
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeRow(tw *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
}

func writeHeader(tw *tabwriter.Writer, cols ...string) {
	writeRow(tw, cols...)
	sep := make([]string, len(cols))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(tw, sep...)
}

// fit truncates s to width display cells and pads it, so wide runes keep columns aligned.
func fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// WriteSelection prints selected records in rank order.
func WriteSelection(w io.Writer, recs []record.Record) error {
	tw := newTable(w)
	writeHeader(tw, "Rank", "Score", "Source", fit("Title", titleWidth), "Reason")

	for _, r := range recs {
		if r.Selection == nil {
			continue
		}
		writeRow(tw,
			fmt.Sprintf("%d", r.Selection.Rank),
			fmt.Sprintf("%.4f", r.Selection.Score),
			r.SourceName,
			fit(r.Title, titleWidth),
			r.Selection.Reason,
		)
	}
	return tw.Flush()
}

func WritePass(w io.Writer, res extraction.PassResult) error {
	tw := newTable(w)
	writeHeader(tw, "Pass", "Attempted", "Succeeded", "Failed", "Skipped")
	writePassRow(tw, res.PassID.String(), res)
	return tw.Flush()
}

func WriteDrain(w io.Writer, res extraction.DrainResult) error {
	tw := newTable(w)
	writeHeader(tw, "Passes", "Attempted", "Succeeded", "Failed", "Skipped")
	writePassRow(tw, fmt.Sprintf("%d", res.Passes), res.Total)
	return tw.Flush()
}

func writePassRow(tw *tabwriter.Writer, label string, res extraction.PassResult) {
	writeRow(tw,
		label,
		fmt.Sprintf("%d", res.Attempted),
		fmt.Sprintf("%d", res.Succeeded),
		fmt.Sprintf("%d", res.Failed),
		fmt.Sprintf("%d", res.Skipped),
	)
}

// WriteStatus prints record counts per extraction status, every status listed.
func WriteStatus(w io.Writer, counts map[record.Status]int) error {
	tw := newTable(w)
	writeHeader(tw, "Status", "Records")

	total := 0
	for _, s := range statusOrder {
		writeRow(tw, string(s), fmt.Sprintf("%d", counts[s]))
		total += counts[s]
	}
	writeRow(tw, "total", fmt.Sprintf("%d", total))
	return tw.Flush()
}

// SummaryRow is one summarized pick or the error that prevented it.
type SummaryRow struct {
	Record  record.Record
	Summary *summary.Summary
	Err     error
}

func WriteSummaries(w io.Writer, rows []SummaryRow) error {
	for _, row := range rows {
		rank := 0
		if row.Record.Selection != nil {
			rank = row.Record.Selection.Rank
		}
		fmt.Fprintf(w, "#%d %s (%s)\n", rank, row.Record.Title, row.Record.SourceName)

		if row.Err != nil {
			fmt.Fprintf(w, "  summary failed: %v\n\n", row.Err)
			continue
		}
		fmt.Fprintf(w, "  %s\n", row.Summary.OneLiner)
		for _, b := range row.Summary.Bullets {
			fmt.Fprintf(w, "  - %s\n", b)
		}
		fmt.Fprintln(w)
	}
	return nil
}
