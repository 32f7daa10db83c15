package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/app"
	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
	"github.com/DjordjeVuckovic/news-digest/internal/ingest/reader"
	"github.com/DjordjeVuckovic/news-digest/internal/report"
	"github.com/DjordjeVuckovic/news-digest/internal/storage"
)

type command struct {
	name string
	help string
	run  func(ctx context.Context, e *app.Engine, out io.Writer, args []string) error
}

var commands = []command{
	{"ingest", "upsert records from a CSV or JSON lines file", runIngest},
	{"extract", "run extraction passes until nothing is due", runExtract},
	{"select", "rank extracted records and store the selection", runSelect},
	{"status", "count records per extraction status", runStatus},
	{"reset", "move permanently failed records back to pending", runReset},
	{"sweep", "delete records discovered before the retention cutoff", runSweep},
	{"summarize", "summarize the current selection", runSummarize},
}

var errUnknownCommand = errors.New("unknown command")

func run(ctx context.Context, e *app.Engine, out io.Writer, name string, args []string) error {
	for _, c := range commands {
		if c.name == name {
			return c.run(ctx, e, out, args)
		}
	}
	usage(out)
	return fmt.Errorf("%w: %s", errUnknownCommand, name)
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func runIngest(ctx context.Context, e *app.Engine, out io.Writer, args []string) error {
	fs := newFlagSet("ingest", out)
	file := fs.String("file", "", "CSV (url,title,source,category,published_at) or .jsonl file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	batch, err := reader.ReadFile(*file)
	if err != nil {
		return err
	}

	ids, err := e.Deduplicator.Ingest(ctx, batch)
	fmt.Fprintf(out, "read %d records, upserted %d\n", len(batch), len(ids))
	return err
}

func runExtract(ctx context.Context, e *app.Engine, out io.Writer, args []string) error {
	req := e.Policy.Run.DrainRequest()

	fs := newFlagSet("extract", out)
	fs.DurationVar(&req.Window, "window", req.Window, "look-back window")
	fs.IntVar(&req.MaxBatch, "batch", req.MaxBatch, "records per pass")
	fs.IntVar(&req.MaxAttempts, "max-attempts", 0, "attempt budget override, 0 uses the policy")
	fs.IntVar(&req.MaxPasses, "passes", req.MaxPasses, "maximum passes")
	once := fs.Bool("once", false, "run a single pass")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *once {
		res, err := e.Controller.RunPass(ctx, req.PassRequest)
		if err != nil {
			return err
		}
		return report.WritePass(out, res)
	}

	res, err := e.Controller.RunUntilDrained(ctx, req)
	if werr := report.WriteDrain(out, res); werr != nil && err == nil {
		err = werr
	}
	return err
}

func runSelect(ctx context.Context, e *app.Engine, out io.Writer, args []string) error {
	req := e.Policy.Run.SelectionRequest()

	fs := newFlagSet("select", out)
	fs.DurationVar(&req.Window, "window", req.Window, "look-back window")
	fs.IntVar(&req.PerSourceCap, "cap", req.PerSourceCap, "maximum records per source")
	fs.IntVar(&req.FinalSize, "size", req.FinalSize, "number of records to select")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := e.Selector.Run(ctx, req)
	if err != nil {
		return err
	}

	recs, err := e.Store.GetMany(ctx, res.IDs())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run %s: %d candidates, %d selected\n", res.RunID, res.Candidates, len(res.Picks))
	return report.WriteSelection(out, storage.OrderByIDs(recs, res.IDs()))
}

func runStatus(ctx context.Context, e *app.Engine, out io.Writer, args []string) error {
	window, err := parseWindow("status", out, args, e.Policy.Run.Window)
	if err != nil {
		return err
	}

	counts, err := e.Store.CountByState(ctx, time.Now().Add(-window))
	if err != nil {
		return err
	}
	return report.WriteStatus(out, counts)
}

func runReset(ctx context.Context, e *app.Engine, out io.Writer, args []string) error {
	window, err := parseWindow("reset", out, args, e.Policy.Run.Window)
	if err != nil {
		return err
	}

	n, err := e.Store.ResetFailed(ctx, time.Now().Add(-window))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reset %d records\n", n)
	return nil
}

func runSweep(ctx context.Context, e *app.Engine, out io.Writer, args []string) error {
	fs := newFlagSet("sweep", out)
	olderThan := fs.Duration("older-than", e.Policy.Run.Retention, "delete records discovered before now minus this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *olderThan <= 0 {
		return errors.New("-older-than must be positive")
	}

	n, err := e.Store.DeleteDiscoveredBefore(ctx, time.Now().Add(-*olderThan))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d records\n", n)
	return nil
}

func runSummarize(ctx context.Context, e *app.Engine, out io.Writer, args []string) error {
	window, err := parseWindow("summarize", out, args, e.Policy.Run.Window)
	if err != nil {
		return err
	}
	if e.Summarizer == nil {
		return errors.New("summaries need OLLAMA_BASE_URL")
	}

	recs, err := e.Store.ExtractedSince(ctx, time.Now().Add(-window))
	if err != nil {
		return err
	}
	selected := selectedByRank(recs)
	if len(selected) == 0 {
		fmt.Fprintln(out, "no selection in window, run select first")
		return nil
	}

	rows := make([]report.SummaryRow, 0, len(selected))
	for _, r := range selected {
		text, _ := r.ContentText()
		s, err := e.Summarizer.Summarize(ctx, r.Title, text)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rows = append(rows, report.SummaryRow{Record: r, Summary: s, Err: err})
	}
	return report.WriteSummaries(out, rows)
}

func parseWindow(name string, out io.Writer, args []string, def time.Duration) (time.Duration, error) {
	fs := newFlagSet(name, out)
	window := fs.Duration("window", def, "look-back window")
	if err := fs.Parse(args); err != nil {
		return 0, err
	}
	if *window <= 0 {
		return 0, errors.New("-window must be positive")
	}
	return *window, nil
}

func selectedByRank(recs []record.Record) []record.Record {
	out := make([]record.Record, 0, len(recs))
	for _, r := range recs {
		if r.Selection != nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Selection.Rank < out[j].Selection.Rank
	})
	return out
}
