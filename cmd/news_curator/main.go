// Command news_curator runs the acquisition and selection engine from the command line.
//
//	news_curator ingest -file feed.csv
//	news_curator extract [-once] [-window 10h] [-batch 80] [-passes 10]
//	news_curator select [-window 10h] [-cap 5] [-size 10]
//	news_curator status | reset | sweep | summarize
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DjordjeVuckovic/news-digest/internal/app"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := app.LoadConfig("cmd/news_curator/.env")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.NewEngine(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create engine", "error", err)
		os.Exit(1)
	}

	err = run(ctx, engine, os.Stdout, os.Args[1], os.Args[2:])
	engine.Close()
	if err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: news_curator <command> [flags]")
	fmt.Fprintln(w, "commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.help)
	}
}
