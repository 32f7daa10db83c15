// Package main News Digest Curator API
// @title News Digest Curator API
// @version 1.0
// @description Ingests discovered articles, retrieves their content with retries and selects the daily digest
// @BasePath /
package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/DjordjeVuckovic/news-digest/docs"
	"github.com/DjordjeVuckovic/news-digest/internal/app"
	"github.com/DjordjeVuckovic/news-digest/internal/router"
	"github.com/DjordjeVuckovic/news-digest/internal/server"
	pkgserver "github.com/DjordjeVuckovic/news-digest/pkg/server"
	"github.com/labstack/echo/v4"
)

func main() {
	cfg, err := app.LoadConfig("cmd/curator_api/.env")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(cfg.LogLevel)

	sCfg, err := server.LoadConfig()
	if err != nil {
		slog.Error("Failed to load server config", "error", err)
		os.Exit(1)
	}

	engine, err := app.NewEngine(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to create engine", "storageType", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}

	s := server.New(sCfg, pkgserver.NewPingHealthChecker(engine.Store)).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health").
		SetupOpenApi("/swagger/*")

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "News Digest Curator API is running")
	})

	var routerOpts []router.EngineRouterOption
	if engine.Summarizer != nil {
		routerOpts = append(routerOpts, router.WithSummarizer(engine.Summarizer))
		slog.Info("Summaries enabled", "model", cfg.Summary.Model)
	} else {
		slog.Info("Summaries disabled")
	}

	router.NewEngineRouter(s.Echo, engine.Store, engine.Deduplicator, engine.Controller, engine.Selector,
		cfg.Policy.Run, routerOpts...).Bind()

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	err = s.Start()
	engine.Close()
	if err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
