package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/marcus-crane/scrapeboard/config"
	"github.com/marcus-crane/scrapeboard/dashboard"
	"github.com/marcus-crane/scrapeboard/events"
	"github.com/marcus-crane/scrapeboard/feed"
	"github.com/marcus-crane/scrapeboard/jobs"
	"github.com/marcus-crane/scrapeboard/models"
	"github.com/marcus-crane/scrapeboard/notify"
	"github.com/marcus-crane/scrapeboard/routes"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	setupLogger(cfg)

	store, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to set up store", slog.String("error", err.Error()), slog.String("driver", cfg.Database.Driver))
		os.Exit(1)
	}

	broker := events.NewBroker()

	service := dashboard.NewService(
		feed.NewClient(cfg.Feed.URL, cfg.FeedTimeout()),
		dashboard.Options{
			CacheTTL:      cfg.CacheTTL(),
			RenderTimeout: cfg.RenderTimeout(),
			FetchTimeout:  cfg.FeedTimeout(),
			OnFetched: func(records []models.ScrapeRecord) {
				broker.AnnounceIfChanged(records)
			},
		},
	)

	renderer, err := dashboard.NewRenderer()
	if err != nil {
		slog.Error("Failed to parse dashboard templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	deps := routes.Deps{
		Dashboard:      dashboard.NewHandler(service, renderer, cfg.ColorMode()),
		Cache:          service,
		Broker:         broker,
		Notifier:       notify.New(cfg.Pushover.Token, cfg.Pushover.Recipient),
		RequestsLimit:  cfg.Database.RequestsLimit,
		IngestSecret:   cfg.Scrapeboard.IngestSecret,
		AllowedOrigins: cfg.AllowedOrigins(),
	}
	var pruner jobs.Pruner
	if store != nil {
		deps.Store = store
		pruner = store
	}

	jobScheduler, err := jobs.SetupInBackground(jobs.Options{
		RefreshInterval: cfg.RefreshInterval(),
		Retention:       cfg.Retention(),
	}, service, pruner)
	if err != nil {
		slog.Error("Failed to schedule background jobs", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Scrapeboard.BackgroundJobsEnabled {
		jobScheduler.Start()
		slog.Info("Background jobs have started up in the background.")
	} else {
		slog.Info("Background jobs are disabled.")
	}

	server := &http.Server{
		Addr:              cfg.Scrapeboard.ListenAddr,
		Handler:           routes.Register(http.NewServeMux(), deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Scrapeboard is running", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped unexpectedly", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	slog.Info("Gracefully shutting down...")

	if err := jobScheduler.Shutdown(); err != nil {
		slog.Error("Failed to stop scheduler", slog.String("error", err.Error()))
	}

	// Open event streams never finish on their own.
	broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down server", slog.String("error", err.Error()))
	}

	if store != nil {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close store", slog.String("error", err.Error()))
		}
	}

	slog.Info("Scrapeboard has successfully shut down.")
}

func setupLogger(cfg config.Config) *slog.Logger {
	replaceAttrs := func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.SourceKey {
			source := a.Value.Any().(*slog.Source)
			source.File = filepath.Base(source.File)
		}
		return a
	}

	var logger *slog.Logger
	if strings.ToLower(cfg.Scrapeboard.LogFormat) == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource:   true,
			Level:       cfg.GetLogLevel(),
			ReplaceAttr: replaceAttrs}))
	} else {
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{
			AddSource:   true,
			Level:       cfg.GetLogLevel(),
			ReplaceAttr: replaceAttrs,
			TimeFormat:  time.Kitchen}))
	}

	slog.SetDefault(logger)
	logger.Debug("debug messages are enabled.")

	return logger
}
