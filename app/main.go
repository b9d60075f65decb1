package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/legal-updates/app/api"
	"github.com/lysyi3m/legal-updates/app/cache"
	"github.com/lysyi3m/legal-updates/app/cfg"
	"github.com/lysyi3m/legal-updates/app/database"
	"github.com/lysyi3m/legal-updates/app/feed"
	"github.com/lysyi3m/legal-updates/app/ingest"
	"github.com/lysyi3m/legal-updates/app/sources"
	"github.com/lysyi3m/legal-updates/app/tasks"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}

	setupLogging(c.Debug)

	slog.Info("Starting Legal Updates", "version", c.Version, "once", c.Once)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, database.Options{
		DatabaseURL: c.DatabaseURL,
		DatabaseKey: c.DatabaseKey,
		DataDir:     c.DataDir,
	})
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Store ready", "backend", store.Backend())

	srcs, err := buildSources()
	if err != nil {
		slog.Error("Failed to configure sources", "error", err)
		os.Exit(1)
	}

	pipeline := ingest.NewPipeline(store, srcs, ingest.NewMetrics(nil))

	if c.Once {
		report := pipeline.Run(ctx)
		if err := report.Err(); err != nil {
			slog.Error("Ingestion pass finished with errors", "error", err)
			os.Exit(1)
		}
		return
	}

	runServer(ctx, store, pipeline)
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func buildSources() ([]sources.Source, error) {
	c := cfg.Get()

	irsFeeds, err := feed.LoadConfigs(c.FeedsFile, sources.DefaultIRSFeeds)
	if err != nil {
		return nil, err
	}

	client := sources.NewClient(&http.Client{}, c.UserAgent, c.GetHTTPTimeout())

	return []sources.Source{
		sources.NewIRSSource(client, irsFeeds),
		sources.NewFederalRegisterSource(client),
		sources.NewCongressSource(client, c.CongressAPIKey),
	}, nil
}

func runServer(ctx context.Context, store database.Store, pipeline *ingest.Pipeline) {
	c := cfg.Get()

	scheduler := tasks.NewScheduler(pipeline, c.GetSchedulerInterval(), c.WorkerCount)
	slog.Info("Starting background scheduler", "workers", c.WorkerCount, "interval", c.GetSchedulerInterval().String())
	scheduler.Start()
	defer scheduler.Stop()

	baseURL := c.BaseUrl
	if baseURL == "" {
		baseURL = "http://localhost:" + c.Port
	}

	handler := api.NewHandler(store, feed.NewGenerator(baseURL, c.Version), scheduler, pipeline, c.Version)
	if c.RedisAddr != "" {
		feedCache, err := cache.NewCache(ctx, c.RedisAddr, c.RedisPassword)
		if err != nil {
			slog.Warn("Feed cache disabled", "error", err)
		} else {
			defer feedCache.Close()
			handler.UseFeedCache(feedCache, c.GetFeedCacheTTL())
			slog.Info("Feed cache enabled", "ttl", c.GetFeedCacheTTL().String())
		}
	}

	server := api.NewServer(handler, c.APIAccessKey, nil)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port, "base_url", baseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		slog.Error("HTTP server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
