package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openlmia/lmiahub/app/api"
	"github.com/openlmia/lmiahub/app/catalog"
	"github.com/openlmia/lmiahub/app/cfg"
	"github.com/openlmia/lmiahub/app/database"
	"github.com/openlmia/lmiahub/app/dataset"
	"github.com/openlmia/lmiahub/app/fetcher"
	"github.com/openlmia/lmiahub/app/ingest"
	"github.com/openlmia/lmiahub/app/sources"
	"github.com/openlmia/lmiahub/app/tasks"
	"github.com/openlmia/lmiahub/app/website"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting LMIA Hub server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	srcs, err := sources.Load(appCfg.SourcesFile)
	if err != nil {
		slog.Error("Failed to load sources", "path", appCfg.SourcesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Sources loaded", "path", appCfg.SourcesFile, "count", len(srcs))

	recordRepo := database.NewRecordRepository(db)

	catalogClient := catalog.NewClient(catalog.ClientOptions{
		UserAgent:   appCfg.UserAgent,
		MaxAttempts: appCfg.RetryAttempts,
		BaseDelay:   appCfg.RetryBaseDelay(),
	})

	datasetFetcher := fetcher.New(fetcher.Options{
		UserAgent:   appCfg.UserAgent,
		Concurrency: appCfg.FetchConcurrency,
		QueueSize:   appCfg.FetchQueueSize,
		MaxAttempts: appCfg.RetryAttempts,
		BaseDelay:   appCfg.RetryBaseDelay(),
	})

	extractor := dataset.NewExtractor(website.NewSearchURLResolver())
	ingestor := ingest.NewIngestor(recordRepo, extractor)

	scheduler := tasks.NewScheduler(appCfg, recordRepo, srcs, catalogClient, datasetFetcher, ingestor)
	slog.Info("Starting background scheduler",
		"workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(recordRepo, scheduler, appCfg.Version)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}
