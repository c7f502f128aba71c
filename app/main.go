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

	"github.com/lysyi3m/mail-comb/app/api"
	"github.com/lysyi3m/mail-comb/app/cfg"
	"github.com/lysyi3m/mail-comb/app/channel"
	"github.com/lysyi3m/mail-comb/app/database"
	"github.com/lysyi3m/mail-comb/app/document"
	"github.com/lysyi3m/mail-comb/app/export"
	"github.com/lysyi3m/mail-comb/app/fetch"
	"github.com/lysyi3m/mail-comb/app/source"
	"github.com/lysyi3m/mail-comb/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appConfig.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Mail Comb server", "version", appConfig.Version)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appConfig.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	configCache := source.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appConfig.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "dir", appConfig.SourcesDir, "count", configCache.GetConfigCount())

	client, err := fetch.NewClient(fetch.Options{
		Timeout:   appConfig.RequestTimeoutDuration(),
		UserAgent: appConfig.UserAgent,
	})
	if err != nil {
		slog.Error("Failed to create HTTP client", "error", err)
		os.Exit(1)
	}

	runRepo := database.NewRunRepository(db)
	registry := tasks.NewJobRegistry(tasks.DefaultRegistryLimit)
	credentials := channel.Credentials{
		APIID:   appConfig.TelegramAPIID,
		APIHash: appConfig.TelegramAPIHash,
		Session: appConfig.TelegramSession,
	}
	runner := tasks.NewSourceRunner(client, document.NewPDFExtractor(), credentials)
	if credentials.IsSet() {
		slog.Info("Channel sources use the Telegram session")
	} else {
		slog.Info("Channel sources use the public web preview")
	}
	for _, sourceConfig := range configCache.GetConfigs() {
		if err := runner.Check(sourceConfig); err != nil {
			slog.Warn("Source cannot be harvested until a Telegram session is configured", "source", sourceConfig.Name, "error", err)
		}
	}

	scheduler := tasks.NewScheduler(appConfig.WorkerCount, tasks.DefaultQueueSize)
	scheduler.Start()
	slog.Info("Task scheduler started", "workers", appConfig.WorkerCount)

	dispatcher := tasks.NewDispatcher(configCache, scheduler, registry, runRepo, runner, export.NewXLSXExporter())

	handler := api.NewHandler(dispatcher, configCache)
	server := api.NewServer(handler, appConfig.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Info("Mail Comb server shutdown complete")
}
