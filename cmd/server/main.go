package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/audience/internal/config"
	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/logging"
	"github.com/JonMunkholm/audience/internal/reports"
	"github.com/JonMunkholm/audience/internal/store"
	"github.com/JonMunkholm/audience/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"bulk_max_concurrent", cfg.Bulk.MaxConcurrent,
		"refresh_interval", cfg.Refresh.Interval,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	st, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open contact store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	rs, closeReports, err := reports.Open(ctx, cfg.Reports)
	if err != nil {
		slog.Error("failed to open report store", "error", err)
		os.Exit(1)
	}
	defer closeReports()

	service := core.NewService(st, core.OptionsFromConfig(cfg))
	if err := service.Groups().Refresh(ctx); err != nil {
		slog.Warn("initial group load failed", "error", err)
	} else {
		slog.Info("groups loaded", "count", len(service.Groups().Groups()))
	}

	server := web.NewServer(service, rs, cfg)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go server.Snapshot().Run(jobCtx)

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := service.ImportStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		return
	}
	<-stopped
	slog.Info("server stopped")
}
