package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tablecfg/internal/config"
	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/logging"
	"github.com/JonMunkholm/tablecfg/internal/report"
	"github.com/JonMunkholm/tablecfg/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	limiter := core.NewRunLimiter(cfg.Upload.MaxConcurrentRuns, cfg.Upload.MaxWaitTime)
	service := core.NewService(core.Options{
		Workers:              cfg.Upload.Workers,
		DefaultThreshold:     cfg.Compare.DefaultThreshold,
		CorrectOnlyWhenWrong: cfg.Compare.CorrectOnlyWhenWrong,
		RunTimeout:           cfg.Upload.RunTimeout,
		Style: report.Style{
			ColumnWidth: cfg.Report.ColumnWidth,
			FlagColor:   cfg.Report.FlagColor,
		},
	}, limiter)

	server := web.NewServer(cfg, service)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
