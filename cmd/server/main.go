// Package main is the entry point for the quiz progress server. It loads
// configuration, selects and connects the persistence backend, wires the
// progress store together, and starts the HTTP server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casecracker/casecracker/internal/app"
	"github.com/casecracker/casecracker/internal/config"
	"github.com/casecracker/casecracker/internal/database"
	"github.com/casecracker/casecracker/internal/progress"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// Configure structured logging based on environment.
	setupLogging(cfg)

	slog.Info("starting quiz progress server",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("backend", cfg.Store.Backend),
	)

	// --- Select Persistence Backend ---
	var repo progress.UserRepository
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			slog.Error("failed to connect to Redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer rdb.Close()
		slog.Info("connected to Redis")
		repo = progress.NewRedisRepository(rdb)
	default:
		repo = progress.NewFileRepository(cfg.Store.DataFile)
		slog.Info("using file-backed store", slog.String("path", cfg.Store.DataFile))
	}

	digester, err := progress.NewDigester(cfg.Store.Digest)
	if err != nil {
		slog.Error("failed to configure password digest", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Create Application ---
	service := progress.NewProgressService(repo, digester)
	handler := progress.NewHandler(service)

	application := app.New(cfg)
	application.RegisterRoutes(handler)

	// --- Graceful Shutdown ---
	// Listen for interrupt/term signals to drain connections cleanly.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Echo.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown, which is expected.
		slog.Info("server stopped", slog.Any("reason", err))
	}
}

// setupLogging configures the global slog logger based on the environment.
// Development uses text format for readability. Production uses JSON for
// structured log aggregation.
func setupLogging(cfg *config.Config) {
	var handler slog.Handler

	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.LogLevel),
		})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.LogLevel),
		})
	}

	slog.SetDefault(slog.New(handler))
}

// parseLogLevel maps the LOG_LEVEL config value to a slog level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
