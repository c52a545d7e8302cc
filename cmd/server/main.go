package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aveforge-dashboard/internal/backend"
	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/handler"
	"github.com/aveforge-dashboard/internal/service"
	"github.com/aveforge-dashboard/internal/store"
	"github.com/aveforge-dashboard/internal/web"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, usedDefault, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.Error("invalid configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}
	if usedDefault {
		logger.Warn("config file not found, using defaults", "path", *configPath)
	}
	level.Set(parseLevel(cfg.Log.Level))

	// Open the document source
	source, closeSource, err := backend.Open(cfg, cfg.Data.Source, logger)
	if err != nil {
		logger.Error("failed to open data source", "source", cfg.Data.Source, "error", err)
		os.Exit(1)
	}
	defer closeSource()

	// Initialize services
	statsStore := store.New(source, logger)
	statsService := service.NewStatsService(statsStore, logger)

	pages, err := web.NewPages(statsService, cfg.Leaderboard.DefaultLimit, logger)
	if err != nil {
		logger.Error("failed to load page templates", "error", err)
		os.Exit(1)
	}

	httpHandler := handler.NewHandler(statsService, statsStore, &cfg.Leaderboard, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(pages),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "source", cfg.Data.Source)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}

// parseLevel maps a configured level name to a slog level, defaulting to info
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
