package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aveforge-dashboard/internal/backend"
	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/postgres"
	"github.com/aveforge-dashboard/internal/seed"
	"github.com/aveforge-dashboard/internal/store"
	"github.com/google/uuid"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	target := flag.String("target", config.SourceRedis, "Backend to publish to (redis, postgres, s3)")
	playersPath := flag.String("players", "data/players.json", "Players document to publish")
	metricsPath := flag.String("metrics", "data/metrics.json", "Metrics document to publish")
	generate := flag.Int("generate", 0, "Publish this many generated players instead of the files")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *target, *playersPath, *metricsPath, *generate, logger); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, target, playersPath, metricsPath string, generate int, logger *slog.Logger) error {
	if target == config.SourceFile {
		return fmt.Errorf("target must be a remote backend, not %q", target)
	}

	cfg, usedDefault, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if usedDefault {
		logger.Warn("config file not found, using defaults", "path", configPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	docs, err := loadDocuments(ctx, playersPath, metricsPath, generate)
	if err != nil {
		return err
	}

	source, closeSource, err := backend.Open(cfg, target, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	if pg, ok := source.(*postgres.Source); ok {
		if err := pg.RunMigrations(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	writer, ok := source.(store.Writer)
	if !ok {
		return fmt.Errorf("backend %q does not accept writes", target)
	}

	revision := uuid.New().String()
	logger.Info("publishing documents", "target", target, "revision", revision)
	return seed.Publish(ctx, writer, docs, revision, logger)
}

// loadDocuments reads both documents from disk, or builds them when
// generate is positive
func loadDocuments(ctx context.Context, playersPath, metricsPath string, generate int) (map[store.Document][]byte, error) {
	if generate > 0 {
		now := time.Now().UTC().Truncate(time.Minute)
		players := seed.GeneratePlayers(generate, now, rand.New(rand.NewSource(now.UnixNano())))
		return seed.Marshal(players, seed.Summarize(players, 30, now))
	}

	files := store.NewFileSource(playersPath, metricsPath)
	docs := make(map[store.Document][]byte, len(store.Documents))
	for _, doc := range store.Documents {
		body, err := files.ReadDocument(ctx, doc)
		if err != nil {
			return nil, err
		}
		docs[doc] = body
	}
	return docs, nil
}
