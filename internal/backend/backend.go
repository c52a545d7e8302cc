// Package backend opens the document source selected by configuration.
package backend

import (
	"fmt"
	"log/slog"

	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/postgres"
	"github.com/aveforge-dashboard/internal/redis"
	"github.com/aveforge-dashboard/internal/s3"
	"github.com/aveforge-dashboard/internal/store"
)

// Open connects to the named source. The returned func releases its
// connections and is safe to call once the source is no longer used.
func Open(cfg *config.Config, source string, logger *slog.Logger) (store.Source, func(), error) {
	switch source {
	case config.SourceFile:
		logger.Info("reading documents from files",
			"players", cfg.Data.PlayersPath,
			"metrics", cfg.Data.MetricsPath,
		)
		return store.NewFileSource(cfg.Data.PlayersPath, cfg.Data.MetricsPath), func() {}, nil

	case config.SourceRedis:
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		src, err := redis.NewSource(&cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis source: %w", err)
		}
		return src, func() {
			if err := src.Close(); err != nil {
				logger.Warn("failed to close redis client", "error", err)
			}
		}, nil

	case config.SourcePostgres:
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		src, err := postgres.NewSource(&cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres source: %w", err)
		}
		return src, src.Close, nil

	case config.SourceS3:
		logger.Info("using S3 bucket", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
		src, err := s3.NewSource(&cfg.S3, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening s3 source: %w", err)
		}
		return src, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown data source %q", source)
	}
}
