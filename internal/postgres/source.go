package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDocumentMissing is returned when no row exists for a document
var ErrDocumentMissing = errors.New("document row not found in postgres")

const upsertDocument = `
	INSERT INTO stats_documents (name, body, revision, updated_at)
	VALUES ($1, $2::jsonb, $3, $4)
	ON CONFLICT (name)
	DO UPDATE SET body = EXCLUDED.body, revision = EXCLUDED.revision, updated_at = EXCLUDED.updated_at
`

// Pool is the subset of *pgxpool.Pool the source uses
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Source serves stats documents from the stats_documents table
type Source struct {
	pool   Pool
	logger *slog.Logger
}

// NewSource creates a new PostgreSQL document source
func NewSource(cfg *config.PostgresConfig, logger *slog.Logger) (*Source, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return NewSourceFromPool(pool, logger), nil
}

// NewSourceFromPool wraps an existing pool
func NewSourceFromPool(pool Pool, logger *slog.Logger) *Source {
	return &Source{
		pool:   pool,
		logger: logger,
	}
}

// Close closes the database connection pool
func (s *Source) Close() {
	s.pool.Close()
}

// RunMigrations creates the documents table
func (s *Source) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS stats_documents (
			name VARCHAR(32) PRIMARY KEY,
			body JSONB NOT NULL,
			revision UUID NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

// ReadDocument fetches a document body
func (s *Source) ReadDocument(ctx context.Context, doc store.Document) ([]byte, error) {
	query := `SELECT body::text FROM stats_documents WHERE name = $1`

	var body string
	if err := s.pool.QueryRow(ctx, query, string(doc)).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, doc)
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return []byte(body), nil
}

// WriteDocument inserts or replaces a document
func (s *Source) WriteDocument(ctx context.Context, doc store.Document, body []byte, revision string) error {
	if _, err := s.pool.Exec(ctx, upsertDocument, string(doc), string(body), revision, time.Now()); err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	s.logger.Debug("wrote document to postgres", "document", doc, "revision", revision)
	return nil
}

// WriteDocuments upserts every document in one transaction
func (s *Source) WriteDocuments(ctx context.Context, docs map[store.Document][]byte, revision string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	now := time.Now()
	for _, doc := range store.Documents {
		body, ok := docs[doc]
		if !ok {
			continue
		}
		if _, err := tx.Exec(ctx, upsertDocument, string(doc), string(body), revision, now); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("upserting %s document: %w", doc, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing documents: %w", err)
	}

	s.logger.Debug("wrote documents to postgres", "count", len(docs), "revision", revision)
	return nil
}

// Revision returns the revision a document was last written with
func (s *Source) Revision(ctx context.Context, doc store.Document) (string, error) {
	query := `SELECT revision::text FROM stats_documents WHERE name = $1`

	var revision string
	if err := s.pool.QueryRow(ctx, query, string(doc)).Scan(&revision); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrDocumentMissing, doc)
		}
		return "", fmt.Errorf("getting revision: %w", err)
	}
	return revision, nil
}
