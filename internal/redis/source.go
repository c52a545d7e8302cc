package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/store"
	"github.com/redis/go-redis/v9"
)

// ErrDocumentMissing is returned when a document key does not exist
var ErrDocumentMissing = errors.New("document key not found in redis")

// Source serves stats documents stored as plain string keys
type Source struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewSource creates a new Redis document source
func NewSource(cfg *config.RedisConfig, logger *slog.Logger) (*Source, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewSourceFromClient(client, cfg.KeyPrefix, logger), nil
}

// NewSourceFromClient wraps an existing client
func NewSourceFromClient(client *redis.Client, prefix string, logger *slog.Logger) *Source {
	return &Source{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Close closes the Redis connection
func (s *Source) Close() error {
	return s.client.Close()
}

// documentKey returns the Redis key holding a document body
func (s *Source) documentKey(doc store.Document) string {
	return fmt.Sprintf("%s:%s", s.prefix, doc)
}

// revisionKey returns the Redis key holding a document's revision
func (s *Source) revisionKey(doc store.Document) string {
	return fmt.Sprintf("%s:%s:revision", s.prefix, doc)
}

// ReadDocument fetches a document body
func (s *Source) ReadDocument(ctx context.Context, doc store.Document) ([]byte, error) {
	data, err := s.client.Get(ctx, s.documentKey(doc)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, s.documentKey(doc))
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return data, nil
}

// WriteDocument stores a document body and its revision in one transaction
func (s *Source) WriteDocument(ctx context.Context, doc store.Document, body []byte, revision string) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.documentKey(doc), body, 0)
	pipe.Set(ctx, s.revisionKey(doc), revision, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}

	s.logger.Debug("wrote document to redis", "key", s.documentKey(doc), "revision", revision)
	return nil
}

// WriteDocuments stores every document and its revision in a single
// transaction
func (s *Source) WriteDocuments(ctx context.Context, docs map[store.Document][]byte, revision string) error {
	pipe := s.client.TxPipeline()
	for doc, body := range docs {
		pipe.Set(ctx, s.documentKey(doc), body, 0)
		pipe.Set(ctx, s.revisionKey(doc), revision, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing documents: %w", err)
	}

	s.logger.Debug("wrote documents to redis", "count", len(docs), "revision", revision)
	return nil
}

// Revision returns the revision a document was last written with
func (s *Source) Revision(ctx context.Context, doc store.Document) (string, error) {
	rev, err := s.client.Get(ctx, s.revisionKey(doc)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("%w: %s", ErrDocumentMissing, s.revisionKey(doc))
		}
		return "", fmt.Errorf("getting revision: %w", err)
	}
	return rev, nil
}
