// Package store loads the players and metrics documents from a backend and
// turns them into validated domain values. Nothing is cached: every call goes
// back to the backend.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aveforge-dashboard/internal/domain"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document names one of the published documents
type Document string

const (
	PlayersDocument Document = "players"
	MetricsDocument Document = "metrics"
)

// Documents lists every document a backend serves
var Documents = []Document{PlayersDocument, MetricsDocument}

// Source returns the raw bytes of a document
type Source interface {
	ReadDocument(ctx context.Context, doc Document) ([]byte, error)
}

// Writer publishes a document to a backend; only the seeder uses it
type Writer interface {
	WriteDocument(ctx context.Context, doc Document, body []byte, revision string) error
}

// BatchWriter publishes several documents so readers see all of them or
// none of them
type BatchWriter interface {
	WriteDocuments(ctx context.Context, docs map[Document][]byte, revision string) error
}

// Store decodes and validates documents read from a Source
type Store struct {
	source Source
	logger *slog.Logger
}

// New creates a store reading from source
func New(source Source, logger *slog.Logger) *Store {
	return &Store{
		source: source,
		logger: logger,
	}
}

// Players loads the full player collection in document order
func (s *Store) Players(ctx context.Context) ([]domain.Player, error) {
	data, err := s.source.ReadDocument(ctx, PlayersDocument)
	if err != nil {
		return nil, unavailable(PlayersDocument, err)
	}
	players, err := DecodePlayers(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("loaded players document", "players", len(players), "bytes", len(data))
	return players, nil
}

// Metrics loads the current metrics snapshot
func (s *Store) Metrics(ctx context.Context) (*domain.MetricsSnapshot, error) {
	data, err := s.source.ReadDocument(ctx, MetricsDocument)
	if err != nil {
		return nil, unavailable(MetricsDocument, err)
	}
	return DecodeMetrics(data)
}

// Check reads and validates every document
func (s *Store) Check(ctx context.Context) error {
	if _, err := s.Players(ctx); err != nil {
		return err
	}
	if _, err := s.Metrics(ctx); err != nil {
		return err
	}
	return nil
}

// DecodePlayers parses and validates a players document
func DecodePlayers(data []byte) ([]domain.Player, error) {
	var players []domain.Player
	if err := json.Unmarshal(data, &players); err != nil {
		return nil, unavailable(PlayersDocument, fmt.Errorf("decoding: %w", err))
	}
	if players == nil {
		return nil, unavailable(PlayersDocument, fmt.Errorf("%w: expected an array of players", domain.ErrInvalidDocument))
	}
	if err := domain.ValidatePlayers(players); err != nil {
		return nil, unavailable(PlayersDocument, err)
	}
	return players, nil
}

// DecodeMetrics parses and validates a metrics document
func DecodeMetrics(data []byte) (*domain.MetricsSnapshot, error) {
	var metrics *domain.MetricsSnapshot
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, unavailable(MetricsDocument, fmt.Errorf("decoding: %w", err))
	}
	if metrics == nil {
		return nil, unavailable(MetricsDocument, fmt.Errorf("%w: expected a metrics object", domain.ErrInvalidDocument))
	}
	if err := metrics.Validate(); err != nil {
		return nil, unavailable(MetricsDocument, err)
	}
	return metrics, nil
}

// Decode validates a raw document of the given kind
func Decode(doc Document, data []byte) error {
	switch doc {
	case PlayersDocument:
		_, err := DecodePlayers(data)
		return err
	case MetricsDocument:
		_, err := DecodeMetrics(data)
		return err
	default:
		return fmt.Errorf("unknown document %q", doc)
	}
}

func unavailable(doc Document, err error) error {
	return fmt.Errorf("%w: %s document: %w", domain.ErrDataUnavailable, doc, err)
}
