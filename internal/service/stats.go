package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/aveforge-dashboard/internal/domain"
)

// Store loads the published documents
type Store interface {
	Players(ctx context.Context) ([]domain.Player, error)
	Metrics(ctx context.Context) (*domain.MetricsSnapshot, error)
}

// StatsService answers read-only queries over the published documents.
// It holds no data of its own; every call reloads from the store.
type StatsService struct {
	store  Store
	logger *slog.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(store Store, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:  store,
		logger: logger,
	}
}

// LookupByID returns the player with the given id. A missing player is
// reported through found, not as an error.
func (s *StatsService) LookupByID(ctx context.Context, id string) (player domain.Player, found bool, err error) {
	players, err := s.store.Players(ctx)
	if err != nil {
		return domain.Player{}, false, err
	}

	for i := range players {
		if players[i].ID == id {
			return players[i], true, nil
		}
	}
	return domain.Player{}, false, nil
}

// Search returns players whose display name, handle, id or wallet contains query
func (s *StatsService) Search(ctx context.Context, query string) ([]domain.Player, error) {
	players, err := s.store.Players(ctx)
	if err != nil {
		return nil, err
	}
	return SearchPlayers(players, query), nil
}

// TopByMetric returns up to limit players ranked by metric, highest first
func (s *StatsService) TopByMetric(ctx context.Context, metric domain.Metric, limit int) ([]domain.Player, error) {
	if !metric.Valid() {
		return nil, domain.ErrUnknownMetric
	}

	players, err := s.store.Players(ctx)
	if err != nil {
		return nil, err
	}

	top := TopPlayers(players, metric, limit)
	s.logger.Debug("ranked players", "metric", metric, "limit", limit, "returned", len(top))
	return top, nil
}

// Metrics returns the current metrics snapshot
func (s *StatsService) Metrics(ctx context.Context) (*domain.MetricsSnapshot, error) {
	return s.store.Metrics(ctx)
}

// SearchPlayers filters players by a case-insensitive substring, keeping
// source order. A blank query matches everyone.
func SearchPlayers(players []domain.Player, query string) []domain.Player {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return players
	}

	matches := make([]domain.Player, 0)
	for _, p := range players {
		if strings.Contains(strings.ToLower(p.DisplayName), q) ||
			strings.Contains(strings.ToLower(p.Handle), q) ||
			strings.Contains(strings.ToLower(p.ID), q) ||
			(p.Wallet != "" && strings.Contains(strings.ToLower(p.Wallet), q)) {
			matches = append(matches, p)
		}
	}
	return matches
}

// TopPlayers sorts a copy of players by metric, descending, and keeps the
// first count. Ties keep source order.
func TopPlayers(players []domain.Player, metric domain.Metric, count int) []domain.Player {
	if count <= 0 {
		return []domain.Player{}
	}

	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, func(a, b domain.Player) int {
		return cmp.Compare(metric.Value(&b), metric.Value(&a))
	})

	if count < len(sorted) {
		sorted = sorted[:count]
	}
	if sorted == nil {
		sorted = []domain.Player{}
	}
	return sorted
}
