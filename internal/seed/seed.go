// Package seed builds and publishes stats documents for the dashboard
// backends. It is used by the seeder command, never by the server.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/aveforge-dashboard/internal/domain"
	"github.com/aveforge-dashboard/internal/store"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var playerPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

var (
	modes    = []string{"ranked", "casual", "raid"}
	missions = []string{"Razor Core", "Nova Run", "Ember Gate", "Frost Vault", "Shadow Keep"}
)

func playerName(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

// GeneratePlayers creates n synthetic players active around now
func GeneratePlayers(n int, now time.Time, rng *rand.Rand) []domain.Player {
	players := make([]domain.Player, n)
	for i := range players {
		name := playerName(i)
		p := domain.Player{
			ID:                fmt.Sprintf("p%d", i+1),
			DisplayName:       name,
			Handle:            "@" + name,
			AvatarURL:         fmt.Sprintf("/avatars/p%d.png", i+1),
			Level:             rng.Intn(60) + 1,
			Wins:              rng.Intn(500),
			Losses:            rng.Intn(300),
			MissionsCompleted: rng.Intn(1000),
			LootboxesOpened:   rng.Intn(150),
			LastSeen:          now.Add(-time.Duration(rng.Intn(72*60)) * time.Minute).UTC(),
		}
		if rng.Intn(2) == 0 {
			p.Wallet = fmt.Sprintf("0x%040x", rng.Uint64())
		}

		matches := rng.Intn(domain.MaxRecentMatches + 1)
		for m := 0; m < matches; m++ {
			result := domain.MatchResultLoss
			if rng.Intn(2) == 0 {
				result = domain.MatchResultWin
			}
			p.RecentMatches = append(p.RecentMatches, domain.Match{
				Timestamp: p.LastSeen.Add(-time.Duration(m) * time.Hour),
				Mode:      modes[rng.Intn(len(modes))],
				Result:    result,
				Mission:   missions[rng.Intn(len(missions))],
			})
		}

		for d := domain.ActivityDays - 1; d >= 0; d-- {
			p.Series7d = append(p.Series7d, domain.ActivityPoint{
				Date:      now.AddDate(0, 0, -d).Format("2006-01-02"),
				Wins:      rng.Intn(10),
				Missions:  rng.Intn(15),
				Lootboxes: rng.Intn(4),
			})
		}
		players[i] = p
	}
	return players
}

// Summarize derives a metrics snapshot from a player collection with a
// daily series covering the last days days
func Summarize(players []domain.Player, days int, now time.Time) *domain.MetricsSnapshot {
	m := &domain.MetricsSnapshot{
		GameDate:   now.Format("2006-01-02"),
		UsersTotal: int64(len(players)),
		UpdatedAt:  now.UTC(),
	}

	levels := 0
	for _, p := range players {
		m.MissionsCompleted += int64(p.MissionsCompleted)
		m.LootboxesOpened += int64(p.LootboxesOpened)
		levels += p.Level
	}
	if len(players) > 0 {
		m.AvgLevel = float64(levels) / float64(len(players))
	}

	for d := days - 1; d >= 0; d-- {
		date := now.AddDate(0, 0, -d).Format("2006-01-02")
		point := domain.SeriesPoint{Date: date}
		for _, p := range players {
			for _, a := range p.Series7d {
				if a.Date == date {
					point.Users++
					point.Missions += int64(a.Missions)
					point.Lootboxes += int64(a.Lootboxes)
				}
			}
		}
		m.Series = append(m.Series, point)
	}
	return m
}

// Marshal encodes both documents
func Marshal(players []domain.Player, metrics *domain.MetricsSnapshot) (map[store.Document][]byte, error) {
	playersBody, err := json.MarshalIndent(players, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding players: %w", err)
	}
	metricsBody, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metrics: %w", err)
	}
	return map[store.Document][]byte{
		store.PlayersDocument: playersBody,
		store.MetricsDocument: metricsBody,
	}, nil
}

// revisioner is implemented by backends that record the revision of each
// document next to it
type revisioner interface {
	Revision(ctx context.Context, doc store.Document) (string, error)
}

// Publish validates every document and, only when all of them pass, writes
// them to w under the same revision. Backends implementing store.BatchWriter
// receive both documents in one call.
func Publish(ctx context.Context, w store.Writer, docs map[store.Document][]byte, revision string, logger *slog.Logger) error {
	for _, doc := range store.Documents {
		body, ok := docs[doc]
		if !ok {
			return fmt.Errorf("%s document is missing", doc)
		}
		if err := store.Decode(doc, body); err != nil {
			return fmt.Errorf("validating %s document: %w", doc, err)
		}
	}

	if bw, ok := w.(store.BatchWriter); ok {
		batch := make(map[store.Document][]byte, len(store.Documents))
		for _, doc := range store.Documents {
			batch[doc] = docs[doc]
		}
		if err := bw.WriteDocuments(ctx, batch, revision); err != nil {
			return fmt.Errorf("publishing documents: %w", err)
		}
		logger.Info("published documents", "count", len(batch), "revision", revision)
	} else {
		for _, doc := range store.Documents {
			if err := w.WriteDocument(ctx, doc, docs[doc], revision); err != nil {
				return fmt.Errorf("publishing %s document: %w", doc, err)
			}
			logger.Info("published document", "document", doc, "revision", revision, "bytes", len(docs[doc]))
		}
	}

	r, ok := w.(revisioner)
	if !ok {
		return nil
	}
	for _, doc := range store.Documents {
		got, err := r.Revision(ctx, doc)
		if err != nil {
			return fmt.Errorf("reading back %s revision: %w", doc, err)
		}
		if got != revision {
			return fmt.Errorf("%s document has revision %s after publishing %s", doc, got, revision)
		}
	}
	return nil
}
