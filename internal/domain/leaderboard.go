package domain

import "strings"

// Metric is a numeric player field leaderboards can be ranked by
type Metric string

const (
	MetricWins              Metric = "wins"
	MetricMissionsCompleted Metric = "missionsCompleted"
	MetricLootboxesOpened   Metric = "lootboxesOpened"
	MetricLevel             Metric = "level"
)

// Metrics lists every supported leaderboard metric
var Metrics = []Metric{
	MetricWins,
	MetricMissionsCompleted,
	MetricLootboxesOpened,
	MetricLevel,
}

var metricAliases = map[string]Metric{
	"wins":              MetricWins,
	"missions":          MetricMissionsCompleted,
	"missionscompleted": MetricMissionsCompleted,
	"lootboxes":         MetricLootboxesOpened,
	"lootboxesopened":   MetricLootboxesOpened,
	"level":             MetricLevel,
}

// ParseMetric resolves a metric name or one of its short aliases
func ParseMetric(name string) (Metric, error) {
	m, ok := metricAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", ErrUnknownMetric
	}
	return m, nil
}

// Valid reports whether m is one of Metrics
func (m Metric) Valid() bool {
	switch m {
	case MetricWins, MetricMissionsCompleted, MetricLootboxesOpened, MetricLevel:
		return true
	}
	return false
}

// Value returns the player's value for the metric, 0 for an invalid metric
func (m Metric) Value(p *Player) int {
	switch m {
	case MetricWins:
		return p.Wins
	case MetricMissionsCompleted:
		return p.MissionsCompleted
	case MetricLootboxesOpened:
		return p.LootboxesOpened
	case MetricLevel:
		return p.Level
	default:
		return 0
	}
}

// Leaderboard is a ranked list of players for one metric
type Leaderboard struct {
	Metric  Metric          `json:"metric"`
	Limit   int             `json:"limit"`
	Entries []PlayerSummary `json:"entries"`
}

// NewLeaderboard ranks the given, already ordered, players
func NewLeaderboard(metric Metric, limit int, players []Player) Leaderboard {
	entries := make([]PlayerSummary, len(players))
	for i := range players {
		entry := players[i].Summary()
		entry.Rank = i + 1
		value := metric.Value(&players[i])
		entry.Value = &value
		entries[i] = entry
	}
	return Leaderboard{
		Metric:  metric,
		Limit:   limit,
		Entries: entries,
	}
}
