package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlayer(id string) Player {
	return Player{
		ID:          id,
		DisplayName: "Player " + id,
		Handle:      "@" + id,
		LastSeen:    time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestWinRate(t *testing.T) {
	tests := []struct {
		wins, losses int
		want         float64
	}{
		{0, 0, 0},
		{10, 0, 100},
		{0, 4, 0},
		{1, 3, 25},
		{2, 1, 200.0 / 3},
	}

	for _, tt := range tests {
		p := Player{Wins: tt.wins, Losses: tt.losses}
		assert.InDelta(t, tt.want, p.WinRate(), 1e-9, "wins=%d losses=%d", tt.wins, tt.losses)
		assert.InDelta(t, tt.want, p.Detail().WinRate, 1e-9)
	}
}

func TestPlayerValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Player)
	}{
		{"missing id", func(p *Player) { p.ID = "" }},
		{"missing display name", func(p *Player) { p.DisplayName = "" }},
		{"missing handle", func(p *Player) { p.Handle = "" }},
		{"missing last seen", func(p *Player) { p.LastSeen = time.Time{} }},
		{"negative wins", func(p *Player) { p.Wins = -1 }},
		{"negative level", func(p *Player) { p.Level = -3 }},
		{"too many matches", func(p *Player) { p.RecentMatches = make([]Match, MaxRecentMatches+1) }},
		{"unknown result", func(p *Player) { p.RecentMatches = []Match{{Result: "draw"}} }},
		{"too many activity days", func(p *Player) {
			for i := 0; i <= ActivityDays; i++ {
				p.Series7d = append(p.Series7d, ActivityPoint{Date: fmt.Sprintf("2025-06-%02d", i+1)})
			}
		}},
		{"bad activity date", func(p *Player) { p.Series7d = []ActivityPoint{{Date: "14/06/2025"}} }},
		{"negative activity", func(p *Player) { p.Series7d = []ActivityPoint{{Date: "2025-06-14", Wins: -1}} }},
	}

	valid := validPlayer("p1")
	require.NoError(t, valid.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPlayer("p1")
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidDocument)
		})
	}
}

func TestValidatePlayersDuplicateID(t *testing.T) {
	assert.NoError(t, ValidatePlayers([]Player{validPlayer("p1"), validPlayer("p2")}))
	assert.ErrorIs(t, ValidatePlayers([]Player{validPlayer("p1"), validPlayer("p1")}), ErrInvalidDocument)
	assert.NoError(t, ValidatePlayers(nil))
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		name string
		want Metric
	}{
		{"wins", MetricWins},
		{"WINS", MetricWins},
		{"missionsCompleted", MetricMissionsCompleted},
		{"missions", MetricMissionsCompleted},
		{"lootboxes", MetricLootboxesOpened},
		{" level ", MetricLevel},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseMetric("losses")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestMetricValue(t *testing.T) {
	p := &Player{Wins: 1, MissionsCompleted: 2, LootboxesOpened: 3, Level: 4}
	for i, m := range Metrics {
		assert.True(t, m.Valid(), "metric %s", m)
		assert.Equal(t, i+1, m.Value(p), "metric %s", m)
	}

	for _, m := range []Metric{"losses", "", "Wins"} {
		assert.False(t, m.Valid(), "metric %q", m)
		assert.Zero(t, m.Value(p), "metric %q", m)
	}
}

func TestNewLeaderboard(t *testing.T) {
	players := []Player{
		{ID: "p2", Wins: 25, Level: 30},
		{ID: "p1", Wins: 10, Level: 12},
	}

	board := NewLeaderboard(MetricWins, 2, players)
	assert.Equal(t, MetricWins, board.Metric)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, 1, board.Entries[0].Rank)
	assert.Equal(t, 25, *board.Entries[0].Value)
	assert.Equal(t, 2, board.Entries[1].Rank)
	assert.Equal(t, 10, *board.Entries[1].Value)

	empty := NewLeaderboard(MetricLevel, 5, nil)
	assert.NotNil(t, empty.Entries)
	assert.Empty(t, empty.Entries)
}

func TestMetricsSnapshot(t *testing.T) {
	m := &MetricsSnapshot{}
	assert.ErrorIs(t, m.Validate(), ErrInvalidDocument)

	m.UpdatedAt = time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)
	m.Series = []SeriesPoint{{Date: "2025-06-12"}, {Date: "2025-06-13"}, {Date: "2025-06-14"}}
	require.NoError(t, m.Validate())

	assert.Len(t, m.Window(2), 2)
	assert.Equal(t, "2025-06-13", m.Window(2)[0].Date)
	assert.Len(t, m.Window(30), 3)
	assert.Len(t, m.Window(0), 3)

	m.Series = append(m.Series, SeriesPoint{Date: "June 15"})
	assert.ErrorIs(t, m.Validate(), ErrInvalidDocument)
}
