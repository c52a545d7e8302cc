package domain

import (
	"fmt"
	"time"
)

const (
	// MaxRecentMatches bounds the recentMatches list of a player
	MaxRecentMatches = 20
	// ActivityDays is the length of the daily activity series
	ActivityDays = 7

	dateLayout = "2006-01-02"
)

// MatchResult is the outcome of a single match
type MatchResult string

const (
	MatchResultWin  MatchResult = "win"
	MatchResultLoss MatchResult = "loss"
)

// Player represents a player profile as published in the players document
type Player struct {
	ID                string          `json:"id"`
	DisplayName       string          `json:"displayName"`
	Handle            string          `json:"handle"`
	AvatarURL         string          `json:"avatarUrl"`
	Wallet            string          `json:"wallet,omitempty"`
	Level             int             `json:"level"`
	Wins              int             `json:"wins"`
	Losses            int             `json:"losses"`
	MissionsCompleted int             `json:"missionsCompleted"`
	LootboxesOpened   int             `json:"lootboxesOpened"`
	LastSeen          time.Time       `json:"lastSeen"`
	RecentMatches     []Match         `json:"recentMatches"`
	Series7d          []ActivityPoint `json:"series7d"`
}

// Match is one entry of a player's recent match history
type Match struct {
	Timestamp time.Time   `json:"ts"`
	Mode      string      `json:"mode"`
	Result    MatchResult `json:"result"`
	Mission   string      `json:"mission"`
}

// ActivityPoint is one day of a player's activity series
type ActivityPoint struct {
	Date      string `json:"date"`
	Wins      int    `json:"wins"`
	Missions  int    `json:"missions"`
	Lootboxes int    `json:"lootboxes"`
}

// PlayerDetail is a player with derived stats attached
type PlayerDetail struct {
	Player
	WinRate float64 `json:"winRate"`
}

// PlayerSummary is the compact form used by leaderboards and search results
type PlayerSummary struct {
	Rank              int    `json:"rank,omitempty"`
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Handle            string `json:"handle"`
	AvatarURL         string `json:"avatarUrl"`
	Level             int    `json:"level"`
	Wins              int    `json:"wins"`
	MissionsCompleted int    `json:"missionsCompleted"`
	LootboxesOpened   int    `json:"lootboxesOpened"`
	Value             *int   `json:"value,omitempty"`
}

// WinRate returns the share of won games as a percentage, 0 with no games played
func (p *Player) WinRate() float64 {
	games := p.Wins + p.Losses
	if games == 0 {
		return 0
	}
	return float64(p.Wins) / float64(games) * 100
}

// Detail attaches derived stats to the player
func (p *Player) Detail() PlayerDetail {
	return PlayerDetail{
		Player:  *p,
		WinRate: p.WinRate(),
	}
}

// Summary converts the player to its compact form
func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{
		ID:                p.ID,
		DisplayName:       p.DisplayName,
		Handle:            p.Handle,
		AvatarURL:         p.AvatarURL,
		Level:             p.Level,
		Wins:              p.Wins,
		MissionsCompleted: p.MissionsCompleted,
		LootboxesOpened:   p.LootboxesOpened,
	}
}

// Validate checks the player against the document schema
func (p *Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalidDocument)
	}
	if p.DisplayName == "" {
		return fmt.Errorf("%w: player %q: displayName is required", ErrInvalidDocument, p.ID)
	}
	if p.Handle == "" {
		return fmt.Errorf("%w: player %q: handle is required", ErrInvalidDocument, p.ID)
	}
	if p.LastSeen.IsZero() {
		return fmt.Errorf("%w: player %q: lastSeen is required", ErrInvalidDocument, p.ID)
	}

	counters := []struct {
		name  string
		value int
	}{
		{"level", p.Level},
		{"wins", p.Wins},
		{"losses", p.Losses},
		{"missionsCompleted", p.MissionsCompleted},
		{"lootboxesOpened", p.LootboxesOpened},
	}
	for _, c := range counters {
		if c.value < 0 {
			return fmt.Errorf("%w: player %q: %s must not be negative", ErrInvalidDocument, p.ID, c.name)
		}
	}

	if len(p.RecentMatches) > MaxRecentMatches {
		return fmt.Errorf("%w: player %q: more than %d recent matches", ErrInvalidDocument, p.ID, MaxRecentMatches)
	}
	for i, m := range p.RecentMatches {
		if m.Result != MatchResultWin && m.Result != MatchResultLoss {
			return fmt.Errorf("%w: player %q: match %d: unknown result %q", ErrInvalidDocument, p.ID, i, m.Result)
		}
	}

	if len(p.Series7d) > ActivityDays {
		return fmt.Errorf("%w: player %q: more than %d activity points", ErrInvalidDocument, p.ID, ActivityDays)
	}
	for _, pt := range p.Series7d {
		if _, err := time.Parse(dateLayout, pt.Date); err != nil {
			return fmt.Errorf("%w: player %q: activity date %q", ErrInvalidDocument, p.ID, pt.Date)
		}
		if pt.Wins < 0 || pt.Missions < 0 || pt.Lootboxes < 0 {
			return fmt.Errorf("%w: player %q: activity %s has negative counts", ErrInvalidDocument, p.ID, pt.Date)
		}
	}

	return nil
}

// ValidatePlayers validates every player and the uniqueness of identifiers
func ValidatePlayers(players []Player) error {
	seen := make(map[string]struct{}, len(players))
	for i := range players {
		if err := players[i].Validate(); err != nil {
			return err
		}
		if _, ok := seen[players[i].ID]; ok {
			return fmt.Errorf("%w: duplicate player id %q", ErrInvalidDocument, players[i].ID)
		}
		seen[players[i].ID] = struct{}{}
	}
	return nil
}
