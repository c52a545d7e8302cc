package domain

import (
	"fmt"
	"time"
)

// MetricsSnapshot is the aggregate record published in the metrics document
type MetricsSnapshot struct {
	GameDate          string        `json:"gameDate"`
	MissionsCompleted int64         `json:"missionsCompleted"`
	UsersTotal        int64         `json:"usersTotal"`
	AvgLevel          float64       `json:"avgLevel"`
	LootboxesOpened   int64         `json:"lootboxesOpened"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	Deltas            *Deltas       `json:"deltas,omitempty"`
	Series            []SeriesPoint `json:"series,omitempty"`
}

// Deltas are percentage changes against the prior period
type Deltas struct {
	UsersTotalPct        *float64 `json:"usersTotalPct,omitempty"`
	MissionsCompletedPct *float64 `json:"missionsCompletedPct,omitempty"`
	AvgLevelPct          *float64 `json:"avgLevelPct,omitempty"`
	LootboxesOpenedPct   *float64 `json:"lootboxesOpenedPct,omitempty"`
}

// SeriesPoint is one dated entry of the aggregate time series
type SeriesPoint struct {
	Date      string `json:"date"`
	Users     int64  `json:"users"`
	Missions  int64  `json:"missions"`
	Lootboxes int64  `json:"lootboxes"`
}

// Validate checks the snapshot shape; values themselves are trusted
func (m *MetricsSnapshot) Validate() error {
	if m.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: metrics updatedAt is required", ErrInvalidDocument)
	}
	for _, pt := range m.Series {
		if _, err := time.Parse(dateLayout, pt.Date); err != nil {
			return fmt.Errorf("%w: metrics series date %q", ErrInvalidDocument, pt.Date)
		}
	}
	return nil
}

// Window returns the last n points of the series, or all of it when shorter
func (m *MetricsSnapshot) Window(n int) []SeriesPoint {
	if n <= 0 || n >= len(m.Series) {
		return m.Series
	}
	return m.Series[len(m.Series)-n:]
}
