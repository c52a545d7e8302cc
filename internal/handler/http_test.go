package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/domain"
	"github.com/aveforge-dashboard/internal/service"
	"github.com/aveforge-dashboard/internal/store"
	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playersDoc = `[
  {"id": "p1", "displayName": "Nova Strike", "handle": "@nova", "wallet": "0xfeed01", "level": 12,
   "wins": 10, "losses": 10, "missionsCompleted": 30, "lootboxesOpened": 5, "lastSeen": "2025-06-14T10:30:00Z"},
  {"id": "p2", "displayName": "Razor Vex", "handle": "@vex", "level": 30,
   "wins": 25, "losses": 0, "missionsCompleted": 12, "lootboxesOpened": 9, "lastSeen": "2025-06-14T10:30:00Z"},
  {"id": "p3", "displayName": "Luna Forge", "handle": "@luna", "level": 7,
   "wins": 5, "losses": 5, "missionsCompleted": 44, "lootboxesOpened": 1, "lastSeen": "2025-06-14T10:30:00Z"}
]`

const metricsDoc = `{"gameDate": "2025-06-14", "usersTotal": 12480, "missionsCompleted": 124530,
  "avgLevel": 23.7, "lootboxesOpened": 41877, "updatedAt": "2025-06-14T12:00:00Z"}`

type memorySource map[store.Document]string

func (m memorySource) ReadDocument(_ context.Context, doc store.Document) ([]byte, error) {
	body, ok := m[doc]
	if !ok {
		return nil, errors.New("document missing")
	}
	return []byte(body), nil
}

type response struct {
	Success bool                `json:"success"`
	Data    jsoniter.RawMessage `json:"data"`
	Error   string              `json:"error"`
}

func newTestRouter(src store.Source) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(src, logger)
	svc := service.NewStatsService(st, logger)
	cfg := &config.LeaderboardConfig{DefaultLimit: 2, MaxLimit: 3}
	return NewHandler(svc, st, cfg, logger).Router()
}

func do(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestHealthAndReady(t *testing.T) {
	router := newTestRouter(memorySource{store.PlayersDocument: playersDoc, store.MetricsDocument: metricsDoc})

	rec, resp := do(t, router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = do(t, router, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	broken := newTestRouter(memorySource{store.PlayersDocument: playersDoc})
	rec, resp = do(t, broken, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, resp.Success)
}

func TestGetLeaderboard(t *testing.T) {
	router := newTestRouter(memorySource{store.PlayersDocument: playersDoc})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantMetric domain.Metric
		wantIDs    []string
		wantLimit  int
	}{
		{"defaults", "/api/v1/leaderboard", http.StatusOK, domain.MetricWins, []string{"p2", "p1"}, 2},
		{"missions", "/api/v1/leaderboard?metric=missionsCompleted&limit=3", http.StatusOK,
			domain.MetricMissionsCompleted, []string{"p3", "p1", "p2"}, 3},
		{"alias", "/api/v1/leaderboard?metric=missions&limit=1", http.StatusOK,
			domain.MetricMissionsCompleted, []string{"p3"}, 1},
		{"limit capped", "/api/v1/leaderboard?limit=500", http.StatusOK, domain.MetricWins, []string{"p2", "p1", "p3"}, 3},
		{"bad limit falls back", "/api/v1/leaderboard?limit=abc", http.StatusOK, domain.MetricWins, []string{"p2", "p1"}, 2},
		{"negative limit falls back", "/api/v1/leaderboard?limit=-4", http.StatusOK, domain.MetricWins, []string{"p2", "p1"}, 2},
		{"legacy path", "/api/leaderboard?metric=lootboxes", http.StatusOK, domain.MetricLootboxesOpened, []string{"p2", "p1"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, router, tt.path)
			require.Equal(t, tt.wantStatus, rec.Code)
			require.True(t, resp.Success)

			var board domain.Leaderboard
			require.NoError(t, json.Unmarshal(resp.Data, &board))
			assert.Equal(t, tt.wantMetric, board.Metric)
			assert.Equal(t, tt.wantLimit, board.Limit)

			got := make([]string, len(board.Entries))
			for i, e := range board.Entries {
				got[i] = e.ID
				assert.Equal(t, i+1, e.Rank)
				require.NotNil(t, e.Value)
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}

	t.Run("unknown metric", func(t *testing.T) {
		rec, resp := do(t, router, "/api/v1/leaderboard?metric=losses")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, domain.ErrUnknownMetric.Error(), resp.Error)
	})

	t.Run("value matches metric", func(t *testing.T) {
		_, resp := do(t, router, "/api/v1/leaderboard?metric=wins&limit=1")
		var board domain.Leaderboard
		require.NoError(t, json.Unmarshal(resp.Data, &board))
		require.Len(t, board.Entries, 1)
		assert.Equal(t, 25, *board.Entries[0].Value)
		assert.Equal(t, "Razor Vex", board.Entries[0].DisplayName)
	})
}

func TestGetPlayer(t *testing.T) {
	router := newTestRouter(memorySource{store.PlayersDocument: playersDoc})

	t.Run("found", func(t *testing.T) {
		rec, resp := do(t, router, "/api/v1/players/p1")
		require.Equal(t, http.StatusOK, rec.Code)

		var detail domain.PlayerDetail
		require.NoError(t, json.Unmarshal(resp.Data, &detail))
		assert.Equal(t, "p1", detail.ID)
		assert.Equal(t, "0xfeed01", detail.Wallet)
		assert.InDelta(t, 50.0, detail.WinRate, 0.001)
	})

	t.Run("legacy path", func(t *testing.T) {
		rec, _ := do(t, router, "/api/players/p2")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec, resp := do(t, router, "/api/v1/players/nonexistent")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, domain.ErrPlayerNotFound.Error(), resp.Error)
	})
}

func TestSearchPlayers(t *testing.T) {
	router := newTestRouter(memorySource{store.PlayersDocument: playersDoc})

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"p1", "p2", "p3"}},
		{"?q=NOVA", []string{"p1"}},
		{"?q=feed", []string{"p1"}},
		{"?q=%40l", []string{"p3"}},
		{"?q=nobody", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, resp := do(t, router, "/api/v1/players"+tt.query)
			require.Equal(t, http.StatusOK, rec.Code)

			var summaries []domain.PlayerSummary
			require.NoError(t, json.Unmarshal(resp.Data, &summaries))
			got := make([]string, len(summaries))
			for i, s := range summaries {
				got[i] = s.ID
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetMetrics(t *testing.T) {
	router := newTestRouter(memorySource{store.MetricsDocument: metricsDoc})

	rec, resp := do(t, router, "/api/v1/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	var m domain.MetricsSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &m))
	assert.Equal(t, int64(12480), m.UsersTotal)
	assert.Nil(t, m.Deltas)
}

func TestDataUnavailable(t *testing.T) {
	router := newTestRouter(memorySource{store.PlayersDocument: `{"broken": true`})

	for _, path := range []string{
		"/api/v1/leaderboard",
		"/api/v1/players/p1",
		"/api/v1/players?q=nova",
		"/api/v1/metrics",
		"/api/players/p1",
	} {
		t.Run(path, func(t *testing.T) {
			rec, resp := do(t, router, path)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, domain.ErrServiceUnavailable.Error(), resp.Error)
		})
	}
}

type pagesStub struct{}

func (pagesStub) Mount(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true}`))
	})
}

func TestRouterMountsPages(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(memorySource{}, logger)
	h := NewHandler(service.NewStatsService(st, logger), st, &config.LeaderboardConfig{DefaultLimit: 1, MaxLimit: 1}, logger)

	rec, resp := do(t, h.Router(pagesStub{}), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(memorySource{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
