package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aveforge-dashboard/internal/config"
	"github.com/aveforge-dashboard/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatsService is the query layer the handlers read from
type StatsService interface {
	LookupByID(ctx context.Context, id string) (domain.Player, bool, error)
	Search(ctx context.Context, query string) ([]domain.Player, error)
	TopByMetric(ctx context.Context, metric domain.Metric, limit int) ([]domain.Player, error)
	Metrics(ctx context.Context) (*domain.MetricsSnapshot, error)
}

// ReadinessChecker reports whether the backing documents can be served
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// Mounter adds routes to the router
type Mounter interface {
	Mount(r chi.Router)
}

// Handler provides HTTP handlers for the stats API
type Handler struct {
	service StatsService
	ready   ReadinessChecker
	config  *config.LeaderboardConfig
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service StatsService, ready ReadinessChecker, cfg *config.LeaderboardConfig, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		ready:   ready,
		config:  cfg,
		logger:  logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router. Extra mounters (the HTML
// pages) share the middleware stack.
func (h *Handler) Router(mounters ...Mounter) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/metrics", h.GetMetrics)
		r.Get("/leaderboard", h.GetLeaderboard)

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.SearchPlayers)
			r.Get("/{playerID}", h.GetPlayer)
		})
	})

	// Paths served by the previous dashboard
	r.Get("/api/leaderboard", h.GetLeaderboard)
	r.Get("/api/players/{playerID}", h.GetPlayer)

	for _, m := range mounters {
		m.Mount(r)
	}

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeQueryError maps a query-layer failure to a response
func (h *Handler) writeQueryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownMetric):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsUnavailable(err):
		h.logger.Error("stats data unavailable",
			"op", op,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
	default:
		h.logger.Error("query failed", "op", op, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrServiceUnavailable)
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck reports ready only when both documents load
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.ready.Check(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrServiceUnavailable)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetMetrics returns the metrics snapshot
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics(r.Context())
	if err != nil {
		h.writeQueryError(w, r, "metrics", err)
		return
	}

	h.writeSuccess(w, metrics)
}

// GetLeaderboard returns the top players for a metric
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	metric := domain.MetricWins
	if name := r.URL.Query().Get("metric"); name != "" {
		m, err := domain.ParseMetric(name)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		metric = m
	}

	limit := h.limit(r)

	players, err := h.service.TopByMetric(r.Context(), metric, limit)
	if err != nil {
		h.writeQueryError(w, r, "leaderboard", err)
		return
	}

	h.writeSuccess(w, domain.NewLeaderboard(metric, limit, players))
}

// limit reads the limit query parameter, falling back to the default for
// anything that is not a positive integer and capping at the maximum
func (h *Handler) limit(r *http.Request) int {
	limit := h.config.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}
	return limit
}

// SearchPlayers returns summaries of players matching the q parameter
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeQueryError(w, r, "search", err)
		return
	}

	summaries := make([]domain.PlayerSummary, len(players))
	for i := range players {
		summaries[i] = players[i].Summary()
	}
	h.writeSuccess(w, summaries)
}

// GetPlayer returns a full player profile
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	player, found, err := h.service.LookupByID(r.Context(), playerID)
	if err != nil {
		h.writeQueryError(w, r, "player", err)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, domain.ErrPlayerNotFound)
		return
	}

	h.writeSuccess(w, player.Detail())
}
