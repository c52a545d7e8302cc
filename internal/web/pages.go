// Package web serves the HTML dashboard, leaderboards and player profiles.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aveforge-dashboard/internal/domain"
	"github.com/aveforge-dashboard/internal/ogimage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

// Ranges are the series windows offered on the dashboard, in days
var Ranges = []int{7, 14, 30}

const defaultRange = 7

// Leaderboard tabs
const (
	TabWins     = "wins"
	TabMissions = "missions"
)

// StatsService is the query layer the pages read from
type StatsService interface {
	LookupByID(ctx context.Context, id string) (domain.Player, bool, error)
	TopByMetric(ctx context.Context, metric domain.Metric, limit int) ([]domain.Player, error)
	Metrics(ctx context.Context) (*domain.MetricsSnapshot, error)
}

// Pages renders the HTML views
type Pages struct {
	service   StatsService
	limit     int
	logger    *slog.Logger
	now       func() time.Time
	templates map[string]*template.Template
}

// NewPages parses the page templates. limit is the number of players shown
// on each leaderboard tab.
func NewPages(service StatsService, limit int, logger *slog.Logger) (*Pages, error) {
	p := &Pages{
		service:   service,
		limit:     limit,
		logger:    logger,
		now:       time.Now,
		templates: make(map[string]*template.Template),
	}

	for _, name := range []string{"dashboard", "leaderboards", "profile", "notfound", "unavailable"} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		p.templates[name] = tmpl
	}

	return p, nil
}

// Mount registers the page routes
func (p *Pages) Mount(r chi.Router) {
	r.Get("/", p.Dashboard)
	r.Get("/leaderboards", p.Leaderboards)
	r.Get("/players/{playerID}", p.Profile)
	r.Get("/players/{playerID}/opengraph-image", p.OpenGraphImage)
}

type page struct {
	Title   string
	OGImage string
	Year    int
}

func (p *Pages) newPage(title string) page {
	return page{Title: title, Year: p.now().UTC().Year()}
}

type kpiCard struct {
	Title    string
	Value    string
	Subtitle string
	Accent   string
	Trend    *trend
}

type seriesRow struct {
	Date      string
	Users     string
	Missions  string
	Lootboxes string
}

type dashboardView struct {
	page
	UpdatedAt string
	Cards     []kpiCard
	Series    []seriesRow
	Range     int
	Ranges    []int
}

// Dashboard renders the overview of the metrics snapshot
func (p *Pages) Dashboard(w http.ResponseWriter, r *http.Request) {
	metrics, err := p.service.Metrics(r.Context())
	if err != nil {
		p.renderError(w, r, "dashboard", err)
		return
	}

	days := parseRange(r.URL.Query().Get("range"))

	var deltas domain.Deltas
	if metrics.Deltas != nil {
		deltas = *metrics.Deltas
	}
	const vs = "vs 7d"

	view := dashboardView{
		page:      p.newPage("Live Game Metrics"),
		UpdatedAt: formatDateTime(metrics.UpdatedAt),
		Cards: []kpiCard{
			{
				Title:    "Total Players",
				Value:    formatInt(metrics.UsersTotal),
				Subtitle: "Registered players",
				Accent:   "violet",
				Trend:    newTrend(deltas.UsersTotalPct, vs),
			},
			{
				Title:    "Missions Completed",
				Value:    formatInt(metrics.MissionsCompleted),
				Subtitle: "All time",
				Accent:   "emerald",
				Trend:    newTrend(deltas.MissionsCompletedPct, vs),
			},
			{
				Title:    "Average Level",
				Value:    formatOneDecimal(metrics.AvgLevel),
				Subtitle: "Across all players",
				Accent:   "sky",
				Trend:    newTrend(deltas.AvgLevelPct, vs),
			},
			{
				Title:    "Lootboxes Opened",
				Value:    formatInt(metrics.LootboxesOpened),
				Subtitle: "All time",
				Accent:   "amber",
				Trend:    newTrend(deltas.LootboxesOpenedPct, vs),
			},
		},
		Range:  days,
		Ranges: Ranges,
	}

	for _, point := range metrics.Window(days) {
		view.Series = append(view.Series, seriesRow{
			Date:      shortDate(point.Date),
			Users:     formatInt(point.Users),
			Missions:  formatInt(point.Missions),
			Lootboxes: formatInt(point.Lootboxes),
		})
	}

	p.render(w, http.StatusOK, "dashboard", view)
}

// parseRange accepts one of Ranges and falls back to the default window
func parseRange(s string) int {
	days, err := strconv.Atoi(s)
	if err != nil {
		return defaultRange
	}
	for _, r := range Ranges {
		if r == days {
			return days
		}
	}
	return defaultRange
}

type leaderboardRow struct {
	Rank        int
	Href        string
	DisplayName string
	Handle      string
	AvatarURL   string
	Level       int
	Value       string
}

type leaderboardsView struct {
	page
	Tab  string
	Rows []leaderboardRow
}

// Leaderboards renders the top players by wins or missions
func (p *Pages) Leaderboards(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	metric := domain.MetricWins
	switch tab {
	case TabMissions:
		metric = domain.MetricMissionsCompleted
	default:
		tab = TabWins
	}

	players, err := p.service.TopByMetric(r.Context(), metric, p.limit)
	if err != nil {
		p.renderError(w, r, "leaderboards", err)
		return
	}

	view := leaderboardsView{page: p.newPage("Leaderboards"), Tab: tab}
	for i := range players {
		value := metric.Value(&players[i])
		view.Rows = append(view.Rows, leaderboardRow{
			Rank:        i + 1,
			Href:        "/players/" + url.PathEscape(players[i].ID),
			DisplayName: players[i].DisplayName,
			Handle:      players[i].Handle,
			AvatarURL:   players[i].AvatarURL,
			Level:       players[i].Level,
			Value:       formatInt(value),
		})
	}

	p.render(w, http.StatusOK, "leaderboards", view)
}

type matchRow struct {
	Win     bool
	Mission string
	Mode    string
	Clock   string
	Ago     string
}

type activityRow struct {
	Date      string
	Wins      string
	Missions  string
	Lootboxes string
}

type profileView struct {
	page
	DisplayName string
	Handle      string
	AvatarURL   string
	Wallet      string
	Level       int
	LastSeen    string
	Wins        string
	WinRate     string
	Missions    string
	Lootboxes   string
	Losses      string
	Activity    []activityRow
	Matches     []matchRow
}

// Profile renders a single player
func (p *Pages) Profile(w http.ResponseWriter, r *http.Request) {
	player, found, err := p.service.LookupByID(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		p.renderError(w, r, "profile", err)
		return
	}
	if !found {
		p.render(w, http.StatusNotFound, "notfound", p.newPage("Player not found"))
		return
	}

	now := p.now()
	view := profileView{
		page:        p.newPage(player.DisplayName),
		DisplayName: player.DisplayName,
		Handle:      player.Handle,
		AvatarURL:   player.AvatarURL,
		Wallet:      shortWallet(player.Wallet),
		Level:       player.Level,
		LastSeen:    relativeTime(player.LastSeen, now),
		Wins:        formatInt(player.Wins),
		WinRate:     fmt.Sprintf("%.1f", player.WinRate()),
		Missions:    formatInt(player.MissionsCompleted),
		Lootboxes:   formatInt(player.LootboxesOpened),
		Losses:      formatInt(player.Losses),
	}
	view.OGImage = absoluteURL(r, "/players/", player.ID, "/opengraph-image")

	for _, a := range player.Series7d {
		view.Activity = append(view.Activity, activityRow{
			Date:      shortDate(a.Date),
			Wins:      formatInt(a.Wins),
			Missions:  formatInt(a.Missions),
			Lootboxes: formatInt(a.Lootboxes),
		})
	}
	for _, m := range player.RecentMatches {
		view.Matches = append(view.Matches, matchRow{
			Win:     m.Result == domain.MatchResultWin,
			Mission: m.Mission,
			Mode:    m.Mode,
			Clock:   formatClock(m.Timestamp),
			Ago:     relativeTime(m.Timestamp, now),
		})
	}

	p.render(w, http.StatusOK, "profile", view)
}

// OpenGraphImage serves the social preview card for a player
func (p *Pages) OpenGraphImage(w http.ResponseWriter, r *http.Request) {
	player, found, err := p.service.LookupByID(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		p.logFailure(r, "opengraph-image", err)
		http.Error(w, domain.ErrServiceUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}

	card := ogimage.NotFoundCard()
	status := http.StatusNotFound
	if found {
		card = ogimage.PlayerCard(&player)
		status = http.StatusOK
	}

	var buf bytes.Buffer
	if err := ogimage.Render(&buf, card); err != nil {
		p.logger.Error("failed to render preview", "player_id", player.ID, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// absoluteURL builds a URL on the requesting host for prefix + id + suffix,
// escaping id as a single path segment
func absoluteURL(r *http.Request, prefix, id, suffix string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	u := url.URL{
		Scheme:  scheme,
		Host:    r.Host,
		Path:    prefix + id + suffix,
		RawPath: prefix + url.PathEscape(id) + suffix,
	}
	return u.String()
}

// renderError shows the fallback page for a failed query
func (p *Pages) renderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	p.logFailure(r, op, err)
	status := http.StatusServiceUnavailable
	if !domain.IsUnavailable(err) {
		status = http.StatusInternalServerError
	}
	p.render(w, status, "unavailable", p.newPage("Unavailable"))
}

func (p *Pages) logFailure(r *http.Request, op string, err error) {
	msg := "page query failed"
	if domain.IsUnavailable(err) {
		msg = "stats data unavailable"
	}
	p.logger.Error(msg,
		"op", op,
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
}

// render executes a page into a buffer first so a template failure never
// leaves a half-written response
func (p *Pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
