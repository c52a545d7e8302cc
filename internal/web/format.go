package web

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// formatInt renders n with thousands separators
func formatInt[T ~int | ~int64](n T) string {
	return printer.Sprintf("%d", int64(n))
}

// formatOneDecimal renders v with at most one fractional digit
func formatOneDecimal(v float64) string {
	s := printer.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}

// shortWallet keeps the first six and last four characters of an address
func shortWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}

// relativeTime describes how long ago t was, relative to now
func relativeTime(t, now time.Time) string {
	mins := int(math.Floor(now.Sub(t).Minutes()))
	if mins < 1 {
		return "Just now"
	}
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

// shortDate turns a YYYY-MM-DD date into "Jun 14"
func shortDate(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return d.Format("Jan 02")
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format("Jan 02, 2006, 15:04 UTC")
}

func formatClock(t time.Time) string {
	return t.UTC().Format("15:04")
}

// trend is a percentage change shown next to a KPI
type trend struct {
	Up   bool
	Text string
}

func newTrend(pct *float64, label string) *trend {
	if pct == nil {
		return nil
	}
	return &trend{
		Up:   *pct >= 0,
		Text: fmt.Sprintf("%.1f%% %s", math.Abs(*pct), label),
	}
}
