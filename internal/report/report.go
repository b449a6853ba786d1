// Package report aggregates stored activity snapshots into daily and weekly
// summaries: focus statistics, the productive/leisure time split, per-day
// breakdowns, week-over-week trends and plain-text suggestions. It reads the
// snapshot backlog and player state; it never mutates either.
package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/junhyuk-oh/arise/internal/types"
)

const (
	dailyLimit  = 200
	weeklyLimit = 2000

	// trendMargin is how many percentage points a week-over-week delta must
	// move before it counts as a trend rather than noise.
	trendMargin = 3

	maxSuggestions = 4
)

// leisureCategories complements types.ProductiveCategories for the time
// split; everything in neither set counts as "other".
var leisureCategories = map[string]bool{
	types.CategorySocial:   true,
	types.CategoryMedia:    true,
	types.CategoryBrowsing: true,
	types.CategoryGaming:   true,
}

// Source is the snapshot backlog the generator reads. *storage.DB satisfies it.
type Source interface {
	RecentSnapshots(limit int) ([]types.ContextRecord, error)
}

// CategoryShare is one entry of a top-category list.
type CategoryShare struct {
	Category string `json:"category"`
	Pct      int    `json:"pct"`
}

// Stats summarizes one batch of snapshots. All percentages are rounded to
// whole points. Focus statistics ignore zero scores (idle observations carry
// no focus signal); category statistics ignore empty categories.
type Stats struct {
	TotalSnapshots int             `json:"total_snapshots"`
	AvgFocusPct    int             `json:"avg_focus_pct"`
	MaxFocusPct    int             `json:"max_focus_pct"`
	MinFocusPct    int             `json:"min_focus_pct"`
	ProductivePct  int             `json:"productive_pct"`
	LeisurePct     int             `json:"leisure_pct"`
	OtherPct       int             `json:"other_pct"`
	TopCategories  []CategoryShare `json:"top_categories"`
	CategoryCounts map[string]int  `json:"category_counts"`
}

// Trends compares this week's stats against last week's.
type Trends struct {
	FocusTrend      string `json:"focus_trend"` // up, down or stable
	ProductiveTrend string `json:"productive_trend"`
	FocusDelta      int    `json:"focus_delta"`
	ProductiveDelta int    `json:"productive_delta"`
	BestDay         string `json:"best_day,omitempty"`
	BestDayFocus    int    `json:"best_day_focus,omitempty"`
	WorstDay        string `json:"worst_day,omitempty"`
	WorstDayFocus   int    `json:"worst_day_focus,omitempty"`
}

// Daily is the payload of a daily report.
type Daily struct {
	Date        string `json:"date"`
	FocusRating string `json:"focus_rating"`
	Stats       Stats  `json:"stats"`
}

// Weekly is the payload of a weekly report.
type Weekly struct {
	From           string           `json:"from"`
	To             string           `json:"to"`
	FocusRating    string           `json:"focus_rating"`
	ThisWeek       Stats            `json:"this_week"`
	LastWeek       *Stats           `json:"last_week,omitempty"`
	Trends         Trends           `json:"trends"`
	DailyBreakdown map[string]Stats `json:"daily_breakdown"`
	Suggestions    []string         `json:"suggestions"`
}

// Generator builds reports over a snapshot source with an injectable clock.
type Generator struct {
	src Source
	now func() time.Time
}

// New builds a Generator. A nil now defaults to time.Now.
func New(src Source, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{src: src, now: now}
}

// Daily summarizes the most recent snapshot backlog as of today.
func (g *Generator) Daily() (Daily, error) {
	snapshots, err := g.src.RecentSnapshots(dailyLimit)
	if err != nil {
		return Daily{}, fmt.Errorf("daily report: %w", err)
	}
	stats := Compute(snapshots)
	return Daily{
		Date:        g.now().Format("2006-01-02"),
		FocusRating: FocusRating(stats.AvgFocusPct),
		Stats:       stats,
	}, nil
}

// Weekly summarizes the last seven days, compares them against the seven
// days before, and derives trends and suggestions.
func (g *Generator) Weekly() (Weekly, error) {
	snapshots, err := g.src.RecentSnapshots(weeklyLimit)
	if err != nil {
		return Weekly{}, fmt.Errorf("weekly report: %w", err)
	}

	now := g.now()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	var thisWeek, lastWeek []types.ContextRecord
	for _, s := range snapshots {
		switch {
		case !s.Timestamp.Before(weekAgo):
			thisWeek = append(thisWeek, s)
		case !s.Timestamp.Before(twoWeeksAgo):
			lastWeek = append(lastWeek, s)
		}
	}

	rep := Weekly{
		From:           now.AddDate(0, 0, -6).Format("2006-01-02"),
		To:             now.Format("2006-01-02"),
		ThisWeek:       Compute(thisWeek),
		DailyBreakdown: groupByDay(thisWeek),
	}
	rep.FocusRating = FocusRating(rep.ThisWeek.AvgFocusPct)
	if len(lastWeek) > 0 {
		prev := Compute(lastWeek)
		rep.LastWeek = &prev
	}
	rep.Trends = computeTrends(rep.ThisWeek, rep.LastWeek, rep.DailyBreakdown)
	rep.Suggestions = suggestions(rep.ThisWeek, rep.Trends)
	return rep, nil
}

// Compute summarizes one batch of snapshots. An empty batch yields zero
// stats with everything filed under "other".
func Compute(snapshots []types.ContextRecord) Stats {
	s := Stats{CategoryCounts: map[string]int{}, OtherPct: 100}
	if len(snapshots) == 0 {
		return s
	}
	s.TotalSnapshots = len(snapshots)

	var focusSum float64
	var focusN int
	maxFocus, minFocus := 0.0, 1.0
	for _, rec := range snapshots {
		if rec.Category != "" {
			s.CategoryCounts[rec.Category]++
		}
		if rec.FocusScore > 0 {
			focusSum += rec.FocusScore
			focusN++
			maxFocus = math.Max(maxFocus, rec.FocusScore)
			minFocus = math.Min(minFocus, rec.FocusScore)
		}
	}
	if focusN > 0 {
		s.AvgFocusPct = pct(focusSum / float64(focusN))
		s.MaxFocusPct = pct(maxFocus)
		s.MinFocusPct = pct(minFocus)
	}

	total := 0
	for _, n := range s.CategoryCounts {
		total += n
	}
	if total == 0 {
		return s
	}
	var productive, leisure int
	for cat, n := range s.CategoryCounts {
		switch {
		case types.ProductiveCategories[cat]:
			productive += n
		case leisureCategories[cat]:
			leisure += n
		}
	}
	s.ProductivePct = roundPct(productive, total)
	s.LeisurePct = roundPct(leisure, total)
	s.OtherPct = 100 - s.ProductivePct - s.LeisurePct
	if s.OtherPct < 0 {
		s.OtherPct = 0
	}
	s.TopCategories = topCategories(s.CategoryCounts, total, 5)
	return s
}

// FocusRating maps an average focus percentage onto a coarse label.
func FocusRating(avgPct int) string {
	switch {
	case avgPct >= 70:
		return "excellent"
	case avgPct >= 50:
		return "good"
	case avgPct >= 30:
		return "fair"
	default:
		return "needs improvement"
	}
}

// groupByDay buckets snapshots by calendar day and summarizes each bucket.
func groupByDay(snapshots []types.ContextRecord) map[string]Stats {
	byDay := make(map[string][]types.ContextRecord)
	for _, s := range snapshots {
		key := s.Timestamp.Format("2006-01-02")
		byDay[key] = append(byDay[key], s)
	}
	out := make(map[string]Stats, len(byDay))
	for key, recs := range byDay {
		out[key] = Compute(recs)
	}
	return out
}

func computeTrends(thisWeek Stats, lastWeek *Stats, daily map[string]Stats) Trends {
	t := Trends{FocusTrend: "stable", ProductiveTrend: "stable"}
	if lastWeek != nil && lastWeek.TotalSnapshots > 0 {
		t.FocusDelta = thisWeek.AvgFocusPct - lastWeek.AvgFocusPct
		t.ProductiveDelta = thisWeek.ProductivePct - lastWeek.ProductivePct
		t.FocusTrend = trend(t.FocusDelta)
		t.ProductiveTrend = trend(t.ProductiveDelta)
	}

	// Days tie-break by date so reruns over the same data agree.
	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		focus := daily[day].AvgFocusPct
		if t.BestDay == "" || focus > t.BestDayFocus {
			t.BestDay, t.BestDayFocus = day, focus
		}
		if t.WorstDay == "" || focus < t.WorstDayFocus {
			t.WorstDay, t.WorstDayFocus = day, focus
		}
	}
	return t
}

func trend(delta int) string {
	switch {
	case delta > trendMargin:
		return "up"
	case delta < -trendMargin:
		return "down"
	default:
		return "stable"
	}
}

// suggestions derives up to maxSuggestions pieces of advice from the weekly
// stats, falling back to one neutral line when nothing stands out.
func suggestions(s Stats, t Trends) []string {
	var out []string

	switch {
	case s.AvgFocusPct < 30:
		out = append(out, "Average focus is low. Try timeboxing: 25 minutes on, 5 minutes off.")
	case s.AvgFocusPct < 50:
		out = append(out, "Focus has room to grow. Cutting down on task switching may help.")
	case s.AvgFocusPct >= 80:
		out = append(out, "Focus is very high. Schedule real breaks to avoid burning out.")
	}

	switch {
	case s.LeisurePct > 40:
		out = append(out, "Leisure time is high. Converting some browsing into learning would pay off.")
	case s.ProductivePct > 80:
		out = append(out, "Heavy workload. Plan downtime; a sustained crunch does not hold.")
	case s.ProductivePct >= 40 && s.ProductivePct <= 70 && s.LeisurePct <= 30:
		out = append(out, "Work and leisure are in balance. Keep the rhythm.")
	}

	if t.FocusTrend == "down" {
		out = append(out, "Focus is trending down. Check for new distractions or change the environment.")
	}
	if t.ProductiveTrend == "up" {
		out = append(out, "Productivity is trending up. Consider taking on harder quests.")
	}

	if len(out) == 0 {
		out = append(out, "Everything looks steady. Keep the current pace.")
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// topCategories returns the n most frequent categories with their share,
// ordered by count then name.
func topCategories(counts map[string]int, total, n int) []CategoryShare {
	cats := make([]string, 0, len(counts))
	for cat := range counts {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if len(cats) > n {
		cats = cats[:n]
	}
	out := make([]CategoryShare, len(cats))
	for i, cat := range cats {
		out[i] = CategoryShare{Category: cat, Pct: roundPct(counts[cat], total)}
	}
	return out
}

func pct(frac float64) int {
	return int(math.Round(frac * 100))
}

func roundPct(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}
