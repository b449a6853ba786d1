package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/junhyuk-oh/arise/internal/achievement"
	"github.com/junhyuk-oh/arise/internal/army"
	"github.com/junhyuk-oh/arise/internal/quest"
	"github.com/junhyuk-oh/arise/internal/report"
	"github.com/junhyuk-oh/arise/internal/shop"
	"github.com/junhyuk-oh/arise/internal/skill"
	"github.com/junhyuk-oh/arise/internal/types"
)

// pad right-pads s to visual width w. Quest and item names may carry
// double-width runes, so plain %-*s would misalign columns.
func pad(s string, w int) string {
	gap := w - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}

// printTable renders rows with columns sized to the widest cell.
func printTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range rows {
		parts := make([]string, len(row))
		for i, cell := range row {
			parts[i] = pad(cell, widths[i])
		}
		fmt.Println("  " + strings.Join(parts, "  "))
	}
}

func renderStatus(st map[string]any) {
	player, _ := st["player"].(map[string]any)
	fmt.Printf("%s  Lv.%v  [%v]\n", player["name"], player["level"], player["title"])
	fmt.Printf("  exp %v / %v to next  |  quests done %v\n",
		player["exp"], player["exp_to_next"], player["quests_done"])

	if stats, ok := player["stats"].(map[string]any); ok {
		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s %v", name, stats[name]))
		}
		fmt.Println("  " + strings.Join(parts, "  "))
	}

	fmt.Printf("  gold %v  |  army %v (power %v)  |  active quests %v\n",
		st["gold"], st["army_size"], st["army_power"], st["active_quests"])
	if pat, ok := st["pattern"].(map[string]any); ok && pat["current"] != "" {
		fmt.Printf("  pattern: %v (%v min)\n", pat["current"], pat["held_minutes"])
	}
	if effects, ok := player["effects"].([]any); ok && len(effects) > 0 {
		fmt.Printf("  effects: %d active\n", len(effects))
	}
}

func renderQuests(quests []quest.Quest) {
	if len(quests) == 0 {
		fmt.Println("  no active quests")
		return
	}
	rows := [][]string{{"ID", "RANK", "TITLE", "EXP", "DEADLINE"}}
	for _, q := range quests {
		deadline := "-"
		if q.Deadline != nil {
			deadline = humanize.Time(*q.Deadline)
		}
		rows = append(rows, []string{
			q.ID, q.Difficulty, q.Title, fmt.Sprintf("%d", q.ExpReward), deadline,
		})
	}
	printTable(rows)
}

func renderArmy(sum army.Summary) {
	fmt.Printf("shadow army: %d soldiers, %d deployed, power %d\n",
		sum.Total, sum.Active, sum.Power)
	if len(sum.Soldiers) == 0 {
		return
	}
	rows := [][]string{{"ID", "NAME", "TYPE", "RANK", "LV", "LOYALTY", "STATUS"}}
	for _, a := range sum.Soldiers {
		rows = append(rows, []string{
			a.ID, a.Name, a.Type, a.Rank,
			fmt.Sprintf("%d", a.Level),
			fmt.Sprintf("%.1f", a.Loyalty),
			a.Status,
		})
	}
	printTable(rows)
}

func renderTemplates(opts []army.TemplateOption) {
	rows := [][]string{{"TEMPLATE", "NAME", "RANK", "REQ.LV", ""}}
	for _, o := range opts {
		note := ""
		switch {
		case o.AlreadyHave:
			note = "extracted"
		case !o.CanUnlock:
			note = fmt.Sprintf("locked until level %d", o.RequiredLevel)
		}
		rows = append(rows, []string{
			o.ID, o.Name, o.Rank, fmt.Sprintf("%d", o.RequiredLevel), note,
		})
	}
	printTable(rows)
}

func renderShop(gold int, items []shop.Listing) {
	fmt.Printf("gold: %d\n", gold)
	rows := [][]string{{"ID", "NAME", "PRICE", "", "DESCRIPTION"}}
	for _, it := range items {
		note := ""
		if !it.Available {
			note = "locked"
		} else if !it.Affordable {
			note = "too pricey"
		}
		rows = append(rows, []string{
			it.ID, it.Name, fmt.Sprintf("%d", it.Price), note, it.Description,
		})
	}
	printTable(rows)
}

func renderSkills(skills []skill.Listing) {
	rows := [][]string{{"ID", "NAME", "TYPE", ""}}
	for _, sk := range skills {
		note := ""
		switch {
		case !sk.Unlocked:
			note = sk.Description
		case sk.OnCooldown:
			note = fmt.Sprintf("cooldown %d min", sk.CooldownRemaining)
		default:
			note = sk.Effect
		}
		rows = append(rows, []string{sk.ID, sk.Name, sk.Type, note})
	}
	printTable(rows)
}

func renderAchievements(entries []achievement.Entry) {
	unlocked := 0
	rows := [][]string{{"", "NAME", "DESCRIPTION"}}
	for _, a := range entries {
		mark := "[ ]"
		if a.Unlocked {
			mark = "[x]"
			unlocked++
		}
		rows = append(rows, []string{mark, a.Name, a.Description})
	}
	fmt.Printf("achievements: %d / %d\n", unlocked, len(entries))
	printTable(rows)
}

// focusBar renders a fixed-width gauge for a focus percentage.
func focusBar(pct int) string {
	const width = 15
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}

func renderReportStats(s report.Stats) {
	fmt.Printf("  snapshots %d  |  focus avg %d%% (max %d%%, min %d%%)\n",
		s.TotalSnapshots, s.AvgFocusPct, s.MaxFocusPct, s.MinFocusPct)
	fmt.Printf("  time: productive %d%%  leisure %d%%  other %d%%\n",
		s.ProductivePct, s.LeisurePct, s.OtherPct)
	if len(s.TopCategories) > 0 {
		rows := [][]string{}
		for _, c := range s.TopCategories {
			rows = append(rows, []string{c.Category, fmt.Sprintf("%d%%", c.Pct)})
		}
		printTable(rows)
	}
}

func renderDaily(rep report.Daily) {
	fmt.Printf("daily report — %s  (focus: %s)\n", rep.Date, rep.FocusRating)
	renderReportStats(rep.Stats)
}

func renderWeekly(rep report.Weekly) {
	fmt.Printf("weekly report — %s ~ %s  (focus: %s)\n", rep.From, rep.To, rep.FocusRating)
	renderReportStats(rep.ThisWeek)

	if rep.LastWeek != nil {
		fmt.Printf("  vs last week: focus %+d%%  productive %+d%%\n",
			rep.Trends.FocusDelta, rep.Trends.ProductiveDelta)
	}

	days := make([]string, 0, len(rep.DailyBreakdown))
	for day := range rep.DailyBreakdown {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		pct := rep.DailyBreakdown[day].AvgFocusPct
		fmt.Printf("  %s  %s %d%%\n", day, focusBar(pct), pct)
	}

	if rep.Trends.BestDay != "" {
		fmt.Printf("  best %s (%d%%)  worst %s (%d%%)\n",
			rep.Trends.BestDay, rep.Trends.BestDayFocus,
			rep.Trends.WorstDay, rep.Trends.WorstDayFocus)
	}
	for _, s := range rep.Suggestions {
		fmt.Printf("  * %s\n", s)
	}
}

func renderNotifications(notes []types.Notification) {
	if len(notes) == 0 {
		fmt.Println("  nothing new")
		return
	}
	for _, n := range notes {
		fmt.Printf("  %s  %s\n", humanize.Time(n.Timestamp), n.Title)
		if n.Message != "" {
			fmt.Printf("      %s\n", n.Message)
		}
	}
}
