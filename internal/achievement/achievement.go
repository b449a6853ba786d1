// Package achievement unlocks badges from player behavior. Unlocks are
// idempotent, pay exp once and push a notification; hidden achievements
// stay redacted in listings until earned.
package achievement

import (
	"fmt"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/types"
)

// Categories.
const (
	CategoryQuest   = "quest"
	CategoryFocus   = "focus"
	CategoryLevel   = "level"
	CategorySpecial = "special"
	CategoryPassive = "passive"
	CategoryShadow  = "shadow"
	CategoryStreak  = "streak"
	CategoryMastery = "mastery"
)

// Definition is one achievement.
type Definition struct {
	ID          string
	Name        string
	Description string
	Category    string
	ExpReward   int
	Hidden      bool
}

// Catalog in display order.
var Catalog = []Definition{
	// Quest milestones
	{"first_quest", "First Awakening", "Complete your first quest", CategoryQuest, 20, false},
	{"quest_10", "Rookie Hunter", "Complete 10 quests in total", CategoryQuest, 50, false},
	{"quest_50", "Seasoned Hunter", "Complete 50 quests in total", CategoryQuest, 150, false},
	{"quest_100", "Hundred Battles", "Complete 100 quests in total", CategoryQuest, 300, false},
	{"quest_500", "Legendary Hunter", "Complete 500 quests in total", CategoryQuest, 800, true},
	{"s_rank_quest", "S-Rank Breakthrough", "Complete an S-difficulty quest", CategoryQuest, 200, false},

	// Focus
	{"focus_30min", "First Taste of Flow", "Trigger the Focus Zone buff for the first time", CategoryFocus, 30, false},
	{"focus_streak_10", "Focus Master", "10 consecutive readings with focus above 0.7", CategoryFocus, 100, false},
	{"focus_streak_20", "King of Flow", "20 consecutive readings with focus above 0.7", CategoryFocus, 250, true},
	{"avg_focus_80", "Zen", "Average daily focus above 0.8", CategoryFocus, 150, false},
	{"zero_distraction_hour", "Impenetrable", "Three hours without any social or entertainment apps", CategoryFocus, 120, false},
	{"deep_work_8h", "Beyond the Limit", "Over 8 hours of deep work in a single day", CategoryFocus, 300, true},

	// Level milestones
	{"level_5", "Rising Talent", "Reach Lv.5", CategoryLevel, 80, false},
	{"level_10", "Proven Strength", "Reach Lv.10, the first awakening", CategoryLevel, 200, false},
	{"level_25", "S-Rank Hunter", "Reach Lv.25", CategoryLevel, 500, false},
	{"level_50", "National Hunter", "Reach Lv.50", CategoryLevel, 1000, true},
	{"level_99", "Shadow Monarch", "Reach Lv.99, a living legend", CategoryLevel, 5000, true},

	// Special behavior
	{"night_owl", "Night Walker", "Working between 2 and 5 AM", CategorySpecial, 15, false},
	{"early_bird", "Early Bird", "Working before 6 AM", CategorySpecial, 25, false},
	{"comeback", "Prodigal Return", "Reach deep focus after a procrastination debuff", CategorySpecial, 60, true},
	{"first_debuff", "First Bitter Taste", "Receive your first debuff", CategorySpecial, 10, true},
	{"all_daily", "A Perfect Day", "Complete every daily quest in one day", CategorySpecial, 50, false},
	{"weekend_grind", "Weekend Grinder", "Over 4 hours of weekend work", CategorySpecial, 80, false},

	// Passive exp
	{"passive_100", "Little by Little", "Accumulate 100 passive exp", CategoryPassive, 30, false},
	{"passive_500", "Water Cuts Stone", "Accumulate 500 passive exp", CategoryPassive, 100, false},
	{"passive_1000", "Day After Day", "Accumulate 1000 passive exp", CategoryPassive, 250, true},

	// Shadow army
	{"first_shadow", "First Extraction", "Extract your first shadow soldier", CategoryShadow, 50, false},
	{"shadow_5", "Shadow Squad", "Grow the shadow army to 5 members", CategoryShadow, 100, false},
	{"elite_shadow", "Elite Extraction", "Extract your first elite-or-better shadow", CategoryShadow, 150, false},
	{"shadow_level_10", "Shadow Evolution", "Raise a shadow to Lv.10", CategoryShadow, 200, true},

	// Daily streaks
	{"daily_streak_3", "Three-Day Hold", "Complete the dailies 3 days running", CategoryStreak, 40, false},
	{"daily_streak_7", "Weekly Regular", "Complete the dailies 7 days running", CategoryStreak, 100, false},
	{"daily_streak_30", "Monthly Legend", "Complete the dailies 30 days running", CategoryStreak, 500, true},

	// Mastery
	{"skill_first_activate", "Skill Awakening", "Activate an active skill for the first time", CategoryMastery, 30, false},
	{"all_passive_unlocked", "Full Passive Spread", "Unlock every passive skill", CategoryMastery, 300, true},
}

var byID = func() map[string]Definition {
	m := make(map[string]Definition, len(Catalog))
	for _, d := range Catalog {
		m[d.ID] = d
	}
	return m
}()

// Entry is one achievement in a listing, with hidden ones redacted until
// unlocked.
type Entry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	ExpReward   int    `json:"exp_reward"`
	Unlocked    bool   `json:"unlocked"`
}

// State is the persisted portion of the engine.
type State struct {
	Unlocked    []string `json:"unlocked"`
	FocusStreak int      `json:"focus_streak"`
}

// Engine tracks unlocks and the rolling counters behind them.
type Engine struct {
	mu                 sync.Mutex
	players            *player.Manager
	bus                *event.Bus
	now                func() time.Time
	unlocked           map[string]bool
	hadProcrastination bool
	focusStreak        int
}

// New wires the engine onto the bus. A nil now defaults to time.Now.
func New(players *player.Manager, bus *event.Bus, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		players:  players,
		bus:      bus,
		now:      now,
		unlocked: make(map[string]bool),
	}
	bus.Subscribe(event.QuestCompleted, "achievement", e.onQuestCompleted)
	bus.Subscribe(event.LevelUp, "achievement", e.onLevelUp)
	bus.Subscribe(event.BuffActivated, "achievement", e.onBuffActivated)
	bus.Subscribe(event.DebuffActivated, "achievement", e.onDebuffActivated)
	bus.Subscribe(event.PatternDetected, "achievement", e.onPatternDetected)
	bus.Subscribe(event.ContextAnalyzed, "achievement", e.onContextAnalyzed)
	bus.Subscribe(event.AgentExtracted, "achievement", e.onAgentExtracted)
	return e
}

// Unlock grants the achievement if it exists and was not earned before.
// Returns true when this call performed the unlock.
func (e *Engine) Unlock(id string) bool {
	def, ok := byID[id]
	if !ok {
		return false
	}
	e.mu.Lock()
	if e.unlocked[id] {
		e.mu.Unlock()
		return false
	}
	e.unlocked[id] = true
	e.mu.Unlock()

	if def.ExpReward > 0 {
		e.players.GainExp(def.ExpReward, "achievement:"+id)
	}
	tag := ""
	if def.Hidden {
		tag = " [hidden]"
	}
	e.bus.Publish(event.NotificationPush, types.Notification{
		Title:     "Achievement unlocked!" + tag,
		Message:   fmt.Sprintf("%s\n%s\nReward: +%d EXP", def.Name, def.Description, def.ExpReward),
		Style:     "achievement",
		Timestamp: e.now(),
	})
	return true
}

func (e *Engine) onQuestCompleted(ev event.Event) error {
	info, ok := ev.Payload.(types.QuestInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	total := e.players.Snapshot().QuestsDone
	for threshold, id := range map[int]string{
		1: "first_quest", 10: "quest_10", 50: "quest_50",
		100: "quest_100", 500: "quest_500",
	} {
		if total >= threshold {
			e.Unlock(id)
		}
	}
	if info.Difficulty == "S" {
		e.Unlock("s_rank_quest")
	}
	return nil
}

func (e *Engine) onLevelUp(ev event.Event) error {
	info, ok := ev.Payload.(types.LevelUpInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	for threshold, id := range map[int]string{
		5: "level_5", 10: "level_10", 25: "level_25",
		50: "level_50", 99: "level_99",
	} {
		if info.NewLevel >= threshold {
			e.Unlock(id)
		}
	}
	return nil
}

func (e *Engine) onBuffActivated(ev event.Event) error {
	info, ok := ev.Payload.(types.EffectInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	if info.ID != "focus_zone" {
		return nil
	}
	e.Unlock("focus_30min")

	e.mu.Lock()
	comeback := e.hadProcrastination
	e.hadProcrastination = false
	e.mu.Unlock()
	if comeback {
		e.Unlock("comeback")
	}
	return nil
}

func (e *Engine) onDebuffActivated(event.Event) error {
	e.Unlock("first_debuff")
	return nil
}

func (e *Engine) onPatternDetected(ev event.Event) error {
	info, ok := ev.Payload.(types.PatternInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	if info.Pattern == "procrastination" {
		e.mu.Lock()
		e.hadProcrastination = true
		e.mu.Unlock()
	}
	return nil
}

func (e *Engine) onContextAnalyzed(ev event.Event) error {
	rec, ok := ev.Payload.(types.ContextRecord)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	now := e.now()
	if rec.Category != types.CategoryIdle && rec.Category != "" {
		if now.Hour() >= 2 && now.Hour() < 5 {
			e.Unlock("night_owl")
		}
		if now.Hour() < 6 {
			e.Unlock("early_bird")
		}
		if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
			e.Unlock("weekend_grind")
		}
	}

	e.mu.Lock()
	if rec.FocusScore >= 0.7 {
		e.focusStreak++
	} else {
		e.focusStreak = 0
	}
	streak := e.focusStreak
	e.mu.Unlock()

	if streak >= 10 {
		e.Unlock("focus_streak_10")
	}
	if streak >= 20 {
		e.Unlock("focus_streak_20")
	}
	return nil
}

func (e *Engine) onAgentExtracted(ev event.Event) error {
	info, ok := ev.Payload.(types.AgentInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	e.Unlock("first_shadow")
	switch info.Rank {
	case "elite", "knight", "commander", "monarch":
		e.Unlock("elite_shadow")
	}
	return nil
}

// CheckArmy unlocks the army-size and agent-level achievements. Called by
// the orchestrator after army changes.
func (e *Engine) CheckArmy(size, maxAgentLevel int) {
	if size >= 5 {
		e.Unlock("shadow_5")
	}
	if maxAgentLevel >= 10 {
		e.Unlock("shadow_level_10")
	}
}

// CheckDailyStreak unlocks the streak achievements for the given streak.
func (e *Engine) CheckDailyStreak(streak int) {
	if streak >= 3 {
		e.Unlock("daily_streak_3")
	}
	if streak >= 7 {
		e.Unlock("daily_streak_7")
	}
	if streak >= 30 {
		e.Unlock("daily_streak_30")
	}
}

// CheckSkillActivation unlocks the first-skill-cast achievement.
func (e *Engine) CheckSkillActivation() { e.Unlock("skill_first_activate") }

// CheckAllDailyDone unlocks the all-dailies achievement.
func (e *Engine) CheckAllDailyDone() { e.Unlock("all_daily") }

// CheckPassiveExp unlocks the passive exp milestones for the given total.
func (e *Engine) CheckPassiveExp(total int) {
	if total >= 100 {
		e.Unlock("passive_100")
	}
	if total >= 500 {
		e.Unlock("passive_500")
	}
	if total >= 1000 {
		e.Unlock("passive_1000")
	}
}

// All lists every achievement with hidden ones redacted until unlocked.
func (e *Engine) All() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Entry, 0, len(Catalog))
	for _, def := range Catalog {
		unlocked := e.unlocked[def.ID]
		entry := Entry{
			ID: def.ID, Name: def.Name, Description: def.Description,
			Category: def.Category, ExpReward: def.ExpReward, Unlocked: unlocked,
		}
		if def.Hidden && !unlocked {
			entry.Name = "???"
			entry.Description = "Hidden achievement. Meet the condition to reveal it."
		}
		out = append(out, entry)
	}
	return out
}

// Progress summarizes unlock counts, total and per category.
func (e *Engine) Progress() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	byCategory := make(map[string]map[string]int)
	for _, def := range Catalog {
		c := byCategory[def.Category]
		if c == nil {
			c = map[string]int{}
			byCategory[def.Category] = c
		}
		c["total"]++
		if e.unlocked[def.ID] {
			c["unlocked"]++
		}
	}
	return map[string]any{
		"total":       len(Catalog),
		"unlocked":    len(e.unlocked),
		"remaining":   len(Catalog) - len(e.unlocked),
		"by_category": byCategory,
	}
}

// Snapshot returns the persistable state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := State{FocusStreak: e.focusStreak}
	for id := range e.unlocked {
		st.Unlocked = append(st.Unlocked, id)
	}
	return st
}

// Restore reloads persisted state.
func (e *Engine) Restore(st State) {
	e.mu.Lock()
	for _, id := range st.Unlocked {
		e.unlocked[id] = true
	}
	e.focusStreak = st.FocusStreak
	e.mu.Unlock()
}
