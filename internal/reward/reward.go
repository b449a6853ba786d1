// Package reward turns classified activity into exp: per-category passive
// rules, a focus multiplier for deep work, and one-shot streak bonuses.
package reward

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/types"
)

// passiveRule is the exp policy for one activity category.
type passiveRule struct {
	baseExp    int
	focusBonus bool // multiplied by 1+(focus-0.5)*2 when focus > 0.5
}

var passiveRules = map[string]passiveRule{
	types.CategoryCoding:   {3, true},
	types.CategoryWriting:  {3, true},
	types.CategoryLearning: {4, true},
	types.CategoryWork:     {2, true},
	types.CategoryCreative: {3, true},
	types.CategoryBrowsing: {1, false},
	types.CategorySocial:   {0, false},
	types.CategoryMedia:    {0, false},
	types.CategoryGaming:   {0, false},
	types.CategoryIdle:     {0, false},
}

// streakBonuses: streak threshold -> one-shot bonus exp. Each threshold pays
// at most once per run of the streak.
var streakBonuses = map[int]int{3: 5, 6: 15, 10: 30, 15: 50}

// Engine computes passive exp from ContextAnalyzed events and forwards all
// grants to the player manager, which applies effect multipliers and levels.
type Engine struct {
	mu              sync.Mutex
	players         *player.Manager
	bus             *event.Bus
	focusStreak     int
	lastStreakPaid  int // highest threshold paid this streak run
	totalPassiveExp int
}

// New wires the engine onto the bus.
func New(players *player.Manager, bus *event.Bus) *Engine {
	e := &Engine{players: players, bus: bus}
	bus.Subscribe(event.ContextAnalyzed, "reward", e.onContext)
	return e
}

func (e *Engine) onContext(ev event.Event) error {
	rec, ok := ev.Payload.(types.ContextRecord)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	e.Observe(rec)
	return nil
}

// Observe processes one classified activity record.
func (e *Engine) Observe(rec types.ContextRecord) {
	rule, ok := passiveRules[rec.Category]
	if !ok {
		rule = passiveRule{}
	}

	e.mu.Lock()
	if rule.baseExp <= 0 {
		// Zero-exp activity: a truly distracted record resets the streak.
		if rec.FocusScore < 0.3 {
			e.focusStreak = 0
			e.lastStreakPaid = 0
		}
		e.mu.Unlock()
		return
	}

	total := rule.baseExp
	if rule.focusBonus && rec.FocusScore > 0.5 {
		// Focus 0.5..1.0 maps onto a 1.0..2.0 multiplier.
		total = int(float64(rule.baseExp) * (1.0 + (rec.FocusScore-0.5)*2))
	}

	if rec.FocusScore >= 0.6 {
		e.focusStreak++
	} else if e.focusStreak > 0 {
		e.focusStreak--
	}

	bonus := 0
	thresholds := make([]int, 0, len(streakBonuses))
	for t := range streakBonuses {
		thresholds = append(thresholds, t)
	}
	sort.Ints(thresholds)
	for _, t := range thresholds {
		if e.focusStreak >= t && t > e.lastStreakPaid {
			bonus = streakBonuses[t]
			e.lastStreakPaid = t
		}
	}
	streak := e.focusStreak
	total += bonus
	e.totalPassiveExp += total
	e.mu.Unlock()

	if bonus > 0 {
		e.bus.Publish(event.NotificationPush, types.Notification{
			Title:     fmt.Sprintf("Focus streak x%d!", streak),
			Message:   fmt.Sprintf("Sustained focus pays off: bonus %d EXP", bonus),
			Style:     "exp",
			Timestamp: time.Now(),
		})
	}
	e.players.GainExp(total, "passive:"+rec.Category)
}

// Stats reports the engine's run counters.
func (e *Engine) Stats() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return map[string]int{
		"focus_streak":         e.focusStreak,
		"total_passive_exp":    e.totalPassiveExp,
		"last_streak_bonus_at": e.lastStreakPaid,
	}
}

// FocusStreak returns the current consecutive high-focus count.
func (e *Engine) FocusStreak() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focusStreak
}

// TotalPassiveExp returns the passive exp accumulated this run.
func (e *Engine) TotalPassiveExp() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalPassiveExp
}

// RestoreState reloads persisted counters.
func (e *Engine) RestoreState(focusStreak, lastStreakPaid, totalPassive int) {
	e.mu.Lock()
	e.focusStreak = focusStreak
	e.lastStreakPaid = lastStreakPaid
	e.totalPassiveExp = totalPassive
	e.mu.Unlock()
}
