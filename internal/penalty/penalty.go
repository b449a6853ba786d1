// Package penalty punishes missed dailies: consecutive failed days climb a
// ladder of warnings, penalty-zone debuffs, exp loss and forced quests.
package penalty

import (
	"sort"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/types"
)

// ForcedQuest is the escape quest a penalty rung surfaces to the caller.
type ForcedQuest struct {
	Title       string
	Description string
	Difficulty  string
	ExpReward   int
}

// Rung is one level of the penalty ladder, reached at Fails consecutive
// missed days.
type Rung struct {
	Fails       int
	Name        string
	Description string
	DebuffID    string
	StatPenalty map[string]int
	ExpPenalty  int
	Forced      *ForcedQuest
}

// Ladder from mildest to harshest. The rung applied is the highest one
// whose Fails threshold the current streak of misses has reached.
var Ladder = []Rung{
	{
		Fails: 1, Name: "Warning",
		Description: "The system has noticed one day of unfinished dailies.",
	},
	{
		Fails: 2, Name: "Penalty Zone: Desert",
		Description: "Two days of missed dailies. You have been moved to the penalty zone. Complete the emergency quest to escape.",
		DebuffID:    "penalty_zone_1",
		Forced: &ForcedQuest{
			Title:       "Emergency: Escape the Penalty Zone",
			Description: "Survive the penalty zone. One hour of focused work to get out.",
			Difficulty:  "B", ExpReward: 80,
		},
	},
	{
		Fails: 3, Name: "Penalty Zone: Desert of Poison Centipedes",
		Description: "Three days of missed dailies. The penalty zone has escalated; all stats are dropping.",
		DebuffID:    "penalty_zone_2",
		StatPenalty: map[string]int{"focus": -10, "productivity": -10, "wellness": -5},
		ExpPenalty:  50,
		Forced: &ForcedQuest{
			Title:       "Emergency: Survive the Centipede Desert",
			Description: "Two hours of deep work to escape the escalated penalty zone.",
			Difficulty:  "A", ExpReward: 150,
		},
	},
	{
		Fails: 5, Name: "System Warning: Heart-Stop Countdown",
		Description: "Five days of missed dailies. Final warning. Miss tomorrow and a large amount of exp is forfeit.",
		DebuffID:    "heart_stop_warning",
		StatPenalty: map[string]int{"focus": -20, "productivity": -20, "consistency": -15, "wellness": -10},
		ExpPenalty:  200,
		Forced: &ForcedQuest{
			Title:       "Final Warning: Complete Every Daily",
			Description: "The countdown is running. Finish all daily quests now to defuse it.",
			Difficulty:  "S", ExpReward: 300,
		},
	},
}

// Outcome reports what a daily check applied.
type Outcome struct {
	ConsecutiveFails int
	RungName         string
	DebuffID         string
	Forced           *ForcedQuest
}

// State is the persisted portion of the system.
type State struct {
	ConsecutiveFails int    `json:"consecutive_fails"`
	LastCheckDate    string `json:"last_check_date"`
	InPenaltyZone    bool   `json:"in_penalty_zone"`
}

// System tracks consecutive missed days and applies the ladder.
type System struct {
	mu            sync.Mutex
	players       *player.Manager
	bus           *event.Bus
	now           func() time.Time
	fails         int
	lastCheckDate string
	inZone        bool
}

// New builds the system. A nil now defaults to time.Now.
func New(players *player.Manager, bus *event.Bus, now func() time.Time) *System {
	if now == nil {
		now = time.Now
	}
	return &System{players: players, bus: bus, now: now}
}

// CheckDaily runs the once-per-day completion check. The first call of a
// calendar day counts; repeats the same day return nil. A completed day
// resets the ladder; a missed day climbs it and applies the rung's exp and
// stat penalties, returning the outcome so the caller can activate the
// debuff and create the forced quest.
func (s *System) CheckDaily(completedToday bool) *Outcome {
	now := s.now()
	today := now.Format("2006-01-02")

	s.mu.Lock()
	if today == s.lastCheckDate {
		s.mu.Unlock()
		return nil
	}
	s.lastCheckDate = today

	if completedToday {
		hadPenalty := s.fails > 0
		s.fails = 0
		s.inZone = false
		s.mu.Unlock()
		if hadPenalty {
			s.bus.Publish(event.NotificationPush, types.Notification{
				Title:     "Penalty lifted",
				Message:   "Dailies complete. The penalty state is cleared. Keep it up.",
				Style:     "info",
				Timestamp: now,
			})
		}
		return nil
	}

	s.fails++
	fails := s.fails
	rung := rungFor(fails)
	if rung == nil {
		s.mu.Unlock()
		return nil
	}
	s.inZone = true
	s.mu.Unlock()

	if rung.ExpPenalty > 0 {
		s.players.DeductExp(rung.ExpPenalty)
	}
	if len(rung.StatPenalty) > 0 {
		s.players.UpdateStats(rung.StatPenalty)
	}
	s.bus.Publish(event.NotificationPush, types.Notification{
		Title:     rung.Name,
		Message:   rung.Description,
		Style:     "warning",
		Timestamp: now,
	})

	return &Outcome{
		ConsecutiveFails: fails,
		RungName:         rung.Name,
		DebuffID:         rung.DebuffID,
		Forced:           rung.Forced,
	}
}

// rungFor returns the highest ladder rung at or below the fail count.
func rungFor(fails int) *Rung {
	idx := sort.Search(len(Ladder), func(i int) bool { return Ladder[i].Fails > fails })
	if idx == 0 {
		return nil
	}
	return &Ladder[idx-1]
}

// Status reports the current penalty state.
func (s *System) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"consecutive_fails": s.fails,
		"in_penalty_zone":   s.inZone,
	}
}

// Snapshot returns the persistable state.
func (s *System) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{ConsecutiveFails: s.fails, LastCheckDate: s.lastCheckDate, InPenaltyZone: s.inZone}
}

// Restore reloads persisted state.
func (s *System) Restore(st State) {
	s.mu.Lock()
	s.fails = st.ConsecutiveFails
	s.lastCheckDate = st.LastCheckDate
	s.inZone = st.InPenaltyZone
	s.mu.Unlock()
}
