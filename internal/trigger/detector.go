// Package trigger detects hidden quests: special conditions over activity,
// time, milestones and chance that unlock bonus quests.
package trigger

import (
	"math/rand"
	"sync"
	"time"
)

// productive is the category set counted as real work by time-based
// conditions.
var productive = map[string]bool{
	"coding": true, "writing": true, "work": true,
	"learning": true, "research": true, "design": true,
}

// Input is one observation snapshot assembled by the orchestrator from the
// other subsystems.
type Input struct {
	Category        string
	FocusScore      float64
	Pattern         string
	PlayerLevel     int
	QuestsCompleted int
	ArmySize        int
	DailyAllDone    bool
	SideQuestsDone  int
	DeviceID        string
	ActiveDevices   int
}

// State is the persisted portion of the detector.
type State struct {
	Triggered      []string             `json:"triggered"`
	Cooldowns      map[string]time.Time `json:"cooldowns"`
	StreakDays     int                  `json:"streak_days"`
	LastStreakDate string               `json:"last_streak_date"`
}

// Detector evaluates the hidden quest catalog against observation
// snapshots, tracking the rolling state the conditions need.
type Detector struct {
	mu       sync.Mutex
	catalog  []Definition
	now      func() time.Time
	rnd      *rand.Rand
	fired    map[string]bool
	cooldown map[string]time.Time

	continuousCategory string
	continuousStart    time.Time
	focusAboveStart    time.Time
	lastPattern        string
	dailyCategories    map[string]bool
	dailyDevices       map[string]bool
	streakDays         int
	lastStreakDate     string
	lastRandomCheck    time.Time
}

// New builds a detector over the full catalog. A nil now defaults to
// time.Now; a nil rnd gets a time-seeded source.
func New(now func() time.Time, rnd *rand.Rand) *Detector {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Detector{
		catalog:         Catalog,
		now:             now,
		rnd:             rnd,
		fired:           make(map[string]bool),
		cooldown:        make(map[string]time.Time),
		dailyCategories: make(map[string]bool),
		dailyDevices:    make(map[string]bool),
		lastRandomCheck: now(),
	}
}

// Evaluate checks every catalog entry against the snapshot and returns the
// definitions that fired this call. Rolling trackers are updated after
// evaluation regardless of the outcome.
func (d *Detector) Evaluate(in Input) []Definition {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.updateStreakLocked(in.DailyAllDone, now)

	var out []Definition
	for _, def := range d.catalog {
		if d.fired[def.ID] && !def.Repeatable {
			continue
		}
		if until, ok := d.cooldown[def.ID]; ok && now.Before(until) {
			continue
		}
		if !d.eval(def.Cond, in, now) {
			continue
		}
		out = append(out, def)
		d.fired[def.ID] = true
		if def.Cooldown > 0 {
			d.cooldown[def.ID] = now.Add(def.Cooldown)
		}
	}

	d.updateTrackingLocked(in, now)
	return out
}

// eval is the single exhaustive dispatch over the condition sum type.
func (d *Detector) eval(c Condition, in Input, now time.Time) bool {
	switch cond := c.(type) {
	case TimeOfDay:
		if !productive[in.Category] {
			return false
		}
		h := now.Hour()
		if h < cond.FromHour || h >= cond.ToHour {
			return false
		}
		return cond.WithinMinutes == 0 || now.Minute() < cond.WithinMinutes
	case ContinuousActivity:
		if in.Category != cond.Category || d.continuousCategory != cond.Category {
			return false
		}
		return !d.continuousStart.IsZero() && now.Sub(d.continuousStart) >= cond.For
	case SustainedFocus:
		if in.FocusScore < cond.Min {
			return false
		}
		return !d.focusAboveStart.IsZero() && now.Sub(d.focusAboveStart) >= cond.For
	case PatternTransition:
		// Fires on the bare transition; neither phase's duration is
		// checked.
		return in.Pattern == cond.To && d.lastPattern == cond.From
	case DailyAbsence:
		if len(d.dailyCategories) == 0 {
			return false
		}
		for _, f := range cond.Forbidden {
			if d.dailyCategories[f] {
				return false
			}
		}
		return true
	case Milestone:
		switch cond.Counter {
		case CounterQuestsCompleted:
			return in.QuestsCompleted >= cond.Value
		case CounterPlayerLevel:
			return in.PlayerLevel >= cond.Value
		case CounterArmySize:
			return in.ArmySize >= cond.Value
		}
		return false
	case Weekday:
		if !productive[in.Category] {
			return false
		}
		for _, day := range cond.Days {
			if now.Weekday() == day {
				return true
			}
		}
		return false
	case DateMatch:
		return productive[in.Category] && now.Month() == cond.Month && now.Day() == cond.Day
	case Variety:
		return len(d.dailyCategories) >= cond.Min
	case DeviceCount:
		return in.ActiveDevices >= cond.Min
	case AllDailyDone:
		return in.DailyAllDone
	case SideQuests:
		return in.SideQuestsDone >= cond.Min
	case FocusAbove:
		return in.FocusScore >= cond.Min
	case Composite:
		for _, sub := range cond.All {
			if !d.eval(sub, in, now) {
				return false
			}
		}
		return true
	case DayStreak:
		return d.streakDays >= cond.Days
	case RandomChance:
		if now.Sub(d.lastRandomCheck) < cond.Interval {
			return false
		}
		d.lastRandomCheck = now
		return d.rnd.Float64() < cond.Probability
	}
	return false
}

func (d *Detector) updateStreakLocked(dailyAllDone bool, now time.Time) {
	today := now.Format("2006-01-02")
	if dailyAllDone && today != d.lastStreakDate {
		d.streakDays++
		d.lastStreakDate = today
	}
}

func (d *Detector) updateTrackingLocked(in Input, now time.Time) {
	if in.Category != d.continuousCategory {
		d.continuousCategory = in.Category
		d.continuousStart = now
	}

	if in.FocusScore >= 0.8 {
		if d.focusAboveStart.IsZero() {
			d.focusAboveStart = now
		}
	} else {
		d.focusAboveStart = time.Time{}
	}

	if in.Pattern != "" && in.Pattern != d.lastPattern {
		d.lastPattern = in.Pattern
	}

	if in.Category != "" {
		d.dailyCategories[in.Category] = true
	}
	if in.DeviceID != "" {
		d.dailyDevices[in.DeviceID] = true
	}
}

// ResetDaily clears the per-day trackers. Called by the tick driver just
// after midnight.
func (d *Detector) ResetDaily() {
	d.mu.Lock()
	d.dailyCategories = make(map[string]bool)
	d.dailyDevices = make(map[string]bool)
	d.mu.Unlock()
}

// StreakDays returns the current all-dailies streak.
func (d *Detector) StreakDays() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streakDays
}

// Snapshot returns the persistable detector state.
func (d *Detector) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := State{
		Cooldowns:      make(map[string]time.Time, len(d.cooldown)),
		StreakDays:     d.streakDays,
		LastStreakDate: d.lastStreakDate,
	}
	for id := range d.fired {
		st.Triggered = append(st.Triggered, id)
	}
	for id, until := range d.cooldown {
		st.Cooldowns[id] = until
	}
	return st
}

// Restore reloads persisted detector state.
func (d *Detector) Restore(st State) {
	d.mu.Lock()
	for _, id := range st.Triggered {
		d.fired[id] = true
	}
	for id, until := range st.Cooldowns {
		d.cooldown[id] = until
	}
	d.streakDays = st.StreakDays
	d.lastStreakDate = st.LastStreakDate
	d.mu.Unlock()
}

// Status summarizes the detector for the API.
func (d *Detector) Status() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	active := make(map[string]time.Time)
	for id, until := range d.cooldown {
		if until.After(now) {
			active[id] = until
		}
	}
	continuousMin := 0
	if !d.continuousStart.IsZero() {
		continuousMin = int(now.Sub(d.continuousStart).Minutes())
	}
	sustainedMin := 0
	if !d.focusAboveStart.IsZero() {
		sustainedMin = int(now.Sub(d.focusAboveStart).Minutes())
	}
	return map[string]any{
		"triggered_count":  len(d.fired),
		"active_cooldowns": active,
		"tracking": map[string]any{
			"continuous_category":     d.continuousCategory,
			"continuous_minutes":      continuousMin,
			"focus_sustained_minutes": sustainedMin,
			"streak_days":             d.streakDays,
			"daily_categories":        len(d.dailyCategories),
			"daily_devices":           len(d.dailyDevices),
		},
		"total_hidden": len(d.catalog),
		"remaining":    len(d.catalog) - len(d.fired),
	}
}
