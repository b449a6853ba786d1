package trigger

import "time"

// Condition is the closed set of trigger predicates. Adding a variant means
// extending the type switch in Detector.eval; there is no way to plug in
// predicates from outside the package.
type Condition interface{ isCondition() }

// TimeOfDay matches productive activity inside an hour window. A non-zero
// WithinMinutes additionally requires the current minute to be below it,
// which pins the across-midnight window to 00:00-00:29.
type TimeOfDay struct {
	FromHour      int
	ToHour        int
	WithinMinutes int
}

// ContinuousActivity matches when the same category has run unbroken for
// the given duration.
type ContinuousActivity struct {
	Category string
	For      time.Duration
}

// SustainedFocus matches when focus has stayed at or above Min for the
// given duration.
type SustainedFocus struct {
	Min float64
	For time.Duration
}

// PatternTransition matches when the current pattern is To and the
// previously tracked pattern was From.
type PatternTransition struct {
	From string
	To   string
}

// DailyAbsence matches when none of the forbidden categories has been seen
// today and at least one category has.
type DailyAbsence struct {
	Forbidden []string
}

// Milestone counters.
const (
	CounterQuestsCompleted = "quests_completed"
	CounterPlayerLevel     = "player_level"
	CounterArmySize        = "army_size"
)

// Milestone matches when the named counter reaches Value.
type Milestone struct {
	Counter string
	Value   int
}

// Weekday matches productive activity on one of the given weekdays.
type Weekday struct {
	Days []time.Weekday
}

// DateMatch matches productive activity on a specific calendar date.
type DateMatch struct {
	Month time.Month
	Day   int
}

// Variety matches when the distinct categories seen today reach Min.
type Variety struct {
	Min int
}

// DeviceCount matches when the active device count for today reaches Min.
type DeviceCount struct {
	Min int
}

// AllDailyDone matches when every daily quest of the day is completed.
type AllDailyDone struct{}

// SideQuests matches when at least Min side quests were completed today.
type SideQuests struct {
	Min int
}

// FocusAbove matches when the reported focus is at least Min.
type FocusAbove struct {
	Min float64
}

// Composite matches when every sub-condition matches.
type Composite struct {
	All []Condition
}

// DayStreak matches when the all-dailies-done streak reaches Days.
type DayStreak struct {
	Days int
}

// RandomChance matches with the given probability, checked at most once
// per interval.
type RandomChance struct {
	Probability float64
	Interval    time.Duration
}

func (TimeOfDay) isCondition()          {}
func (ContinuousActivity) isCondition() {}
func (SustainedFocus) isCondition()     {}
func (PatternTransition) isCondition()  {}
func (DailyAbsence) isCondition()       {}
func (Milestone) isCondition()          {}
func (Weekday) isCondition()            {}
func (DateMatch) isCondition()          {}
func (Variety) isCondition()            {}
func (DeviceCount) isCondition()        {}
func (AllDailyDone) isCondition()       {}
func (SideQuests) isCondition()         {}
func (FocusAbove) isCondition()         {}
func (Composite) isCondition()          {}
func (DayStreak) isCondition()          {}
func (RandomChance) isCondition()       {}
