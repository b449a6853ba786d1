package trigger

import "time"

// Definition is one hidden quest: a reward plus the condition that unlocks
// it. Non-repeatable quests fire exactly once per player; repeatable ones
// observe their cooldown.
type Definition struct {
	ID            string
	Title         string
	Description   string
	Difficulty    string
	ExpReward     int
	Cond          Condition
	Repeatable    bool
	Cooldown      time.Duration
	BonusTitle    string
	BonusEffect   string
	SystemMessage string
}

// Catalog is the full hidden quest roster, in evaluation order.
var Catalog = []Definition{
	{
		ID: "night_owl", Title: "Resolve of the Night Hawk",
		Description: "Still producing past 2 AM. The system notes willpower beyond the ordinary.",
		Difficulty:  "B", ExpReward: 100,
		Cond:          TimeOfDay{FromHour: 2, ToHour: 5},
		BonusTitle:    "Night Hawk",
		SystemMessage: "A hunter still fighting in the dead of night. The system acknowledges your resolve.",
	},
	{
		ID: "early_bird", Title: "Awakened at Dawn",
		Description: "Working before 6 AM, ahead of everyone still asleep.",
		Difficulty:  "B", ExpReward: 100,
		Cond:          TimeOfDay{FromHour: 0, ToHour: 6},
		BonusTitle:    "Early Riser",
		SystemMessage: "In the dark before dawn, only the strong are already moving.",
	},
	{
		ID: "marathon_coder", Title: "Coding Marathon",
		Description: "Four hours of unbroken programming. S-rank concentration.",
		Difficulty:  "A", ExpReward: 200,
		Cond:        ContinuousActivity{Category: "coding", For: 4 * time.Hour},
		Repeatable:  true, Cooldown: 48 * time.Hour,
		BonusTitle: "Code Fiend", BonusEffect: "marathon_afterglow",
		SystemMessage: "Four hours of combat with the code. Your focus exceeds human limits.",
	},
	{
		ID: "focus_master", Title: "Realm of Flow",
		Description: "Focus above 0.8 held for two hours straight.",
		Difficulty:  "A", ExpReward: 150,
		Cond:        SustainedFocus{Min: 0.8, For: 2 * time.Hour},
		Repeatable:  true, Cooldown: 24 * time.Hour,
		BonusEffect:   "flow_state_echo",
		SystemMessage: "Flow state. A realm only top-rank hunters ever touch.",
	},
	{
		ID: "comeback_king", Title: "Counterattack from the Abyss",
		Description: "Straight from half an hour of drifting into an hour of deep focus.",
		Difficulty:  "A", ExpReward: 180,
		Cond:        PatternTransition{From: "distraction", To: "deep_focus"},
		Repeatable:  true, Cooldown: 72 * time.Hour,
		BonusTitle:    "The Reversal",
		SystemMessage: "A hunter who climbs out of the abyss is stronger than one who never fell.",
	},
	{
		ID: "zero_distraction", Title: "Iron Wall",
		Description: "A full day without social media or entertainment. S-rank self-control.",
		Difficulty:  "S", ExpReward: 300,
		Cond:        DailyAbsence{Forbidden: []string{"social", "media", "gaming"}},
		Repeatable:  true, Cooldown: 168 * time.Hour,
		BonusTitle:    "Iron Wall",
		SystemMessage: "A whole day and nothing breached your line. A true iron wall.",
	},
	{
		ID: "first_blood", Title: "First Blood",
		Description: "Your first completed quest. Every hunter starts here.",
		Difficulty:  "E", ExpReward: 50,
		Cond:          Milestone{Counter: CounterQuestsCompleted, Value: 1},
		SystemMessage: "Your first quest is complete. The first step of a hunter.",
	},
	{
		ID: "centurion", Title: "Centurion",
		Description: "One hundred quests completed. A seasoned hunter now.",
		Difficulty:  "A", ExpReward: 500,
		Cond:          Milestone{Counter: CounterQuestsCompleted, Value: 100},
		BonusTitle:    "Centurion",
		SystemMessage: "One hundred quests. The rookie became a veteran of a hundred battles.",
	},
	{
		ID: "level_10", Title: "Second Awakening",
		Description: "Level 10 reached. The system begins to acknowledge your strength.",
		Difficulty:  "B", ExpReward: 200,
		Cond:          Milestone{Counter: CounterPlayerLevel, Value: 10},
		BonusTitle:    "Twice Awakened",
		SystemMessage: "Level 10. The first awakening is complete; power stirs within.",
	},
	{
		ID: "shadow_sovereign", Title: "Sovereign of Shadows",
		Description: "Ten soldiers in the shadow army. The legion takes shape.",
		Difficulty:  "A", ExpReward: 300,
		Cond:          Milestone{Counter: CounterArmySize, Value: 10},
		BonusTitle:    "Shadow Sovereign",
		SystemMessage: "Ten shadows answer your command. The legion of shadows has formed.",
	},
	{
		ID: "weekend_warrior", Title: "Weekend Warrior",
		Description: "Serious work on a weekend while everyone else rests.",
		Difficulty:  "B", ExpReward: 120,
		Cond:        Weekday{Days: []time.Weekday{time.Saturday, time.Sunday}},
		Repeatable:  true, Cooldown: 168 * time.Hour,
		SystemMessage: "No rest on the weekend either. That is the gap between hunter and civilian.",
	},
	{
		ID: "midnight_countdown", Title: "Across the Midnight Line",
		Description: "Still working as one day rolls into the next.",
		Difficulty:  "C", ExpReward: 60,
		Cond:        TimeOfDay{FromHour: 0, ToHour: 1, WithinMinutes: 30},
		Repeatable:  true, Cooldown: 48 * time.Hour,
		SystemMessage: "A new day has begun, but your battle continues.",
	},
	{
		ID: "new_year_grinder", Title: "First Strike of the Year",
		Description: "Working on New Year's Day. A new year, a new campaign.",
		Difficulty:  "B", ExpReward: 200,
		Cond:        DateMatch{Month: time.January, Day: 1},
		Repeatable:  true, Cooldown: 8760 * time.Hour,
		SystemMessage: "Fighting on the first day of the year. The system acknowledges your resolution.",
	},
	{
		ID: "polyglot", Title: "Polyglot Hunter",
		Description: "Three or more distinct kinds of work in one day.",
		Difficulty:  "B", ExpReward: 100,
		Cond:        Variety{Min: 3},
		Repeatable:  true, Cooldown: 72 * time.Hour,
		SystemMessage: "Python, JavaScript, Rust... an impressive arsenal.",
	},
	{
		ID: "device_hopper", Title: "Cross-Realm Hunter",
		Description: "Working across three or more devices in one day.",
		Difficulty:  "B", ExpReward: 80,
		Cond:        DeviceCount{Min: 3},
		Repeatable:  true, Cooldown: 168 * time.Hour,
		SystemMessage: "Moving freely between battlefields. The cross-realm hunter is acknowledged.",
	},
	{
		ID: "perfect_day", Title: "A Perfect Day",
		Description: "All dailies, two side quests, average focus above 0.7. The stuff of legend.",
		Difficulty:  "S", ExpReward: 500,
		Cond: Composite{All: []Condition{
			AllDailyDone{},
			SideQuests{Min: 2},
			FocusAbove{Min: 0.7},
		}},
		Repeatable: true, Cooldown: 168 * time.Hour,
		BonusTitle: "Perfectionist", BonusEffect: "perfect_day_glow",
		SystemMessage: "Every quest done. Exceptional focus. A perfect day. The system salutes you.",
	},
	{
		ID: "break_the_chain", Title: "Break the Chain",
		Description: "All dailies completed three days running. A habit is forming.",
		Difficulty:  "A", ExpReward: 200,
		Cond:          DayStreak{Days: 3},
		BonusTitle:    "Habit Forger",
		SystemMessage: "Three days, not one missed. The chain is broken; a new habit is being forged.",
	},
	{
		ID: "seven_day_warrior", Title: "Seven Days of Tempering",
		Description: "All dailies completed seven days running. Endurance proven.",
		Difficulty:  "S", ExpReward: 400,
		Cond:          DayStreak{Days: 7},
		BonusTitle:    "Sword Saint of Seven Days",
		SystemMessage: "Seven days of unbroken battle. Your will is tempered steel.",
	},
	{
		ID: "system_gift", Title: "Gift of the System",
		Description: "A random reward quest from the system. Complete any current quest to claim it.",
		Difficulty:  "D", ExpReward: 50,
		Cond:        RandomChance{Probability: 0.03, Interval: 30 * time.Minute},
		Repeatable:  true, Cooldown: 48 * time.Hour,
		SystemMessage: "Sometimes the system gives. Consider this recognition.",
	},
	{
		ID: "secret_double_exp", Title: "Double EXP Window",
		Description: "A hidden double-exp event fired. Quests completed in the next 30 minutes pay double.",
		Difficulty:  "C", ExpReward: 30,
		Cond:        RandomChance{Probability: 0.02, Interval: time.Hour},
		Repeatable:  true, Cooldown: 72 * time.Hour,
		BonusEffect:   "double_exp",
		SystemMessage: "A fluctuation in the system... experience gain has doubled!",
	},
}
