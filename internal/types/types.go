// Package types holds the shared vocabulary passed between engine subsystems.
// Every payload that crosses the event bus is defined here so subscribers in
// different packages agree on shape without importing each other.
package types

import "time"

// Activity categories produced by the cognition collaborator.
const (
	CategoryCoding   = "coding"
	CategoryWriting  = "writing"
	CategoryLearning = "learning"
	CategoryWork     = "work"
	CategoryCreative = "creative"
	CategoryBrowsing = "browsing"
	CategorySocial   = "social"
	CategoryMedia    = "media"
	CategoryGaming   = "gaming"
	CategoryIdle     = "idle"
)

// ProductiveCategories is the set treated as "real work" by the pattern
// detector and the hidden trigger catalog.
var ProductiveCategories = map[string]bool{
	CategoryCoding:   true,
	CategoryWriting:  true,
	CategoryWork:     true,
	CategoryLearning: true,
	CategoryCreative: true,
}

// ContextRecord is one classified activity observation from the cognition
// collaborator. FocusScore is in [0,1].
type ContextRecord struct {
	Category   string    `json:"category"`
	FocusScore float64   `json:"focus_score"`
	Activity   string    `json:"activity"`
	Motive     string    `json:"motive"`
	DeviceID   string    `json:"device_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// WindowEvent is one window-focus change from the perception collaborator.
// Used by the pattern detector to compute switch rate.
type WindowEvent struct {
	Window    string    `json:"window"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// PatternInfo is the payload of a PatternDetected event. Emitted only when
// the detected tag differs from the previous one.
type PatternInfo struct {
	Pattern    string         `json:"pattern"`
	AvgFocus   float64        `json:"avg_focus"`
	SwitchRate int            `json:"switch_rate"`
	Categories map[string]int `json:"categories"`
}

// LevelUpInfo is the payload of a LevelUp event.
type LevelUpInfo struct {
	NewLevel     int    `json:"new_level"`
	Title        string `json:"title"`
	TitleChanged bool   `json:"title_changed"`
}

// ExpGainInfo is the payload of an ExpGained event.
type ExpGainInfo struct {
	Amount     int     `json:"amount"`
	Source     string  `json:"source"`
	Multiplier float64 `json:"multiplier"`
}

// EffectInfo is the payload of BuffActivated / DebuffActivated /
// BuffExpired / DebuffExpired events.
type EffectInfo struct {
	ID      string             `json:"id"`
	Name    string             `json:"name"`
	Debuff  bool               `json:"debuff"`
	Effects map[string]float64 `json:"effects,omitempty"`
}

// QuestInfo is the payload of QuestTriggered / QuestCompleted / QuestFailed
// events.
type QuestInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
	ExpReward  int    `json:"exp_reward"`
	ExpEarned  int    `json:"exp_earned,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// QuestSuggestion is one externally-suggested quest carried by a
// MotiveInferred event. The quest engine may turn it into a real quest.
type QuestSuggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Difficulty  string `json:"difficulty"`
	ExpReward   int    `json:"exp_reward"`
	Context     string `json:"context"`
}

// MotiveInfo is the payload of a MotiveInferred event from the cognition
// collaborator's deeper analysis pass.
type MotiveInfo struct {
	Motive          string            `json:"motive"`
	Pattern         string            `json:"pattern,omitempty"`
	SuggestedQuests []QuestSuggestion `json:"suggested_quests,omitempty"`
}

// AgentInfo is the payload of agent lifecycle events
// (AgentExtracted, AgentDestroyed, AgentLevelUp).
type AgentInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Rank  string `json:"rank"`
	Level int    `json:"level"`
}

// Notification is one queued message for the presentation layer.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Style     string    `json:"style"`
	Timestamp time.Time `json:"timestamp"`
}
