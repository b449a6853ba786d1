package event

import "time"

// Type identifies the payload type of a bus event.
type Type string

const (
	// Perception layer
	WindowChanged Type = "window_changed"

	// Cognition layer
	ContextAnalyzed Type = "context_analyzed"
	MotiveInferred  Type = "motive_inferred"
	PatternDetected Type = "pattern_detected"

	// Progression
	QuestTriggered  Type = "quest_triggered"
	QuestCompleted  Type = "quest_completed"
	QuestFailed     Type = "quest_failed"
	BuffActivated   Type = "buff_activated"
	BuffExpired     Type = "buff_expired"
	DebuffActivated Type = "debuff_activated"
	DebuffExpired   Type = "debuff_expired"
	LevelUp         Type = "level_up"
	ExpGained       Type = "exp_gained"
	StatChanged     Type = "stat_changed"

	// Agent army
	AgentExtracted Type = "agent_extracted"
	AgentDeployed  Type = "agent_deployed"
	AgentRecalled  Type = "agent_recalled"
	AgentDestroyed Type = "agent_destroyed"
	AgentLevelUp   Type = "agent_level_up"

	// Presentation
	NotificationPush Type = "notification_push"

	// Lifecycle
	SystemStart Type = "system_start"
	SystemStop  Type = "system_stop"
	SystemTick  Type = "system_tick"
)

// Event is the envelope for everything published on the bus. Handlers must
// treat Payload as read-only: all handlers of one publish call share it.
type Event struct {
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}
