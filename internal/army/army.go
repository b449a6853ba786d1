// Package army manages the shadow army: agents extracted from repetitive
// work that run automations on the player's behalf. Extraction is gated by
// player level first, then per-rank capacity.
package army

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

// Agent ranks, weakest first.
const (
	RankNormal    = "normal"
	RankElite     = "elite"
	RankKnight    = "knight"
	RankCommander = "commander"
	RankMonarch   = "monarch"
)

// Agent types.
const (
	TypeWarrior  = "warrior"  // scheduled command runs
	TypeGuardian = "guardian" // watches a state, alerts on anomaly
	TypeScribe   = "scribe"   // collects and summarizes
	TypeMage     = "mage"     // model-driven analysis
	TypeGeneral  = "general"  // multi-step orchestration
)

// Agent statuses.
const (
	StatusDormant   = "dormant"
	StatusActive    = "active"
	StatusCooldown  = "cooldown"
	StatusDestroyed = "destroyed"
)

var rankOrder = []string{RankNormal, RankElite, RankKnight, RankCommander, RankMonarch}

// Per-rank army capacity.
var rankLimits = map[string]int{
	RankNormal: 99, RankElite: 20, RankKnight: 5, RankCommander: 2, RankMonarch: 1,
}

// Player level required to extract each rank.
var rankRequiredLevel = map[string]int{
	RankNormal: 5, RankElite: 15, RankKnight: 25, RankCommander: 40, RankMonarch: 60,
}

// Power weight per rank, multiplied by agent level and loyalty.
var rankPower = map[string]int{
	RankNormal: 1, RankElite: 5, RankKnight: 20, RankCommander: 50, RankMonarch: 200,
}

// Declined extraction and management operations.
var (
	ErrLevelTooLow   = errors.New("player level too low for rank")
	ErrArmyCapacity  = errors.New("army capacity reached for rank")
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentState    = errors.New("agent in wrong state")
	ErrUnknownRank   = errors.New("unknown rank")
)

// Agent is one shadow soldier.
type Agent struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Type             string         `json:"type"`
	Rank             string         `json:"rank"`
	Status           string         `json:"status"`
	SourceQuestID    string         `json:"source_quest_id,omitempty"`
	SourceQuestTitle string         `json:"source_quest_title,omitempty"`
	Description      string         `json:"description"`
	Trigger          map[string]any `json:"trigger,omitempty"`
	Action           map[string]any `json:"action,omitempty"`
	Level            int            `json:"level"`
	Exp              int            `json:"exp"`
	ExpToNext        int            `json:"exp_to_next"`
	Executions       int            `json:"total_executions"`
	Successes        int            `json:"successful_executions"`
	Failures         int            `json:"failed_executions"`
	LastExecuted     *time.Time     `json:"last_executed,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	Loyalty          float64        `json:"loyalty"`
}

// SuccessRate is the fraction of executions that succeeded.
func (a Agent) SuccessRate() float64 {
	if a.Executions == 0 {
		return 0
	}
	return float64(a.Successes) / float64(a.Executions)
}

// Extraction describes the agent to extract.
type Extraction struct {
	SourceQuestID    string
	SourceQuestTitle string
	Name             string
	Type             string
	Rank             string
	Description      string
	Trigger          map[string]any
	Action           map[string]any
}

// Template is a predefined agent unlocked by progression.
type Template struct {
	ID              string
	Name            string
	Type            string
	Rank            string
	Description     string
	Trigger         map[string]any
	Action          map[string]any
	UnlockCondition string
}

// Templates in unlock-difficulty order.
var Templates = []Template{
	{
		ID: "email_scout", Name: "Mail Scout Iron", Type: TypeGuardian, Rank: RankNormal,
		Description:     "Checks the inbox periodically and flags important mail",
		Trigger:         map[string]any{"kind": "cron", "interval_minutes": 30},
		Action:          map[string]any{"kind": "check_email", "filter": "important"},
		UnlockCondition: "complete 10 communication quests",
	},
	{
		ID: "git_sentinel", Name: "Code Sentinel Shade", Type: TypeWarrior, Rank: RankNormal,
		Description:     "Checks repository status hourly and nags about uncommitted work",
		Trigger:         map[string]any{"kind": "cron", "interval_minutes": 60},
		Action:          map[string]any{"kind": "shell", "command": "git status --porcelain"},
		UnlockCondition: "commit 7 days in a row",
	},
	{
		ID: "calendar_watcher", Name: "Calendar Watcher", Type: TypeScribe, Rank: RankNormal,
		Description:     "Watches the calendar and warns 30 minutes before events",
		Trigger:         map[string]any{"kind": "cron", "interval_minutes": 15},
		Action:          map[string]any{"kind": "check_calendar", "advance_minutes": 30},
		UnlockCondition: "use the calendar 5 times",
	},
	{
		ID: "daily_reporter", Name: "Daily Reporter", Type: TypeScribe, Rank: RankElite,
		Description:     "Builds the productivity report at the end of each day",
		Trigger:         map[string]any{"kind": "cron", "time": "22:00"},
		Action:          map[string]any{"kind": "generate_report", "type": "daily"},
		UnlockCondition: "reach Lv.15",
	},
	{
		ID: "focus_guardian", Name: "Focus Guardian Bell", Type: TypeGuardian, Rank: RankElite,
		Description:     "Nudges the player after 15 minutes of drifting",
		Trigger:         map[string]any{"kind": "behavior", "pattern": "distraction", "threshold_minutes": 15},
		Action:          map[string]any{"kind": "notify", "message": "Time to get back to it.", "style": "gentle"},
		UnlockCondition: "shake off 20 distraction debuffs",
	},
	{
		ID: "weekly_analyst", Name: "Weekly Analyst Igris", Type: TypeMage, Rank: RankKnight,
		Description:     "Analyzes the week's behavior and writes personalized suggestions",
		Trigger:         map[string]any{"kind": "cron", "weekday": "sunday", "time": "20:00"},
		Action:          map[string]any{"kind": "ai_analyze", "scope": "weekly"},
		UnlockCondition: "reach Lv.25 and use the system 4 weeks running",
	},
	{
		ID: "project_commander", Name: "Project Commander Beru", Type: TypeGeneral, Rank: RankCommander,
		Description:     "Tracks every running project, splits tasks and sets deadlines",
		Trigger:         map[string]any{"kind": "event", "event": "project_detected"},
		Action:          map[string]any{"kind": "ai_orchestrate", "scope": "project_management"},
		UnlockCondition: "reach Lv.40 and complete 100 quests",
	},
}

// TemplateOption is one listed template with unlock availability.
type TemplateOption struct {
	Template
	RequiredLevel int  `json:"required_level"`
	CanUnlock     bool `json:"can_unlock"`
	AlreadyHave   bool `json:"already_have"`
}

// Registry owns the army. All methods are safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	agents map[string]*Agent
	bus    *event.Bus
	now    func() time.Time
}

// New builds an empty registry. A nil now defaults to time.Now.
func New(bus *event.Bus, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{agents: make(map[string]*Agent), bus: bus, now: now}
}

// Extract raises a new agent. The level gate is checked before the
// capacity gate, so a low-level player is told about the level first.
func (r *Registry) Extract(ex Extraction, playerLevel int) (*Agent, error) {
	required, ok := rankRequiredLevel[ex.Rank]
	if !ok {
		return nil, fmt.Errorf("extract %q: %w", ex.Rank, ErrUnknownRank)
	}
	if playerLevel < required {
		return nil, fmt.Errorf("extract %s needs Lv.%d: %w", ex.Rank, required, ErrLevelTooLow)
	}

	r.mu.Lock()
	count := 0
	for _, a := range r.agents {
		if a.Rank == ex.Rank && a.Status != StatusDestroyed {
			count++
		}
	}
	if count >= rankLimits[ex.Rank] {
		r.mu.Unlock()
		return nil, fmt.Errorf("extract %s at cap %d: %w", ex.Rank, rankLimits[ex.Rank], ErrArmyCapacity)
	}

	now := r.now()
	agent := &Agent{
		ID:               "shadow_" + uuid.NewString()[:8],
		Name:             ex.Name,
		Type:             ex.Type,
		Rank:             ex.Rank,
		Status:           StatusDormant,
		SourceQuestID:    ex.SourceQuestID,
		SourceQuestTitle: ex.SourceQuestTitle,
		Description:      ex.Description,
		Trigger:          ex.Trigger,
		Action:           ex.Action,
		Level:            1,
		ExpToNext:        100,
		CreatedAt:        now,
		Loyalty:          1.0,
	}
	r.agents[agent.ID] = agent
	snapshot := *agent
	r.mu.Unlock()

	r.bus.Publish(event.AgentExtracted, types.AgentInfo{
		ID: agent.ID, Name: agent.Name, Type: agent.Type, Rank: agent.Rank, Level: agent.Level,
	})
	r.bus.Publish(event.NotificationPush, types.Notification{
		Title:     "Shadow extraction complete",
		Message:   fmt.Sprintf("\"Arise.\"\n\n%s has joined your shadow army.", agent.Name),
		Style:     "shadow_extraction",
		Timestamp: now,
	})
	return &snapshot, nil
}

// ExtractTemplate extracts a predefined template agent.
func (r *Registry) ExtractTemplate(templateID string, playerLevel int) (*Agent, error) {
	for _, tpl := range Templates {
		if tpl.ID != templateID {
			continue
		}
		return r.Extract(Extraction{
			SourceQuestTitle: "[template] " + tpl.Name,
			Name:             tpl.Name,
			Type:             tpl.Type,
			Rank:             tpl.Rank,
			Description:      tpl.Description,
			Trigger:          tpl.Trigger,
			Action:           tpl.Action,
		}, playerLevel)
	}
	return nil, fmt.Errorf("template %q: %w", templateID, ErrAgentNotFound)
}

// Deploy activates a dormant agent.
func (r *Registry) Deploy(id string) error {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("deploy %s: %w", id, ErrAgentNotFound)
	}
	if a.Status == StatusDestroyed || a.Status == StatusActive {
		status := a.Status
		r.mu.Unlock()
		return fmt.Errorf("deploy %s (%s): %w", id, status, ErrAgentState)
	}
	a.Status = StatusActive
	name := a.Name
	r.mu.Unlock()

	r.bus.Publish(event.AgentDeployed, types.AgentInfo{ID: id, Name: name})
	return nil
}

// Recall puts an agent back to dormant.
func (r *Registry) Recall(id string) error {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("recall %s: %w", id, ErrAgentNotFound)
	}
	if a.Status == StatusDestroyed {
		r.mu.Unlock()
		return fmt.Errorf("recall %s: %w", id, ErrAgentState)
	}
	a.Status = StatusDormant
	name := a.Name
	r.mu.Unlock()

	r.bus.Publish(event.AgentRecalled, types.AgentInfo{ID: id, Name: name})
	return nil
}

// Destroy dissolves an agent for good.
func (r *Registry) Destroy(id string) error {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("destroy %s: %w", id, ErrAgentNotFound)
	}
	a.Status = StatusDestroyed
	name := a.Name
	r.mu.Unlock()

	r.bus.Publish(event.AgentDestroyed, types.AgentInfo{ID: id, Name: name})
	r.bus.Publish(event.NotificationPush, types.Notification{
		Title:     "Shadow dissolved",
		Message:   name + " fades back into the dark...",
		Style:     "shadow_destroy",
		Timestamp: r.now(),
	})
	return nil
}

// Execute marks one execution attempt and returns the agent's action for
// the caller to run. Only deployed agents execute.
func (r *Registry) Execute(id string) (map[string]any, error) {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("execute %s: %w", id, ErrAgentNotFound)
	}
	if a.Status != StatusActive {
		r.mu.Unlock()
		return nil, fmt.Errorf("execute %s: %w", id, ErrAgentState)
	}
	a.Executions++
	t := r.now()
	a.LastExecuted = &t
	action := a.Action
	n := a.Executions
	r.mu.Unlock()

	return map[string]any{"action": action, "execution_number": n}, nil
}

// ReportResult books the outcome of one execution. Success pays agent exp
// with a level-up cascade; failure costs loyalty, and an agent whose
// loyalty falls to 0.2 or below dissolves on the spot.
func (r *Registry) ReportResult(id string, success bool) error {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("report %s: %w", id, ErrAgentNotFound)
	}

	var leveledTo int
	destroyed := false
	name := a.Name
	if success {
		a.Successes++
		a.Exp += 10 + a.Level*2
		for a.Exp >= a.ExpToNext {
			a.Exp -= a.ExpToNext
			a.Level++
			a.ExpToNext = int(float64(a.ExpToNext) * 1.5)
			leveledTo = a.Level
		}
	} else {
		a.Failures++
		a.Loyalty -= 0.05
		if a.Loyalty < 0.1 {
			a.Loyalty = 0.1
		}
		if a.Loyalty <= 0.2 {
			a.Status = StatusDestroyed
			destroyed = true
		}
	}
	level := a.Level
	r.mu.Unlock()

	if leveledTo > 0 {
		r.bus.Publish(event.AgentLevelUp, types.AgentInfo{ID: id, Name: name, Level: level})
		r.bus.Publish(event.NotificationPush, types.Notification{
			Title:     "Shadow level up!",
			Message:   fmt.Sprintf("%s reached Lv.%d!", name, leveledTo),
			Style:     "shadow_levelup",
			Timestamp: r.now(),
		})
	}
	if destroyed {
		r.bus.Publish(event.AgentDestroyed, types.AgentInfo{ID: id, Name: name, Level: level})
		r.bus.Publish(event.NotificationPush, types.Notification{
			Title:     "Shadow deserted",
			Message:   name + " failed too many times. Its loyalty is gone and it has dissolved.",
			Style:     "shadow_destroy",
			Timestamp: r.now(),
		})
	}
	return nil
}

// Size counts agents that are not destroyed.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.agents {
		if a.Status != StatusDestroyed {
			n++
		}
	}
	return n
}

// MaxAgentLevel is the highest level among living agents.
func (r *Registry) MaxAgentLevel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	best := 0
	for _, a := range r.agents {
		if a.Status != StatusDestroyed && a.Level > best {
			best = a.Level
		}
	}
	return best
}

// Power is the army's total strength: rank weight x level x loyalty,
// summed over living agents.
func (r *Registry) Power() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	power := 0.0
	for _, a := range r.agents {
		if a.Status == StatusDestroyed {
			continue
		}
		power += float64(rankPower[a.Rank]) * float64(a.Level) * a.Loyalty
	}
	return int(power)
}

// Get returns a copy of one agent.
func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// Summary is the serializable army overview.
type Summary struct {
	Total    int                       `json:"total"`
	Active   int                       `json:"active"`
	Soldiers []Agent                   `json:"soldiers"`
	ByRank   map[string]map[string]int `json:"by_rank"`
	Power    int                       `json:"army_power"`
}

// Overview builds the army summary: living soldiers sorted strongest
// first, per-rank counts and total power.
func (r *Registry) Overview() Summary {
	r.mu.Lock()
	var soldiers []Agent
	active := 0
	byRank := make(map[string]map[string]int)
	power := 0.0
	for _, a := range r.agents {
		if a.Status == StatusDestroyed {
			continue
		}
		soldiers = append(soldiers, *a)
		if a.Status == StatusActive {
			active++
		}
		if byRank[a.Rank] == nil {
			byRank[a.Rank] = map[string]int{"max": rankLimits[a.Rank]}
		}
		byRank[a.Rank]["count"]++
		power += float64(rankPower[a.Rank]) * float64(a.Level) * a.Loyalty
	}
	r.mu.Unlock()

	rankIdx := make(map[string]int, len(rankOrder))
	for i, rk := range rankOrder {
		rankIdx[rk] = i
	}
	sort.Slice(soldiers, func(i, j int) bool {
		if rankIdx[soldiers[i].Rank] != rankIdx[soldiers[j].Rank] {
			return rankIdx[soldiers[i].Rank] > rankIdx[soldiers[j].Rank]
		}
		return soldiers[i].Level > soldiers[j].Level
	})
	return Summary{
		Total: len(soldiers), Active: active,
		Soldiers: soldiers, ByRank: byRank, Power: int(power),
	}
}

// TemplateOptions lists the templates with availability for the given
// player level.
func (r *Registry) TemplateOptions(playerLevel int) []TemplateOption {
	r.mu.Lock()
	have := make(map[string]bool)
	for _, a := range r.agents {
		if a.SourceQuestTitle != "" {
			have[a.SourceQuestTitle] = true
		}
	}
	r.mu.Unlock()

	out := make([]TemplateOption, 0, len(Templates))
	for _, tpl := range Templates {
		required := rankRequiredLevel[tpl.Rank]
		already := have["[template] "+tpl.Name]
		out = append(out, TemplateOption{
			Template:      tpl,
			RequiredLevel: required,
			CanUnlock:     playerLevel >= required && !already,
			AlreadyHave:   already,
		})
	}
	return out
}

// Snapshot returns copies of every agent, destroyed ones included, for
// persistence.
func (r *Registry) Snapshot() []Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, *a)
	}
	return out
}

// Restore reloads persisted agents.
func (r *Registry) Restore(agents []Agent) {
	r.mu.Lock()
	for _, a := range agents {
		cp := a
		r.agents[cp.ID] = &cp
	}
	r.mu.Unlock()
}
