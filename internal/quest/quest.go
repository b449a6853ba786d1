// Package quest models quests and the engine that generates, tracks and
// settles them. Status transitions are monotonic: once a quest leaves
// active it never comes back.
package quest

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/types"
)

// Quest types.
const (
	TypeDaily     = "daily"
	TypeSide      = "side"
	TypeMain      = "main"
	TypeEmergency = "emergency"
	TypeHidden    = "hidden"
)

// Quest statuses. Active is the only non-terminal status.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
)

// ErrQuestNotActive is returned when settling a quest that is unknown or
// already in a terminal status.
var ErrQuestNotActive = errors.New("quest not active")

// DifficultyExp maps difficulty grade to its exp reward range.
var DifficultyExp = map[string][2]int{
	"E": {5, 15},
	"D": {15, 30},
	"C": {30, 60},
	"B": {60, 120},
	"A": {120, 250},
	"S": {250, 500},
}

// Quest is one tracked quest.
type Quest struct {
	ID          string     `json:"id" db:"id"`
	Type        string     `json:"type" db:"type"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Difficulty  string     `json:"difficulty" db:"difficulty"`
	Status      string     `json:"status" db:"status"`
	ExpReward   int        `json:"exp_reward" db:"exp_reward"`
	Source      string     `json:"source" db:"source"`
	Context     string     `json:"context,omitempty" db:"context"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	Deadline    *time.Time `json:"deadline,omitempty" db:"deadline"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// dailyTemplate is one entry of the fixed daily rotation.
type dailyTemplate struct {
	title       string
	description string
	difficulty  string
	expReward   int
	category    string
}

var dailyTemplates = []dailyTemplate{
	{"Morning Training", "At least 15 minutes of exercise or stretching.", "D", 20, "wellness"},
	{"Knowledge Intake", "Read books, docs or tutorials for at least 30 minutes.", "D", 20, "learning"},
	{"Focus Hour", "One uninterrupted hour of deep work.", "C", 30, "focus"},
}

const (
	maxActiveQuests  = 10
	maxPerSuggestion = 2
)

// Store receives quest writes for persistence. Failures are logged, never
// fatal to the engine.
type Store interface {
	SaveQuest(Quest) error
}

// Engine generates and settles quests. It is the only writer of quest
// status.
type Engine struct {
	mu      sync.Mutex
	quests  map[string]Quest
	players *player.Manager
	bus     *event.Bus
	store   Store
	now     func() time.Time
}

// New wires the engine onto the bus. store and now may be nil.
func New(players *player.Manager, bus *event.Bus, store Store, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		quests:  make(map[string]Quest),
		players: players,
		bus:     bus,
		store:   store,
		now:     now,
	}
	bus.Subscribe(event.MotiveInferred, "quest", e.onMotive)
	bus.Subscribe(event.PatternDetected, "quest", e.onPattern)
	return e
}

func (e *Engine) persist(q Quest) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveQuest(q); err != nil {
		slog.Warn("quest save failed", "id", q.ID, "error", err)
	}
}

func (e *Engine) announce(q Quest) {
	e.bus.Publish(event.QuestTriggered, types.QuestInfo{
		ID: q.ID, Title: q.Title, Type: q.Type,
		Difficulty: q.Difficulty, ExpReward: q.ExpReward,
	})
}

// GenerateDaily creates today's daily quests from the fixed templates.
// Idempotent: if today's dailies already exist it returns them unchanged.
func (e *Engine) GenerateDaily() []Quest {
	now := e.now()
	day := now.Format("20060102")
	prefix := "daily_" + day

	e.mu.Lock()
	var existing []Quest
	for _, q := range e.quests {
		if q.Type == TypeDaily && strings.HasPrefix(q.ID, prefix) {
			existing = append(existing, q)
		}
	}
	if len(existing) > 0 {
		e.mu.Unlock()
		sortByCreation(existing)
		return existing
	}

	deadline := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
	created := make([]Quest, 0, len(dailyTemplates))
	for _, tpl := range dailyTemplates {
		q := Quest{
			ID:          fmt.Sprintf("%s_%s", prefix, uuid.NewString()[:6]),
			Type:        TypeDaily,
			Title:       tpl.title,
			Description: tpl.description,
			Difficulty:  tpl.difficulty,
			Status:      StatusActive,
			ExpReward:   tpl.expReward,
			Source:      "daily",
			CreatedAt:   now,
			Deadline:    &deadline,
		}
		e.quests[q.ID] = q
		created = append(created, q)
	}
	e.mu.Unlock()

	for _, q := range created {
		e.persist(q)
		e.announce(q)
	}
	return created
}

// CreateFromSuggestion turns an externally suggested quest into a real one.
// Suggestions with an empty title or a title matching an active quest are
// rejected with a nil quest.
func (e *Engine) CreateFromSuggestion(s types.QuestSuggestion) *Quest {
	if s.Title == "" {
		return nil
	}

	e.mu.Lock()
	for _, q := range e.quests {
		if q.Status == StatusActive && q.Title == s.Title {
			e.mu.Unlock()
			return nil
		}
	}

	difficulty := s.Difficulty
	if _, ok := DifficultyExp[difficulty]; !ok {
		difficulty = "C"
	}
	reward := s.ExpReward
	if reward <= 0 {
		reward = DifficultyExp[difficulty][0]
	}
	qtype := s.Type
	if qtype == "" {
		qtype = TypeSide
	}

	q := Quest{
		ID:          "auto_" + uuid.NewString()[:8],
		Type:        qtype,
		Title:       s.Title,
		Description: s.Description,
		Difficulty:  difficulty,
		Status:      StatusActive,
		ExpReward:   reward,
		Source:      "auto_detected",
		Context:     s.Context,
		CreatedAt:   e.now(),
	}
	e.quests[q.ID] = q
	e.mu.Unlock()

	e.persist(q)
	e.announce(q)
	return &q
}

// Complete settles an active quest: reward exp, bump the counter, publish
// QuestCompleted. Returns ErrQuestNotActive for unknown or settled quests.
func (e *Engine) Complete(id string) error {
	e.mu.Lock()
	q, ok := e.quests[id]
	if !ok || q.Status != StatusActive {
		e.mu.Unlock()
		return fmt.Errorf("complete %s: %w", id, ErrQuestNotActive)
	}
	q.Status = StatusCompleted
	done := e.now()
	q.CompletedAt = &done
	e.quests[id] = q
	e.mu.Unlock()

	e.persist(q)
	e.players.GainExp(q.ExpReward, "quest:"+q.ID)
	e.players.CountQuestDone()
	e.bus.Publish(event.QuestCompleted, types.QuestInfo{
		ID: q.ID, Title: q.Title, Type: q.Type,
		Difficulty: q.Difficulty, ExpEarned: q.ExpReward,
	})
	return nil
}

// Fail settles an active quest as failed with no reward.
func (e *Engine) Fail(id string) error {
	e.mu.Lock()
	q, ok := e.quests[id]
	if !ok || q.Status != StatusActive {
		e.mu.Unlock()
		return fmt.Errorf("fail %s: %w", id, ErrQuestNotActive)
	}
	q.Status = StatusFailed
	e.quests[id] = q
	e.mu.Unlock()

	e.persist(q)
	e.bus.Publish(event.QuestFailed, types.QuestInfo{ID: q.ID, Title: q.Title, Type: q.Type})
	return nil
}

// CheckExpired expires every active quest whose deadline has passed,
// publishing QuestFailed with an "expired" reason for each.
func (e *Engine) CheckExpired() {
	now := e.now()

	e.mu.Lock()
	var expired []Quest
	for id, q := range e.quests {
		if q.Status == StatusActive && q.Deadline != nil && q.Deadline.Before(now) {
			q.Status = StatusExpired
			e.quests[id] = q
			expired = append(expired, q)
		}
	}
	e.mu.Unlock()

	for _, q := range expired {
		e.persist(q)
		e.bus.Publish(event.QuestFailed, types.QuestInfo{
			ID: q.ID, Title: q.Title, Type: q.Type, Reason: "expired",
		})
	}
}

// Active returns the active quests, oldest first.
func (e *Engine) Active() []Quest {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Quest
	for _, q := range e.quests {
		if q.Status == StatusActive {
			out = append(out, q)
		}
	}
	sortByCreation(out)
	return out
}

// Get looks up one quest by id.
func (e *Engine) Get(id string) (Quest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.quests[id]
	return q, ok
}

// DailyDoneToday reports whether every one of today's daily quests is
// completed. False when no dailies exist for today.
func (e *Engine) DailyDoneToday() bool {
	prefix := "daily_" + e.now().Format("20060102")
	e.mu.Lock()
	defer e.mu.Unlock()
	found := false
	for _, q := range e.quests {
		if q.Type != TypeDaily || !strings.HasPrefix(q.ID, prefix) {
			continue
		}
		found = true
		if q.Status != StatusCompleted {
			return false
		}
	}
	return found
}

// CompletedToday counts quests of the given type completed on the current
// calendar day. An empty type counts every completion.
func (e *Engine) CompletedToday(questType string) int {
	today := e.now().Format("2006-01-02")
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, q := range e.quests {
		if q.Status != StatusCompleted || q.CompletedAt == nil {
			continue
		}
		if questType != "" && q.Type != questType {
			continue
		}
		if q.CompletedAt.Format("2006-01-02") == today {
			n++
		}
	}
	return n
}

// Restore reloads persisted quests, used at startup.
func (e *Engine) Restore(quests []Quest) {
	e.mu.Lock()
	for _, q := range quests {
		e.quests[q.ID] = q
	}
	e.mu.Unlock()
}

func (e *Engine) onMotive(ev event.Event) error {
	info, ok := ev.Payload.(types.MotiveInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}

	e.mu.Lock()
	active := 0
	for _, q := range e.quests {
		if q.Status == StatusActive {
			active++
		}
	}
	e.mu.Unlock()
	if active >= maxActiveQuests {
		return nil
	}

	n := len(info.SuggestedQuests)
	if n > maxPerSuggestion {
		n = maxPerSuggestion
	}
	for _, s := range info.SuggestedQuests[:n] {
		e.CreateFromSuggestion(s)
	}
	return nil
}

func (e *Engine) onPattern(ev event.Event) error {
	info, ok := ev.Payload.(types.PatternInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	if info.Pattern == "procrastination" {
		e.CreateFromSuggestion(types.QuestSuggestion{
			Title:       "Beat the Slump",
			Description: "Procrastination detected. Start the task you keep putting off and hold for 25 minutes.",
			Difficulty:  "B",
			ExpReward:   80,
			Type:        TypeEmergency,
			Context:     "procrastination pattern",
		})
	}
	return nil
}

func sortByCreation(quests []Quest) {
	sort.Slice(quests, func(i, j int) bool {
		return quests[i].CreatedAt.Before(quests[j].CreatedAt)
	})
}
