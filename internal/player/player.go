// Package player holds the single authoritative player ledger: level, exp,
// title, stat gauges and the list of active effects. All writes funnel
// through Manager so clamping and level-up bookkeeping happen in one place.
package player

import (
	"log/slog"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

// exp required to clear each of the first ten levels. Beyond level 10 each
// level costs a flat 1000 more than the last.
var levelTable = map[int]int{
	1: 100, 2: 200, 3: 400, 4: 700, 5: 1100,
	6: 1600, 7: 2200, 8: 3000, 9: 4000, 10: 5500,
}

// ExpForLevel returns the exp needed to advance past the given level.
func ExpForLevel(level int) int {
	if need, ok := levelTable[level]; ok {
		return need
	}
	return 5500 + (level-10)*1000
}

// Title is one rank on the hunter ladder, unlocked by level.
type Title struct {
	Name        string
	MinLevel    int
	Description string
}

// Titles in ascending unlock order. The highest entry whose MinLevel the
// player meets is their available title.
var Titles = []Title{
	{"Awakened", 1, "just woke up to the system"},
	{"E-Rank Hunter", 3, "fresh out of the gate"},
	{"D-Rank Hunter", 5, "starting to stand out"},
	{"C-Rank Hunter", 8, "no longer a rookie"},
	{"B-Rank Hunter", 12, "turning heads"},
	{"A-Rank Hunter", 18, "top of the crop"},
	{"S-Rank Hunter", 25, "beyond the limit"},
	{"National Hunter", 35, "a pillar of the nation"},
	{"Shadow Monarch", 50, "levels alone, stands at the summit"},
}

// StatNames lists the five gauges in display order.
var StatNames = []string{"focus", "productivity", "consistency", "creativity", "wellness"}

// Stats are the five gauges, each clamped to [0,100].
type Stats struct {
	Focus        int `json:"focus"`
	Productivity int `json:"productivity"`
	Consistency  int `json:"consistency"`
	Creativity   int `json:"creativity"`
	Wellness     int `json:"wellness"`
}

func defaultStats() Stats {
	return Stats{Focus: 50, Productivity: 50, Consistency: 50, Creativity: 50, Wellness: 50}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Apply adds delta to the named gauge, clamping to [0,100]. Unknown names
// are ignored.
func (s *Stats) Apply(name string, delta int) {
	switch name {
	case "focus":
		s.Focus = clamp(s.Focus + delta)
	case "productivity":
		s.Productivity = clamp(s.Productivity + delta)
	case "consistency":
		s.Consistency = clamp(s.Consistency + delta)
	case "creativity":
		s.Creativity = clamp(s.Creativity + delta)
	case "wellness":
		s.Wellness = clamp(s.Wellness + delta)
	}
}

// Get returns the named gauge, or 0 for unknown names.
func (s Stats) Get(name string) int {
	switch name {
	case "focus":
		return s.Focus
	case "productivity":
		return s.Productivity
	case "consistency":
		return s.Consistency
	case "creativity":
		return s.Creativity
	case "wellness":
		return s.Wellness
	}
	return 0
}

// Map returns the gauges keyed by name.
func (s Stats) Map() map[string]int {
	return map[string]int{
		"focus":        s.Focus,
		"productivity": s.Productivity,
		"consistency":  s.Consistency,
		"creativity":   s.Creativity,
		"wellness":     s.Wellness,
	}
}

// ActiveEffect is one buff or debuff currently applied to the player.
// Effects maps stat names to deltas, plus the special "exp_multiplier" key
// which scales exp gains instead of touching a gauge.
type ActiveEffect struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Effects     map[string]float64 `json:"effects"`
	ActivatedAt time.Time          `json:"activated_at"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty"`
	Debuff      bool               `json:"is_debuff"`
}

// Player is the serializable ledger state.
type Player struct {
	Name           string         `json:"name"`
	Level          int            `json:"level"`
	Exp            int            `json:"exp"`
	Title          string         `json:"title"`
	Stats          Stats          `json:"stats"`
	ActiveEffects  []ActiveEffect `json:"active_effects"`
	TitlesUnlocked []string       `json:"titles_unlocked"`
	QuestsDone     int            `json:"total_quests_completed"`
	CreatedAt      time.Time      `json:"created_at"`
}

// New returns a fresh level-1 player.
func New(name string) *Player {
	return &Player{
		Name:           name,
		Level:          1,
		Title:          Titles[0].Name,
		Stats:          defaultStats(),
		TitlesUnlocked: []string{Titles[0].Name},
		CreatedAt:      time.Now(),
	}
}

// ExpToNext returns the exp needed to clear the current level.
func (p *Player) ExpToNext() int { return ExpForLevel(p.Level) }

// AvailableTitle returns the highest title the current level unlocks.
func (p *Player) AvailableTitle() string {
	best := Titles[0].Name
	for _, t := range Titles {
		if p.Level >= t.MinLevel {
			best = t.Name
		}
	}
	return best
}

// Manager serializes all mutations of one Player and publishes the
// progression events they produce. Only the reward, effect and penalty
// subsystems should call its mutators.
type Manager struct {
	mu     sync.Mutex
	player *Player
	bus    *event.Bus
	now    func() time.Time
}

// NewManager wraps p. A nil now defaults to time.Now.
func NewManager(p *Player, bus *event.Bus, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{player: p, bus: bus, now: now}
}

// GainExp credits amount exp after multiplying by the product of active
// exp_multiplier effects, then runs the level-up cascade: each level-up
// consumes exp_to_next, bumps every stat by one and may change the title.
func (m *Manager) GainExp(amount int, source string) {
	m.mu.Lock()
	multiplier := 1.0
	for _, e := range m.player.ActiveEffects {
		if mult, ok := e.Effects["exp_multiplier"]; ok {
			multiplier *= mult
		}
	}
	actual := int(float64(amount) * multiplier)
	m.player.Exp += actual

	var ups []types.LevelUpInfo
	for m.player.Exp >= m.player.ExpToNext() {
		m.player.Exp -= m.player.ExpToNext()
		ups = append(ups, m.levelUpLocked())
	}
	m.mu.Unlock()

	m.bus.Publish(event.ExpGained, types.ExpGainInfo{
		Amount: actual, Source: source, Multiplier: multiplier,
	})
	for _, up := range ups {
		slog.Info("level up", "level", up.NewLevel, "title", up.Title)
		m.bus.Publish(event.LevelUp, up)
	}
}

func (m *Manager) levelUpLocked() types.LevelUpInfo {
	p := m.player
	p.Level++

	newTitle := p.AvailableTitle()
	titleChanged := newTitle != p.Title
	if titleChanged {
		if !contains(p.TitlesUnlocked, newTitle) {
			p.TitlesUnlocked = append(p.TitlesUnlocked, newTitle)
		}
		p.Title = newTitle
	}

	for _, name := range StatNames {
		p.Stats.Apply(name, 1)
	}

	return types.LevelUpInfo{NewLevel: p.Level, Title: p.Title, TitleChanged: titleChanged}
}

// DeductExp removes exp as a punishment. The level never drops; exp floors
// at zero within the current level.
func (m *Manager) DeductExp(amount int) {
	m.mu.Lock()
	m.player.Exp -= amount
	if m.player.Exp < 0 {
		m.player.Exp = 0
	}
	m.mu.Unlock()
}

// ApplyEffect puts e into the active list, replacing any effect with the
// same ID, and applies its stat deltas. A displaced effect has its deltas
// reverted first so replacement stays a net single application.
func (m *Manager) ApplyEffect(e ActiveEffect) {
	m.mu.Lock()
	kept := m.player.ActiveEffects[:0]
	for _, old := range m.player.ActiveEffects {
		if old.ID != e.ID {
			kept = append(kept, old)
			continue
		}
		for stat, v := range old.Effects {
			if stat != "exp_multiplier" {
				m.player.Stats.Apply(stat, -int(v))
			}
		}
	}
	m.player.ActiveEffects = append(kept, e)

	for stat, v := range e.Effects {
		if stat != "exp_multiplier" {
			m.player.Stats.Apply(stat, int(v))
		}
	}
	m.mu.Unlock()

	t := event.BuffActivated
	if e.Debuff {
		t = event.DebuffActivated
	}
	m.bus.Publish(t, types.EffectInfo{ID: e.ID, Name: e.Name, Debuff: e.Debuff, Effects: e.Effects})
}

// RemoveEffect drops the effect with the given id and reverts exactly the
// stat deltas it applied. Unknown ids are a no-op.
func (m *Manager) RemoveEffect(id string) {
	m.mu.Lock()
	var removed *ActiveEffect
	kept := m.player.ActiveEffects[:0]
	for _, e := range m.player.ActiveEffects {
		if e.ID == id && removed == nil {
			cp := e
			removed = &cp
			continue
		}
		kept = append(kept, e)
	}
	m.player.ActiveEffects = kept
	if removed != nil {
		for stat, v := range removed.Effects {
			if stat != "exp_multiplier" {
				m.player.Stats.Apply(stat, -int(v))
			}
		}
	}
	m.mu.Unlock()

	if removed == nil {
		return
	}
	t := event.BuffExpired
	if removed.Debuff {
		t = event.DebuffExpired
	}
	m.bus.Publish(t, types.EffectInfo{ID: removed.ID, Name: removed.Name, Debuff: removed.Debuff})
}

// HasEffect reports whether an effect with the given id is active.
func (m *Manager) HasEffect(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.player.ActiveEffects {
		if e.ID == id {
			return true
		}
	}
	return false
}

// ExpiredEffects returns the ids of active effects whose ExpiresAt has
// passed as of now.
func (m *Manager) ExpiredEffects(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.player.ActiveEffects {
		if e.ExpiresAt != nil && now.After(*e.ExpiresAt) {
			out = append(out, e.ID)
		}
	}
	return out
}

// UpdateStats applies a batch of stat deltas and publishes StatChanged.
func (m *Manager) UpdateStats(changes map[string]int) {
	m.mu.Lock()
	for stat, v := range changes {
		m.player.Stats.Apply(stat, v)
	}
	current := m.player.Stats.Map()
	m.mu.Unlock()

	m.bus.Publish(event.StatChanged, map[string]any{
		"changes":       changes,
		"current_stats": current,
	})
}

// AddTitle unlocks a bonus title outside the level ladder. Duplicates are
// a no-op; the displayed title is untouched.
func (m *Manager) AddTitle(name string) {
	m.mu.Lock()
	if !contains(m.player.TitlesUnlocked, name) {
		m.player.TitlesUnlocked = append(m.player.TitlesUnlocked, name)
	}
	m.mu.Unlock()
}

// CountQuestDone bumps the completed-quest counter.
func (m *Manager) CountQuestDone() {
	m.mu.Lock()
	m.player.QuestsDone++
	m.mu.Unlock()
}

// Snapshot returns a deep copy of the ledger for serialization.
func (m *Manager) Snapshot() Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.player
	cp.ActiveEffects = append([]ActiveEffect(nil), m.player.ActiveEffects...)
	cp.TitlesUnlocked = append([]string(nil), m.player.TitlesUnlocked...)
	return cp
}

// Restore replaces the ledger wholesale, used when loading persisted state.
func (m *Manager) Restore(p Player) {
	m.mu.Lock()
	*m.player = p
	m.mu.Unlock()
}

// Level returns the current level.
func (m *Manager) Level() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.player.Level
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
