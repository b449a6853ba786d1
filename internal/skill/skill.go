// Package skill holds the passive and active skill catalogs. Passives
// unlock by level and work on their own; actives are cast by the player and
// run a per-skill cooldown.
package skill

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

var (
	ErrUnknownSkill = errors.New("unknown skill")
	ErrLevelTooLow  = errors.New("level too low")
	ErrOnCooldown   = errors.New("skill on cooldown")
)

// Passive is a skill that works without being cast.
type Passive struct {
	ID          string
	Name        string
	Description string
	UnlockLevel int
	Effect      string
	MaxLevel    int
}

// Active is a skill the player casts, gated by a cooldown.
type Active struct {
	ID          string
	Name        string
	Description string
	UnlockLevel int
	Cooldown    time.Duration
	Effect      string
	MaxLevel    int
}

// Passives in unlock order.
var Passives = []Passive{
	{
		ID: "will_to_recover", Name: "Will to Recover",
		Description: "Stats recover a little after each completed quest.",
		UnlockLevel: 1, Effect: "restores 3 points of a random stat on quest completion",
		MaxLevel: 5,
	},
	{
		ID: "longevity", Name: "Longevity",
		Description: "Past an hour of continuous focus, focus decays at half speed.",
		UnlockLevel: 3, Effect: "halves focus debuffs during long sessions",
		MaxLevel: 3,
	},
	{
		ID: "detoxification", Name: "Detoxification",
		Description: "Debuffs wear off 20% sooner.",
		UnlockLevel: 5, Effect: "all debuff durations -20%",
		MaxLevel: 3,
	},
	{
		ID: "tenacity", Name: "Tenacity",
		Description: "Stats below 30 fall at half speed.",
		UnlockLevel: 8, Effect: "low-stat protection",
		MaxLevel: 3,
	},
	{
		ID: "advanced_focus", Name: "Advanced Focus",
		Description: "Coding and writing grant an extra 15% exp.",
		UnlockLevel: 10, Effect: "+15% exp from productive work",
		MaxLevel: 5,
	},
}

// Actives in unlock order.
var Actives = []Active{
	{
		ID: "stealth", Name: "Stealth",
		Description: "Two hours of do-not-disturb. All notifications muted.",
		UnlockLevel: 2, Cooldown: 4 * time.Hour,
		Effect: "2 hours of silence", MaxLevel: 3,
	},
	{
		ID: "bloodlust", Name: "Bloodlust",
		Description: "High-pressure focus mode. Hold high focus for 30 minutes or take a debuff.",
		UnlockLevel: 5, Cooldown: 2 * time.Hour,
		Effect: "30-minute forced focus challenge", MaxLevel: 5,
	},
	{
		ID: "quicksilver", Name: "Quicksilver",
		Description: "Exp gains +30% for the next hour.",
		UnlockLevel: 7, Cooldown: 3 * time.Hour,
		Effect: "1 hour of accelerated exp", MaxLevel: 5,
	},
	{
		ID: "rulers_authority", Name: "Ruler's Authority",
		Description: "Force the system to analyze the current state and issue a quest now.",
		UnlockLevel: 10, Cooldown: time.Hour,
		Effect: "on-demand quest generation", MaxLevel: 3,
	},
	{
		ID: "shadow_extraction", Name: "Shadow Extraction",
		Description: "Turn a finished task into a shadow soldier: a recorded, repeatable routine.",
		UnlockLevel: 15, Cooldown: 6 * time.Hour,
		Effect: "record and automate a repeating task", MaxLevel: 5,
	},
}

var activeByID = func() map[string]Active {
	m := make(map[string]Active, len(Actives))
	for _, s := range Actives {
		m[s.ID] = s
	}
	return m
}()

// Listing is one skill as shown for a given player level. Locked skills are
// redacted down to the unlock hint.
type Listing struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Effect            string `json:"effect,omitempty"`
	Type              string `json:"type"`
	Level             int    `json:"level,omitempty"`
	MaxLevel          int    `json:"max_level,omitempty"`
	Unlocked          bool   `json:"unlocked"`
	OnCooldown        bool   `json:"on_cooldown,omitempty"`
	CooldownRemaining int    `json:"cooldown_remaining_minutes,omitempty"`
}

// Cast reports a successful activation.
type Cast struct {
	Skill    string        `json:"skill"`
	Effect   string        `json:"effect"`
	Cooldown time.Duration `json:"-"`
}

// State is the persisted portion of the system.
type State struct {
	Cooldowns map[string]time.Time `json:"cooldowns"`
	Uses      map[string]int       `json:"uses"`
}

// System tracks cooldowns and per-skill use counts.
type System struct {
	mu        sync.Mutex
	bus       *event.Bus
	now       func() time.Time
	cooldowns map[string]time.Time
	uses      map[string]int
}

// New builds the system. A nil now defaults to time.Now.
func New(bus *event.Bus, now func() time.Time) *System {
	if now == nil {
		now = time.Now
	}
	return &System{
		bus:       bus,
		now:       now,
		cooldowns: make(map[string]time.Time),
		uses:      make(map[string]int),
	}
}

func locked(id string, unlockLevel int, kind string) Listing {
	return Listing{
		ID:          id,
		Name:        "???",
		Description: fmt.Sprintf("unlocks at level %d", unlockLevel),
		Type:        kind,
	}
}

// Available lists every skill for the given player level, locked entries
// redacted, actives annotated with cooldown state.
func (s *System) Available(playerLevel int) []Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	out := make([]Listing, 0, len(Passives)+len(Actives))
	for _, p := range Passives {
		if playerLevel < p.UnlockLevel {
			out = append(out, locked(p.ID, p.UnlockLevel, "passive"))
			continue
		}
		out = append(out, Listing{
			ID: p.ID, Name: p.Name, Description: p.Description,
			Effect: p.Effect, Type: "passive",
			Level: 1, MaxLevel: p.MaxLevel, Unlocked: true,
		})
	}
	for _, a := range Actives {
		if playerLevel < a.UnlockLevel {
			out = append(out, locked(a.ID, a.UnlockLevel, "active"))
			continue
		}
		l := Listing{
			ID: a.ID, Name: a.Name, Description: a.Description,
			Effect: a.Effect, Type: "active",
			Level: 1, MaxLevel: a.MaxLevel, Unlocked: true,
		}
		if until, ok := s.cooldowns[a.ID]; ok && until.After(now) {
			l.OnCooldown = true
			l.CooldownRemaining = int(until.Sub(now).Minutes())
		}
		out = append(out, l)
	}
	return out
}

// Activate casts an active skill. Declined casts return a sentinel wrapped
// with context; a success starts the cooldown and bumps the use count.
func (s *System) Activate(skillID string, playerLevel int) (*Cast, error) {
	sk, ok := activeByID[skillID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", skillID, ErrUnknownSkill)
	}
	if playerLevel < sk.UnlockLevel {
		return nil, fmt.Errorf("%s needs level %d: %w", skillID, sk.UnlockLevel, ErrLevelTooLow)
	}

	now := s.now()
	s.mu.Lock()
	if until, ok := s.cooldowns[skillID]; ok && until.After(now) {
		remaining := int(until.Sub(now).Minutes())
		s.mu.Unlock()
		return nil, fmt.Errorf("%s ready in %d minutes: %w", skillID, remaining, ErrOnCooldown)
	}
	s.cooldowns[skillID] = now.Add(sk.Cooldown)
	s.uses[skillID]++
	s.mu.Unlock()

	s.bus.Publish(event.NotificationPush, types.Notification{
		Title:     "Skill activated: " + sk.Name,
		Message:   sk.Effect,
		Style:     "skill",
		Timestamp: now,
	})

	return &Cast{Skill: sk.Name, Effect: sk.Effect, Cooldown: sk.Cooldown}, nil
}

// Uses returns how many times the skill has been cast.
func (s *System) Uses(skillID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uses[skillID]
}

// Snapshot returns the persistable state.
func (s *System) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Cooldowns: make(map[string]time.Time, len(s.cooldowns)),
		Uses:      make(map[string]int, len(s.uses)),
	}
	for k, v := range s.cooldowns {
		st.Cooldowns[k] = v
	}
	for k, v := range s.uses {
		st.Uses[k] = v
	}
	return st
}

// Restore reloads persisted state.
func (s *System) Restore(st State) {
	s.mu.Lock()
	s.cooldowns = make(map[string]time.Time, len(st.Cooldowns))
	for k, v := range st.Cooldowns {
		s.cooldowns[k] = v
	}
	s.uses = make(map[string]int, len(st.Uses))
	for k, v := range st.Uses {
		s.uses[k] = v
	}
	s.mu.Unlock()
}
