// Package effect manages the buff/debuff catalog and the reactive rules
// that activate and expire effects from activity, patterns and the clock.
package effect

import (
	"fmt"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/types"
)

// Definition is one catalog entry. A zero Duration means the effect lives
// until a rule or caller deactivates it.
type Definition struct {
	ID          string
	Name        string
	Description string
	Effects     map[string]float64
	Debuff      bool
	Duration    time.Duration
}

// Catalog is every effect the engine can activate, keyed by id. The three
// penalty-zone debuffs live here too so the penalty system activates them
// through the same path as everything else.
var Catalog = map[string]Definition{
	"focus_zone": {
		ID: "focus_zone", Name: "Focus Zone",
		Description: "Sustained deep work, flow state engaged",
		Effects:     map[string]float64{"focus": 20, "exp_multiplier": 1.5},
	},
	"creativity_spark": {
		ID: "creativity_spark", Name: "Creativity Spark",
		Description: "Creative work flowing, inspiration struck",
		Effects:     map[string]float64{"creativity": 25, "exp_multiplier": 1.3},
	},
	"learning_boost": {
		ID: "learning_boost", Name: "Learning Boost",
		Description: "Study mode active, absorption accelerated",
		Effects:     map[string]float64{"productivity": 15, "exp_multiplier": 1.2},
	},
	"early_bird": {
		ID: "early_bird", Name: "Early Bird",
		Description: "Working from first light, condition excellent",
		Effects:     map[string]float64{"focus": 10, "productivity": 10, "wellness": 5},
	},
	"distraction_fog": {
		ID: "distraction_fog", Name: "Distraction Fog",
		Description: "Rapid app switching, attention scattered",
		Effects:     map[string]float64{"focus": -15, "productivity": -10},
		Debuff:      true, Duration: 10 * time.Minute,
	},
	"fatigue_warning": {
		ID: "fatigue_warning", Name: "Fatigue Warning",
		Description: "Long stretch without a break, output slipping",
		Effects:     map[string]float64{"focus": -10, "wellness": -5},
		Debuff:      true, Duration: 15 * time.Minute,
	},
	"night_owl": {
		ID: "night_owl", Name: "Night Owl",
		Description: "Still working in the dead of night",
		Effects:     map[string]float64{"creativity": 10, "wellness": -10},
	},
	"procrastination_curse": {
		ID: "procrastination_curse", Name: "Procrastination Curse",
		Description: "Task avoidance detected, curse applied",
		Effects:     map[string]float64{"productivity": -20, "focus": -10},
		Debuff:      true, Duration: 20 * time.Minute,
	},
	"penalty_zone_1": {
		ID: "penalty_zone_1", Name: "Penalty Zone",
		Description: "Transported to the penalty zone",
		Effects:     map[string]float64{"focus": -5, "productivity": -5},
		Debuff:      true, Duration: time.Hour,
	},
	"penalty_zone_2": {
		ID: "penalty_zone_2", Name: "Desert of Poison Centipedes",
		Description: "The penalty zone has escalated",
		Effects:     map[string]float64{"focus": -15, "productivity": -15, "wellness": -5},
		Debuff:      true, Duration: 2 * time.Hour,
	},
	"heart_stop_warning": {
		ID: "heart_stop_warning", Name: "Heart-Stop Countdown",
		Description: "Final warning from the system",
		Effects:     map[string]float64{"focus": -20, "productivity": -20, "consistency": -10},
		Debuff:      true, Duration: 24 * time.Hour,
	},
	"double_exp": {
		ID: "double_exp", Name: "Double Exp",
		Description: "Exp gains doubled for a short window",
		Effects:     map[string]float64{"exp_multiplier": 2.0},
		Duration:    30 * time.Minute,
	},
	"marathon_afterglow": {
		ID: "marathon_afterglow", Name: "Marathon Afterglow",
		Description: "Still riding the long session",
		Effects:     map[string]float64{"focus": 10, "exp_multiplier": 1.2},
		Duration:    time.Hour,
	},
	"flow_state_echo": {
		ID: "flow_state_echo", Name: "Flow State Echo",
		Description: "The flow lingers after the session ends",
		Effects:     map[string]float64{"focus": 15},
		Duration:    30 * time.Minute,
	},
	"perfect_day_glow": {
		ID: "perfect_day_glow", Name: "Perfect Day Glow",
		Description: "Everything done, everything earned",
		Effects:     map[string]float64{"productivity": 10, "wellness": 10},
		Duration:    2 * time.Hour,
	},
}

// patternEffects maps detected behavior patterns to the effect they trigger.
var patternEffects = map[string]string{
	"deep_focus":      "focus_zone",
	"creative":        "creativity_spark",
	"learning":        "learning_boost",
	"distraction":     "distraction_fog",
	"fatigue":         "fatigue_warning",
	"procrastination": "procrastination_curse",
}

// Engine applies catalog effects to the player via reactive rules:
// high/low focus, late-night hours, detected patterns and the tick sweep.
type Engine struct {
	mu      sync.Mutex
	players *player.Manager
	now     func() time.Time
}

// New wires the engine onto the bus. A nil now defaults to time.Now.
func New(players *player.Manager, bus *event.Bus, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{players: players, now: now}
	bus.Subscribe(event.ContextAnalyzed, "effect", e.onContext)
	bus.Subscribe(event.MotiveInferred, "effect", e.onMotive)
	bus.Subscribe(event.PatternDetected, "effect", e.onPattern)
	bus.Subscribe(event.SystemTick, "effect", e.onTick)
	return e
}

// Activate puts the catalog effect with the given id on the player. Active
// duplicates and unknown ids are a no-op. A positive duration overrides the
// catalog default.
func (e *Engine) Activate(id string, duration time.Duration) {
	def, ok := Catalog[id]
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.players.HasEffect(id) {
		return
	}
	now := e.now()
	ae := player.ActiveEffect{
		ID: def.ID, Name: def.Name, Effects: def.Effects,
		ActivatedAt: now, Debuff: def.Debuff,
	}
	if duration <= 0 {
		duration = def.Duration
	}
	if duration > 0 {
		exp := now.Add(duration)
		ae.ExpiresAt = &exp
	}
	e.players.ApplyEffect(ae)
}

// Deactivate removes the effect, reverting its stat deltas. Unknown or
// inactive ids are a no-op.
func (e *Engine) Deactivate(id string) {
	e.players.RemoveEffect(id)
}

// SweepExpired removes every effect whose deadline has passed.
func (e *Engine) SweepExpired() {
	for _, id := range e.players.ExpiredEffects(e.now()) {
		e.players.RemoveEffect(id)
	}
}

func (e *Engine) onContext(ev event.Event) error {
	rec, ok := ev.Payload.(types.ContextRecord)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	e.ObserveContext(rec)
	return nil
}

// ObserveContext applies the reactive focus, distraction and clock rules
// to one activity record.
func (e *Engine) ObserveContext(rec types.ContextRecord) {
	if rec.FocusScore >= 0.8 {
		e.Activate("focus_zone", 0)
	} else if rec.FocusScore < 0.3 {
		e.Deactivate("focus_zone")
	}

	if rec.Category == types.CategorySocial && rec.FocusScore < 0.4 {
		e.Activate("distraction_fog", 0)
	}

	hour := e.now().Hour()
	if hour >= 23 || hour < 5 {
		e.Activate("night_owl", 0)
	} else {
		e.Deactivate("night_owl")
	}
}

func (e *Engine) onMotive(ev event.Event) error {
	info, ok := ev.Payload.(types.MotiveInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	if id, ok := patternEffects[info.Pattern]; ok {
		e.Activate(id, 0)
	}
	return nil
}

func (e *Engine) onPattern(ev event.Event) error {
	info, ok := ev.Payload.(types.PatternInfo)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	if id, ok := patternEffects[info.Pattern]; ok {
		e.Activate(id, 0)
	}
	return nil
}

func (e *Engine) onTick(event.Event) error {
	e.SweepExpired()
	return nil
}
