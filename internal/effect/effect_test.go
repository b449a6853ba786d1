package effect

import (
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/types"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newEngine(now time.Time) (*Engine, *player.Manager, *event.Bus) {
	bus := event.New()
	pm := player.NewManager(player.New("Tester"), bus, nil)
	return New(pm, bus, fixedClock(now)), pm, bus
}

// 3pm keeps the night-owl rule out of the way.
var daytime = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func TestActivate_AppliesCatalogEffect(t *testing.T) {
	e, pm, _ := newEngine(daytime)
	e.Activate("focus_zone", 0)
	p := pm.Snapshot()
	if !pm.HasEffect("focus_zone") {
		t.Fatal("focus_zone not active")
	}
	if p.Stats.Focus != 70 {
		t.Errorf("focus = %d, want 70", p.Stats.Focus)
	}
}

func TestActivate_DuplicateIsNoop(t *testing.T) {
	// Re-activating an active effect must not stack its stat deltas.
	e, pm, _ := newEngine(daytime)
	e.Activate("focus_zone", 0)
	e.Activate("focus_zone", 0)
	if got := pm.Snapshot().Stats.Focus; got != 70 {
		t.Errorf("focus = %d, want 70", got)
	}
}

func TestActivate_UnknownIDIsNoop(t *testing.T) {
	e, pm, _ := newEngine(daytime)
	e.Activate("no_such_effect", 0)
	if n := len(pm.Snapshot().ActiveEffects); n != 0 {
		t.Errorf("active effects = %d, want 0", n)
	}
}

func TestDeactivate_RoundTripRestoresStats(t *testing.T) {
	// Activate then deactivate returns every gauge to its prior value.
	e, pm, _ := newEngine(daytime)
	before := pm.Snapshot().Stats
	e.Activate("creativity_spark", 0)
	e.Deactivate("creativity_spark")
	after := pm.Snapshot().Stats
	if before != after {
		t.Errorf("stats = %+v, want %+v", after, before)
	}
}

func TestSweepExpired_RemovesOnlyPastDeadline(t *testing.T) {
	bus := event.New()
	pm := player.NewManager(player.New("Tester"), bus, nil)
	now := daytime
	e := New(pm, bus, func() time.Time { return now })

	e.Activate("distraction_fog", 0) // 10 minute catalog duration
	e.Activate("focus_zone", 0)      // open-ended

	now = now.Add(11 * time.Minute)
	e.SweepExpired()

	if pm.HasEffect("distraction_fog") {
		t.Error("distraction_fog survived its deadline")
	}
	if !pm.HasEffect("focus_zone") {
		t.Error("open-ended focus_zone was swept")
	}
}

func TestObserveContext_FocusThresholds(t *testing.T) {
	// focus >= 0.8 activates the zone; < 0.3 tears it down.
	e, pm, _ := newEngine(daytime)
	e.ObserveContext(types.ContextRecord{Category: types.CategoryCoding, FocusScore: 0.85})
	if !pm.HasEffect("focus_zone") {
		t.Fatal("focus_zone not activated at 0.85")
	}
	e.ObserveContext(types.ContextRecord{Category: types.CategoryCoding, FocusScore: 0.2})
	if pm.HasEffect("focus_zone") {
		t.Error("focus_zone survived focus 0.2")
	}
}

func TestObserveContext_DistractedSocial(t *testing.T) {
	e, pm, _ := newEngine(daytime)
	e.ObserveContext(types.ContextRecord{Category: types.CategorySocial, FocusScore: 0.3})
	if !pm.HasEffect("distraction_fog") {
		t.Error("distraction_fog not activated")
	}
}

func TestObserveContext_NightOwlByClock(t *testing.T) {
	// After 23:00 the night-owl effect switches on; daytime switches it off.
	lateNight := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	bus := event.New()
	pm := player.NewManager(player.New("Tester"), bus, nil)
	now := lateNight
	e := New(pm, bus, func() time.Time { return now })

	e.ObserveContext(types.ContextRecord{Category: types.CategoryCoding, FocusScore: 0.5})
	if !pm.HasEffect("night_owl") {
		t.Fatal("night_owl not activated at 23:30")
	}

	now = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	e.ObserveContext(types.ContextRecord{Category: types.CategoryCoding, FocusScore: 0.5})
	if pm.HasEffect("night_owl") {
		t.Error("night_owl survived the morning")
	}
}

func TestPatternDetected_MapsToEffect(t *testing.T) {
	e, pm, bus := newEngine(daytime)
	_ = e
	res := bus.Publish(event.PatternDetected, types.PatternInfo{Pattern: "learning"})
	if !res.Ok() {
		t.Fatalf("publish errors: %v", res.Errors)
	}
	if !pm.HasEffect("learning_boost") {
		t.Error("learning_boost not activated for learning pattern")
	}
}

func TestMotiveInferred_MapsPatternToEffect(t *testing.T) {
	e, pm, bus := newEngine(daytime)
	_ = e
	bus.Publish(event.MotiveInferred, types.MotiveInfo{Motive: "escape", Pattern: "procrastination"})
	if !pm.HasEffect("procrastination_curse") {
		t.Error("procrastination_curse not activated")
	}
}

func TestCatalog_PenaltyDebuffsPresent(t *testing.T) {
	for _, id := range []string{"penalty_zone_1", "penalty_zone_2", "heart_stop_warning"} {
		def, ok := Catalog[id]
		if !ok || !def.Debuff {
			t.Errorf("catalog entry %s missing or not a debuff", id)
		}
	}
}
