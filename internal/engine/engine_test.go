package engine

import (
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/army"
	"github.com/junhyuk-oh/arise/internal/config"
	"github.com/junhyuk-oh/arise/internal/storage"
	"github.com/junhyuk-oh/arise/internal/types"
)

var daytime = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) (*Engine, *time.Time) {
	t.Helper()
	now := daytime
	e, err := New(config.Default(), nil, nil, nil,
		func() time.Time { return now }, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e, &now
}

func coding(focus float64) types.ContextRecord {
	return types.ContextRecord{Category: "coding", FocusScore: focus, Activity: "editor"}
}

func TestIngest_DeepWorkEndToEnd(t *testing.T) {
	// Three high-focus coding records cascade through the whole engine:
	// passive exp with streak bonus, the deep-focus pattern, the focus-zone
	// buff.
	e, _ := newEngine(t)

	for i := 0; i < 3; i++ {
		e.IngestContext(coding(0.9))
	}

	if got := e.Reward.FocusStreak(); got != 3 {
		t.Errorf("focus streak = %d, want 3", got)
	}
	if p, _, _ := e.Patterns.Current(); p != "deep_focus" {
		t.Errorf("pattern = %s, want deep_focus", p)
	}
	if !e.Players.HasEffect("focus_zone") {
		t.Error("focus_zone not active after sustained high focus")
	}
	if exp := e.Players.Snapshot().Exp; exp == 0 {
		t.Error("no exp earned from passive activity")
	}
}

func TestQuestCompletion_FiresFirstBloodTrigger(t *testing.T) {
	// Completing the first quest satisfies the quests_completed milestone;
	// the next evaluation announces the hidden quest.
	e, _ := newEngine(t)
	dailies := e.Quests.GenerateDaily()
	if err := e.CompleteQuest(dailies[0].ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	e.IngestContext(coding(0.5))

	var seen bool
	for _, n := range e.Notifier.Drain() {
		if strings.HasPrefix(n.Title, "Hidden quest: First Blood") {
			seen = true
		}
	}
	if !seen {
		t.Error("first_blood did not fire after the first completion")
	}
}

func TestTick_MidnightRollover(t *testing.T) {
	// Crossing midnight expires yesterday's dailies, climbs the penalty
	// ladder for the missed day and issues fresh dailies.
	e, now := newEngine(t)
	*now = time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)
	e.Quests.GenerateDaily()
	e.Tick(nil)

	*now = time.Date(2026, 3, 11, 0, 10, 0, 0, time.UTC)
	e.Tick(nil)

	if got := e.Penalties.Status()["consecutive_fails"]; got != 1 {
		t.Errorf("consecutive_fails = %v, want 1", got)
	}
	active := e.Quests.Active()
	if len(active) != 3 {
		t.Fatalf("active quests = %d, want 3 fresh dailies", len(active))
	}
	for _, q := range active {
		if !strings.HasPrefix(q.ID, "daily_20260311") {
			t.Errorf("stale quest still active: %s", q.ID)
		}
	}
}

func TestTick_ClearedDayEscapesPenalty(t *testing.T) {
	e, now := newEngine(t)
	*now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	dailies := e.Quests.GenerateDaily()
	for _, q := range dailies {
		if err := e.CompleteQuest(q.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	e.Tick(nil)

	*now = time.Date(2026, 3, 11, 0, 10, 0, 0, time.UTC)
	e.Tick(nil)
	if got := e.Penalties.Status()["consecutive_fails"]; got != 0 {
		t.Errorf("consecutive_fails = %v, want 0", got)
	}
}

func TestPurchaseItem_AppliesStatEffect(t *testing.T) {
	e, _ := newEngine(t)
	e.Shop.AddGold(100, "test")

	if _, err := e.PurchaseItem("potion_focus"); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got := e.Players.Snapshot().Stats.Focus; got != 65 {
		t.Errorf("focus = %d, want 65", got)
	}
}

func TestCastSkill_UnlocksFirstActivation(t *testing.T) {
	e, _ := newEngine(t)
	e.Players.GainExp(100, "setup") // reach level 2 for stealth

	if _, err := e.CastSkill("stealth"); err != nil {
		t.Fatalf("cast: %v", err)
	}
	unlocked := false
	for _, a := range e.Achievements.All() {
		if a.ID == "skill_first_activate" && a.Unlocked {
			unlocked = true
		}
	}
	if !unlocked {
		t.Error("first skill activation achievement not unlocked")
	}
}

func TestSaveAndRestore_AcrossEngines(t *testing.T) {
	// A second engine over the same storage picks up the player, quests and
	// subsystem state the first one saved.
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "arise.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	kv, err := storage.OpenState(filepath.Join(dir, "state"))
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}

	now := daytime
	clock := func() time.Time { return now }
	e1, err := New(config.Default(), db, kv, nil, clock, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e1.Players.GainExp(150, "setup")
	if _, err := e1.Army.Extract(army.Extraction{
		Name: "Mail Scout Iron", Type: army.TypeGuardian, Rank: army.RankNormal,
	}, 5); err != nil {
		t.Fatalf("extract: %v", err)
	}
	e1.Quests.GenerateDaily()
	e1.Save()

	e2, err := New(config.Default(), db, kv, nil, clock, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("second engine: %v", err)
	}
	p := e2.Players.Snapshot()
	if p.Level != 2 || p.Exp != 50 {
		t.Errorf("restored player = level %d exp %d, want 2/50", p.Level, p.Exp)
	}
	if e2.Army.Size() != 1 {
		t.Errorf("restored army size = %d, want 1", e2.Army.Size())
	}
	if len(e2.Quests.Active()) != 3 {
		t.Errorf("restored quests = %d, want 3", len(e2.Quests.Active()))
	}

	db.Close()
	kv.Close()
}

func TestStatus_Shape(t *testing.T) {
	e, _ := newEngine(t)
	st := e.Status()
	pl, ok := st["player"].(map[string]any)
	if !ok || pl["level"] != 1 || pl["name"] != "Hunter" {
		t.Errorf("status player = %+v", st["player"])
	}
	if _, ok := st["achievements"]; !ok {
		t.Error("status missing achievements")
	}
}
