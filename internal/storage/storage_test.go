package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/quest"
	"github.com/junhyuk-oh/arise/internal/trigger"
	"github.com/junhyuk-oh/arise/internal/types"
)

var daytime = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "arise.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPlayer_SaveLoadRoundTrip(t *testing.T) {
	db := openDB(t)

	p := player.New("Hunter")
	p.Level = 4
	p.Exp = 120
	p.Stats.Focus = 72
	expires := daytime.Add(time.Hour)
	p.ActiveEffects = []player.ActiveEffect{{
		ID: "focus_zone", Name: "Focus Zone",
		Effects:     map[string]float64{"focus": 20, "exp_multiplier": 1.5},
		ActivatedAt: daytime, ExpiresAt: &expires,
	}}
	if err := db.SavePlayer(*p); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.LoadPlayer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Level != 4 || got.Exp != 120 || got.Stats.Focus != 72 {
		t.Errorf("loaded = %+v", got)
	}
	if len(got.ActiveEffects) != 1 || got.ActiveEffects[0].Effects["exp_multiplier"] != 1.5 {
		t.Errorf("effects = %+v", got.ActiveEffects)
	}
}

func TestLoadPlayer_NoSaveIsNil(t *testing.T) {
	db := openDB(t)
	got, err := db.LoadPlayer()
	if err != nil || got != nil {
		t.Errorf("load = %+v, %v, want nil, nil", got, err)
	}
}

func TestSavePlayer_SecondSaveOverwrites(t *testing.T) {
	db := openDB(t)
	p := player.New("Hunter")
	db.SavePlayer(*p)
	p.Level = 9
	db.SavePlayer(*p)

	got, err := db.LoadPlayer()
	if err != nil || got.Level != 9 {
		t.Errorf("loaded level = %+v, %v, want 9", got, err)
	}
}

func TestQuests_ActiveFilterAndOrder(t *testing.T) {
	db := openDB(t)
	deadline := daytime.Add(8 * time.Hour)
	quests := []quest.Quest{
		{ID: "q1", Type: "daily", Title: "first", Description: "d", Difficulty: "D",
			Status: quest.StatusActive, ExpReward: 20, Source: "daily",
			CreatedAt: daytime, Deadline: &deadline},
		{ID: "q2", Type: "side", Title: "second", Description: "d", Difficulty: "C",
			Status: quest.StatusActive, ExpReward: 30, Source: "auto",
			CreatedAt: daytime.Add(time.Minute)},
		{ID: "q3", Type: "side", Title: "done", Description: "d", Difficulty: "C",
			Status: quest.StatusCompleted, ExpReward: 30, Source: "auto",
			CreatedAt: daytime},
	}
	if err := db.SaveQuests(quests); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.ActiveQuests()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].ID != "q1" || got[1].ID != "q2" {
		t.Fatalf("active = %+v", got)
	}
	if got[0].Deadline == nil || !got[0].Deadline.Equal(deadline) {
		t.Errorf("deadline = %v, want %v", got[0].Deadline, deadline)
	}
	if got[1].Deadline != nil {
		t.Errorf("q2 deadline = %v, want nil", got[1].Deadline)
	}
}

func TestSnapshots_NewestFirstWithLimit(t *testing.T) {
	db := openDB(t)
	for i := 0; i < 5; i++ {
		rec := types.ContextRecord{
			Category: "coding", FocusScore: 0.8, Activity: "editor",
			Timestamp: daytime.Add(time.Duration(i) * time.Minute),
		}
		if err := db.SaveSnapshot(rec); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	got, err := db.RecentSnapshots(3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 || !got[0].Timestamp.After(got[2].Timestamp) {
		t.Errorf("snapshots = %+v", got)
	}
}

func TestStateKV_RoundTrip(t *testing.T) {
	kv, err := OpenState(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer kv.Close()

	in := trigger.State{
		Triggered:  []string{"first_blood"},
		Cooldowns:  map[string]time.Time{"marathon_coder": daytime},
		StreakDays: 3,
	}
	if err := kv.PutState("trigger", in); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out trigger.State
	ok, err := kv.GetState("trigger", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(out.Triggered) != 1 || out.Triggered[0] != "first_blood" || out.StreakDays != 3 ||
		!out.Cooldowns["marathon_coder"].Equal(daytime) {
		t.Errorf("state = %+v", out)
	}
}

func TestStateKV_MissingBlob(t *testing.T) {
	kv, err := OpenState(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer kv.Close()

	var out trigger.State
	ok, err := kv.GetState("achievement", &out)
	if err != nil || ok {
		t.Errorf("get missing = ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestStateKV_ListsStoredNames(t *testing.T) {
	kv, err := OpenState(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer kv.Close()

	kv.PutState("penalty", map[string]int{"consecutive_fails": 2})
	kv.PutState("army", []string{})
	names, err := kv.StateNames()
	if err != nil || len(names) != 2 {
		t.Errorf("names = %v, %v", names, err)
	}
}
