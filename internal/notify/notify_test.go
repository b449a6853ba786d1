package notify

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

var daytime = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newEngine() (*Engine, *event.Bus) {
	bus := event.New()
	return New(bus, func() time.Time { return daytime }), bus
}

func TestDrain_ReturnsAndClearsQueue(t *testing.T) {
	e, _ := newEngine()
	e.Push("one", "first", "info")
	e.Push("two", "second", "info")

	got := e.Drain()
	if len(got) != 2 || got[0].Title != "one" || got[1].Title != "two" {
		t.Fatalf("drained = %+v", got)
	}
	if e.Pending() != 0 {
		t.Errorf("pending after drain = %d, want 0", e.Pending())
	}
}

func TestQueue_DropsOldestPastBound(t *testing.T) {
	e, _ := newEngine()
	for i := 0; i < maxPending+20; i++ {
		e.Push(fmt.Sprintf("n%d", i), "", "info")
	}
	got := e.Drain()
	if len(got) != maxPending {
		t.Fatalf("pending = %d, want %d", len(got), maxPending)
	}
	if got[0].Title != "n20" {
		t.Errorf("oldest kept = %s, want n20", got[0].Title)
	}
}

func TestDirectPublish_LandsInQueue(t *testing.T) {
	// Notifications published by other subsystems share the queue.
	e, bus := newEngine()
	bus.Publish(event.NotificationPush, types.Notification{Title: "Arise.", Style: "army"})
	got := e.Drain()
	if len(got) != 1 || got[0].Title != "Arise." {
		t.Errorf("drained = %+v", got)
	}
}

func TestQuestEvents_Formatted(t *testing.T) {
	e, bus := newEngine()
	bus.Publish(event.QuestTriggered, types.QuestInfo{
		Title: "Morning Training", Type: "daily", Difficulty: "D", ExpReward: 20,
	})
	bus.Publish(event.QuestCompleted, types.QuestInfo{Title: "Morning Training", ExpEarned: 20})
	bus.Publish(event.QuestFailed, types.QuestInfo{Title: "Focus Hour", Reason: "expired"})

	got := e.Drain()
	if len(got) != 3 {
		t.Fatalf("queue = %d entries, want 3", len(got))
	}
	if got[0].Title != "New daily quest" || !strings.Contains(got[0].Message, "[D]") {
		t.Errorf("triggered = %+v", got[0])
	}
	if !strings.Contains(got[1].Message, "Earned 20 exp") {
		t.Errorf("completed = %+v", got[1])
	}
	if !strings.Contains(got[2].Message, "deadline") {
		t.Errorf("failed = %+v", got[2])
	}
}

func TestBuffActivated_ListsEffects(t *testing.T) {
	e, bus := newEngine()
	bus.Publish(event.BuffActivated, types.EffectInfo{
		Name:    "Focus Zone",
		Effects: map[string]float64{"focus": 20, "exp_multiplier": 1.5},
	})
	got := e.Drain()
	if len(got) != 1 || !strings.Contains(got[0].Message, "focus +20") ||
		!strings.Contains(got[0].Message, "exp x1.5") {
		t.Errorf("buff notification = %+v", got)
	}
}

func TestLevelUp_MentionsNewTitle(t *testing.T) {
	e, bus := newEngine()
	bus.Publish(event.LevelUp, types.LevelUpInfo{NewLevel: 3, Title: "E-Rank Hunter", TitleChanged: true})
	got := e.Drain()
	if len(got) != 1 || !strings.Contains(got[0].Message, "E-Rank Hunter") {
		t.Errorf("level-up notification = %+v", got)
	}
}

func TestExpGained_SmallGainsStaySilent(t *testing.T) {
	// The passive drip never notifies; only substantial gains do.
	e, bus := newEngine()
	bus.Publish(event.ExpGained, types.ExpGainInfo{Amount: 10, Source: "passive:coding"})
	if e.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", e.Pending())
	}
	bus.Publish(event.ExpGained, types.ExpGainInfo{Amount: 45, Source: "quest:q1", Multiplier: 1.5})
	got := e.Drain()
	if len(got) != 1 || !strings.Contains(got[0].Message, "+45 exp") {
		t.Errorf("exp notification = %+v", got)
	}
}
