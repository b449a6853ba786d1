// Package notify turns progression events into player-facing notifications
// and keeps the bounded pending queue the presentation layer drains.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

// maxPending bounds the queue; the oldest entries fall off first.
const maxPending = 100

// expNoticeFloor keeps small passive gains from flooding the queue.
const expNoticeFloor = 30

var questTypeLabels = map[string]string{
	"daily":     "daily quest",
	"main":      "main quest",
	"side":      "side quest",
	"hidden":    "hidden quest",
	"emergency": "emergency quest",
}

// Engine formats progression events into notifications. Every notification,
// whether formatted here or published directly by another subsystem, lands
// in the same pending queue.
type Engine struct {
	mu      sync.Mutex
	bus     *event.Bus
	now     func() time.Time
	pending []types.Notification
}

// New wires the engine onto the bus. A nil now defaults to time.Now.
func New(bus *event.Bus, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	e := &Engine{bus: bus, now: now}
	bus.Subscribe(event.NotificationPush, "notify", e.onPush)
	bus.Subscribe(event.QuestTriggered, "notify", e.onQuestTriggered)
	bus.Subscribe(event.QuestCompleted, "notify", e.onQuestCompleted)
	bus.Subscribe(event.QuestFailed, "notify", e.onQuestFailed)
	bus.Subscribe(event.BuffActivated, "notify", e.onBuffActivated)
	bus.Subscribe(event.DebuffActivated, "notify", e.onDebuffActivated)
	bus.Subscribe(event.LevelUp, "notify", e.onLevelUp)
	bus.Subscribe(event.ExpGained, "notify", e.onExpGained)
	return e
}

// Push formats and publishes a notification. It lands in the pending queue
// via the bus like every other one.
func (e *Engine) Push(title, message, style string) {
	e.bus.Publish(event.NotificationPush, types.Notification{
		Title:     title,
		Message:   message,
		Style:     style,
		Timestamp: e.now(),
	})
}

// Drain returns the pending notifications and clears the queue.
func (e *Engine) Drain() []types.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.pending
	e.pending = nil
	return out
}

// Pending returns the queue length.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

func (e *Engine) onPush(ev event.Event) error {
	n, ok := ev.Payload.(types.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	e.mu.Lock()
	e.pending = append(e.pending, n)
	if len(e.pending) > maxPending {
		e.pending = e.pending[len(e.pending)-maxPending:]
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) onQuestTriggered(ev event.Event) error {
	q, ok := ev.Payload.(types.QuestInfo)
	if !ok {
		return nil
	}
	label, ok := questTypeLabels[q.Type]
	if !ok {
		label = "quest"
	}
	e.Push(
		"New "+label,
		fmt.Sprintf("[%s] %s\nReward: %d exp", q.Difficulty, q.Title, q.ExpReward),
		"quest",
	)
	return nil
}

func (e *Engine) onQuestCompleted(ev event.Event) error {
	q, ok := ev.Payload.(types.QuestInfo)
	if !ok {
		return nil
	}
	e.Push("Quest complete", fmt.Sprintf("%s\nEarned %d exp", q.Title, q.ExpEarned), "quest")
	return nil
}

func (e *Engine) onQuestFailed(ev event.Event) error {
	q, ok := ev.Payload.(types.QuestInfo)
	if !ok {
		return nil
	}
	msg := q.Title
	if q.Reason == "expired" {
		msg += "\nThe deadline has passed."
	}
	e.Push("Quest failed", msg, "warning")
	return nil
}

func (e *Engine) onBuffActivated(ev event.Event) error {
	info, ok := ev.Payload.(types.EffectInfo)
	if !ok {
		return nil
	}
	var parts []string
	for stat, v := range info.Effects {
		if stat == "exp_multiplier" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %+d", stat, int(v)))
	}
	if mult, ok := info.Effects["exp_multiplier"]; ok {
		parts = append(parts, fmt.Sprintf("exp x%.1f", mult))
	}
	e.Push("Buff activated", info.Name+"\n"+strings.Join(parts, ", "), "buff")
	return nil
}

func (e *Engine) onDebuffActivated(ev event.Event) error {
	info, ok := ev.Payload.(types.EffectInfo)
	if !ok {
		return nil
	}
	e.Push("Debuff triggered", info.Name, "debuff")
	return nil
}

func (e *Engine) onLevelUp(ev event.Event) error {
	info, ok := ev.Payload.(types.LevelUpInfo)
	if !ok {
		return nil
	}
	msg := fmt.Sprintf("Level raised to %d.", info.NewLevel)
	if info.TitleChanged {
		msg += "\nNew title: " + info.Title
	}
	e.Push("Level up", msg, "levelup")
	return nil
}

// Only substantial gains get a notification; the drip stays silent.
func (e *Engine) onExpGained(ev event.Event) error {
	info, ok := ev.Payload.(types.ExpGainInfo)
	if !ok {
		return nil
	}
	if info.Amount < expNoticeFloor {
		return nil
	}
	msg := fmt.Sprintf("+%d exp", info.Amount)
	if info.Multiplier > 1.0 {
		msg += fmt.Sprintf(" (x%.2f bonus)", info.Multiplier)
	}
	e.Push("Exp gained", msg, "exp")
	return nil
}
