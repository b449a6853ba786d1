// Package engine assembles the whole system: the bus, every subsystem, the
// tick driver and persistence. The daemon constructs one Engine and hands
// it to the API layer; nothing here is a singleton.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/achievement"
	"github.com/junhyuk-oh/arise/internal/army"
	"github.com/junhyuk-oh/arise/internal/config"
	"github.com/junhyuk-oh/arise/internal/effect"
	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/journal"
	"github.com/junhyuk-oh/arise/internal/notify"
	"github.com/junhyuk-oh/arise/internal/pattern"
	"github.com/junhyuk-oh/arise/internal/penalty"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/quest"
	"github.com/junhyuk-oh/arise/internal/report"
	"github.com/junhyuk-oh/arise/internal/reward"
	"github.com/junhyuk-oh/arise/internal/shop"
	"github.com/junhyuk-oh/arise/internal/skill"
	"github.com/junhyuk-oh/arise/internal/storage"
	"github.com/junhyuk-oh/arise/internal/trigger"
	"github.com/junhyuk-oh/arise/internal/types"
)

// deviceWindow is how recently a device must have reported to count as
// active for the multi-device triggers.
const deviceWindow = 10 * time.Minute

// rewardState is the persisted blob for the reward engine's counters.
type rewardState struct {
	FocusStreak     int `json:"focus_streak"`
	LastStreakPaid  int `json:"last_streak_bonus_at"`
	TotalPassiveExp int `json:"total_passive_exp"`
}

// Engine owns the bus and every subsystem.
type Engine struct {
	cfg config.Config
	bus *event.Bus
	now func() time.Time
	rnd *rand.Rand

	Players      *player.Manager
	Reward       *reward.Engine
	Effects      *effect.Engine
	Patterns     *pattern.Detector
	Quests       *quest.Engine
	Triggers     *trigger.Detector
	Achievements *achievement.Engine
	Army         *army.Registry
	Penalties    *penalty.System
	Shop         *shop.Shop
	Skills       *skill.System
	Notifier     *notify.Engine
	Reports      *report.Generator // nil without persistent storage

	db  *storage.DB
	kv  *storage.StateKV
	jnl *journal.Journal

	mu           sync.Mutex
	devices      map[string]time.Time
	lastContext  *types.ContextRecord
	dailyCleared bool
	lastDay      string

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New constructs the engine: loads the saved player (or creates a fresh
// one), wires every subsystem onto a new bus and restores persisted state.
// db, kv and jnl may be nil for an ephemeral engine; now and rnd may be nil.
func New(cfg config.Config, db *storage.DB, kv *storage.StateKV, jnl *journal.Journal, now func() time.Time, rnd *rand.Rand) (*Engine, error) {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	bus := event.New()

	var p *player.Player
	if db != nil {
		saved, err := db.LoadPlayer()
		if err != nil {
			return nil, fmt.Errorf("load player: %w", err)
		}
		p = saved
	}
	if p == nil {
		p = player.New(cfg.PlayerName)
	}
	pm := player.NewManager(p, bus, now)

	e := &Engine{
		cfg:     cfg,
		bus:     bus,
		now:     now,
		rnd:     rnd,
		Players: pm,
		db:      db,
		kv:      kv,
		jnl:     jnl,
		devices: make(map[string]time.Time),
		lastDay: now().Format("2006-01-02"),
		stopCh:  make(chan struct{}),
	}

	var store quest.Store
	if db != nil {
		store = db
	}
	e.Reward = reward.New(pm, bus)
	e.Effects = effect.New(pm, bus, now)
	e.Patterns = pattern.New(bus, now)
	e.Quests = quest.New(pm, bus, store, now)
	e.Triggers = trigger.New(now, rnd)
	e.Achievements = achievement.New(pm, bus, now)
	e.Army = army.New(bus, now)
	e.Penalties = penalty.New(pm, bus, now)
	e.Shop = shop.New(bus, now)
	e.Skills = skill.New(bus, now)
	e.Notifier = notify.New(bus, now)
	if db != nil {
		e.Reports = report.New(db, now)
	}

	if err := e.restore(); err != nil {
		return nil, err
	}

	bus.Subscribe(event.ContextAnalyzed, "engine", e.onContext)
	bus.Subscribe(event.QuestCompleted, "engine", e.onQuestCompleted)
	bus.Subscribe(event.AgentExtracted, "engine", e.onAgentChange)
	bus.Subscribe(event.AgentLevelUp, "engine", e.onAgentChange)
	bus.Subscribe(event.ExpGained, "engine", e.onExpGained)

	if jnl != nil {
		go jnl.Pump(bus.Tap())
	}
	return e, nil
}

// restore reloads quests from SQLite and subsystem blobs from the state
// store. Missing blobs are fresh-start, not errors.
func (e *Engine) restore() error {
	if e.db != nil {
		quests, err := e.db.AllQuests()
		if err != nil {
			return fmt.Errorf("restore quests: %w", err)
		}
		e.Quests.Restore(quests)
		e.dailyCleared = e.Quests.DailyDoneToday()
	}
	if e.kv == nil {
		return nil
	}

	var ts trigger.State
	if ok, err := e.kv.GetState("trigger", &ts); err != nil {
		return err
	} else if ok {
		e.Triggers.Restore(ts)
	}
	var as achievement.State
	if ok, err := e.kv.GetState("achievement", &as); err != nil {
		return err
	} else if ok {
		e.Achievements.Restore(as)
	}
	var ps penalty.State
	if ok, err := e.kv.GetState("penalty", &ps); err != nil {
		return err
	} else if ok {
		e.Penalties.Restore(ps)
	}
	var agents []army.Agent
	if ok, err := e.kv.GetState("army", &agents); err != nil {
		return err
	} else if ok {
		e.Army.Restore(agents)
	}
	var ss shop.State
	if ok, err := e.kv.GetState("shop", &ss); err != nil {
		return err
	} else if ok {
		e.Shop.Restore(ss)
	}
	var ks skill.State
	if ok, err := e.kv.GetState("skill", &ks); err != nil {
		return err
	} else if ok {
		e.Skills.Restore(ks)
	}
	var rs rewardState
	if ok, err := e.kv.GetState("reward", &rs); err != nil {
		return err
	} else if ok {
		e.Reward.RestoreState(rs.FocusStreak, rs.LastStreakPaid, rs.TotalPassiveExp)
	}
	return nil
}

// Save persists the player and every subsystem blob. Failures are logged;
// the engine keeps running on stale saves.
func (e *Engine) Save() {
	if e.db != nil {
		if err := e.db.SavePlayer(e.Players.Snapshot()); err != nil {
			slog.Warn("player save failed", "error", err)
		}
	}
	if e.kv == nil {
		return
	}
	stats := e.Reward.Stats()
	blobs := map[string]any{
		"trigger":     e.Triggers.Snapshot(),
		"achievement": e.Achievements.Snapshot(),
		"penalty":     e.Penalties.Snapshot(),
		"army":        e.Army.Snapshot(),
		"shop":        e.Shop.Snapshot(),
		"skill":       e.Skills.Snapshot(),
		"reward": rewardState{
			FocusStreak:     stats["focus_streak"],
			LastStreakPaid:  stats["last_streak_bonus_at"],
			TotalPassiveExp: stats["total_passive_exp"],
		},
	}
	for name, blob := range blobs {
		if err := e.kv.PutState(name, blob); err != nil {
			slog.Warn("state save failed", "subsystem", name, "error", err)
		}
	}
}

// IngestContext feeds one classified activity record into the system. A
// zero timestamp is stamped with the engine clock.
func (e *Engine) IngestContext(rec types.ContextRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = e.now()
	}
	e.bus.PublishFrom(event.ContextAnalyzed, rec, "ingest")
}

// IngestWindow feeds one window-focus change into the system.
func (e *Engine) IngestWindow(w types.WindowEvent) {
	if w.Timestamp.IsZero() {
		w.Timestamp = e.now()
	}
	e.bus.PublishFrom(event.WindowChanged, w, "ingest")
}

// IngestMotive feeds a deeper analysis result (motive plus suggested
// quests) into the system.
func (e *Engine) IngestMotive(info types.MotiveInfo) {
	e.bus.PublishFrom(event.MotiveInferred, info, "ingest")
}

func (e *Engine) onContext(ev event.Event) error {
	rec, ok := ev.Payload.(types.ContextRecord)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}

	e.mu.Lock()
	if rec.DeviceID != "" {
		e.devices[rec.DeviceID] = rec.Timestamp
	}
	cp := rec
	e.lastContext = &cp
	e.mu.Unlock()

	if e.db != nil {
		if err := e.db.SaveSnapshot(rec); err != nil {
			slog.Warn("snapshot save failed", "error", err)
		}
	}

	e.fireTriggers(e.triggerInput(&rec))
	return nil
}

func (e *Engine) onQuestCompleted(ev event.Event) error {
	if e.Quests.DailyDoneToday() {
		e.mu.Lock()
		e.dailyCleared = true
		e.mu.Unlock()
		e.Achievements.CheckAllDailyDone()
	}
	return nil
}

func (e *Engine) onAgentChange(event.Event) error {
	e.Achievements.CheckArmy(e.Army.Size(), e.Army.MaxAgentLevel())
	return nil
}

func (e *Engine) onExpGained(ev event.Event) error {
	info, ok := ev.Payload.(types.ExpGainInfo)
	if !ok {
		return nil
	}
	if strings.HasPrefix(info.Source, "passive:") {
		e.Achievements.CheckPassiveExp(e.Reward.TotalPassiveExp())
	}
	return nil
}

// triggerInput assembles a detector snapshot. rec may be nil (clock-driven
// evaluation between activity reports).
func (e *Engine) triggerInput(rec *types.ContextRecord) trigger.Input {
	e.mu.Lock()
	if rec == nil {
		rec = e.lastContext
	}
	active := 0
	cutoff := e.now().Add(-deviceWindow)
	for _, seen := range e.devices {
		if seen.After(cutoff) {
			active++
		}
	}
	e.mu.Unlock()

	in := trigger.Input{
		PlayerLevel:     e.Players.Level(),
		QuestsCompleted: e.Players.Snapshot().QuestsDone,
		ArmySize:        e.Army.Size(),
		DailyAllDone:    e.Quests.DailyDoneToday(),
		SideQuestsDone:  e.Quests.CompletedToday(quest.TypeSide),
		ActiveDevices:   active,
	}
	cur, _, _ := e.Patterns.Current()
	in.Pattern = cur
	if rec != nil {
		in.Category = rec.Category
		in.FocusScore = rec.FocusScore
		in.DeviceID = rec.DeviceID
	}
	return in
}

// fireTriggers evaluates the hidden catalog and settles whatever fired:
// exp, bonus title, bonus effect, system message.
func (e *Engine) fireTriggers(in trigger.Input) {
	for _, def := range e.Triggers.Evaluate(in) {
		slog.Info("hidden quest fired", "id", def.ID, "title", def.Title)
		if def.ExpReward > 0 {
			e.Players.GainExp(def.ExpReward, "hidden:"+def.ID)
		}
		if def.BonusTitle != "" {
			e.Players.AddTitle(def.BonusTitle)
		}
		if def.BonusEffect != "" {
			e.Effects.Activate(def.BonusEffect, 0)
		}
		e.bus.Publish(event.NotificationPush, types.Notification{
			Title:     "Hidden quest: " + def.Title,
			Message:   def.SystemMessage,
			Style:     "hidden",
			Timestamp: e.now(),
		})
	}
}

// CompleteQuest settles a quest as done.
func (e *Engine) CompleteQuest(id string) error {
	return e.Quests.Complete(id)
}

// PurchaseItem buys a shop item and applies its effect to the player.
func (e *Engine) PurchaseItem(itemID string) (*shop.Receipt, error) {
	r, err := e.Shop.Purchase(itemID, e.Players.Level())
	if err != nil {
		return nil, err
	}
	e.applyItem(r.Effect)
	return r, nil
}

func (e *Engine) applyItem(fx shop.Effect) {
	switch {
	case fx.Lootbox != "":
		e.applyLootbox(fx.Lootbox)
	case fx.ResetStats:
		current := e.Players.Snapshot().Stats
		changes := make(map[string]int, len(player.StatNames))
		for _, name := range player.StatNames {
			changes[name] = 50 - current.Get(name)
		}
		e.Players.UpdateStats(changes)
	default:
		if len(fx.Stats) > 0 {
			e.Players.UpdateStats(fx.Stats)
		}
		if fx.Exp > 0 {
			e.Players.GainExp(fx.Exp, "shop")
		}
		if fx.BuffID != "" {
			e.Effects.Activate(fx.BuffID, fx.BuffDuration)
		}
	}
}

// positiveBoxBuffs are the rolls for the blessed random box.
var positiveBoxBuffs = []string{"creativity_spark", "learning_boost", "early_bird", "double_exp"}

// applyLootbox rolls a random box. The blessed box grants a random buff;
// the cursed box shores up the player's weakest gauge.
func (e *Engine) applyLootbox(kind string) {
	if kind == "positive" {
		e.Effects.Activate(positiveBoxBuffs[e.rnd.Intn(len(positiveBoxBuffs))], 30*time.Minute)
		return
	}
	stats := e.Players.Snapshot().Stats
	lowest := player.StatNames[0]
	for _, name := range player.StatNames[1:] {
		if stats.Get(name) < stats.Get(lowest) {
			lowest = name
		}
	}
	e.Players.UpdateStats(map[string]int{lowest: 10})
}

// CastSkill activates an active skill, counting the first cast toward its
// achievement.
func (e *Engine) CastSkill(skillID string) (*skill.Cast, error) {
	c, err := e.Skills.Activate(skillID, e.Players.Level())
	if err != nil {
		return nil, err
	}
	e.Achievements.CheckSkillActivation()
	return c, nil
}

// ExtractAgent raises a shadow soldier from a template.
func (e *Engine) ExtractAgent(templateID string) (*army.Agent, error) {
	return e.Army.ExtractTemplate(templateID, e.Players.Level())
}

// Status assembles the serializable engine overview for the API.
func (e *Engine) Status() map[string]any {
	p := e.Players.Snapshot()
	patternTag, _, held := e.Patterns.Current()
	return map[string]any{
		"player": map[string]any{
			"name":        p.Name,
			"level":       p.Level,
			"exp":         p.Exp,
			"exp_to_next": p.ExpToNext(),
			"title":       p.Title,
			"stats":       p.Stats.Map(),
			"quests_done": p.QuestsDone,
			"effects":     p.ActiveEffects,
		},
		"pattern": map[string]any{
			"current":      patternTag,
			"held_minutes": int(held.Minutes()),
		},
		"reward":        e.Reward.Stats(),
		"penalty":       e.Penalties.Status(),
		"gold":          e.Shop.Gold(),
		"army_power":    e.Army.Power(),
		"army_size":     e.Army.Size(),
		"achievements":  e.Achievements.Progress(),
		"hidden_quests": e.Triggers.Status(),
		"active_quests": len(e.Quests.Active()),
	}
}

// Bus exposes the event bus for the API's history endpoint.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}
