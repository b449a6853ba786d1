package engine

import (
	"log/slog"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

// Start publishes SystemStart, generates today's dailies and launches the
// tick driver.
func (e *Engine) Start() {
	e.bus.Publish(event.SystemStart, nil)
	e.Quests.GenerateDaily()
	e.wg.Add(1)
	go e.run()
	slog.Info("engine started", "tick_interval", e.cfg.TickInterval)
}

func (e *Engine) run() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	lastSave := e.now()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.Tick(&lastSave)
		}
	}
}

// Tick runs one driver pass: effect sweep, quest expiry, trigger
// evaluation, the midnight rollover and the periodic save.
func (e *Engine) Tick(lastSave *time.Time) {
	now := e.now()
	e.bus.Publish(event.SystemTick, now)
	e.Quests.CheckExpired()
	e.fireTriggers(e.triggerInput(nil))

	day := now.Format("2006-01-02")
	e.mu.Lock()
	rolled := day != e.lastDay
	if rolled {
		e.lastDay = day
	}
	e.mu.Unlock()
	if rolled {
		e.rollover()
	}

	if lastSave != nil && now.Sub(*lastSave) >= e.cfg.SaveInterval {
		e.Save()
		*lastSave = now
	}
}

// rollover is the midnight pass: settle yesterday's dailies against the
// penalty ladder, reset the per-day trackers and issue today's quests.
func (e *Engine) rollover() {
	e.mu.Lock()
	cleared := e.dailyCleared
	e.dailyCleared = false
	e.mu.Unlock()

	out := e.Penalties.CheckDaily(cleared)
	if out != nil {
		slog.Info("daily check missed", "consecutive_fails", out.ConsecutiveFails, "rung", out.RungName)
		if out.DebuffID != "" {
			e.Effects.Activate(out.DebuffID, 0)
		}
		if out.Forced != nil {
			e.Quests.CreateFromSuggestion(types.QuestSuggestion{
				Title:       out.Forced.Title,
				Description: out.Forced.Description,
				Type:        "emergency",
				Difficulty:  out.Forced.Difficulty,
				ExpReward:   out.Forced.ExpReward,
			})
		}
	}

	e.Triggers.ResetDaily()
	e.Achievements.CheckDailyStreak(e.Triggers.StreakDays())
	e.Quests.GenerateDaily()
}

// Stop halts the tick driver, runs a final save and closes the bus. The
// journal pump drains before its file closes. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.wg.Wait()
		e.Save()
		e.bus.Publish(event.SystemStop, nil)
		e.bus.Close()
		if e.jnl != nil {
			e.jnl.Wait()
			if err := e.jnl.Close(); err != nil {
				slog.Warn("journal close failed", "error", err)
			}
		}
		slog.Info("engine stopped")
	})
}
