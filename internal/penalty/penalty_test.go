package penalty

import (
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/player"
	"github.com/junhyuk-oh/arise/internal/types"
)

var day1 = time.Date(2026, 3, 10, 23, 50, 0, 0, time.UTC)

func newSystem() (*System, *player.Manager, *time.Time) {
	s, pm, now, _ := newSystemWithBus()
	return s, pm, now
}

func newSystemWithBus() (*System, *player.Manager, *time.Time, *event.Bus) {
	bus := event.New()
	pm := player.NewManager(player.New("Tester"), bus, nil)
	now := day1
	return New(pm, bus, func() time.Time { return now }), pm, &now, bus
}

func TestCheckDaily_OncePerDay(t *testing.T) {
	// The second check of the same day is a no-op.
	s, _, _ := newSystem()
	if out := s.CheckDaily(false); out == nil || out.ConsecutiveFails != 1 {
		t.Fatalf("first check = %+v, want fails 1", out)
	}
	if out := s.CheckDaily(false); out != nil {
		t.Errorf("second same-day check = %+v, want nil", out)
	}
}

func TestLadder_EscalatesByMissedDays(t *testing.T) {
	// Day 1: warning only. Day 2: desert + forced quest. Day 3: escalated
	// zone with exp and stat penalties. Day 5: heart-stop countdown.
	s, pm, now := newSystem()

	out := s.CheckDaily(false)
	if out.DebuffID != "" || out.Forced != nil {
		t.Errorf("day 1 = %+v, want bare warning", out)
	}

	*now = now.Add(24 * time.Hour)
	out = s.CheckDaily(false)
	if out.DebuffID != "penalty_zone_1" || out.Forced == nil || out.Forced.Difficulty != "B" {
		t.Errorf("day 2 = %+v, want penalty_zone_1 with B quest", out)
	}

	pm.GainExp(90, "setup")
	*now = now.Add(24 * time.Hour)
	out = s.CheckDaily(false)
	if out.DebuffID != "penalty_zone_2" {
		t.Errorf("day 3 = %+v, want penalty_zone_2", out)
	}
	p := pm.Snapshot()
	if p.Exp != 40 {
		t.Errorf("exp after 50 penalty = %d, want 40", p.Exp)
	}
	if p.Stats.Focus != 40 {
		t.Errorf("focus after -10 = %d, want 40", p.Stats.Focus)
	}

	// Day 4 stays on the day-3 rung.
	*now = now.Add(24 * time.Hour)
	out = s.CheckDaily(false)
	if out.ConsecutiveFails != 4 || out.DebuffID != "penalty_zone_2" {
		t.Errorf("day 4 = %+v, want rung 3 retained", out)
	}

	*now = now.Add(24 * time.Hour)
	out = s.CheckDaily(false)
	if out.DebuffID != "heart_stop_warning" || out.Forced.Difficulty != "S" {
		t.Errorf("day 5 = %+v, want heart_stop_warning with S quest", out)
	}
}

func TestCheckDaily_SuccessResetsLadder(t *testing.T) {
	s, _, now := newSystem()
	s.CheckDaily(false)
	*now = now.Add(24 * time.Hour)
	s.CheckDaily(false)

	*now = now.Add(24 * time.Hour)
	if out := s.CheckDaily(true); out != nil {
		t.Fatalf("completed day returned %+v", out)
	}

	// The next miss starts back at rung one.
	*now = now.Add(24 * time.Hour)
	out := s.CheckDaily(false)
	if out.ConsecutiveFails != 1 || out.DebuffID != "" {
		t.Errorf("post-reset miss = %+v, want fails 1 warning", out)
	}
}

func TestCheckDaily_ResetNotification(t *testing.T) {
	// Clearing an active penalty announces the lift.
	s, _, now, bus := newSystemWithBus()
	var titles []string
	bus.Subscribe(event.NotificationPush, "t", func(ev event.Event) error {
		titles = append(titles, ev.Payload.(types.Notification).Title)
		return nil
	})
	s.CheckDaily(false)
	*now = now.Add(24 * time.Hour)
	s.CheckDaily(true)
	if len(titles) != 2 || titles[1] != "Penalty lifted" {
		t.Errorf("notifications = %v, want warning then lift", titles)
	}
	if st := s.Status(); st["consecutive_fails"] != 0 || st["in_penalty_zone"] != false {
		t.Errorf("status after success = %v", st)
	}
}

func TestExpPenalty_FloorsAtZero(t *testing.T) {
	// Exp penalties never push current-level exp below zero.
	s, pm, now := newSystem()
	for i := 0; i < 3; i++ {
		s.CheckDaily(false)
		*now = now.Add(24 * time.Hour)
	}
	if got := pm.Snapshot().Exp; got != 0 {
		t.Errorf("exp = %d, want 0", got)
	}
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s, _, now := newSystem()
	s.CheckDaily(false)
	*now = now.Add(24 * time.Hour)
	s.CheckDaily(false)

	st := s.Snapshot()
	s2, _, _ := newSystem()
	s2.Restore(st)
	if got := s2.Status()["consecutive_fails"]; got != 2 {
		t.Errorf("restored fails = %v, want 2", got)
	}
}
