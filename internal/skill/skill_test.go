package skill

import (
	"errors"
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
)

var daytime = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newSystem() (*System, *time.Time) {
	now := daytime
	return New(event.New(), func() time.Time { return now }), &now
}

func TestActivate_StartsCooldownAndCountsUse(t *testing.T) {
	s, _ := newSystem()
	c, err := s.Activate("stealth", 2)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if c.Skill != "Stealth" || c.Cooldown != 4*time.Hour {
		t.Errorf("cast = %+v", c)
	}
	if got := s.Uses("stealth"); got != 1 {
		t.Errorf("uses = %d, want 1", got)
	}
}

func TestActivate_DeclinedPaths(t *testing.T) {
	s, _ := newSystem()
	if _, err := s.Activate("fireball", 50); !errors.Is(err, ErrUnknownSkill) {
		t.Errorf("unknown skill err = %v", err)
	}
	if _, err := s.Activate("bloodlust", 4); !errors.Is(err, ErrLevelTooLow) {
		t.Errorf("level gate err = %v", err)
	}
}

func TestActivate_CooldownCycle(t *testing.T) {
	// A second cast inside the cooldown is declined; after it lapses the
	// skill casts again.
	s, now := newSystem()
	if _, err := s.Activate("bloodlust", 5); err != nil {
		t.Fatalf("first cast: %v", err)
	}
	*now = now.Add(time.Hour)
	if _, err := s.Activate("bloodlust", 5); !errors.Is(err, ErrOnCooldown) {
		t.Fatalf("err = %v, want ErrOnCooldown", err)
	}
	*now = now.Add(90 * time.Minute)
	if _, err := s.Activate("bloodlust", 5); err != nil {
		t.Errorf("cast after cooldown: %v", err)
	}
}

func TestAvailable_RedactsLockedSkills(t *testing.T) {
	// A level-4 player sees stealth unlocked but bloodlust as "???".
	s, _ := newSystem()
	byID := make(map[string]Listing)
	for _, l := range s.Available(4) {
		byID[l.ID] = l
	}
	if !byID["stealth"].Unlocked || byID["stealth"].Name != "Stealth" {
		t.Errorf("stealth = %+v", byID["stealth"])
	}
	if byID["bloodlust"].Unlocked || byID["bloodlust"].Name != "???" || byID["bloodlust"].Effect != "" {
		t.Errorf("bloodlust = %+v, want redacted", byID["bloodlust"])
	}
}

func TestAvailable_ShowsCooldownRemaining(t *testing.T) {
	s, now := newSystem()
	s.Activate("stealth", 2)
	*now = now.Add(time.Hour)
	for _, l := range s.Available(2) {
		if l.ID == "stealth" {
			if !l.OnCooldown || l.CooldownRemaining != 180 {
				t.Errorf("stealth listing = %+v, want 180 minutes remaining", l)
			}
		}
	}
}

func TestSnapshotRestore_KeepsCooldowns(t *testing.T) {
	s, _ := newSystem()
	s.Activate("stealth", 2)
	st := s.Snapshot()

	s2, _ := newSystem()
	s2.Restore(st)
	if _, err := s2.Activate("stealth", 2); !errors.Is(err, ErrOnCooldown) {
		t.Errorf("restored cooldown err = %v", err)
	}
	if got := s2.Uses("stealth"); got != 1 {
		t.Errorf("restored uses = %d, want 1", got)
	}
}
