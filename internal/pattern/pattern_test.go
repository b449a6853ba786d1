package pattern

import (
	"testing"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

var daytime = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newDetector(now time.Time) (*Detector, *event.Bus) {
	bus := event.New()
	return New(bus, func() time.Time { return now }), bus
}

func rec(category string, focus float64) types.ContextRecord {
	return types.ContextRecord{Category: category, FocusScore: focus}
}

func TestDetect_TooFewRecordsIsNormal(t *testing.T) {
	d, _ := newDetector(daytime)
	if got := d.Observe(rec(types.CategoryCoding, 0.9)); got != Normal {
		t.Errorf("pattern = %q, want normal", got)
	}
}

func TestDetect_DeepFocus(t *testing.T) {
	// Three productive high-focus records classify as deep focus.
	d, bus := newDetector(daytime)
	var published []types.PatternInfo
	bus.Subscribe(event.PatternDetected, "t", func(ev event.Event) error {
		published = append(published, ev.Payload.(types.PatternInfo))
		return nil
	})

	d.Observe(rec(types.CategoryCoding, 0.9))
	d.Observe(rec(types.CategoryCoding, 0.85))
	got := d.Observe(rec(types.CategoryWriting, 0.8))
	if got != DeepFocus {
		t.Fatalf("pattern = %q, want deep_focus", got)
	}
	if len(published) != 1 || published[0].Pattern != DeepFocus {
		t.Errorf("published = %+v, want one deep_focus", published)
	}
}

func TestDetect_TransitionOnlyEmission(t *testing.T) {
	// Staying in the same pattern publishes nothing new.
	d, bus := newDetector(daytime)
	var n int
	bus.Subscribe(event.PatternDetected, "t", func(event.Event) error {
		n++
		return nil
	})
	for i := 0; i < 5; i++ {
		d.Observe(rec(types.CategoryCoding, 0.9))
	}
	if n != 1 {
		t.Errorf("published %d events, want 1", n)
	}
}

func TestDetect_DistractionNeedsSwitchRate(t *testing.T) {
	// Low focus alone is not distraction; 8+ recent window switches are required.
	d, bus := newDetector(daytime)
	d.Observe(rec(types.CategorySocial, 0.2))
	got := d.Observe(rec(types.CategoryMedia, 0.2))
	if got == Distraction {
		t.Fatal("distraction without switches")
	}

	for i := 0; i < 8; i++ {
		bus.Publish(event.WindowChanged, types.WindowEvent{Window: "app", Timestamp: daytime})
	}
	got = d.Observe(rec(types.CategorySocial, 0.2))
	if got != Distraction {
		t.Errorf("pattern = %q, want distraction", got)
	}
}

func TestDetect_LearningMajority(t *testing.T) {
	d, _ := newDetector(daytime)
	d.Observe(rec(types.CategoryLearning, 0.6))
	got := d.Observe(rec(types.CategoryLearning, 0.6))
	if got != Learning {
		t.Errorf("pattern = %q, want learning", got)
	}
}

func TestDetect_CreativeMajority(t *testing.T) {
	d, _ := newDetector(daytime)
	// Mixed writing/creative majority, focus below the deep-focus bar.
	d.Observe(rec(types.CategoryCreative, 0.6))
	d.Observe(rec(types.CategoryBrowsing, 0.4))
	d.Observe(rec(types.CategoryWriting, 0.6))
	got := d.Observe(rec(types.CategoryCreative, 0.6))
	if got != Creative {
		t.Errorf("pattern = %q, want creative", got)
	}
}

func TestDetect_FatigueLateNight(t *testing.T) {
	// Four very low-focus records late at night classify as fatigue.
	lateNight := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	d, _ := newDetector(lateNight)
	var got string
	for i := 0; i < 4; i++ {
		got = d.Observe(rec(types.CategoryBrowsing, 0.25))
	}
	if got != Fatigue {
		t.Errorf("pattern = %q, want fatigue", got)
	}
}

func TestDetect_FatigueDaytimeNeedsDeeperSlump(t *testing.T) {
	// In daytime, fatigue requires avg focus under 0.2.
	d, _ := newDetector(daytime)
	var got string
	for i := 0; i < 4; i++ {
		got = d.Observe(rec(types.CategoryBrowsing, 0.25))
	}
	if got == Fatigue {
		t.Error("fatigue detected in daytime at avg 0.25")
	}
	d2, _ := newDetector(daytime)
	for i := 0; i < 4; i++ {
		got = d2.Observe(rec(types.CategoryBrowsing, 0.15))
	}
	if got != Fatigue {
		t.Errorf("pattern = %q, want fatigue", got)
	}
}

func TestDetect_Procrastination(t *testing.T) {
	// 10+ switches, mediocre focus, social/media-heavy mix.
	d, bus := newDetector(daytime)
	for i := 0; i < 10; i++ {
		bus.Publish(event.WindowChanged, types.WindowEvent{Window: "app", Timestamp: daytime})
	}
	d.Observe(rec(types.CategorySocial, 0.38))
	d.Observe(rec(types.CategoryMedia, 0.38))
	got := d.Observe(rec(types.CategoryCoding, 0.38))
	if got != Procrastination {
		t.Errorf("pattern = %q, want procrastination", got)
	}
}

func TestSwitchRate_OldEntriesAgeOut(t *testing.T) {
	bus := event.New()
	now := daytime
	d := New(bus, func() time.Time { return now })
	bus.Publish(event.WindowChanged, types.WindowEvent{Window: "a", Timestamp: now})
	now = now.Add(6 * time.Minute)
	if got := d.SwitchRate(5 * time.Minute); got != 0 {
		t.Errorf("switch rate = %d, want 0", got)
	}
}

func TestCurrent_TracksPatternStart(t *testing.T) {
	bus := event.New()
	now := daytime
	d := New(bus, func() time.Time { return now })
	d.Observe(rec(types.CategoryCoding, 0.9))
	d.Observe(rec(types.CategoryCoding, 0.9))
	d.Observe(rec(types.CategoryCoding, 0.9))
	now = now.Add(10 * time.Minute)
	p, since, held := d.Current()
	if p != DeepFocus || since != daytime || held != 10*time.Minute {
		t.Errorf("current = %q since %v held %v", p, since, held)
	}
}
