// Package pattern classifies recent activity into behavior patterns and
// publishes a PatternDetected event whenever the detected pattern changes.
package pattern

import (
	"fmt"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/types"
)

// Pattern tags, ordered by detection precedence in Detect.
const (
	DeepFocus       = "deep_focus"
	Distraction     = "distraction"
	Learning        = "learning"
	Creative        = "creative"
	Fatigue         = "fatigue"
	Procrastination = "procrastination"
	Normal          = "normal"
)

// Descriptions carried on the PatternDetected payload.
var descriptions = map[string]string{
	DeepFocus:       "30+ minutes of sustained focused work",
	Distraction:     "rapid app switching and social browsing",
	Learning:        "studying tutorials plus practice",
	Creative:        "creative work in full swing",
	Fatigue:         "activity dropping off, aimless browsing",
	Procrastination: "work apps opened and closed on repeat",
}

var deepFocusCategories = map[string]bool{
	types.CategoryCoding:   true,
	types.CategoryWriting:  true,
	types.CategoryWork:     true,
	types.CategoryLearning: true,
}

const (
	recordWindow  = 10  // classified records considered per detection
	windowHistory = 100 // retained window-change entries
	switchWindow  = 5 * time.Minute
)

// Detector keeps a short window of classified records plus window-change
// history and re-classifies on every new record.
type Detector struct {
	mu           sync.Mutex
	bus          *event.Bus
	now          func() time.Time
	records      []types.ContextRecord // newest first
	windows      []types.WindowEvent
	lastPattern  string
	patternSince time.Time
}

// New wires the detector onto the bus. A nil now defaults to time.Now.
func New(bus *event.Bus, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	d := &Detector{bus: bus, now: now, lastPattern: Normal}
	bus.Subscribe(event.WindowChanged, "pattern", d.onWindowChanged)
	bus.Subscribe(event.ContextAnalyzed, "pattern", d.onContext)
	return d
}

func (d *Detector) onWindowChanged(ev event.Event) error {
	w, ok := ev.Payload.(types.WindowEvent)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	if w.Timestamp.IsZero() {
		w.Timestamp = d.now()
	}
	d.mu.Lock()
	d.windows = append(d.windows, w)
	if len(d.windows) > windowHistory {
		d.windows = d.windows[len(d.windows)-windowHistory:]
	}
	d.mu.Unlock()
	return nil
}

func (d *Detector) onContext(ev event.Event) error {
	rec, ok := ev.Payload.(types.ContextRecord)
	if !ok {
		return fmt.Errorf("unexpected payload %T", ev.Payload)
	}
	d.Observe(rec)
	return nil
}

// Observe records one classified activity record and re-runs detection.
func (d *Detector) Observe(rec types.ContextRecord) string {
	d.mu.Lock()
	d.records = append([]types.ContextRecord{rec}, d.records...)
	if len(d.records) > recordWindow {
		d.records = d.records[:recordWindow]
	}
	d.mu.Unlock()
	return d.Detect()
}

// Detect classifies the current window of records. On a pattern transition
// it publishes PatternDetected (Normal transitions are silent) and restamps
// the pattern start time.
func (d *Detector) Detect() string {
	d.mu.Lock()
	recs := d.records
	if len(recs) < 2 {
		d.mu.Unlock()
		return Normal
	}

	var focusSum float64
	var focusN int
	counts := make(map[string]int)
	for _, r := range recs {
		if r.FocusScore > 0 {
			focusSum += r.FocusScore
			focusN++
		}
		if r.Category != "" {
			counts[r.Category]++
		}
	}
	avgFocus := 0.5
	if focusN > 0 {
		avgFocus = focusSum / float64(focusN)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	switchRate := d.switchRateLocked(switchWindow)
	now := d.now()

	detected := Normal
	switch {
	case len(recs) >= 3 && avgFocus >= 0.75 && allDeepFocus(recs[:3]):
		detected = DeepFocus
	case avgFocus < 0.35 && switchRate >= 8:
		detected = Distraction
	case total >= 2 && float64(counts[types.CategoryLearning]) >= float64(total)*0.5:
		detected = Learning
	case total > 0 && float64(counts[types.CategoryWriting]+counts[types.CategoryCreative]) >= float64(total)*0.5:
		detected = Creative
	case len(recs) >= 4 && avgFocus < 0.3 && (now.Hour() >= 23 || now.Hour() < 5 || avgFocus < 0.2):
		detected = Fatigue
	case switchRate >= 10 && avgFocus < 0.4 &&
		float64(counts[types.CategorySocial]+counts[types.CategoryMedia])/float64(max(total, 1)) > 0.4:
		detected = Procrastination
	}

	changed := detected != d.lastPattern
	if changed {
		d.lastPattern = detected
		d.patternSince = now
	}
	d.mu.Unlock()

	if changed && detected != Normal {
		d.bus.Publish(event.PatternDetected, types.PatternInfo{
			Pattern:    detected,
			AvgFocus:   avgFocus,
			SwitchRate: switchRate,
			Categories: counts,
		})
	}
	return detected
}

func allDeepFocus(recs []types.ContextRecord) bool {
	for _, r := range recs {
		if r.Category != "" && !deepFocusCategories[r.Category] {
			return false
		}
	}
	return true
}

func (d *Detector) switchRateLocked(window time.Duration) int {
	cutoff := d.now().Add(-window)
	n := 0
	for _, w := range d.windows {
		if w.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}

// SwitchRate counts window changes in the last given duration.
func (d *Detector) SwitchRate(window time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.switchRateLocked(window)
}

// Current reports the active pattern and how long it has held.
func (d *Detector) Current() (pattern string, since time.Time, held time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	held = 0
	if !d.patternSince.IsZero() {
		held = d.now().Sub(d.patternSince)
	}
	return d.lastPattern, d.patternSince, held
}

// Description returns the human text for a pattern tag.
func Description(pattern string) string { return descriptions[pattern] }
