// Package journal persists the engine's event stream as JSONL, one file per
// day. It consumes the bus tap so journaling never sits on the dispatch
// path: a slow disk drops tap entries instead of stalling publishers.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/junhyuk-oh/arise/internal/event"
)

// Line is one JSONL record.
type Line struct {
	Timestamp string `json:"ts"`
	Type      string `json:"type"`
	Source    string `json:"source"`
	Payload   any    `json:"payload,omitempty"`
}

// Journal appends events to a per-day JSONL file under dir. Files rotate at
// the first append of a new calendar day.
type Journal struct {
	dir  string
	now  func() time.Time
	mu   sync.Mutex
	f    *os.File
	day  string
	done chan struct{}
}

// Open creates dir if absent and returns a Journal. A nil now defaults to
// time.Now. The first file is opened lazily on the first append.
func Open(dir string, now func() time.Time) (*Journal, error) {
	if now == nil {
		now = time.Now
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &Journal{dir: dir, now: now, done: make(chan struct{})}, nil
}

// Append writes one event as a JSON line, rotating to a new file when the
// calendar day has changed.
func (j *Journal) Append(ev event.Event) error {
	line := Line{
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339Nano),
		Type:      string(ev.Type),
		Source:    ev.Source,
		Payload:   ev.Payload,
	}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal journal line: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	day := j.now().Format("20060102")
	if j.f == nil || day != j.day {
		if j.f != nil {
			j.f.Close()
		}
		path := filepath.Join(j.dir, "events-"+day+".jsonl")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open journal file: %w", err)
		}
		j.f = f
		j.day = day
	}
	if _, err := fmt.Fprintf(j.f, "%s\n", data); err != nil {
		return fmt.Errorf("write journal line: %w", err)
	}
	return nil
}

// Pump drains tap until it closes, appending every event. Run it on its own
// goroutine; Wait blocks until the tap has closed and the last line is down.
func (j *Journal) Pump(tap <-chan event.Event) {
	defer close(j.done)
	for ev := range tap {
		if err := j.Append(ev); err != nil {
			slog.Error("journal append failed", "type", ev.Type, "error", err)
		}
	}
}

// Wait blocks until Pump has finished.
func (j *Journal) Wait() {
	<-j.done
}

// Close flushes and closes the current file. Call after Pump has finished.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}

// ReadDay returns the lines journaled on the given day, oldest first.
// Missing files read as empty.
func (j *Journal) ReadDay(day time.Time) ([]Line, error) {
	path := filepath.Join(j.dir, "events-"+day.Format("20060102")+".jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal file: %w", err)
	}
	defer f.Close()

	var out []Line
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var l Line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			slog.Warn("skipping bad journal line", "error", err)
			continue
		}
		out = append(out, l)
	}
	return out, sc.Err()
}
