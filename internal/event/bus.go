// Package event implements the async pub/sub bus that every engine subsystem
// communicates through. Handlers for one publish run concurrently; a failing
// handler never suppresses its siblings — errors are collected into a
// per-publish Result instead of propagating to the publisher.
package event

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultHistorySize = 500
	tapBufSize         = 256
)

// Handler processes one event. Handlers run on their own goroutine per
// publish and must serialize their own writes to shared state.
type Handler func(Event) error

// HandlerError pairs a failed handler's subscription name with its error.
type HandlerError struct {
	Subscriber string
	Err        error
}

func (e HandlerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Subscriber, e.Err)
}

// Result aggregates the outcome of one publish call.
type Result struct {
	Delivered int
	Errors    []HandlerError
}

// Ok reports whether every handler completed without error.
func (r Result) Ok() bool { return len(r.Errors) == 0 }

type subscription struct {
	name    string
	handler Handler
}

// Bus is the observable event bus. It keeps a bounded ring of recent events
// for introspection and a tap channel for the journal.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]subscription
	history     []Event
	historyHead int
	historyLen  int
	historyCap  int
	tapCh       chan Event
	closed      bool
}

// New creates a Bus with the default history capacity.
func New() *Bus {
	return NewWithHistory(defaultHistorySize)
}

// NewWithHistory creates a Bus keeping the last n events.
func NewWithHistory(n int) *Bus {
	if n < 1 {
		n = 1
	}
	return &Bus{
		subscribers: make(map[Type][]subscription),
		history:     make([]Event, n),
		historyCap:  n,
		tapCh:       make(chan Event, tapBufSize),
	}
}

// Subscribe registers handler for events of type t. The name identifies the
// subscriber in Result errors and log lines.
func (b *Bus) Subscribe(t Type, name string, handler Handler) {
	b.mu.Lock()
	b.subscribers[t] = append(b.subscribers[t], subscription{name: name, handler: handler})
	b.mu.Unlock()
}

// Publish dispatches ev to every subscriber of ev.Type concurrently and
// blocks until all handlers return. Handler panics are recovered and
// recorded as errors. Returns a zero Result after Close.
func (b *Bus) Publish(t Type, payload any) Result {
	return b.PublishFrom(t, payload, "system")
}

// PublishFrom is Publish with an explicit source tag.
func (b *Bus) PublishFrom(t Type, payload any, source string) Result {
	ev := Event{Type: t, Payload: payload, Timestamp: time.Now(), Source: source}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return Result{}
	}
	b.history[b.historyHead] = ev
	b.historyHead = (b.historyHead + 1) % b.historyCap
	if b.historyLen < b.historyCap {
		b.historyLen++
	}
	subs := make([]subscription, len(b.subscribers[t]))
	copy(subs, b.subscribers[t])
	// Tap is non-blocking so a slow journal never stalls dispatch. The send
	// stays under the lock so Close cannot close the channel mid-publish.
	select {
	case b.tapCh <- ev:
	default:
		slog.Warn("event tap full, event not journaled", "type", t)
	}
	b.mu.Unlock()

	if len(subs) == 0 {
		return Result{}
	}

	var (
		wg   sync.WaitGroup
		emu  sync.Mutex
		errs []HandlerError
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(s subscription) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					emu.Lock()
					errs = append(errs, HandlerError{Subscriber: s.name, Err: fmt.Errorf("panic: %v", r)})
					emu.Unlock()
				}
			}()
			if err := s.handler(ev); err != nil {
				emu.Lock()
				errs = append(errs, HandlerError{Subscriber: s.name, Err: err})
				emu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	for _, he := range errs {
		slog.Warn("event handler failed", "type", t, "subscriber", he.Subscriber, "error", he.Err)
	}
	return Result{Delivered: len(subs), Errors: errs}
}

// Tap returns the read-only tap channel for the journal. Only one consumer
// should drain it.
func (b *Bus) Tap() <-chan Event {
	return b.tapCh
}

// History returns up to limit most-recent events, newest last. A zero Type
// matches all event types.
func (b *Bus) History(t Type, limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > b.historyLen {
		limit = b.historyLen
	}
	out := make([]Event, 0, limit)
	// Walk the ring oldest to newest.
	start := (b.historyHead - b.historyLen + b.historyCap) % b.historyCap
	for i := 0; i < b.historyLen; i++ {
		ev := b.history[(start+i)%b.historyCap]
		if t != "" && ev.Type != t {
			continue
		}
		out = append(out, ev)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Close stops the bus: subsequent publishes are refused (zero Result) and
// the tap channel is closed. Closing under the lock excludes any publish
// between its closed check and its tap send.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.tapCh)
}
