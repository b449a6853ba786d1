package event

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPublish_DeliversToAllSubscribers(t *testing.T) {
	// Every subscriber of the published type sees the same payload.
	b := New()
	var got1, got2 any
	var mu sync.Mutex
	b.Subscribe(LevelUp, "a", func(ev Event) error {
		mu.Lock()
		got1 = ev.Payload
		mu.Unlock()
		return nil
	})
	b.Subscribe(LevelUp, "b", func(ev Event) error {
		mu.Lock()
		got2 = ev.Payload
		mu.Unlock()
		return nil
	})

	res := b.Publish(LevelUp, 7)
	if res.Delivered != 2 {
		t.Fatalf("delivered = %d, want 2", res.Delivered)
	}
	if got1 != 7 || got2 != 7 {
		t.Errorf("payloads = %v, %v, want 7, 7", got1, got2)
	}
}

func TestPublish_ErrorDoesNotSuppressSiblings(t *testing.T) {
	// One failing handler is collected; the other handler still runs.
	b := New()
	var ran atomic.Bool
	b.Subscribe(QuestCompleted, "bad", func(Event) error {
		return errors.New("boom")
	})
	b.Subscribe(QuestCompleted, "good", func(Event) error {
		ran.Store(true)
		return nil
	})

	res := b.Publish(QuestCompleted, nil)
	if !ran.Load() {
		t.Error("sibling handler did not run")
	}
	if len(res.Errors) != 1 || res.Errors[0].Subscriber != "bad" {
		t.Errorf("errors = %+v, want one from 'bad'", res.Errors)
	}
	if res.Ok() {
		t.Error("Ok() = true with a handler error")
	}
}

func TestPublish_PanicIsRecovered(t *testing.T) {
	// A panicking handler is recorded as an error, not a crash.
	b := New()
	b.Subscribe(SystemTick, "panicky", func(Event) error {
		panic("whoops")
	})
	res := b.Publish(SystemTick, nil)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v, want one", res.Errors)
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	b := New()
	res := b.Publish(ExpGained, nil)
	if res.Delivered != 0 || !res.Ok() {
		t.Errorf("res = %+v, want empty ok result", res)
	}
}

func TestHistory_BoundedRing(t *testing.T) {
	// History keeps only the last n events, newest last.
	b := NewWithHistory(3)
	for i := 0; i < 5; i++ {
		b.Publish(SystemTick, i)
	}
	h := b.History("", 0)
	if len(h) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(h))
	}
	if h[0].Payload != 2 || h[2].Payload != 4 {
		t.Errorf("history payloads = %v..%v, want 2..4", h[0].Payload, h[2].Payload)
	}
}

func TestHistory_FilterByType(t *testing.T) {
	b := NewWithHistory(10)
	b.Publish(LevelUp, 1)
	b.Publish(SystemTick, 2)
	b.Publish(LevelUp, 3)
	h := b.History(LevelUp, 0)
	if len(h) != 2 {
		t.Fatalf("len = %d, want 2", len(h))
	}
}

func TestClose_RefusesNewPublishes(t *testing.T) {
	b := New()
	var ran atomic.Bool
	b.Subscribe(SystemStop, "x", func(Event) error {
		ran.Store(true)
		return nil
	})
	b.Close()
	res := b.Publish(SystemStop, nil)
	if res.Delivered != 0 || ran.Load() {
		t.Error("publish after Close still dispatched")
	}
}

func TestClose_RacingPublishersDoNotPanic(t *testing.T) {
	// Publishes racing Close either land on the tap or are refused; none may
	// send on the closed tap channel.
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b.Publish(SystemTick, j)
			}
		}()
	}
	b.Close()
	wg.Wait()
	if res := b.Publish(SystemTick, nil); res.Delivered != 0 {
		t.Errorf("publish after Close delivered %d", res.Delivered)
	}
}

func TestTap_ReceivesPublishedEvents(t *testing.T) {
	b := New()
	b.Publish(LevelUp, 42)
	select {
	case ev := <-b.Tap():
		if ev.Type != LevelUp || ev.Payload != 42 {
			t.Errorf("tap event = %+v", ev)
		}
	default:
		t.Fatal("tap channel empty")
	}
}
