package dashboard

import (
	"context"
	"testing"
	"time"

	"grebbot/internal/eventbus"
)

func TestFeedRetainsNewestFirst(t *testing.T) {
	f := NewFeed(nil, 3)
	for _, typ := range []string{"a", "b", "c", "d"} {
		f.add(eventbus.Event{Type: typ})
	}

	evs := f.Recent()
	if len(evs) != 3 {
		t.Fatalf("expected 3 retained events, got %d", len(evs))
	}
	for i, want := range []string{"d", "c", "b"} {
		if evs[i].Type != want {
			t.Errorf("event %d: got %q, want %q", i, evs[i].Type, want)
		}
	}
	if evs[0].Time.IsZero() {
		t.Error("add should stamp missing event times")
	}
}

func TestFeedConsumesBus(t *testing.T) {
	bus := eventbus.New()
	f := NewFeed(bus, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx)
	}()

	// Publishes before the subscriber loop is up can be dropped; retry
	// until one lands.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		bus.Publish(eventbus.Event{Type: eventbus.TypeGameStart, Data: map[string]any{"member": "u1"}})
		if len(f.Recent()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	evs := f.Recent()
	if len(evs) == 0 {
		t.Fatal("feed never observed a published event")
	}
	if evs[0].Type != eventbus.TypeGameStart {
		t.Errorf("unexpected event: %+v", evs[0])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
