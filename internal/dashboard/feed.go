package dashboard

import (
	"context"
	"sync"
	"time"

	"grebbot/internal/eventbus"
)

const defaultFeedSize = 200

// Feed retains the most recent bus events for the /api/events endpoint.
// Run must be hosted by the caller; Recent is safe at any time.
type Feed struct {
	bus  eventbus.Bus
	size int

	mu   sync.Mutex
	ring []eventbus.Event
}

func NewFeed(bus eventbus.Bus, size int) *Feed {
	if size <= 0 {
		size = defaultFeedSize
	}
	return &Feed{bus: bus, size: size}
}

// Run consumes the bus until ctx is canceled.
func (f *Feed) Run(ctx context.Context) {
	if f.bus == nil {
		<-ctx.Done()
		return
	}
	events, unsub := f.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			f.add(e)
		}
	}
}

func (f *Feed) add(e eventbus.Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	f.mu.Lock()
	f.ring = append(f.ring, e)
	if len(f.ring) > f.size {
		f.ring = f.ring[len(f.ring)-f.size:]
	}
	f.mu.Unlock()
}

// Recent returns retained events, newest first.
func (f *Feed) Recent() []eventbus.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]eventbus.Event, len(f.ring))
	for i, e := range f.ring {
		out[len(f.ring)-1-i] = e
	}
	return out
}
