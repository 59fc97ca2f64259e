package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoRestartRestartsOnError(t *testing.T) {
	sup := New(context.Background())

	var runs atomic.Int64
	sup.GoRestart("flaky", func(ctx context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		<-ctx.Done()
		return ctx.Err()
	})

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := runs.Load(); got < 3 {
		t.Fatalf("expected at least 3 runs, got %d", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestGoRestartStopsCleanOnNilError(t *testing.T) {
	sup := New(context.Background())

	var runs atomic.Int64
	sup.GoRestart("oneshot", func(context.Context) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("nil error should not restart: %d runs", got)
	}
}

func TestCounters(t *testing.T) {
	sup := New(context.Background())

	block := make(chan struct{})
	for i := 0; i < 3; i++ {
		sup.Go("worker", func(context.Context) error {
			<-block
			return nil
		})
	}

	c := sup.Counters()
	if c.Started != 3 || c.Active != 3 {
		t.Fatalf("expected 3 started/active, got %+v", c)
	}

	close(block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if c := sup.Counters(); c.Active != 0 {
		t.Fatalf("expected 0 active after wait, got %+v", c)
	}
}
