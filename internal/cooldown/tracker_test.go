package cooldown

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker() (*Tracker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(DefaultWindow).WithClock(clk.now), clk
}

func TestFreshPairNotOnCooldown(t *testing.T) {
	tr, _ := newTestTracker()
	if tr.IsOnCooldown("m1", "g1") {
		t.Fatal("expected no cooldown before any Update")
	}
	if rem := tr.Remaining("m1", "g1"); rem != 0 {
		t.Fatalf("expected 0 remaining, got %v", rem)
	}
}

func TestUpdateStartsCooldown(t *testing.T) {
	tr, clk := newTestTracker()
	tr.Update("m1", "g1")

	if !tr.IsOnCooldown("m1", "g1") {
		t.Fatal("expected cooldown immediately after Update")
	}
	if rem := tr.Remaining("m1", "g1"); rem != DefaultWindow {
		t.Fatalf("expected full window remaining, got %v", rem)
	}

	// Pairs are independent.
	if tr.IsOnCooldown("m1", "g2") || tr.IsOnCooldown("m2", "g1") {
		t.Fatal("cooldown leaked to an unrelated pair")
	}

	clk.advance(DefaultWindow)
	if tr.IsOnCooldown("m1", "g1") {
		t.Fatal("expected cooldown expired at window boundary")
	}
	if rem := tr.Remaining("m1", "g1"); rem != 0 {
		t.Fatalf("expected 0 remaining after expiry, got %v", rem)
	}
}

func TestRemainingMonotonicallyDecreases(t *testing.T) {
	tr, clk := newTestTracker()
	tr.Update("m1", "g1")

	prev := tr.Remaining("m1", "g1")
	for i := 0; i < 5; i++ {
		clk.advance(13 * time.Second)
		rem := tr.Remaining("m1", "g1")
		if rem > prev {
			t.Fatalf("remaining increased: %v -> %v", prev, rem)
		}
		prev = rem
	}
}

func TestUpdateReplacesNotAccumulates(t *testing.T) {
	tr, clk := newTestTracker()
	tr.Update("m1", "g1")
	clk.advance(30 * time.Second)
	tr.Update("m1", "g1")

	// Window restarts from the second Update, never beyond it.
	if rem := tr.Remaining("m1", "g1"); rem != DefaultWindow {
		t.Fatalf("expected full window from second Update, got %v", rem)
	}
	clk.advance(DefaultWindow)
	if tr.IsOnCooldown("m1", "g1") {
		t.Fatal("cooldown extended beyond window from second Update")
	}
}

func TestReset(t *testing.T) {
	tr, _ := newTestTracker()

	if tr.Reset("m1", "g1") {
		t.Fatal("resetting an absent entry should report not-on-cooldown")
	}

	tr.Update("m1", "g1")
	if !tr.Reset("m1", "g1") {
		t.Fatal("expected Reset to report the pair was on cooldown")
	}
	if tr.IsOnCooldown("m1", "g1") {
		t.Fatal("expected no cooldown after Reset")
	}
}

func TestActiveAndSweep(t *testing.T) {
	tr, clk := newTestTracker()
	tr.Update("m1", "g1")
	tr.Update("m2", "g1")
	tr.Update("m1", "g2")

	if got := len(tr.Active("g1")); got != 2 {
		t.Fatalf("expected 2 active entries in g1, got %d", got)
	}
	if got := len(tr.Active("")); got != 3 {
		t.Fatalf("expected 3 active entries total, got %d", got)
	}

	clk.advance(DefaultWindow + time.Second)
	if got := len(tr.Active("")); got != 0 {
		t.Fatalf("expected no active entries after expiry, got %d", got)
	}
	if n := tr.Sweep(); n != 3 {
		t.Fatalf("expected Sweep to drop 3 entries, dropped %d", n)
	}
	if n := tr.Sweep(); n != 0 {
		t.Fatalf("expected second Sweep to be a no-op, dropped %d", n)
	}
}
