// Package cooldown tracks per-(member, guild) notification cooldowns.
//
// The tracker is in-memory and process-lifetime only: losing it on restart is
// intentional, the cooldown is a soft anti-spam measure rather than a
// correctness guarantee.
package cooldown

import (
	"sync"
	"time"
)

// DefaultWindow is the fixed suppression window between repeat notifications
// for the same (member, guild) pair.
const DefaultWindow = 120 * time.Second

type key struct {
	memberID string
	guildID  string
}

// Entry is a live cooldown, exposed for status commands and the dashboard.
type Entry struct {
	MemberID   string        `json:"member_id"`
	GuildID    string        `json:"guild_id"`
	NotifiedAt time.Time     `json:"notified_at"`
	Remaining  time.Duration `json:"remaining"`
}

// Tracker answers "is this member suppressed right now" per guild.
// The zero value is not usable; use New. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[key]time.Time
	window  time.Duration
	now     func() time.Time
}

func New(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		entries: make(map[key]time.Time),
		window:  window,
		now:     time.Now,
	}
}

// WithClock overrides the clock. Tests only.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
	return t
}

func (t *Tracker) Window() time.Duration { return t.window }

// IsOnCooldown reports whether an entry exists for the pair and is still
// inside the window. Absence means "never notified, not on cooldown".
func (t *Tracker) IsOnCooldown(memberID, guildID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.entries[key{memberID, guildID}]
	if !ok {
		return false
	}
	return t.now().Sub(last) < t.window
}

// Remaining returns the seconds-granularity time left on the pair's cooldown,
// or 0 when not on cooldown.
func (t *Tracker) Remaining(memberID, guildID string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.entries[key{memberID, guildID}]
	if !ok {
		return 0
	}
	rem := t.window - t.now().Sub(last)
	if rem < 0 {
		return 0
	}
	return rem.Truncate(time.Second)
}

// Update stamps the pair with the current time, replacing (never extending
// past now+window) any prior value.
func (t *Tracker) Update(memberID, guildID string) {
	t.mu.Lock()
	t.entries[key{memberID, guildID}] = t.now()
	t.mu.Unlock()
}

// Reset removes the pair's entry. It reports whether the pair was actually on
// cooldown, so callers can tell "reset" from "was not on cooldown".
func (t *Tracker) Reset(memberID, guildID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{memberID, guildID}
	last, ok := t.entries[k]
	if !ok {
		return false
	}
	delete(t.entries, k)
	return t.now().Sub(last) < t.window
}

// Active lists live cooldowns, optionally filtered by guild (empty matches
// all). Expired entries are excluded but not removed; Sweep drops them.
func (t *Tracker) Active(guildID string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	var out []Entry
	for k, last := range t.entries {
		if guildID != "" && k.guildID != guildID {
			continue
		}
		rem := t.window - now.Sub(last)
		if rem <= 0 {
			continue
		}
		out = append(out, Entry{
			MemberID:   k.memberID,
			GuildID:    k.guildID,
			NotifiedAt: last,
			Remaining:  rem.Truncate(time.Second),
		})
	}
	return out
}

// Sweep removes expired entries and returns how many were dropped. Called
// periodically so the map doesn't grow with every member ever seen.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	n := 0
	for k, last := range t.entries {
		if now.Sub(last) >= t.window {
			delete(t.entries, k)
			n++
		}
	}
	return n
}
