// Package presence classifies member activity snapshots and detects the
// start of a tracked game.
package presence

import (
	"strings"
	"time"

	"grebbot/internal/platform"
)

// State is the tracked-game classification of a single activity snapshot.
type State int

const (
	NotPlaying State = iota
	PlayingTracked
	PlayingOther
)

func (s State) String() string {
	switch s {
	case NotPlaying:
		return "not_playing"
	case PlayingTracked:
		return "playing_tracked"
	case PlayingOther:
		return "playing_other"
	default:
		return "unknown"
	}
}

// StartEvent is emitted when a member transitions into the tracked game.
type StartEvent struct {
	Member platform.Member
	Game   string
	At     time.Time
}

// Detector decides whether a before/after presence pair is a start
// transition for one tracked game. Matching is a case-insensitive exact
// match; no substring or fuzzy matching.
type Detector struct {
	game string
	now  func() time.Time
}

func NewDetector(game string) *Detector {
	return &Detector{game: strings.TrimSpace(game), now: time.Now}
}

// WithClock overrides the clock. Tests only.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

func (d *Detector) Game() string { return d.game }

// Classify maps one activity name to a State. An empty name means the
// member is not playing anything.
func (d *Detector) Classify(activity string) State {
	if strings.TrimSpace(activity) == "" {
		return NotPlaying
	}
	if strings.EqualFold(strings.TrimSpace(activity), d.game) {
		return PlayingTracked
	}
	return PlayingOther
}

// Detect inspects a presence update and returns a start event when the
// member moved into the tracked game. Every other transition, including
// stopping the game, is ignored.
func (d *Detector) Detect(up platform.PresenceUpdate) (StartEvent, bool) {
	if d.Classify(up.Before) != PlayingTracked && d.Classify(up.After) == PlayingTracked {
		return StartEvent{Member: up.Member, Game: d.game, At: d.now()}, true
	}
	return StartEvent{}, false
}
