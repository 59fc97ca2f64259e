package presence

import (
	"testing"

	"grebbot/internal/platform"
)

func TestClassify(t *testing.T) {
	d := NewDetector("Sea of Thieves")

	cases := []struct {
		activity string
		want     State
	}{
		{"", NotPlaying},
		{"   ", NotPlaying},
		{"Sea of Thieves", PlayingTracked},
		{"sea of thieves", PlayingTracked},
		{"SEA OF THIEVES", PlayingTracked},
		{"  Sea of Thieves  ", PlayingTracked},
		{"Sea of Thieves 2", PlayingOther},
		{"Thieves", PlayingOther},
		{"Minecraft", PlayingOther},
	}
	for _, tc := range cases {
		if got := d.Classify(tc.activity); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.activity, got, tc.want)
		}
	}
}

func TestDetectTransitions(t *testing.T) {
	d := NewDetector("Sea of Thieves")
	m := platform.Member{ID: "42", Username: "greb"}

	cases := []struct {
		name    string
		before  string
		after   string
		isStart bool
	}{
		{"idle to tracked", "", "Sea of Thieves", true},
		{"other game to tracked", "Minecraft", "sea of thieves", true},
		{"tracked to idle (stop ignored)", "Sea of Thieves", "", false},
		{"tracked to other game", "Sea of Thieves", "Minecraft", false},
		{"tracked to tracked (no transition)", "Sea of Thieves", "sea of thieves", false},
		{"idle to idle", "", "", false},
		{"idle to other game", "", "Minecraft", false},
		{"other to other", "Minecraft", "Factorio", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := d.Detect(platform.PresenceUpdate{Member: m, Before: tc.before, After: tc.after})
			if ok != tc.isStart {
				t.Fatalf("Detect(%q -> %q) = %v, want %v", tc.before, tc.after, ok, tc.isStart)
			}
			if ok && ev.Member.ID != m.ID {
				t.Fatalf("start event carries wrong member: %+v", ev.Member)
			}
		})
	}
}
