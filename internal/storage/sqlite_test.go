package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"grebbot/pkg/logx"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	st, err := Open(Config{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "grebbot.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSubscriptionRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.GetSubscription(ctx, "g1"); err != nil || ok {
		t.Fatalf("expected no subscription, got ok=%v err=%v", ok, err)
	}

	sub := Subscription{
		GuildID:     "g1",
		GuildName:   "Test Crew",
		ChannelID:   "c1",
		ChannelName: "sailing",
		Enabled:     true,
		NotifyStart: true,
		UpdatedAt:   time.Now(),
	}
	if err := st.SaveSubscription(ctx, sub); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := st.GetSubscription(ctx, "g1")
	if err != nil || !ok {
		t.Fatalf("get after save: ok=%v err=%v", ok, err)
	}
	if got.GuildName != sub.GuildName || got.ChannelID != sub.ChannelID ||
		got.ChannelName != sub.ChannelName || !got.Enabled || !got.NotifyStart {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSaveSubscriptionUpserts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	first := Subscription{GuildID: "g1", GuildName: "Crew", ChannelID: "c1", ChannelName: "old", Enabled: true, NotifyStart: true}
	if err := st.SaveSubscription(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := first
	second.ChannelID = "c2"
	second.ChannelName = "new"
	second.Enabled = false
	if err := st.SaveSubscription(ctx, second); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, ok, err := st.GetSubscription(ctx, "g1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.ChannelID != "c2" || got.ChannelName != "new" || got.Enabled {
		t.Fatalf("upsert did not replace fields: %+v", got)
	}

	enabled, err := st.AllEnabledSubscriptions(ctx)
	if err != nil {
		t.Fatalf("enabled: %v", err)
	}
	if len(enabled) != 0 {
		t.Fatalf("disabled subscription still listed: %v", enabled)
	}
}

func TestDMSubscriptions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"u1", "u2", "u3"} {
		if err := st.SaveDMSubscription(ctx, user, "g1", true); err != nil {
			t.Fatalf("save dm %s: %v", user, err)
		}
	}
	if err := st.SaveDMSubscription(ctx, "u2", "g1", false); err != nil {
		t.Fatalf("disable dm: %v", err)
	}
	if err := st.SaveDMSubscription(ctx, "u1", "g2", true); err != nil {
		t.Fatalf("save dm other guild: %v", err)
	}

	subs, err := st.DMSubscribers(ctx, "g1")
	if err != nil {
		t.Fatalf("subscribers: %v", err)
	}
	if len(subs) != 2 || subs[0] != "u1" || subs[1] != "u3" {
		t.Fatalf("unexpected subscribers: %v", subs)
	}

	mine, err := st.DMSubscriptionsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("for user: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 guilds for u1, got %v", mine)
	}

	sub, ok, err := st.GetDMSubscription(ctx, "u2", "g1")
	if err != nil || !ok {
		t.Fatalf("get dm: ok=%v err=%v", ok, err)
	}
	if sub.Enabled {
		t.Fatalf("u2 should be disabled")
	}
}

func TestNotificationLog(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	old := NotificationRecord{
		At:      time.Now().Add(-48 * time.Hour),
		GuildID: "g1", MemberID: "u1", MemberName: "Guybrush",
		Kind: "channel", Target: "c1", Outcome: "delivered", TookMS: 12,
	}
	fresh := old
	fresh.At = time.Now()
	fresh.Kind = "dm"
	fresh.Target = "u2"
	fresh.Outcome = "failed"
	fresh.Error = "dms closed"

	for _, rec := range []NotificationRecord{old, fresh} {
		if err := st.AppendNotification(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recent, err := st.RecentNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Kind != "dm" || recent[0].Error != "dms closed" {
		t.Fatalf("newest first expected, got %+v", recent[0])
	}

	removed, err := st.PruneNotifications(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned, got %d", removed)
	}
	recent, err = st.RecentNotifications(ctx, 10)
	if err != nil || len(recent) != 1 {
		t.Fatalf("after prune: err=%v n=%d", err, len(recent))
	}
}
