package commands

import (
	"context"
	"strings"
	"testing"

	"grebbot/internal/cooldown"
	"grebbot/internal/platform"
	"grebbot/internal/storage"
)

type fakeResolver struct {
	channels map[string]platform.Channel
}

func (r *fakeResolver) ResolveChannel(_ context.Context, id string) (platform.Channel, error) {
	if ch, ok := r.channels[id]; ok {
		return ch, nil
	}
	return platform.Channel{}, platform.ErrUnknownChannel
}

func (r *fakeResolver) ResolveUser(_ context.Context, id string) (platform.User, error) {
	return platform.User{ID: id, Username: "user-" + id}, nil
}

func (r *fakeResolver) IsMember(context.Context, string, string) (bool, error) {
	return true, nil
}

func newTestHandler() (*Handler, storage.Store, *cooldown.Tracker) {
	st := storage.NewMemory()
	cds := cooldown.New(cooldown.DefaultWindow)
	h := New(Deps{
		Store:     st,
		Cooldowns: cds,
		Gateway: &fakeResolver{channels: map[string]platform.Channel{
			"c1": {ID: "c1", GuildID: "g1", Name: "sailing"},
			"c2": {ID: "c2", GuildID: "g1", Name: "general"},
		}},
	}, "test")
	return h, st, cds
}

func guildCmd(name string, admin bool, args ...string) platform.CommandMessage {
	return platform.CommandMessage{
		GuildID:   "g1",
		GuildName: "Test Crew",
		ChannelID: "c1",
		Author:    platform.Member{ID: "u1", Username: "guybrush"},
		IsAdmin:   admin,
		Command:   name,
		Args:      args,
	}
}

func TestUnknownCommandIgnored(t *testing.T) {
	h, _, _ := newTestHandler()
	if _, ok := h.Handle(context.Background(), guildCmd("fhqwhgads", true)); ok {
		t.Fatalf("unknown command should not be handled")
	}
}

func TestAdminGate(t *testing.T) {
	h, _, _ := newTestHandler()
	for _, name := range []string{"subscribe", "unsubscribe", "subscription_status", "cooldown_status", "reset_cooldown"} {
		reply, ok := h.Handle(context.Background(), guildCmd(name, false))
		if !ok {
			t.Fatalf("%s: not handled", name)
		}
		if !strings.Contains(reply.Text, "Manage Server") {
			t.Errorf("%s: expected permission refusal, got %+v", name, reply)
		}
	}
}

func TestGuildOnlyGate(t *testing.T) {
	h, _, _ := newTestHandler()
	cmd := guildCmd("dm_subscribe", false)
	cmd.GuildID = ""
	reply, ok := h.Handle(context.Background(), cmd)
	if !ok || !strings.Contains(reply.Text, "not in DMs") {
		t.Fatalf("expected dm refusal, got ok=%v %+v", ok, reply)
	}
}

func TestSubscribeCreatesEnabledRecord(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	reply, ok := h.Handle(ctx, guildCmd("subscribe", true, "<#c2>"))
	if !ok || reply.Embed == nil {
		t.Fatalf("subscribe failed: ok=%v %+v", ok, reply)
	}

	sub, found, err := st.GetSubscription(ctx, "g1")
	if err != nil || !found {
		t.Fatalf("subscription not stored: found=%v err=%v", found, err)
	}
	if !sub.Enabled || !sub.NotifyStart || sub.ChannelID != "c2" || sub.ChannelName != "general" {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
}

func TestSubscribeDefaultsToCurrentChannel(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	if _, ok := h.Handle(ctx, guildCmd("subscribe", true)); !ok {
		t.Fatal("subscribe not handled")
	}
	sub, _, _ := st.GetSubscription(ctx, "g1")
	if sub.ChannelID != "c1" {
		t.Fatalf("expected current channel c1, got %q", sub.ChannelID)
	}
}

func TestSubscribeRejectsUnknownChannel(t *testing.T) {
	h, _, _ := newTestHandler()
	reply, _ := h.Handle(context.Background(), guildCmd("subscribe", true, "<#nope>"))
	if !strings.Contains(reply.Text, "valid text channel") {
		t.Fatalf("expected channel rejection, got %+v", reply)
	}
}

func TestUnsubscribeDisables(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()
	h.Handle(ctx, guildCmd("subscribe", true))

	reply, ok := h.Handle(ctx, guildCmd("unsubscribe", true))
	if !ok || reply.Embed == nil {
		t.Fatalf("unsubscribe failed: %+v", reply)
	}
	sub, _, _ := st.GetSubscription(ctx, "g1")
	if sub.Enabled {
		t.Fatalf("subscription still enabled after unsubscribe")
	}

	// A second unsubscribe reports there is nothing to disable.
	reply, _ = h.Handle(ctx, guildCmd("unsubscribe", true))
	if !strings.Contains(reply.Text, "not currently subscribed") {
		t.Fatalf("expected not-subscribed notice, got %+v", reply)
	}
}

func TestDMSubscribeRequiresEnabledGuild(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()

	reply, _ := h.Handle(ctx, guildCmd("dm_subscribe", false))
	if !strings.Contains(reply.Text, "not subscribed") {
		t.Fatalf("expected refusal without guild subscription, got %+v", reply)
	}

	h.Handle(ctx, guildCmd("subscribe", true))
	reply, _ = h.Handle(ctx, guildCmd("dm_subscribe", false))
	if reply.Embed == nil {
		t.Fatalf("dm_subscribe should succeed once the guild is enabled: %+v", reply)
	}

	dmSub, found, err := st.GetDMSubscription(ctx, "u1", "g1")
	if err != nil || !found || !dmSub.Enabled {
		t.Fatalf("dm subscription not stored: %+v found=%v err=%v", dmSub, found, err)
	}
}

func TestResetCooldown(t *testing.T) {
	h, _, cds := newTestHandler()
	ctx := context.Background()
	cds.Update("u2", "g1")

	reply, _ := h.Handle(ctx, guildCmd("reset_cooldown", true, "<@u2>"))
	if reply.Embed == nil || !strings.Contains(reply.Embed.Description, "Cooldown reset") {
		t.Fatalf("expected reset confirmation, got %+v", reply)
	}
	if cds.IsOnCooldown("u2", "g1") {
		t.Fatalf("cooldown still active after reset")
	}

	reply, _ = h.Handle(ctx, guildCmd("reset_cooldown", true, "<@u2>"))
	if reply.Embed == nil || !strings.Contains(reply.Embed.Description, "was not on cooldown") {
		t.Fatalf("expected no-op notice, got %+v", reply)
	}
}

func TestSayRepeatsMessage(t *testing.T) {
	h, _, _ := newTestHandler()
	reply, ok := h.Handle(context.Background(), guildCmd("say", false, "ahoy", "there"))
	if !ok || reply.Text != "ahoy there" {
		t.Fatalf("say: %+v", reply)
	}

	reply, _ = h.Handle(context.Background(), guildCmd("say", false))
	if !strings.Contains(reply.Text, "Usage") {
		t.Fatalf("bare say should print usage: %+v", reply)
	}
}

func TestEchoPrefixesMessage(t *testing.T) {
	h, _, _ := newTestHandler()
	reply, ok := h.Handle(context.Background(), guildCmd("echo", false, "ahoy"))
	if !ok || reply.Text != "You said: ahoy" {
		t.Fatalf("echo: %+v", reply)
	}
}

func TestServerInfo(t *testing.T) {
	h, st, _ := newTestHandler()
	ctx := context.Background()
	_ = st.SaveSubscription(ctx, storage.Subscription{
		GuildID: "g1", GuildName: "Test Crew", ChannelID: "c1", Enabled: true, NotifyStart: true,
	})
	_ = st.SaveDMSubscription(ctx, "u2", "g1", true)

	reply, ok := h.Handle(ctx, guildCmd("serverinfo", false))
	if !ok || reply.Embed == nil {
		t.Fatalf("serverinfo: %+v", reply)
	}
	if !strings.Contains(reply.Embed.Title, "Test Crew") {
		t.Errorf("title: %q", reply.Embed.Title)
	}
	var gotNotif, gotDMs bool
	for _, f := range reply.Embed.Fields {
		switch f.Name {
		case "Notifications":
			gotNotif = strings.Contains(f.Value, "c1")
		case "DM Subscribers":
			gotDMs = f.Value == "1"
		}
	}
	if !gotNotif || !gotDMs {
		t.Errorf("fields incomplete: %+v", reply.Embed.Fields)
	}

	// Guild-only: refused in DMs.
	dm := guildCmd("serverinfo", false)
	dm.GuildID = ""
	reply, _ = h.Handle(ctx, dm)
	if !strings.Contains(reply.Text, "server") {
		t.Errorf("expected guild-only refusal, got %+v", reply)
	}
}

func TestCooldownStatusListsActive(t *testing.T) {
	h, _, cds := newTestHandler()
	cds.Update("u2", "g1")
	cds.Update("u3", "g2") // other guild, must not appear

	reply, _ := h.Handle(context.Background(), guildCmd("cooldown_status", true))
	if reply.Embed == nil {
		t.Fatalf("no embed: %+v", reply)
	}
	if !strings.Contains(reply.Embed.Description, "user-u2") {
		t.Errorf("u2 missing from listing: %q", reply.Embed.Description)
	}
	if strings.Contains(reply.Embed.Description, "user-u3") {
		t.Errorf("u3 from another guild listed: %q", reply.Embed.Description)
	}
}
