package bot

import (
	"context"
	"testing"
	"time"

	"grebbot/internal/commands"
	"grebbot/internal/cooldown"
	"grebbot/internal/dispatch"
	"grebbot/internal/platform"
	"grebbot/internal/presence"
	"grebbot/internal/storage"
)

type loopGateway struct {
	out          chan<- platform.Event
	channelSends chan string
	dmSends      chan string
}

func newLoopGateway() *loopGateway {
	return &loopGateway{
		channelSends: make(chan string, 16),
		dmSends:      make(chan string, 16),
	}
}

func (g *loopGateway) Start(_ context.Context, out chan<- platform.Event) error {
	g.out = out
	return nil
}

func (g *loopGateway) Stop(context.Context) error { return nil }

func (g *loopGateway) IsMember(context.Context, string, string) (bool, error) {
	return true, nil
}

func (g *loopGateway) ResolveChannel(_ context.Context, id string) (platform.Channel, error) {
	return platform.Channel{ID: id, Name: "sailing"}, nil
}

func (g *loopGateway) ResolveUser(_ context.Context, id string) (platform.User, error) {
	return platform.User{ID: id}, nil
}

func (g *loopGateway) SendChannelMessage(_ context.Context, channelID string, _ platform.Embed) error {
	g.channelSends <- channelID
	return nil
}

func (g *loopGateway) SendDirectMessage(_ context.Context, userID string, _ platform.Embed) error {
	g.dmSends <- userID
	return nil
}

func newTestService(t *testing.T) (*Service, *loopGateway, storage.Store) {
	t.Helper()
	gw := newLoopGateway()
	st := storage.NewMemory()
	cds := cooldown.New(cooldown.DefaultWindow)
	disp := dispatch.New(dispatch.Config{GameName: "Sea of Thieves"}, dispatch.Deps{
		Store:     st,
		Gateway:   gw,
		Cooldowns: cds,
	})
	cmds := commands.New(commands.Deps{
		Store:     st,
		Cooldowns: cds,
		Gateway:   gw,
	}, "test")
	svc := New(Config{}, Deps{
		Gateway:    gw,
		Detector:   presence.NewDetector("Sea of Thieves"),
		Dispatcher: disp,
		Commands:   cmds,
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc, gw, st
}

func waitFor(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("got send to %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for send to %q", want)
	}
}

func TestPresenceStartTriggersNotification(t *testing.T) {
	svc, gw, st := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	err := st.SaveSubscription(ctx, storage.Subscription{
		GuildID: "g1", GuildName: "Crew", ChannelID: "c1", ChannelName: "sailing",
		Enabled: true, NotifyStart: true,
	})
	if err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	gw.out <- platform.Event{Kind: platform.EventPresence, Presence: &platform.PresenceUpdate{
		Member: platform.Member{ID: "u1", Username: "guybrush"},
		Before: "",
		After:  "Sea of Thieves",
	}}
	waitFor(t, gw.channelSends, "c1")

	// The stop transition must not notify.
	gw.out <- platform.Event{Kind: platform.EventPresence, Presence: &platform.PresenceUpdate{
		Member: platform.Member{ID: "u1", Username: "guybrush"},
		Before: "Sea of Thieves",
		After:  "",
	}}
	select {
	case got := <-gw.channelSends:
		t.Fatalf("stop transition sent a notification to %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCommandReplyGoesToChannel(t *testing.T) {
	svc, gw, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	gw.out <- platform.Event{Kind: platform.EventCommand, Command: &platform.CommandMessage{
		GuildID:   "g1",
		GuildName: "Crew",
		ChannelID: "c9",
		Author:    platform.Member{ID: "u1", Username: "guybrush"},
		Command:   "ping",
	}}
	waitFor(t, gw.channelSends, "c9")
}

func TestReadyUpdatesStatus(t *testing.T) {
	svc, gw, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	gw.out <- platform.Event{Kind: platform.EventReady, Ready: &platform.Ready{
		BotUserID: "bot1", BotUsername: "grebbot", GuildCount: 3,
	}}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := svc.Status(); st.Ready {
			if st.GuildCount != 3 || st.BotUsername != "grebbot" {
				t.Fatalf("unexpected status: %+v", st)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("status never became ready")
}
