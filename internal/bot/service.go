// Package bot runs the gateway event loop: presence updates flow
// through the activity detector into the notification dispatcher,
// command messages into the command handler.
package bot

import (
	"context"
	"sync"
	"time"

	"grebbot/internal/commands"
	"grebbot/internal/dispatch"
	"grebbot/internal/eventbus"
	"grebbot/internal/platform"
	"grebbot/internal/presence"
	"grebbot/pkg/logx"
)

type Config struct {
	// EventBuffer sizes the gateway event channel. 0 means 256.
	EventBuffer int
}

type Deps struct {
	Gateway    platform.Gateway
	Detector   *presence.Detector
	Dispatcher *dispatch.Dispatcher
	Commands   *commands.Handler
	Bus        eventbus.Bus
	Log        logx.Logger
}

// Status is a point-in-time view for the dashboard.
type Status struct {
	Ready       bool      `json:"ready"`
	BotUserID   string    `json:"bot_user_id,omitempty"`
	BotUsername string    `json:"bot_username,omitempty"`
	GuildCount  int       `json:"guild_count"`
	StartedAt   time.Time `json:"started_at"`
	EventsSeen  uint64    `json:"events_seen"`
}

type Service struct {
	cfg  Config
	deps Deps
	log  logx.Logger

	events chan platform.Event

	mu     sync.Mutex
	status Status
}

func New(cfg Config, deps Deps) *Service {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 256
	}
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		deps:   deps,
		log:    deps.Log.With(logx.String("svc", "bot")),
		events: make(chan platform.Event, cfg.EventBuffer),
		status: Status{StartedAt: time.Now()},
	}
}

// Start connects the gateway. Run must be called to consume events.
func (s *Service) Start(ctx context.Context) error {
	return s.deps.Gateway.Start(ctx, s.events)
}

func (s *Service) Stop(ctx context.Context) error {
	return s.deps.Gateway.Stop(ctx)
}

// Run consumes gateway events until ctx is canceled. Each event is
// handled to completion before the next one; errors never escape.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Service) handle(ctx context.Context, ev platform.Event) {
	s.mu.Lock()
	s.status.EventsSeen++
	s.mu.Unlock()

	switch ev.Kind {
	case platform.EventReady:
		s.handleReady(ev.Ready)
	case platform.EventPresence:
		s.handlePresence(ctx, ev.Presence)
	case platform.EventCommand:
		s.handleCommand(ctx, ev.Command)
	}
}

func (s *Service) handleReady(r *platform.Ready) {
	if r == nil {
		return
	}
	s.mu.Lock()
	s.status.Ready = true
	s.status.BotUserID = r.BotUserID
	s.status.BotUsername = r.BotUsername
	s.status.GuildCount = r.GuildCount
	s.mu.Unlock()

	if s.deps.Commands != nil {
		s.deps.Commands.SetGuildCount(r.GuildCount)
	}
	s.log.Info("gateway ready",
		logx.String("bot", r.BotUsername),
		logx.Int("guilds", r.GuildCount))
}

func (s *Service) handlePresence(ctx context.Context, up *platform.PresenceUpdate) {
	if up == nil {
		return
	}
	start, ok := s.deps.Detector.Detect(*up)
	if !ok {
		return
	}
	s.log.Info("tracked game started",
		logx.String("member", start.Member.ID),
		logx.String("game", start.Game))
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(eventbus.Event{Type: eventbus.TypeGameStart, Data: map[string]any{
			"member": start.Member.ID,
			"name":   start.Member.Name(),
			"game":   start.Game,
		}})
	}
	// Dispatch errors are already logged; the next presence update
	// retries from fresh state.
	_, _ = s.deps.Dispatcher.HandleStart(ctx, start)
}

func (s *Service) handleCommand(ctx context.Context, cmd *platform.CommandMessage) {
	if cmd == nil || s.deps.Commands == nil {
		return
	}
	reply, ok := s.deps.Commands.Handle(ctx, *cmd)
	if !ok {
		return
	}
	if err := s.sendReply(ctx, *cmd, reply); err != nil {
		s.log.Warn("command reply failed",
			logx.String("command", cmd.Command),
			logx.String("channel", cmd.ChannelID),
			logx.Err(err))
	}
}

func (s *Service) sendReply(ctx context.Context, cmd platform.CommandMessage, reply commands.Reply) error {
	var e platform.Embed
	switch {
	case reply.Embed != nil:
		e = *reply.Embed
	case reply.Text != "":
		e = platform.Embed{Description: reply.Text}
	default:
		return nil
	}
	if cmd.GuildID == "" {
		return s.deps.Gateway.SendDirectMessage(ctx, cmd.Author.ID, e)
	}
	return s.deps.Gateway.SendChannelMessage(ctx, cmd.ChannelID, e)
}
