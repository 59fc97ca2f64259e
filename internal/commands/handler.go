// Package commands implements the chat command surface: subscription
// management, DM opt-ins, cooldown introspection and a few basics.
package commands

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"grebbot/internal/cooldown"
	"grebbot/internal/eventbus"
	"grebbot/internal/platform"
	"grebbot/internal/storage"
	"grebbot/pkg/logx"
)

const (
	colorGreen  = 0x2ECC71
	colorRed    = 0xE74C3C
	colorOrange = 0xE67E22
	colorBlue   = 0x3498DB
)

// Resolver is the slice of the gateway the command layer needs.
type Resolver interface {
	ResolveChannel(ctx context.Context, channelID string) (platform.Channel, error)
	ResolveUser(ctx context.Context, userID string) (platform.User, error)
	IsMember(ctx context.Context, guildID, userID string) (bool, error)
}

type Deps struct {
	Store     storage.Store
	Cooldowns *cooldown.Tracker
	Gateway   Resolver
	Bus       eventbus.Bus
	Log       logx.Logger
}

// Reply is what a command produces: plain text, an embed, or both.
// An empty Reply means the command was recognized but needs no answer.
type Reply struct {
	Text  string
	Embed *platform.Embed
}

func text(s string) Reply          { return Reply{Text: s} }
func embed(e platform.Embed) Reply { return Reply{Embed: &e} }

type handlerFunc func(ctx context.Context, cmd platform.CommandMessage) Reply

type command struct {
	fn        handlerFunc
	adminOnly bool
	guildOnly bool
}

type Handler struct {
	deps       Deps
	log        logx.Logger
	startedAt  time.Time
	version    string
	guildCount atomic.Int64
	registry   map[string]command
}

func New(deps Deps, version string) *Handler {
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	h := &Handler{
		deps:      deps,
		log:       deps.Log.With(logx.String("svc", "commands")),
		startedAt: time.Now(),
		version:   version,
	}
	h.registry = map[string]command{
		"hello":               {fn: h.hello},
		"ping":                {fn: h.ping},
		"info":                {fn: h.info},
		"help":                {fn: h.help},
		"say":                 {fn: h.say},
		"echo":                {fn: h.echo},
		"serverinfo":          {fn: h.serverInfo, guildOnly: true},
		"subscribe":           {fn: h.subscribe, adminOnly: true, guildOnly: true},
		"unsubscribe":         {fn: h.unsubscribe, adminOnly: true, guildOnly: true},
		"subscription_status": {fn: h.subscriptionStatus, adminOnly: true, guildOnly: true},
		"cooldown_status":     {fn: h.cooldownStatus, adminOnly: true, guildOnly: true},
		"reset_cooldown":      {fn: h.resetCooldown, adminOnly: true, guildOnly: true},
		"dm_subscribe":        {fn: h.dmSubscribe, guildOnly: true},
		"dm_unsubscribe":      {fn: h.dmUnsubscribe, guildOnly: true},
		"dm_status":           {fn: h.dmStatus},
	}
	return h
}

// Handle runs one command. ok is false for unrecognized commands, which
// callers silently ignore.
func (h *Handler) Handle(ctx context.Context, cmd platform.CommandMessage) (Reply, bool) {
	c, ok := h.registry[strings.ToLower(cmd.Command)]
	if !ok {
		return Reply{}, false
	}
	if c.guildOnly && cmd.GuildID == "" {
		return text("❌ This command can only be used in a server, not in DMs."), true
	}
	if c.adminOnly && !cmd.IsAdmin {
		return text("❌ You need the Manage Server permission to use this command."), true
	}

	reply := c.fn(ctx, cmd)
	h.log.Info("command handled",
		logx.String("command", cmd.Command),
		logx.String("guild", cmd.GuildID),
		logx.String("author", cmd.Author.ID))
	if h.deps.Bus != nil {
		h.deps.Bus.Publish(eventbus.Event{Type: eventbus.TypeCommand, Data: map[string]any{
			"command": cmd.Command,
			"guild":   cmd.GuildID,
			"author":  cmd.Author.ID,
		}})
	}
	return reply, true
}

// parseIDArg strips a <#...> or <@...> mention down to the bare id.
func parseIDArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "<") && strings.HasSuffix(arg, ">") {
		arg = arg[1 : len(arg)-1]
		arg = strings.TrimLeft(arg, "#@!&")
	}
	return arg
}
