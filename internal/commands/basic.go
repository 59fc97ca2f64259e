package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grebbot/internal/platform"
	"grebbot/pkg/logx"
)

// SetGuildCount records the number of guilds the bot currently serves,
// fed from the gateway's ready event for !info.
func (h *Handler) SetGuildCount(n int) { h.guildCount.Store(int64(n)) }

func (h *Handler) hello(_ context.Context, cmd platform.CommandMessage) Reply {
	return text(fmt.Sprintf("Hello %s! 👋", cmd.Author.Mention()))
}

func (h *Handler) ping(_ context.Context, _ platform.CommandMessage) Reply {
	return text("Pong! 🏓")
}

func (h *Handler) say(_ context.Context, cmd platform.CommandMessage) Reply {
	if len(cmd.Args) == 0 {
		return text("Usage: `!say <message>`")
	}
	return text(strings.Join(cmd.Args, " "))
}

func (h *Handler) echo(_ context.Context, cmd platform.CommandMessage) Reply {
	if len(cmd.Args) == 0 {
		return text("Usage: `!echo <message>`")
	}
	return text("You said: " + strings.Join(cmd.Args, " "))
}

func (h *Handler) serverInfo(ctx context.Context, cmd platform.CommandMessage) Reply {
	e := platform.Embed{
		Title: "Server Information: " + cmd.GuildName,
		Color: colorGreen,
		Fields: []platform.EmbedField{
			{Name: "Server ID", Value: cmd.GuildID, Inline: true},
		},
	}

	sub, ok, err := h.deps.Store.GetSubscription(ctx, cmd.GuildID)
	if err != nil {
		h.log.Warn("subscription read failed", logx.String("guild", cmd.GuildID), logx.Err(err))
	}
	notifValue := "❌ Not subscribed"
	if err == nil && ok && sub.Enabled {
		notifValue = "✅ <#" + sub.ChannelID + ">"
	}
	e.Fields = append(e.Fields, platform.EmbedField{Name: "Notifications", Value: notifValue, Inline: true})

	if users, err := h.deps.Store.DMSubscribers(ctx, cmd.GuildID); err == nil {
		e.Fields = append(e.Fields, platform.EmbedField{
			Name: "DM Subscribers", Value: fmt.Sprint(len(users)), Inline: true,
		})
	}
	return embed(e)
}

func (h *Handler) info(_ context.Context, _ platform.CommandMessage) Reply {
	uptime := time.Since(h.startedAt).Truncate(time.Second)
	return embed(platform.Embed{
		Title:       "Bot Information",
		Description: "GrebBot relays Sea of Thieves activity to subscribed servers.",
		Color:       colorBlue,
		Fields: []platform.EmbedField{
			{Name: "Version", Value: h.version, Inline: true},
			{Name: "Uptime", Value: uptime.String(), Inline: true},
			{Name: "Server Count", Value: fmt.Sprint(h.guildCount.Load()), Inline: true},
		},
	})
}

func (h *Handler) help(_ context.Context, _ platform.CommandMessage) Reply {
	return embed(platform.Embed{
		Title:       "🤖 GrebBot Commands",
		Description: "Here are all the available commands:",
		Color:       colorBlue,
		Fields: []platform.EmbedField{
			{
				Name: "📝 Basic Commands",
				Value: "`!hello` - Greet the bot\n" +
					"`!ping` - Check the bot is alive\n" +
					"`!info` - Show bot information\n" +
					"`!say <message>` - Make the bot say something\n" +
					"`!echo <message>` - Echo a message back\n" +
					"`!serverinfo` - Show server information\n" +
					"`!help` - Show this help menu",
			},
			{
				Name: "🛡️ Admin Commands (Manage Server)",
				Value: "`!subscribe [#channel]` - Subscribe to Sea of Thieves notifications\n" +
					"`!unsubscribe` - Unsubscribe from notifications\n" +
					"`!subscription_status` - Check subscription status\n" +
					"`!cooldown_status [member]` - Check cooldown status\n" +
					"`!reset_cooldown <member>` - Reset member cooldown",
			},
			{
				Name: "📬 DM Commands (Any User)",
				Value: "`!dm_subscribe` - Get DMs when notifications are sent in this server\n" +
					"`!dm_unsubscribe` - Stop getting DMs for this server\n" +
					"`!dm_status` - Check your DM subscription status",
			},
		},
		Footer: "🏴‍☠️ GrebBot automatically detects when you start playing Sea of Thieves!",
	})
}
