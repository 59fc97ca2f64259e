package commands

import (
	"context"
	"fmt"

	"grebbot/internal/platform"
	"grebbot/internal/storage"
	"grebbot/pkg/logx"
)

func (h *Handler) subscribe(ctx context.Context, cmd platform.CommandMessage) Reply {
	targetID := cmd.ChannelID
	if len(cmd.Args) > 0 {
		targetID = parseIDArg(cmd.Args[0])
	}

	ch, err := h.deps.Gateway.ResolveChannel(ctx, targetID)
	if err != nil {
		return text("❌ Please specify a valid text channel or use this command in a text channel.")
	}

	sub := storage.Subscription{
		GuildID:     cmd.GuildID,
		GuildName:   cmd.GuildName,
		ChannelID:   ch.ID,
		ChannelName: ch.Name,
		Enabled:     true,
		NotifyStart: true,
	}
	if err := h.deps.Store.SaveSubscription(ctx, sub); err != nil {
		h.log.Warn("subscription save failed", logx.String("guild", cmd.GuildID), logx.Err(err))
		return text("❌ Could not save the subscription, try again later.")
	}

	return embed(platform.Embed{
		Title:       "🏴‍☠️ Sea of Thieves Notifications",
		Description: "Successfully subscribed to Sea of Thieves notifications!",
		Color:       colorGreen,
		Fields: []platform.EmbedField{
			{Name: "Notification Channel", Value: "<#" + ch.ID + ">", Inline: true},
			{Name: "Server", Value: cmd.GuildName, Inline: true},
		},
	})
}

func (h *Handler) unsubscribe(ctx context.Context, cmd platform.CommandMessage) Reply {
	sub, ok, err := h.deps.Store.GetSubscription(ctx, cmd.GuildID)
	if err != nil {
		h.log.Warn("subscription read failed", logx.String("guild", cmd.GuildID), logx.Err(err))
		return text("❌ Could not look up the subscription, try again later.")
	}
	if !ok || !sub.Enabled {
		return text("❌ This server is not currently subscribed to notifications.")
	}

	sub.Enabled = false
	if err := h.deps.Store.SaveSubscription(ctx, sub); err != nil {
		h.log.Warn("subscription save failed", logx.String("guild", cmd.GuildID), logx.Err(err))
		return text("❌ Could not save the subscription, try again later.")
	}

	return embed(platform.Embed{
		Title:       "🏴‍☠️ Sea of Thieves Notifications",
		Description: "Successfully unsubscribed from Sea of Thieves notifications.",
		Color:       colorRed,
	})
}

func (h *Handler) subscriptionStatus(ctx context.Context, cmd platform.CommandMessage) Reply {
	sub, ok, err := h.deps.Store.GetSubscription(ctx, cmd.GuildID)
	if err != nil {
		h.log.Warn("subscription read failed", logx.String("guild", cmd.GuildID), logx.Err(err))
		return text("❌ Could not look up the subscription, try again later.")
	}
	if !ok || !sub.Enabled {
		return embed(platform.Embed{
			Title:       "🏴‍☠️ Subscription Status",
			Description: "This server is not subscribed to notifications.\nUse `!subscribe` to enable notifications.",
			Color:       colorOrange,
		})
	}

	channelValue := "Channel not found"
	if ch, err := h.deps.Gateway.ResolveChannel(ctx, sub.ChannelID); err == nil {
		channelValue = "<#" + ch.ID + ">"
	}
	notify := "❌"
	if sub.NotifyStart {
		notify = "✅"
	}
	return embed(platform.Embed{
		Title:       "🏴‍☠️ Subscription Status",
		Description: "This server is subscribed to Sea of Thieves notifications.",
		Color:       colorBlue,
		Fields: []platform.EmbedField{
			{Name: "Channel", Value: channelValue, Inline: true},
			{Name: "Start Notifications", Value: notify, Inline: true},
		},
	})
}

func (h *Handler) dmSubscribe(ctx context.Context, cmd platform.CommandMessage) Reply {
	sub, ok, err := h.deps.Store.GetSubscription(ctx, cmd.GuildID)
	if err != nil {
		h.log.Warn("subscription read failed", logx.String("guild", cmd.GuildID), logx.Err(err))
		return text("❌ Could not look up the subscription, try again later.")
	}
	if !ok || !sub.Enabled {
		return text("❌ This server is not subscribed to Sea of Thieves notifications. Ask a server admin to use `!subscribe` first.")
	}

	if err := h.deps.Store.SaveDMSubscription(ctx, cmd.Author.ID, cmd.GuildID, true); err != nil {
		h.log.Warn("dm subscription save failed", logx.String("user", cmd.Author.ID), logx.Err(err))
		return text("❌ Could not save your DM subscription, try again later.")
	}

	return embed(platform.Embed{
		Title:       "📬 DM Subscription",
		Description: fmt.Sprintf("You will now receive DMs when Sea of Thieves notifications are sent in **%s**.", cmd.GuildName),
		Color:       colorGreen,
		Fields: []platform.EmbedField{
			{Name: "Server", Value: cmd.GuildName, Inline: true},
			{Name: "Status", Value: "✅ Enabled", Inline: true},
		},
	})
}

func (h *Handler) dmUnsubscribe(ctx context.Context, cmd platform.CommandMessage) Reply {
	sub, ok, err := h.deps.Store.GetDMSubscription(ctx, cmd.Author.ID, cmd.GuildID)
	if err != nil {
		h.log.Warn("dm subscription read failed", logx.String("user", cmd.Author.ID), logx.Err(err))
		return text("❌ Could not look up your DM subscription, try again later.")
	}
	if !ok || !sub.Enabled {
		return text("❌ You are not subscribed to DMs for this server.")
	}

	if err := h.deps.Store.SaveDMSubscription(ctx, cmd.Author.ID, cmd.GuildID, false); err != nil {
		h.log.Warn("dm subscription save failed", logx.String("user", cmd.Author.ID), logx.Err(err))
		return text("❌ Could not save your DM subscription, try again later.")
	}

	return embed(platform.Embed{
		Title:       "📬 DM Subscription",
		Description: fmt.Sprintf("You will no longer receive DMs for **%s**.", cmd.GuildName),
		Color:       colorRed,
		Fields: []platform.EmbedField{
			{Name: "Server", Value: cmd.GuildName, Inline: true},
			{Name: "Status", Value: "❌ Disabled", Inline: true},
		},
	})
}

func (h *Handler) dmStatus(ctx context.Context, cmd platform.CommandMessage) Reply {
	if cmd.GuildID == "" {
		return h.dmStatusAll(ctx, cmd)
	}

	dmSub, ok, err := h.deps.Store.GetDMSubscription(ctx, cmd.Author.ID, cmd.GuildID)
	if err != nil {
		h.log.Warn("dm subscription read failed", logx.String("user", cmd.Author.ID), logx.Err(err))
		return text("❌ Could not look up your DM subscription, try again later.")
	}
	subscribed := ok && dmSub.Enabled

	sub, ok, err := h.deps.Store.GetSubscription(ctx, cmd.GuildID)
	if err != nil {
		h.log.Warn("subscription read failed", logx.String("guild", cmd.GuildID), logx.Err(err))
		return text("❌ Could not look up the subscription, try again later.")
	}
	serverEnabled := ok && sub.Enabled

	e := platform.Embed{
		Title: "📬 DM Subscription Status",
		Color: colorOrange,
		Fields: []platform.EmbedField{
			{Name: "Server", Value: cmd.GuildName, Inline: true},
			{Name: "Server Notifications", Value: enabledMark(serverEnabled), Inline: true},
			{Name: "Your DM Subscription", Value: enabledMark(subscribed), Inline: true},
		},
		Footer: "💡 Tip: DM me `!dm_status` to see all your subscriptions!",
	}
	switch {
	case !serverEnabled:
		e.Description = "This server doesn't have Sea of Thieves notifications enabled."
	case subscribed:
		e.Color = colorBlue
		e.Description = "You will receive DMs when Sea of Thieves notifications are sent in this server."
	default:
		e.Description = "Use `!dm_subscribe` to receive DMs for this server's notifications."
	}
	return embed(e)
}

// dmStatusAll answers !dm_status in a direct message: every guild the
// user opted into, flagged with the guild's current enabled state.
func (h *Handler) dmStatusAll(ctx context.Context, cmd platform.CommandMessage) Reply {
	subs, err := h.deps.Store.DMSubscriptionsForUser(ctx, cmd.Author.ID)
	if err != nil {
		h.log.Warn("dm subscription read failed", logx.String("user", cmd.Author.ID), logx.Err(err))
		return text("❌ Could not look up your DM subscriptions, try again later.")
	}
	if len(subs) == 0 {
		return embed(platform.Embed{
			Title:       "📬 DM Subscription Status",
			Description: "You are not subscribed to DM notifications for any servers.",
			Color:       colorOrange,
			Fields: []platform.EmbedField{{
				Name:  "How to Subscribe",
				Value: "Use `!dm_subscribe` in any server where you want to receive notifications.",
			}},
		})
	}

	e := platform.Embed{
		Title:       "📬 Your DM Subscriptions",
		Description: fmt.Sprintf("You are subscribed to DM notifications for %d server(s):", len(subs)),
		Color:       colorBlue,
		Footer:      "Use `!dm_unsubscribe` in a server to remove DM notifications for that server.",
	}
	for _, dmSub := range subs {
		name := "Guild " + dmSub.GuildID
		status := "⚠️ Server notifications disabled"
		sub, ok, err := h.deps.Store.GetSubscription(ctx, dmSub.GuildID)
		if err == nil && ok {
			if sub.GuildName != "" {
				name = sub.GuildName
			}
			if sub.Enabled {
				status = "✅ Active"
			}
		}
		e.Fields = append(e.Fields, platform.EmbedField{Name: name, Value: status, Inline: true})
	}
	return embed(e)
}

func enabledMark(on bool) string {
	if on {
		return "✅ Enabled"
	}
	return "❌ Disabled"
}
