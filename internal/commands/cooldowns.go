package commands

import (
	"context"
	"fmt"
	"strings"

	"grebbot/internal/platform"
)

func (h *Handler) cooldownStatus(ctx context.Context, cmd platform.CommandMessage) Reply {
	if len(cmd.Args) > 0 {
		return h.cooldownStatusFor(ctx, cmd, parseIDArg(cmd.Args[0]))
	}

	entries := h.deps.Cooldowns.Active(cmd.GuildID)
	if len(entries) == 0 {
		return embed(platform.Embed{
			Title:       "🕒 Cooldown Status",
			Description: "No members are currently on cooldown.",
			Color:       colorGreen,
		})
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.MemberID
		if u, err := h.deps.Gateway.ResolveUser(ctx, e.MemberID); err == nil && u.Username != "" {
			name = u.Username
		}
		lines = append(lines, fmt.Sprintf("**%s**: %ds", name, int(e.Remaining.Seconds())))
	}
	return embed(platform.Embed{
		Title:       "🕒 Active Cooldowns",
		Description: strings.Join(lines, "\n"),
		Color:       colorOrange,
	})
}

func (h *Handler) cooldownStatusFor(ctx context.Context, cmd platform.CommandMessage, memberID string) Reply {
	name := memberID
	if u, err := h.deps.Gateway.ResolveUser(ctx, memberID); err == nil && u.Username != "" {
		name = u.Username
	}

	if !h.deps.Cooldowns.IsOnCooldown(memberID, cmd.GuildID) {
		return embed(platform.Embed{
			Title:       "🕒 Cooldown Status",
			Description: fmt.Sprintf("**%s** is not on cooldown.", name),
			Color:       colorGreen,
		})
	}
	remaining := h.deps.Cooldowns.Remaining(memberID, cmd.GuildID)
	return embed(platform.Embed{
		Title:       "🕒 Cooldown Status",
		Description: fmt.Sprintf("**%s** is on cooldown.", name),
		Color:       colorOrange,
		Fields: []platform.EmbedField{
			{Name: "Remaining Time", Value: fmt.Sprintf("%d seconds", int(remaining.Seconds())), Inline: true},
		},
	})
}

func (h *Handler) resetCooldown(ctx context.Context, cmd platform.CommandMessage) Reply {
	if len(cmd.Args) == 0 {
		return text("❌ Usage: `!reset_cooldown <member>`")
	}
	memberID := parseIDArg(cmd.Args[0])
	name := memberID
	if u, err := h.deps.Gateway.ResolveUser(ctx, memberID); err == nil && u.Username != "" {
		name = u.Username
	}

	if h.deps.Cooldowns.Reset(memberID, cmd.GuildID) {
		return embed(platform.Embed{
			Title:       "🔄 Cooldown Reset",
			Description: fmt.Sprintf("Cooldown reset for **%s**.", name),
			Color:       colorGreen,
		})
	}
	return embed(platform.Embed{
		Title:       "🔄 Cooldown Reset",
		Description: fmt.Sprintf("**%s** was not on cooldown.", name),
		Color:       colorBlue,
	})
}
