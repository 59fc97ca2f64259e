package dispatch

import (
	"fmt"
	"time"

	"grebbot/internal/platform"
)

const embedColorBlue = 0x3498DB

func startChannelEmbed(member platform.Member, game string, at time.Time) platform.Embed {
	return platform.Embed{
		Title:       "⚓ Ahoy, crew!",
		Description: fmt.Sprintf("🏴‍☠️ **%s** has set sail in **%s**!", member.Name(), game),
		Color:       embedColorBlue,
		Thumbnail:   member.AvatarURL,
		Timestamp:   at,
		Fields: []platform.EmbedField{
			{Name: "Player", Value: member.Mention(), Inline: true},
			{Name: "Status", Value: "🚢 Setting Sail", Inline: true},
		},
	}
}

func startDMEmbed(member platform.Member, game, guildName string, at time.Time) platform.Embed {
	return platform.Embed{
		Title:       "⚓ Ahoy, crew!",
		Description: fmt.Sprintf("🏴‍☠️ **%s** has set sail in **%s** in **%s**!", member.Name(), game, guildName),
		Color:       embedColorBlue,
		Thumbnail:   member.AvatarURL,
		Timestamp:   at,
		Fields: []platform.EmbedField{
			{Name: "Player", Value: member.Name(), Inline: true},
			{Name: "Server", Value: guildName, Inline: true},
			{Name: "Status", Value: "🚢 Setting Sail", Inline: true},
		},
	}
}
