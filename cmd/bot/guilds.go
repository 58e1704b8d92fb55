package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/logging"
)

func guildJoinedHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		a.Log().Info(fmt.Sprintf("Joined guild %s", g.Name))

		// Increment the total number of guilds.
		TotalDiscordGuilds.Inc()

		// GuildCreate fires once per guild at startup, so this rebuilds the
		// in-memory ticket index after a restart or crash.
		if err := a.Engine().ReconcileGuild(context.Background(), g.ID); err != nil {
			a.Log().Error("Error reconciling guild tickets",
				slog.String(logging.KeyGuildID, g.ID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}

func guildLeaveHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		a.Log().Info(fmt.Sprintf("Left guild %s", g.ID))

		// Decrement the total number of guilds.
		TotalDiscordGuilds.Dec()
	}
}

// channelDeleteHandler heals ticket rows whose channel was deleted manually
// rather than through the close workflow.
func channelDeleteHandler(a IApp) func(s *discordgo.Session, c *discordgo.ChannelDelete) {
	return func(_ *discordgo.Session, c *discordgo.ChannelDelete) {
		a.Engine().HandleChannelDelete(context.Background(), c.GuildID, c.ID)
	}
}
