package utils

import (
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
)

// createPingCommand creates the /ping command
func createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Check the bot latency",
		Category,
		pingHandler,
	)
}

func pingHandler(ctx *discord.CommandContext) error {
	latency := ctx.Client.Latency().Milliseconds()
	return ctx.ReplyEmbed(embeds.Info("Pong! 🏓", fmt.Sprintf("Gateway latency: **%dms**", latency)))
}
