package levels

import (
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/samber/lo"
)

// createLeaderboardCommand creates the /leaderboard command
func createLeaderboardCommand(store Store) *discord.Command {
	return discord.NewCommand(
		"leaderboard",
		"Show the members with the most xp",
		Category,
		func(ctx *discord.CommandContext) error { return leaderboardHandler(ctx, store) },
	).WithCooldown(5)
}

func leaderboardHandler(ctx *discord.CommandContext, store Store) error {
	c, cancel := ctx.RequestContext()
	defer cancel()

	top, err := store.TopUsers(c, ctx.GuildID(), LeaderboardSize)
	if err != nil {
		return err
	}
	entries := lo.Map(top, func(u models.UserRecord, _ int) embeds.LeaderboardEntry {
		return embeds.LeaderboardEntry{UserID: u.UserID, XP: u.XP, Level: u.Level}
	})

	title := "Leaderboard"
	if g := ctx.Guild(); g != nil {
		title += " of " + g.Name
	}
	return ctx.ReplyEmbed(embeds.Leaderboard(title, entries))
}
