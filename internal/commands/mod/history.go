package mod

import (
	"context"
	"fmt"
	"strings"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// createHistoryCommand creates the /history command
func createHistoryCommand(svc *moderation.Service) *discord.Command {
	return discord.NewCommand(
		"history",
		"Show the moderation history of a user",
		Category,
		func(ctx *discord.CommandContext) error { return historyHandler(ctx, svc) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to inspect",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func historyHandler(ctx *discord.CommandContext, svc *moderation.Service) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ You must specify a user.")
	}

	return withTimeout(ctx, func(c context.Context) error {
		cases, err := svc.History(c, ctx.GuildID(), user.ID)
		if err != nil {
			return err
		}
		return ctx.ReplyEphemeralEmbed(historyEmbed(user, cases))
	})
}

func historyEmbed(user *discordgo.User, cases []models.ModerationCase) *discordgo.MessageEmbed {
	title := "📋 History for " + displayName(user)
	if len(cases) == 0 {
		return embeds.Info(title, "No moderation cases on record.")
	}

	lines := make([]string, 0, len(cases))
	for _, mc := range cases {
		lines = append(lines, fmt.Sprintf("%s **Case #%d** %s • <t:%d:d> by <@%s>\n%s",
			mc.Action.Emoji(), mc.CaseNumber, mc.Action, mc.CreatedAt.Unix(), mc.ModeratorID, mc.Reason))
	}
	return embeds.Info(title, strings.Join(lines, "\n\n"))
}
