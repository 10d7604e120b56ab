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

// createWarningsCommand creates the /warnings command
func createWarningsCommand(svc *moderation.Service) *discord.Command {
	return discord.NewCommand(
		"warnings",
		"Show the active warnings of a member",
		Category,
		func(ctx *discord.CommandContext) error { return warningsHandler(ctx, svc) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to inspect",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func warningsHandler(ctx *discord.CommandContext, svc *moderation.Service) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ You must specify a user.")
	}

	return withTimeout(ctx, func(c context.Context) error {
		warnings, err := svc.Warnings(c, ctx.GuildID(), user.ID)
		if err != nil {
			return err
		}
		return ctx.ReplyEphemeralEmbed(warningsEmbed(user, warnings, svc.MaxWarnings()))
	})
}

func warningsEmbed(user *discordgo.User, warnings []models.Warning, maxWarnings int) *discordgo.MessageEmbed {
	title := fmt.Sprintf("⚠️ Warnings for %s", displayName(user))
	if len(warnings) == 0 {
		return embeds.Success(title, "This member has no active warnings.")
	}

	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, fmt.Sprintf("**#%d** • <t:%d:R> by <@%s>\n%s",
			w.ID, w.CreatedAt.Unix(), w.ModeratorID, w.Reason))
	}
	embed := embeds.Warning(title, strings.Join(lines, "\n\n"))
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d/%d active warnings", len(warnings), maxWarnings)}
	return embed
}

func displayName(user *discordgo.User) string {
	if user.Username == "" {
		return "<@" + user.ID + ">"
	}
	return user.Username
}
