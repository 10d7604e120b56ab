package mod

import (
	"context"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// createWarnCommand creates the /warn command
func createWarnCommand(svc *moderation.Service) *discord.Command {
	return discord.NewCommand(
		"warn",
		"Warn a member",
		Category,
		func(ctx *discord.CommandContext) error { return warnHandler(ctx, svc) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to warn",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the warning",
			Required:    true,
			MaxLength:   moderation.DefaultReasonMaxLength,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func warnHandler(ctx *discord.CommandContext, svc *moderation.Service) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ You must specify a user.")
	}
	req := request(ctx, user.ID, ctx.GetStringOption("reason"))

	return withTimeout(ctx, func(c context.Context) error {
		res, err := svc.Warn(c, req)
		return replyResult(ctx, res, err)
	})
}
