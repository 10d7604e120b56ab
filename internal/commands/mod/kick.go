package mod

import (
	"context"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// createKickCommand creates the /kick command
func createKickCommand(svc *moderation.Service) *discord.Command {
	return discord.NewCommand(
		"kick",
		"Kick a member from the server",
		Category,
		func(ctx *discord.CommandContext) error { return kickHandler(ctx, svc) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to kick",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the kick",
			MaxLength:   moderation.DefaultReasonMaxLength,
		},
	).WithUserPermissions(discordgo.PermissionKickMembers).
		WithBotPermissions(discordgo.PermissionKickMembers)
}

func kickHandler(ctx *discord.CommandContext, svc *moderation.Service) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ You must specify a user.")
	}
	req := request(ctx, user.ID, ctx.GetStringOption("reason"))

	return withTimeout(ctx, func(c context.Context) error {
		res, err := svc.Kick(c, req)
		return replyResult(ctx, res, err)
	})
}
