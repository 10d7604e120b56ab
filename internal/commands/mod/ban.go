package mod

import (
	"context"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// createBanCommand creates the /ban command
func createBanCommand(svc *moderation.Service) *discord.Command {
	minDays := 0.0
	return discord.NewCommand(
		"ban",
		"Ban a user from the server",
		Category,
		func(ctx *discord.CommandContext) error { return banHandler(ctx, svc) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "User to ban",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Reason for the ban",
			MaxLength:   moderation.DefaultReasonMaxLength,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "delete_days",
			Description: "Days of messages to delete (0-7)",
			MinValue:    &minDays,
			MaxValue:    7,
		},
	).WithUserPermissions(discordgo.PermissionBanMembers).
		WithBotPermissions(discordgo.PermissionBanMembers)
}

func banHandler(ctx *discord.CommandContext, svc *moderation.Service) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ You must specify a user.")
	}
	req := request(ctx, user.ID, ctx.GetStringOption("reason"))
	if days, ok := ctx.GetIntOption("delete_days"); ok {
		req.DeleteDays = int(days)
	}

	return withTimeout(ctx, func(c context.Context) error {
		res, err := svc.Ban(c, req)
		return replyResult(ctx, res, err)
	})
}
