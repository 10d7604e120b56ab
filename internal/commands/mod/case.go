package mod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

// createCaseCommand creates the /case command
func createCaseCommand(svc *moderation.Service) *discord.Command {
	minNumber := 1.0
	return discord.NewCommand(
		"case",
		"Look up a moderation case",
		Category,
		func(ctx *discord.CommandContext) error { return caseHandler(ctx, svc) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "number",
			Description: "Case number",
			Required:    true,
			MinValue:    &minNumber,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers)
}

func caseHandler(ctx *discord.CommandContext, svc *moderation.Service) error {
	number, _ := ctx.GetIntOption("number")

	return withTimeout(ctx, func(c context.Context) error {
		mc, err := svc.Case(c, ctx.GuildID(), number)
		if errors.Is(err, database.ErrNotFound) {
			return ctx.ReplyEphemeralEmbed(embeds.Error("Case not found", fmt.Sprintf("There is no case #%d in this server.", number)))
		}
		if err != nil {
			return err
		}
		return ctx.ReplyEphemeralEmbed(caseEmbed(mc))
	})
}

func caseEmbed(mc *models.ModerationCase) *discordgo.MessageEmbed {
	embed := embeds.Moderation(embeds.ModerationOptions{
		Kind:        mc.Action,
		TargetID:    mc.TargetID,
		ModeratorID: mc.ModeratorID,
		Reason:      mc.Reason,
		CaseNumber:  mc.CaseNumber,
	})
	embed.Timestamp = mc.CreatedAt.Format(time.RFC3339)
	return embed
}
