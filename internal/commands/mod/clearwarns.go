package mod

import (
	"context"
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/bwmarrin/discordgo"
)

const maxChoiceName = 100

// createClearWarnsCommand creates the /clearwarns command. Without a
// warning id every active warning of the member is cleared.
func createClearWarnsCommand(svc *moderation.Service) *discord.Command {
	minID := 1.0
	return discord.NewCommand(
		"clearwarns",
		"Clear one or all active warnings of a member",
		Category,
		func(ctx *discord.CommandContext) error { return clearWarnsHandler(ctx, svc) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member whose warnings to clear",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionInteger,
			Name:         "warning_id",
			Description:  "Only clear this warning",
			MinValue:     &minID,
			Autocomplete: true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers).
		WithAutoComplete(func(ctx *discord.CommandContext) { clearWarnsAutoComplete(ctx, svc) })
}

func clearWarnsHandler(ctx *discord.CommandContext, svc *moderation.Service) error {
	user := ctx.GetUserOption("user")
	if user == nil {
		return ctx.ReplyEphemeral("❌ You must specify a user.")
	}
	req := request(ctx, user.ID, "")

	return withTimeout(ctx, func(c context.Context) error {
		var (
			res *moderation.Result
			err error
		)
		if id, ok := ctx.GetIntOption("warning_id"); ok {
			res, err = svc.ClearWarning(c, req, id)
		} else {
			res, err = svc.ClearWarnings(c, req)
		}
		return replyResult(ctx, res, err)
	})
}

// clearWarnsAutoComplete suggests the active warnings of the selected member
func clearWarnsAutoComplete(ctx *discord.CommandContext, svc *moderation.Service) {
	user := ctx.GetUserOption("user")
	if user == nil || user.ID == "" {
		_ = ctx.Autocomplete([]*discordgo.ApplicationCommandOptionChoice{})
		return
	}

	c, cancel := ctx.RequestContext()
	defer cancel()

	warnings, err := svc.Warnings(c, ctx.GuildID(), user.ID)
	if err != nil {
		logger.Error("Error obteniendo advertencias: "+err.Error(), "Autocomplete")
		_ = ctx.Autocomplete([]*discordgo.ApplicationCommandOptionChoice{})
		return
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(warnings), 25))
	for _, w := range warnings {
		if len(choices) == 25 {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: choiceName(w), Value: w.ID})
	}
	if err := ctx.Autocomplete(choices); err != nil {
		logger.Debug("No se pudo responder al autocompletado: "+err.Error(), "Autocomplete")
	}
}

// choiceName labels a warning within Discord's 100 character choice limit
func choiceName(w models.Warning) string {
	return moderation.NormalizeReason(fmt.Sprintf("#%d - %s", w.ID, w.Reason), maxChoiceName)
}
