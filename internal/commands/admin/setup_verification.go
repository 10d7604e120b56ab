package admin

import (
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/verification"
	"github.com/bwmarrin/discordgo"
)

// createSetupVerificationCommand creates /setup-verification
func createSetupVerificationCommand(store Store, api Discord) *discord.Command {
	return discord.NewCommand(
		"setup-verification",
		"Configure the verification channel and role",
		Category,
		func(ctx *discord.CommandContext) error { return setupVerificationHandler(ctx, store, api) },
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Channel where members verify",
			Required:     true,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "role",
			Description: "Role given to verified members",
			Required:    true,
		},
	).WithBotPermissions(discordgo.PermissionManageRoles)
}

func setupVerificationHandler(ctx *discord.CommandContext, store Store, api Discord) error {
	channelID := ctx.GetChannelOption("channel")
	roleID := ctx.GetRoleOption("role")
	if channelID == "" || roleID == "" {
		return ctx.ReplyEphemeral("❌ You must specify a channel and a role.")
	}

	c, cancel := ctx.RequestContext()
	defer cancel()

	if err := store.SetVerificationConfig(c, ctx.GuildID(), channelID, roleID); err != nil {
		return err
	}

	_, err := api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{verification.PanelEmbed(roleID)},
		Components: verification.PanelComponents(),
	}, discordgo.WithContext(c))
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo publicar el panel de verificación en %s: %v", channelID, err), "Admin")
		return ctx.ReplyEphemeralEmbed(embeds.Warning("Verification configured",
			fmt.Sprintf("Saved, but I could not post the panel in <#%s>. Check my permissions there. Members can still use `/verify`.", channelID)))
	}

	return ctx.ReplyEphemeralEmbed(embeds.Success("Verification configured",
		fmt.Sprintf("Members verifying in <#%s> will receive <@&%s>.", channelID, roleID)))
}
