package admin

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// MaxPrefixLength bounds /config prefix
const MaxPrefixLength = 5

var textChannel = []discordgo.ChannelType{discordgo.ChannelTypeGuildText}

// createConfigGroup creates /config and its subcommands
func createConfigGroup(store Store) (*discord.Command, []*discord.Command) {
	group := discord.NewCommand("config", "View or change the server configuration", Category, nil)

	channelSub := func(name, description string, set func(p *models.GuildPatch, id *string)) *discord.Command {
		return discord.NewCommand(name, description, "",
			func(ctx *discord.CommandContext) error {
				id := ctx.GetChannelOption("channel")
				var patch models.GuildPatch
				set(&patch, &id)
				return applyPatch(ctx, store, patch, describeRef(name, "<#", id))
			},
		).WithOptions(&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Channel to use, leave empty to disable",
			ChannelTypes: textChannel,
		})
	}

	toggleSub := func(name, description string, set func(p *models.GuildPatch, v *bool)) *discord.Command {
		return discord.NewCommand(name, description, "",
			func(ctx *discord.CommandContext) error {
				enabled := ctx.GetBoolOption("enabled")
				var patch models.GuildPatch
				set(&patch, &enabled)
				return applyPatch(ctx, store, patch, fmt.Sprintf("`%s` is now %s.", name, onOff(enabled)))
			},
		).WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "enabled",
			Description: "Turn the module on or off",
			Required:    true,
		})
	}

	subcommands := []*discord.Command{
		discord.NewCommand("view", "Show the current configuration", "",
			func(ctx *discord.CommandContext) error { return viewConfig(ctx, store) }),
		channelSub("log-channel", "Channel receiving moderation logs",
			func(p *models.GuildPatch, id *string) { p.LogChannelID = id }),
		channelSub("welcome-channel", "Channel receiving welcome messages",
			func(p *models.GuildPatch, id *string) { p.WelcomeChannelID = id }),
		channelSub("goodbye-channel", "Channel receiving goodbye messages",
			func(p *models.GuildPatch, id *string) { p.GoodbyeChannelID = id }),
		discord.NewCommand("auto-role", "Role given to new members", "",
			func(ctx *discord.CommandContext) error {
				id := ctx.GetRoleOption("role")
				return applyPatch(ctx, store, models.GuildPatch{AutoRoleID: &id}, describeRef("auto-role", "<@&", id))
			},
		).WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionRole,
			Name:        "role",
			Description: "Role to give, leave empty to disable",
		}),
		toggleSub("leveling", "Enable or disable xp and levels",
			func(p *models.GuildPatch, v *bool) { p.LevelingEnabled = v }),
		toggleSub("economy", "Enable or disable the economy",
			func(p *models.GuildPatch, v *bool) { p.EconomyEnabled = v }),
		discord.NewCommand("prefix", "Change the text command prefix", "",
			func(ctx *discord.CommandContext) error {
				prefix := strings.TrimSpace(ctx.GetStringOption("prefix"))
				if prefix == "" || len(prefix) > MaxPrefixLength || strings.ContainsAny(prefix, " \t\n") {
					return ctx.ReplyEphemeralEmbed(embeds.Error("Invalid prefix",
						fmt.Sprintf("The prefix must be 1 to %d characters without spaces.", MaxPrefixLength)))
				}
				return applyPatch(ctx, store, models.GuildPatch{Prefix: &prefix}, fmt.Sprintf("Prefix set to `%s`.", prefix))
			},
		).WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "prefix",
			Description: "New prefix",
			Required:    true,
			MaxLength:   MaxPrefixLength,
		}),
	}
	return group, subcommands
}

func describeRef(name, mention, id string) string {
	if id == "" {
		return fmt.Sprintf("`%s` disabled.", name)
	}
	return fmt.Sprintf("`%s` set to %s%s>.", name, mention, id)
}

func onOff(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

func applyPatch(ctx *discord.CommandContext, store Store, patch models.GuildPatch, message string) error {
	c, cancel := ctx.RequestContext()
	defer cancel()

	if _, err := store.UpsertGuildConfig(c, ctx.GuildID(), patch); err != nil {
		return err
	}
	return ctx.ReplyEphemeralEmbed(embeds.Success("Configuration updated", message))
}

func viewConfig(ctx *discord.CommandContext, store Store) error {
	c, cancel := ctx.RequestContext()
	defer cancel()

	cfg, err := store.UpsertGuildConfig(c, ctx.GuildID(), models.GuildPatch{})
	if err != nil {
		return err
	}
	return ctx.ReplyEphemeralEmbed(configEmbed(cfg))
}

func configEmbed(cfg *models.GuildConfig) *discordgo.MessageEmbed {
	ref := func(mention, id string) string {
		if id == "" {
			return "❌ Not set"
		}
		return mention + id + ">"
	}
	flag := func(v bool) string {
		if v {
			return "✅ Enabled"
		}
		return "❌ Disabled"
	}

	embed := embeds.Info("Server configuration", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Prefix", Value: "`" + cfg.Prefix + "`", Inline: true},
		{Name: "Leveling", Value: flag(cfg.LevelingEnabled), Inline: true},
		{Name: "Economy", Value: flag(cfg.EconomyEnabled), Inline: true},
		{Name: "🔨 Log channel", Value: ref("<#", cfg.LogChannelID), Inline: true},
		{Name: "👋 Welcome channel", Value: ref("<#", cfg.WelcomeChannelID), Inline: true},
		{Name: "🚪 Goodbye channel", Value: ref("<#", cfg.GoodbyeChannelID), Inline: true},
		{Name: "🎉 Level-up channel", Value: ref("<#", cfg.LevelUpChannelID), Inline: true},
		{Name: "🎭 Auto role", Value: ref("<@&", cfg.AutoRoleID), Inline: true},
		{Name: "🛡️ Verification", Value: fmt.Sprintf("%s • %s", ref("<#", cfg.VerificationChannelID), ref("<@&", cfg.VerificationRoleID)), Inline: true},
	}
	return embed
}
