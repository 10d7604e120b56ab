package admin

import (
	"context"
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Names of the channels /setup creates
const (
	CategoryName       = "📊 Sentinel"
	ModLogChannelName  = "🔨-mod-logs"
	WelcomeChannelName = "👋-welcome"
	LevelUpChannelName = "🎉-level-up"
)

// createSetupCommand creates /setup
func createSetupCommand(store Store, api Discord) *discord.Command {
	return discord.NewCommand(
		"setup",
		"Create the Sentinel channels and enable every module",
		Category,
		func(ctx *discord.CommandContext) error { return setupHandler(ctx, store, api) },
	).WithBotPermissions(discordgo.PermissionManageChannels | discordgo.PermissionManageRoles).
		WithCooldown(60)
}

// channelFinder creates channels unless one with the same name and parent
// already exists.
type channelFinder struct {
	api      Discord
	guildID  string
	existing []*discordgo.Channel
	opts     []discordgo.RequestOption
}

func (f *channelFinder) ensure(data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	for _, ch := range f.existing {
		if ch.Name == data.Name && ch.Type == data.Type && ch.ParentID == data.ParentID {
			return ch, nil
		}
	}
	ch, err := f.api.GuildChannelCreateComplex(f.guildID, data, f.opts...)
	if err != nil {
		return nil, fmt.Errorf("create channel %s: %w", data.Name, err)
	}
	f.existing = append(f.existing, ch)
	return ch, nil
}

func setupHandler(ctx *discord.CommandContext, store Store, api Discord) error {
	if err := ctx.Defer(true); err != nil {
		return err
	}
	c, cancel := ctx.RequestContext()
	defer cancel()

	guildID := ctx.GuildID()
	existing, err := api.GuildChannels(guildID, discordgo.WithContext(c))
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	f := &channelFinder{api: api, guildID: guildID, existing: existing, opts: []discordgo.RequestOption{discordgo.WithContext(c)}}

	category, err := f.ensure(discordgo.GuildChannelCreateData{Name: CategoryName, Type: discordgo.ChannelTypeGuildCategory})
	if err != nil {
		return err
	}
	modLog, err := f.ensure(discordgo.GuildChannelCreateData{
		Name:                 ModLogChannelName,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             category.ID,
		Topic:                "Moderation cases recorded by Sentinel",
		PermissionOverwrites: modLogOverwrites(guildID, ctx.Client.BotUser()),
	})
	if err != nil {
		return err
	}
	welcome, err := f.ensure(discordgo.GuildChannelCreateData{Name: WelcomeChannelName, Type: discordgo.ChannelTypeGuildText, ParentID: category.ID})
	if err != nil {
		return err
	}
	levelUp, err := f.ensure(discordgo.GuildChannelCreateData{Name: LevelUpChannelName, Type: discordgo.ChannelTypeGuildText, ParentID: category.ID})
	if err != nil {
		return err
	}

	if _, err := applySetup(c, store, guildID, modLog.ID, welcome.ID, levelUp.ID); err != nil {
		return err
	}

	embed := embeds.Success("Setup complete", "Sentinel is configured on this server.")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "📁 Category", Value: "<#" + category.ID + ">"},
		{Name: "🔨 Moderation logs", Value: "<#" + modLog.ID + ">", Inline: true},
		{Name: "👋 Welcome / goodbye", Value: "<#" + welcome.ID + ">", Inline: true},
		{Name: "🎉 Level up", Value: "<#" + levelUp.ID + ">", Inline: true},
		{Name: "⚙️ Modules", Value: "✅ Economy\n✅ Levels\n✅ Welcome"},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Use /config view to see the full configuration"}
	return ctx.EditReplyEmbed(embed)
}

// modLogOverwrites hides the mod-log channel from everyone except the bot
func modLogOverwrites(guildID string, bot *discordgo.User) []*discordgo.PermissionOverwrite {
	overwrites := []*discordgo.PermissionOverwrite{{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}}
	if bot != nil {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    bot.ID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks,
		})
	}
	return overwrites
}

func applySetup(ctx context.Context, store Store, guildID, modLogID, welcomeID, levelUpID string) (*models.GuildConfig, error) {
	return store.UpsertGuildConfig(ctx, guildID, models.GuildPatch{
		LogChannelID:     &modLogID,
		WelcomeChannelID: &welcomeID,
		GoodbyeChannelID: &welcomeID,
		LevelUpChannelID: &levelUpID,
		LevelingEnabled:  models.Ptr(true),
		EconomyEnabled:   models.Ptr(true),
	})
}
