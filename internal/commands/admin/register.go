// Package admin provides the server configuration commands. Every command
// requires Administrator.
package admin

import (
	"context"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Category groups these commands in /help
const Category = "admin"

// Store is the persistence the admin commands use
type Store interface {
	GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	UpsertGuildConfig(ctx context.Context, guildID string, patch models.GuildPatch) (*models.GuildConfig, error)
	SetVerificationConfig(ctx context.Context, guildID, channelID, roleID string) error
	Ping(ctx context.Context) error
	Path() string
	AppliedMigrations(ctx context.Context) ([]models.MigrationRecord, error)
	CountGuilds(ctx context.Context) (int, error)
}

// Discord is the REST surface the admin commands call; *discordgo.Session
// satisfies it.
type Discord interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Register registers the admin commands
func Register(client *discord.ExtendedClient, store Store, api Discord) error {
	for _, cmd := range []*discord.Command{
		createSetupCommand(store, api),
		createSetupVerificationCommand(store, api),
		createDBStatusCommand(store),
	} {
		if err := client.CommandHandler.RegisterCommand(adminOnly(cmd)); err != nil {
			return err
		}
	}

	group, subcommands := createConfigGroup(store)
	return client.CommandHandler.RegisterGroup(adminOnly(group), subcommands...)
}

func adminOnly(cmd *discord.Command) *discord.Command {
	return cmd.GuildOnly().WithUserPermissions(cmd.UserPermissions | discordgo.PermissionAdministrator)
}
