// Package events provides the gateway event handlers.
// Events are organized by category (client, guild, member, message).
package events

import (
	"context"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// Store is the persistence the handlers use
type Store interface {
	EnsureGuild(ctx context.Context, guildID, name string) (*models.GuildConfig, error)
	GetGuildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error)
	EnsureUser(ctx context.Context, userID, guildID string) error
}

// Output is everything the handlers send to Discord
type Output interface {
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	SendMessage(ctx context.Context, channelID, content string) error
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	SetStatus(status string) error
}

// Deps configures the handlers
type Deps struct {
	Store    Store
	Output   Output
	Leveling *leveling.Engine
	// DeployCommands bulk-overwrites the command definitions on the first
	// ready, in DeployGuildID or globally when it is empty
	DeployCommands bool
	DeployGuildID  string
}

// Handlers holds the dependencies shared by every event handler
type Handlers struct {
	client *discord.ExtendedClient
	deps   Deps
}

// NewHandlers creates the handlers without registering them
func NewHandlers(client *discord.ExtendedClient, deps Deps) *Handlers {
	return &Handlers{client: client, deps: deps}
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, deps Deps) *Handlers {
	logger.System("📋 Registrando eventos del bot...", "Events")

	h := NewHandlers(client, deps)
	eh := client.EventHandler

	discord.Once(eh, "ready", h.onReady)
	discord.On(eh, "ready", h.onReconnect)
	discord.On(eh, "resumed", h.onResumed)
	discord.On(eh, "disconnect", h.onDisconnect)

	discord.On(eh, "guildCreate", h.onGuildCreate)
	discord.On(eh, "guildDelete", h.onGuildDelete)

	discord.On(eh, "guildMemberAdd", h.onGuildMemberAdd)
	discord.On(eh, "guildMemberRemove", h.onGuildMemberRemove)

	discord.On(eh, "messageCreate", h.onMessageCreate)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
	return h
}

func handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), discord.HandlerTimeout)
}

// SessionOutput implements Output over a discordgo session
type SessionOutput struct {
	Session *discordgo.Session
}

func (o SessionOutput) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := o.Session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}

func (o SessionOutput) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := o.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers}},
	}, discordgo.WithContext(ctx))
	return err
}

func (o SessionOutput) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return o.Session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

func (o SessionOutput) SetStatus(status string) error {
	return o.Session.UpdateGameStatus(0, status)
}
