// Package discord provides the command handler for registering and deploying commands.
package discord

import (
	"errors"
	"fmt"
	"sync"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// commandAPI is the subset of *discordgo.Session used to deploy definitions
type commandAPI interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// CommandHandler validates registrations and deploys the definitions
type CommandHandler struct {
	client           *ExtendedClient
	api              commandAPI
	mu               sync.Mutex
	slashCommands    []*discordgo.ApplicationCommand
	slashCommandsDev []*discordgo.ApplicationCommand
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(client *ExtendedClient) *CommandHandler {
	ch := &CommandHandler{client: client}
	if client.Session != nil {
		ch.api = client.Session
	}
	return ch
}

// RegisterCommand validates a command and adds it to the registry
func (ch *CommandHandler) RegisterCommand(cmd *Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if _, exists := ch.client.Commands.Get(cmd.Name); exists {
		return fmt.Errorf("command %q registered twice", cmd.Name)
	}

	ch.client.Commands.Set(cmd.Name, cmd)
	ch.addDefinition(cmd.ToApplicationCommand(), cmd.IsDev)

	logger.Debug("Comando registrado: "+cmd.Name, "CommandHandler")
	return nil
}

// RegisterGroup registers a command made of subcommands. Each subcommand is
// dispatched as "group.sub" and inherits the group's guild-only flag and
// permissions.
func (ch *CommandHandler) RegisterGroup(group *Command, subcommands ...*Command) error {
	if !commandNamePattern.MatchString(group.Name) || group.Description == "" {
		return fmt.Errorf("invalid command group %q", group.Name)
	}
	if len(subcommands) == 0 {
		return fmt.Errorf("command group %q has no subcommands", group.Name)
	}

	options := make([]*discordgo.ApplicationCommandOption, 0, len(subcommands))
	for _, sub := range subcommands {
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("group %s: %w", group.Name, err)
		}
		fullName := group.Name + "." + sub.Name
		if _, exists := ch.client.Commands.Get(fullName); exists {
			return fmt.Errorf("command %q registered twice", fullName)
		}

		if sub.Category == "" {
			sub.Category = group.Category
		}
		sub.IsGuildOnly = sub.IsGuildOnly || group.IsGuildOnly
		sub.UserPermissions |= group.UserPermissions
		sub.BotPermissions |= group.BotPermissions
		if sub.Cooldown == 0 {
			sub.Cooldown = group.Cooldown
		}
		ch.client.Commands.Set(fullName, sub)

		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        sub.Name,
			Description: sub.Description,
			Options:     sub.Options,
		})
	}

	def := group.ToApplicationCommand()
	def.Options = options
	ch.addDefinition(def, group.IsDev)

	logger.Debug(fmt.Sprintf("Grupo registrado: %s (%d subcomandos)", group.Name, len(subcommands)), "CommandHandler")
	return nil
}

func (ch *CommandHandler) addDefinition(def *discordgo.ApplicationCommand, dev bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if dev {
		ch.slashCommandsDev = append(ch.slashCommandsDev, def)
	} else {
		ch.slashCommands = append(ch.slashCommands, def)
	}
}

// Definitions returns the registered definitions. Dev commands are only
// included when dev is true.
func (ch *CommandHandler) Definitions(dev bool) []*discordgo.ApplicationCommand {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	defs := append([]*discordgo.ApplicationCommand(nil), ch.slashCommands...)
	if dev {
		defs = append(defs, ch.slashCommandsDev...)
	}
	return defs
}

func (ch *CommandHandler) appID() (string, error) {
	if ch.client.opts.AppID != "" {
		return ch.client.opts.AppID, nil
	}
	if u := ch.client.BotUser(); u != nil {
		return u.ID, nil
	}
	return "", errors.New("application id unknown: set DISCORD_CLIENT_ID or connect first")
}

// Deploy bulk-overwrites the definitions on Discord. An empty guildID
// deploys globally, plus the dev commands to the dev guild when configured;
// a guild deploy includes every command.
func (ch *CommandHandler) Deploy(guildID string) ([]*discordgo.ApplicationCommand, error) {
	if ch.api == nil {
		return nil, errors.New("no discord session")
	}
	appID, err := ch.appID()
	if err != nil {
		return nil, err
	}

	if guildID != "" {
		logger.Info("🔄 Registrando comandos en el servidor "+guildID+"...", "CommandHandler")
		created, err := ch.api.ApplicationCommandBulkOverwrite(appID, guildID, ch.Definitions(true))
		if err != nil {
			return nil, fmt.Errorf("deploy to guild %s: %w", guildID, err)
		}
		logger.Success(fmt.Sprintf("✅ %d comandos registrados en %s", len(created), guildID), "CommandHandler")
		return created, nil
	}

	logger.Info("🔄 Registrando comandos globales...", "CommandHandler")
	created, err := ch.api.ApplicationCommandBulkOverwrite(appID, "", ch.Definitions(false))
	if err != nil {
		return nil, fmt.Errorf("deploy global commands: %w", err)
	}
	logger.Success(fmt.Sprintf("✅ %d comandos globales registrados", len(created)), "CommandHandler")

	devGuild := ch.client.opts.DevGuildID
	ch.mu.Lock()
	devDefs := append([]*discordgo.ApplicationCommand(nil), ch.slashCommandsDev...)
	ch.mu.Unlock()
	if devGuild != "" && len(devDefs) > 0 {
		if _, err := ch.api.ApplicationCommandBulkOverwrite(appID, devGuild, devDefs); err != nil {
			return created, fmt.Errorf("deploy dev commands: %w", err)
		}
		logger.Success("✅ Comandos de desarrollo registrados.", "CommandHandler")
	}
	return created, nil
}

// Clear removes every command from the given scope
func (ch *CommandHandler) Clear(guildID string) error {
	if ch.api == nil {
		return errors.New("no discord session")
	}
	appID, err := ch.appID()
	if err != nil {
		return err
	}
	if _, err := ch.api.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return fmt.Errorf("clear commands: %w", err)
	}
	logger.Success("Comandos eliminados de "+scopeName(guildID), "CommandHandler")
	return nil
}

// List returns the commands currently deployed in the given scope
func (ch *CommandHandler) List(guildID string) ([]*discordgo.ApplicationCommand, error) {
	if ch.api == nil {
		return nil, errors.New("no discord session")
	}
	appID, err := ch.appID()
	if err != nil {
		return nil, err
	}
	return ch.api.ApplicationCommands(appID, guildID)
}

func scopeName(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild " + guildID
}
