// Package discord provides the Discord bot client and related structures.
// It wraps discordgo with command dispatch, component routing and event handling.
package discord

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/embeds"
	apperrors "github.com/PancyStudios/SentinelGo/pkg/errors"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

func init() {
	discordgo.Logger = func(msgL int, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			logger.Error(msg, "DiscordGo")
		case discordgo.LogWarning:
			logger.Warn(msg, "DiscordGo")
		default:
			logger.Debug(msg, "DiscordGo")
		}
	}
}

// ComponentFunc handles a button or select menu interaction
type ComponentFunc func(ctx *CommandContext) error

// Options configures an ExtendedClient
type Options struct {
	AppID           string
	OwnerID         string
	DevGuildID      string
	DefaultCooldown time.Duration
}

// ExtendedClient wraps discordgo.Session with additional functionality
type ExtendedClient struct {
	Session        *discordgo.Session
	Commands       *CommandCollection
	CommandHandler *CommandHandler
	EventHandler   *EventHandler
	StartTime      time.Time

	opts       Options
	cooldowns  *Cooldowns
	components map[string]ComponentFunc
	mu         sync.RWMutex
	isReady    bool
}

// CommandCollection holds registered commands
type CommandCollection struct {
	commands map[string]*Command
	mu       sync.RWMutex
}

// NewCommandCollection creates a new CommandCollection
func NewCommandCollection() *CommandCollection {
	return &CommandCollection{
		commands: make(map[string]*Command),
	}
}

// Set adds or updates a command
func (cc *CommandCollection) Set(name string, cmd *Command) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.commands[name] = cmd
}

// Get retrieves a command by name
func (cc *CommandCollection) Get(name string) (*Command, bool) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	cmd, ok := cc.commands[name]
	return cmd, ok
}

// Size returns the number of commands
func (cc *CommandCollection) Size() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.commands)
}

// All returns all commands keyed by their dispatch name
func (cc *CommandCollection) All() map[string]*Command {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	result := make(map[string]*Command, len(cc.commands))
	for k, v := range cc.commands {
		result[k] = v
	}
	return result
}

// NewClient creates a new ExtendedClient
func NewClient(token string, opts Options) (*ExtendedClient, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans

	session.ShardCount = 1
	session.SyncEvents = false
	session.StateEnabled = true
	session.LogLevel = discordgo.LogWarning

	return newClient(session, opts), nil
}

// NewClientWithSession wraps an existing session. A nil session gives a
// client that can register and dispatch but not connect.
func NewClientWithSession(session *discordgo.Session, opts Options) *ExtendedClient {
	return newClient(session, opts)
}

func newClient(session *discordgo.Session, opts Options) *ExtendedClient {
	if opts.DefaultCooldown <= 0 {
		opts.DefaultCooldown = DefaultCooldown
	}
	c := &ExtendedClient{
		Session:    session,
		Commands:   NewCommandCollection(),
		opts:       opts,
		cooldowns:  NewCooldowns(),
		components: make(map[string]ComponentFunc),
	}
	c.CommandHandler = NewCommandHandler(c)
	c.EventHandler = NewEventHandler(session)
	return c
}

// Start registers the interaction router and opens the gateway connection
func (c *ExtendedClient) Start() error {
	c.Session.AddHandler(c.handleInteraction)
	c.StartTime = time.Now()

	logger.System(fmt.Sprintf("%d comandos y %d eventos cargados", c.Commands.Size(), len(c.EventHandler.Registered())), "Client")

	if err := c.Session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

// Stop stops the bot and closes the session
func (c *ExtendedClient) Stop() error {
	c.SetReady(false)
	if c.Session != nil {
		return c.Session.Close()
	}
	return nil
}

// SetReady records whether the gateway session is usable
func (c *ExtendedClient) SetReady(ready bool) {
	c.mu.Lock()
	c.isReady = ready
	c.mu.Unlock()
}

// IsReady returns true if the bot is ready
func (c *ExtendedClient) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isReady
}

// GuildCount returns the number of guilds the bot is in
func (c *ExtendedClient) GuildCount() int {
	if c.Session == nil || c.Session.State == nil {
		return 0
	}
	c.Session.State.RLock()
	defer c.Session.State.RUnlock()
	return len(c.Session.State.Guilds)
}

// Uptime returns the time since Start
func (c *ExtendedClient) Uptime() time.Duration {
	if c.StartTime.IsZero() {
		return 0
	}
	return time.Since(c.StartTime)
}

// BotUser returns the connected bot user, nil before ready
func (c *ExtendedClient) BotUser() *discordgo.User {
	if c.Session == nil || c.Session.State == nil {
		return nil
	}
	return c.Session.State.User
}

// Latency returns the gateway heartbeat latency
func (c *ExtendedClient) Latency() time.Duration {
	if c.Session == nil {
		return 0
	}
	return c.Session.HeartbeatLatency()
}

// RegisterComponent routes component interactions whose custom id starts
// with prefix to fn. The longest matching prefix wins.
func (c *ExtendedClient) RegisterComponent(prefix string, fn ComponentFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[prefix] = fn
	logger.Debug("Componente registrado: "+prefix, "Client")
}

func (c *ExtendedClient) component(customID string) (ComponentFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prefixes := make([]string, 0, len(c.components))
	for p := range c.components {
		if strings.HasPrefix(customID, p) {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return nil, false
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	return c.components[prefixes[0]], true
}

// handleInteraction handles incoming Discord interactions
func (c *ExtendedClient) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	c.Dispatch(NewCommandContext(s, i, c, nil))
}

// Dispatch routes one interaction to its command, component or autocomplete handler
func (c *ExtendedClient) Dispatch(ctx *CommandContext) {
	switch ctx.Interaction.Type {
	case discordgo.InteractionApplicationCommand:
		c.runCommand(ctx)
	case discordgo.InteractionApplicationCommandAutocomplete:
		c.runAutocomplete(ctx)
	case discordgo.InteractionMessageComponent:
		c.runComponent(ctx)
	}
}

// commandName builds the dispatch name, "group.sub" for subcommands
func commandName(data discordgo.ApplicationCommandInteractionData) string {
	name := data.Name
	if len(data.Options) > 0 {
		opt := data.Options[0]
		if opt.Type == discordgo.ApplicationCommandOptionSubCommandGroup {
			if len(opt.Options) > 0 {
				name = data.Name + "." + opt.Name + "." + opt.Options[0].Name
			}
		} else if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			name = data.Name + "." + opt.Name
		}
	}
	return name
}

func (c *ExtendedClient) runAutocomplete(ctx *CommandContext) {
	cmd, ok := c.Commands.Get(commandName(ctx.Interaction.ApplicationCommandData()))
	if !ok || cmd.AutoComplete == nil {
		return
	}
	defer apperrors.RecoverMiddleware()()
	cmd.AutoComplete(ctx)
}

func (c *ExtendedClient) runCommand(ctx *CommandContext) {
	name := commandName(ctx.Interaction.ApplicationCommandData())
	user := ctx.User()
	fields := logrus.Fields{"command": name, "user": user.ID, "guild": ctx.GuildID()}

	cmd, ok := c.Commands.Get(name)
	if !ok {
		logger.WithFields(fields).Warn("Comando no encontrado", "Client")
		_ = ctx.ReplyEphemeralEmbed(embeds.Error("Command not found", "This command is not available anymore."))
		return
	}

	if rejection := c.checkGuards(ctx, name, cmd); rejection != nil {
		if err := ctx.ReplyEphemeralEmbed(rejection); err != nil {
			logger.WithFields(fields).Debug("No se pudo responder: "+err.Error(), "Client")
		}
		return
	}

	c.cooldowns.Start(name, user.ID, c.cooldownFor(cmd))

	err := apperrors.Capture(func() error { return cmd.Run(ctx) })
	if err != nil {
		logger.WithFields(fields).Error("Error ejecutando comando: "+err.Error(), "Commands")
		c.replyGenericError(ctx)
	}
}

func (c *ExtendedClient) cooldownFor(cmd *Command) time.Duration {
	if cmd.Cooldown > 0 {
		return cmd.Cooldown
	}
	return c.opts.DefaultCooldown
}

// checkGuards returns the rejection embed of the first failing guard
func (c *ExtendedClient) checkGuards(ctx *CommandContext, name string, cmd *Command) *discordgo.MessageEmbed {
	if cmd.IsGuildOnly && ctx.GuildID() == "" {
		return embeds.Error("Server only", "This command can only be used inside a server.")
	}

	if left := c.cooldowns.Remaining(name, ctx.User().ID); left > 0 {
		return embeds.Warning("Slow down",
			fmt.Sprintf("Please wait **%.1fs** before using `/%s` again.", left.Seconds(), strings.ReplaceAll(name, ".", " ")))
	}

	if cmd.BotPermissions != 0 && ctx.GuildID() != "" {
		if missing := MissingPermissions(ctx.Interaction.AppPermissions, cmd.BotPermissions); len(missing) > 0 {
			return embeds.Error("Missing bot permissions",
				"I need the following permissions to do that: "+FormatPermissions(missing))
		}
	}

	if cmd.UserPermissions != 0 {
		var have int64
		if m := ctx.Member(); m != nil {
			have = m.Permissions
		}
		if missing := MissingPermissions(have, cmd.UserPermissions); len(missing) > 0 {
			return embeds.Error("Missing permissions",
				"You need the following permissions to use this command: "+FormatPermissions(missing))
		}
	}

	if cmd.IsDev && ctx.User().ID != c.opts.OwnerID {
		return embeds.Error("Restricted", "This command is restricted to the bot owner.")
	}
	return nil
}

func (c *ExtendedClient) replyGenericError(ctx *CommandContext) {
	embed := embeds.Error("Error", "Something went wrong while running this command. Please try again later.")
	var err error
	if ctx.Responded() {
		err = ctx.FollowUpEphemeralEmbed(embed)
	} else {
		err = ctx.ReplyEphemeralEmbed(embed)
	}
	if err != nil {
		logger.Debug("No se pudo enviar el mensaje de error: "+err.Error(), "Client")
	}
}

func (c *ExtendedClient) runComponent(ctx *CommandContext) {
	customID := ctx.CustomID()
	fn, ok := c.component(customID)
	if !ok {
		_ = ctx.DeferUpdate()
		return
	}

	err := apperrors.Capture(func() error { return fn(ctx) })
	if err != nil {
		logger.WithFields(logrus.Fields{"component": customID, "user": ctx.User().ID, "guild": ctx.GuildID()}).
			Error("Error en el componente: "+err.Error(), "Components")
		c.replyGenericError(ctx)
	}
}
