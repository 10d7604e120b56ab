// Package discord provides command types and structures.
package discord

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
)

// DefaultCooldown applies to commands that do not set their own unless the
// client is configured with another value.
const DefaultCooldown = 3 * time.Second

// HandlerTimeout bounds the store and REST calls made by one handler
const HandlerTimeout = 15 * time.Second

var commandNamePattern = regexp.MustCompile(`^[-_\p{L}\p{N}]{1,32}$`)

// Responder sends interaction responses. The session-backed implementation
// talks to Discord; tests substitute a recorder.
type Responder interface {
	Respond(resp *discordgo.InteractionResponse) error
	Edit(edit *discordgo.WebhookEdit) (*discordgo.Message, error)
	FollowUp(params *discordgo.WebhookParams) (*discordgo.Message, error)
}

type sessionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *sessionResponder) Respond(resp *discordgo.InteractionResponse) error {
	return r.session.InteractionRespond(r.interaction, resp)
}

func (r *sessionResponder) Edit(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	return r.session.InteractionResponseEdit(r.interaction, edit)
}

func (r *sessionResponder) FollowUp(params *discordgo.WebhookParams) (*discordgo.Message, error) {
	return r.session.FollowupMessageCreate(r.interaction, true, params)
}

// CommandContext provides context for command execution
type CommandContext struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	Client      *ExtendedClient

	responder Responder
	responded atomic.Bool
}

// NewCommandContext builds a context answering through the given responder
func NewCommandContext(s *discordgo.Session, i *discordgo.InteractionCreate, c *ExtendedClient, r Responder) *CommandContext {
	if r == nil && s != nil {
		r = &sessionResponder{session: s, interaction: i.Interaction}
	}
	return &CommandContext{Session: s, Interaction: i, Client: c, responder: r}
}

// Command represents a Discord slash command
type Command struct {
	Name            string
	Description     string
	Category        string
	Options         []*discordgo.ApplicationCommandOption
	UserPermissions int64
	BotPermissions  int64
	Cooldown        time.Duration // zero uses the client default
	IsGuildOnly     bool
	IsDev           bool
	Run             CommandRunFunc
	AutoComplete    AutoCompleteFunc
}

// CommandRunFunc is the function type for command execution
type CommandRunFunc func(ctx *CommandContext) error

// AutoCompleteFunc is the function type for autocomplete handling
type AutoCompleteFunc func(ctx *CommandContext)

// NewCommand creates a new Command with required fields
func NewCommand(name, description, category string, run CommandRunFunc) *Command {
	return &Command{
		Name:        name,
		Description: description,
		Category:    category,
		Run:         run,
	}
}

// WithOptions sets the command options
func (c *Command) WithOptions(opts ...*discordgo.ApplicationCommandOption) *Command {
	c.Options = opts
	return c
}

// WithUserPermissions sets required user permissions
func (c *Command) WithUserPermissions(perms int64) *Command {
	c.UserPermissions = perms
	return c
}

// WithBotPermissions sets required bot permissions
func (c *Command) WithBotPermissions(perms int64) *Command {
	c.BotPermissions = perms
	return c
}

// WithCooldown sets the per-user cooldown in seconds
func (c *Command) WithCooldown(seconds float64) *Command {
	c.Cooldown = time.Duration(seconds * float64(time.Second))
	return c
}

// GuildOnly rejects the command when used in DMs
func (c *Command) GuildOnly() *Command {
	c.IsGuildOnly = true
	return c
}

// AsDev marks the command as a dev-only command
func (c *Command) AsDev() *Command {
	c.IsDev = true
	return c
}

// WithAutoComplete sets the autocomplete handler
func (c *Command) WithAutoComplete(fn AutoCompleteFunc) *Command {
	c.AutoComplete = fn
	return c
}

// Validate checks the definition once, at registration time
func (c *Command) Validate() error {
	if !commandNamePattern.MatchString(c.Name) {
		return fmt.Errorf("invalid command name %q", c.Name)
	}
	if c.Description == "" {
		return fmt.Errorf("command %q has no description", c.Name)
	}
	if c.Run == nil {
		return fmt.Errorf("command %q has no run function", c.Name)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("command %q has a negative cooldown", c.Name)
	}
	return nil
}

// ToApplicationCommand converts the command to a Discord application command
func (c *Command) ToApplicationCommand() *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
		Options:     c.Options,
	}
	if c.UserPermissions != 0 {
		perms := c.UserPermissions
		cmd.DefaultMemberPermissions = &perms
	}
	if c.IsGuildOnly {
		dm := false
		cmd.DMPermission = &dm
	}
	return cmd
}

func (ctx *CommandContext) respond(resp *discordgo.InteractionResponse) error {
	err := ctx.responder.Respond(resp)
	if err == nil {
		ctx.responded.Store(true)
	}
	return err
}

// RequestContext returns a context bounded by HandlerTimeout
func (ctx *CommandContext) RequestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), HandlerTimeout)
}

// Responded reports whether the interaction already received a response
func (ctx *CommandContext) Responded() bool {
	return ctx.responded.Load()
}

// Reply sends a reply to the interaction
func (ctx *CommandContext) Reply(content string) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

// ReplyEmbed sends an embed reply to the interaction
func (ctx *CommandContext) ReplyEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// ReplyEphemeral sends an ephemeral reply visible only to the user
func (ctx *CommandContext) ReplyEphemeral(content string) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// ReplyEphemeralEmbed sends an ephemeral embed reply visible only to the user
func (ctx *CommandContext) ReplyEphemeralEmbed(embed *discordgo.MessageEmbed) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

// ReplyComponents sends an embed with message components attached
func (ctx *CommandContext) ReplyComponents(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// UpdateMessage replaces the message a component is attached to
func (ctx *CommandContext) UpdateMessage(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})
}

// DeferUpdate acknowledges a component interaction without changing the message
func (ctx *CommandContext) DeferUpdate() error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// Defer defers the interaction response
func (ctx *CommandContext) Defer(ephemeral bool) error {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return ctx.respond(resp)
}

// EditReply edits the original interaction response
func (ctx *CommandContext) EditReply(content string) error {
	_, err := ctx.responder.Edit(&discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

// EditReplyEmbed edits the original interaction response with an embed
func (ctx *CommandContext) EditReplyEmbed(embed *discordgo.MessageEmbed) error {
	_, err := ctx.responder.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
	return err
}

// EditReplyComponents replaces the embed and components of the original response
func (ctx *CommandContext) EditReplyComponents(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	_, err := ctx.responder.Edit(&discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	return err
}

// FollowUpEphemeralEmbed sends an additional ephemeral message
func (ctx *CommandContext) FollowUpEphemeralEmbed(embed *discordgo.MessageEmbed) error {
	_, err := ctx.responder.FollowUp(&discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	return err
}

// Autocomplete answers an autocomplete interaction
func (ctx *CommandContext) Autocomplete(choices []*discordgo.ApplicationCommandOptionChoice) error {
	return ctx.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}

// GetOption retrieves an option value by name
func (ctx *CommandContext) GetOption(name string) *discordgo.ApplicationCommandInteractionDataOption {
	options := ctx.Interaction.ApplicationCommandData().Options
	return findOption(options, name)
}

// findOption recursively finds an option by name
func findOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
		if len(opt.Options) > 0 {
			if found := findOption(opt.Options, name); found != nil {
				return found
			}
		}
	}
	return nil
}

// GetStringOption retrieves a string option value
func (ctx *CommandContext) GetStringOption(name string) string {
	opt := ctx.GetOption(name)
	if opt == nil {
		return ""
	}
	return opt.StringValue()
}

// GetIntOption retrieves an integer option value
func (ctx *CommandContext) GetIntOption(name string) (int64, bool) {
	opt := ctx.GetOption(name)
	if opt == nil {
		return 0, false
	}
	return opt.IntValue(), true
}

// GetBoolOption retrieves a boolean option value
func (ctx *CommandContext) GetBoolOption(name string) bool {
	opt := ctx.GetOption(name)
	if opt == nil {
		return false
	}
	return opt.BoolValue()
}

// GetUserOption retrieves a user option value, preferring the resolved data
// Discord sends with the interaction.
func (ctx *CommandContext) GetUserOption(name string) *discordgo.User {
	opt := ctx.GetOption(name)
	if opt == nil {
		return nil
	}
	id, _ := opt.Value.(string)
	if r := ctx.Interaction.ApplicationCommandData().Resolved; r != nil {
		if u, ok := r.Users[id]; ok {
			return u
		}
	}
	return &discordgo.User{ID: id}
}

// GetChannelOption retrieves a channel option id
func (ctx *CommandContext) GetChannelOption(name string) string {
	opt := ctx.GetOption(name)
	if opt == nil {
		return ""
	}
	id, _ := opt.Value.(string)
	return id
}

// GetRoleOption retrieves a role option id
func (ctx *CommandContext) GetRoleOption(name string) string {
	opt := ctx.GetOption(name)
	if opt == nil {
		return ""
	}
	id, _ := opt.Value.(string)
	return id
}

// Subcommand returns the invoked subcommand name, if any
func (ctx *CommandContext) Subcommand() string {
	data := ctx.Interaction.ApplicationCommandData()
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return data.Options[0].Name
	}
	return ""
}

// CustomID returns the component custom id of a component interaction
func (ctx *CommandContext) CustomID() string {
	return ctx.Interaction.MessageComponentData().CustomID
}

// GuildID returns the guild where the interaction occurred, empty in DMs
func (ctx *CommandContext) GuildID() string {
	return ctx.Interaction.GuildID
}

// Guild returns the guild where the interaction occurred
func (ctx *CommandContext) Guild() *discordgo.Guild {
	if ctx.Interaction.GuildID == "" || ctx.Session == nil {
		return nil
	}
	guild, _ := ctx.Session.State.Guild(ctx.Interaction.GuildID)
	return guild
}

// User returns the user who triggered the interaction
func (ctx *CommandContext) User() *discordgo.User {
	if ctx.Interaction.Member != nil && ctx.Interaction.Member.User != nil {
		return ctx.Interaction.Member.User
	}
	return ctx.Interaction.User
}

// Member returns the guild member who triggered the interaction
func (ctx *CommandContext) Member() *discordgo.Member {
	return ctx.Interaction.Member
}
