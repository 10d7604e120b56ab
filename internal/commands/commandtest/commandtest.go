// Package commandtest builds interactions and records responses so command
// handlers can be exercised without a gateway connection.
package commandtest

import (
	"sync"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// Recorder implements discord.Responder and keeps everything sent through it
type Recorder struct {
	mu        sync.Mutex
	Responses []*discordgo.InteractionResponse
	Edits     []*discordgo.WebhookEdit
	FollowUps []*discordgo.WebhookParams
}

func (r *Recorder) Respond(resp *discordgo.InteractionResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses = append(r.Responses, resp)
	return nil
}

func (r *Recorder) Edit(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Edits = append(r.Edits, edit)
	return &discordgo.Message{}, nil
}

func (r *Recorder) FollowUp(params *discordgo.WebhookParams) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FollowUps = append(r.FollowUps, params)
	return &discordgo.Message{}, nil
}

// Last returns the latest response, nil when nothing was sent
func (r *Recorder) Last() *discordgo.InteractionResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Responses) == 0 {
		return nil
	}
	return r.Responses[len(r.Responses)-1]
}

// LastEmbed returns the first embed of the latest response
func (r *Recorder) LastEmbed() *discordgo.MessageEmbed {
	resp := r.Last()
	if resp == nil || resp.Data == nil || len(resp.Data.Embeds) == 0 {
		return nil
	}
	return resp.Data.Embeds[0]
}

// LastEdit returns the latest edit of the original response
func (r *Recorder) LastEdit() *discordgo.WebhookEdit {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Edits) == 0 {
		return nil
	}
	return r.Edits[len(r.Edits)-1]
}

// Invocation describes who triggers an interaction and where. Zero
// permissions grant everything.
type Invocation struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Roles     []string
	Perms     int64
	BotPerms  int64
}

func (inv Invocation) interaction(kind discordgo.InteractionType, data discordgo.InteractionData) *discordgo.InteractionCreate {
	perms, botPerms := inv.Perms, inv.BotPerms
	if perms == 0 {
		perms = discordgo.PermissionAll
	}
	if botPerms == 0 {
		botPerms = discordgo.PermissionAll
	}
	user := &discordgo.User{ID: inv.UserID, Username: inv.Username}
	i := &discordgo.Interaction{
		ID:             "interaction-" + inv.UserID,
		Type:           kind,
		GuildID:        inv.GuildID,
		ChannelID:      inv.ChannelID,
		AppPermissions: botPerms,
		Data:           data,
	}
	if inv.GuildID != "" {
		i.Member = &discordgo.Member{User: user, Roles: inv.Roles, Permissions: perms}
	} else {
		i.User = user
	}
	return &discordgo.InteractionCreate{Interaction: i}
}

// Command builds a slash command interaction
func Command(name string, inv Invocation, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return inv.interaction(discordgo.InteractionApplicationCommand,
		discordgo.ApplicationCommandInteractionData{Name: name, Options: opts})
}

// Subcommand builds a "/group sub" interaction
func Subcommand(group, sub string, inv Invocation, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return Command(group, inv, &discordgo.ApplicationCommandInteractionDataOption{
		Name:    sub,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: opts,
	})
}

// Autocomplete builds an autocomplete interaction
func Autocomplete(name string, inv Invocation, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return inv.interaction(discordgo.InteractionApplicationCommandAutocomplete,
		discordgo.ApplicationCommandInteractionData{Name: name, Options: opts})
}

// Component builds a button click
func Component(customID string, inv Invocation) *discordgo.InteractionCreate {
	return inv.interaction(discordgo.InteractionMessageComponent,
		discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent})
}

func option(name string, kind discordgo.ApplicationCommandOptionType, value any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: kind, Value: value}
}

// User is a user option holding an id
func User(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return option(name, discordgo.ApplicationCommandOptionUser, id)
}

// String is a string option
func String(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return option(name, discordgo.ApplicationCommandOptionString, value)
}

// Int is an integer option; Discord sends numbers as JSON floats
func Int(name string, value int64) *discordgo.ApplicationCommandInteractionDataOption {
	return option(name, discordgo.ApplicationCommandOptionInteger, float64(value))
}

// Bool is a boolean option
func Bool(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return option(name, discordgo.ApplicationCommandOptionBoolean, value)
}

// Channel is a channel option holding an id
func Channel(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return option(name, discordgo.ApplicationCommandOptionChannel, id)
}

// Role is a role option holding an id
func Role(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return option(name, discordgo.ApplicationCommandOptionRole, id)
}

// Dispatch runs one interaction through the client and returns what it sent
func Dispatch(c *discord.ExtendedClient, i *discordgo.InteractionCreate) *Recorder {
	rec := &Recorder{}
	c.Dispatch(discord.NewCommandContext(nil, i, c, rec))
	return rec
}
