package moderation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// ErrNotMember is returned by a Gateway when the user is not in the guild
var ErrNotMember = errors.New("user is not a member of the guild")

// Gateway is the Discord surface the moderation service needs
type Gateway interface {
	BotID() string
	GuildName(ctx context.Context, guildID string) string
	OwnerID(ctx context.Context, guildID string) (string, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	User(ctx context.Context, userID string) (*discordgo.User, error)
	// HighestRolePosition returns the highest position among the given roles
	HighestRolePosition(ctx context.Context, guildID string, roleIDs []string) (int, error)
	IsBanned(ctx context.Context, guildID, userID string) (bool, error)
	Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error
	Kick(ctx context.Context, guildID, userID, reason string) error
	SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

// SessionGateway implements Gateway over a discordgo session, reading the
// state cache first and falling back to REST.
type SessionGateway struct {
	Session *discordgo.Session
}

// NewSessionGateway creates a Gateway backed by s
func NewSessionGateway(s *discordgo.Session) *SessionGateway {
	return &SessionGateway{Session: s}
}

// IsNotFound reports whether err is a Discord 404
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func (g *SessionGateway) BotID() string {
	if g.Session.State == nil || g.Session.State.User == nil {
		return ""
	}
	return g.Session.State.User.ID
}

func (g *SessionGateway) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if guild, err := g.Session.State.Guild(guildID); err == nil {
		return guild, nil
	}
	return g.Session.Guild(guildID, discordgo.WithContext(ctx))
}

func (g *SessionGateway) GuildName(ctx context.Context, guildID string) string {
	guild, err := g.guild(ctx, guildID)
	if err != nil {
		return "the server"
	}
	return guild.Name
}

func (g *SessionGateway) OwnerID(ctx context.Context, guildID string) (string, error) {
	guild, err := g.guild(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("fetch guild %s: %w", guildID, err)
	}
	return guild.OwnerID, nil
}

func (g *SessionGateway) Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := g.Session.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	m, err := g.Session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("fetch member %s: %w", userID, err)
	}
	return m, nil
}

func (g *SessionGateway) User(ctx context.Context, userID string) (*discordgo.User, error) {
	return g.Session.User(userID, discordgo.WithContext(ctx))
}

func (g *SessionGateway) HighestRolePosition(ctx context.Context, guildID string, roleIDs []string) (int, error) {
	if len(roleIDs) == 0 {
		return 0, nil
	}

	var roles []*discordgo.Role
	if guild, err := g.Session.State.Guild(guildID); err == nil && len(guild.Roles) > 0 {
		roles = guild.Roles
	} else {
		roles, err = g.Session.GuildRoles(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return 0, fmt.Errorf("fetch roles: %w", err)
		}
	}

	wanted := make(map[string]bool, len(roleIDs))
	for _, id := range roleIDs {
		wanted[id] = true
	}
	highest := 0
	for _, r := range roles {
		if wanted[r.ID] && r.Position > highest {
			highest = r.Position
		}
	}
	return highest, nil
}

func (g *SessionGateway) IsBanned(ctx context.Context, guildID, userID string) (bool, error) {
	_, err := g.Session.GuildBan(guildID, userID, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("fetch ban: %w", err)
}

func (g *SessionGateway) Ban(ctx context.Context, guildID, userID, reason string, deleteDays int) error {
	return g.Session.GuildBanCreateWithReason(guildID, userID, reason, deleteDays, discordgo.WithContext(ctx))
}

func (g *SessionGateway) Kick(ctx context.Context, guildID, userID, reason string) error {
	return g.Session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (g *SessionGateway) SendDM(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	ch, err := g.Session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = g.Session.ChannelMessageSendEmbed(ch.ID, embed, discordgo.WithContext(ctx))
	return err
}

func (g *SessionGateway) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := g.Session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}
