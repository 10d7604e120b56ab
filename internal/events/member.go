package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const (
	welcomeColor = 0x57F287
	goodbyeColor = 0xED4245
)

// guildSummary reads the guild name and member count from the state cache
func guildSummary(s *discordgo.Session, guildID string) (name string, members int) {
	if s == nil || s.State == nil {
		return "", 0
	}
	g, err := s.State.Guild(guildID)
	if err != nil {
		return "", 0
	}
	return g.Name, g.MemberCount
}

func (h *Handlers) guildConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	cfg, err := h.deps.Store.GetGuildConfig(ctx, guildID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return cfg, err
}

// WelcomeEmbed is posted when a member joins
func WelcomeEmbed(user *discordgo.User, guildName string, members int) *discordgo.MessageEmbed {
	description := fmt.Sprintf("Welcome <@%s>!", user.ID)
	if guildName != "" {
		description = fmt.Sprintf("Welcome to **%s**, <@%s>!", guildName, user.ID)
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "User", Value: user.String(), Inline: true},
		{Name: "ID", Value: user.ID, Inline: true},
	}
	if members > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Member count", Value: strconv.Itoa(members), Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:       "👋 Welcome!",
		Description: description,
		Color:       welcomeColor,
		Fields:      fields,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")},
		Footer:      &discordgo.MessageEmbedFooter{Text: "We hope you enjoy your stay"},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

// GoodbyeEmbed is posted when a member leaves
func GoodbyeEmbed(user *discordgo.User, members int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "👋 Goodbye!",
		Description: fmt.Sprintf("**%s** has left the server.", user.String()),
		Color:       goodbyeColor,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("256")},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if members > 0 {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("We now have %d members", members)}
	}
	return embed
}

func (h *Handlers) onGuildMemberAdd(s *discordgo.Session, m *discordgo.GuildMemberAdd) error {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return nil
	}
	ctx, cancel := handlerContext()
	defer cancel()

	cfg, err := h.deps.Store.EnsureGuild(ctx, m.GuildID, "")
	if err != nil {
		return fmt.Errorf("ensure guild: %w", err)
	}
	if err := h.deps.Store.EnsureUser(ctx, m.User.ID, m.GuildID); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}

	log := logger.WithFields(logrus.Fields{"guild": m.GuildID, "user": m.User.ID})
	if cfg.AutoRoleID != "" {
		if err := h.deps.Output.AddRole(ctx, m.GuildID, m.User.ID, cfg.AutoRoleID); err != nil {
			log.Warn("No se pudo asignar el rol automático: "+err.Error(), "Member")
		}
	}
	if cfg.WelcomeChannelID != "" {
		name, members := guildSummary(s, m.GuildID)
		if err := h.deps.Output.SendEmbed(ctx, cfg.WelcomeChannelID, WelcomeEmbed(m.User, name, members)); err != nil {
			log.Warn("No se pudo enviar la bienvenida: "+err.Error(), "Member")
		}
	}
	return nil
}

func (h *Handlers) onGuildMemberRemove(s *discordgo.Session, m *discordgo.GuildMemberRemove) error {
	if m.Member == nil || m.User == nil || m.User.Bot {
		return nil
	}
	ctx, cancel := handlerContext()
	defer cancel()

	cfg, err := h.guildConfig(ctx, m.GuildID)
	if err != nil || cfg == nil {
		return err
	}
	channelID := cfg.GoodbyeChannelID
	if channelID == "" {
		channelID = cfg.WelcomeChannelID
	}
	if channelID == "" {
		return nil
	}
	_, members := guildSummary(s, m.GuildID)
	if err := h.deps.Output.SendEmbed(ctx, channelID, GoodbyeEmbed(m.User, members)); err != nil {
		logger.Warn("No se pudo enviar la despedida: "+err.Error(), "Member")
	}
	return nil
}
