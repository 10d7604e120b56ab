package events

import (
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// onMessageCreate awards xp for guild messages and announces level ups
func (h *Handlers) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) error {
	if m.Message == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return nil
	}
	if h.deps.Leveling == nil {
		return nil
	}
	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := h.deps.Store.EnsureGuild(ctx, m.GuildID, ""); err != nil {
		return fmt.Errorf("ensure guild: %w", err)
	}
	gain, err := h.deps.Leveling.Process(ctx, m.GuildID, m.Author.ID)
	if err != nil {
		return fmt.Errorf("award xp: %w", err)
	}
	if gain == nil || !gain.LevelUp {
		return nil
	}

	logger.WithFields(logrus.Fields{"guild": m.GuildID, "user": m.Author.ID, "level": gain.Record.Level}).
		Info("🎉 Subida de nivel", "Leveling")

	channelID := m.ChannelID
	if cfg, err := h.guildConfig(ctx, m.GuildID); err == nil && cfg != nil && cfg.LevelUpChannelID != "" {
		channelID = cfg.LevelUpChannelID
	}
	if err := h.deps.Output.SendMessage(ctx, channelID, leveling.LevelUpMessage(m.Author.ID, gain.Record.Level)); err != nil {
		logger.Warn("No se pudo anunciar la subida de nivel: "+err.Error(), "Leveling")
	}
	return nil
}
