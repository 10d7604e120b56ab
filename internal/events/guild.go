package events

import (
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// onGuildCreate makes sure every guild the bot sees has a stored config.
// Discord also sends it for every guild on connect, so it must be idempotent.
func (h *Handlers) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) error {
	if g.Guild == nil || g.Unavailable {
		return nil
	}
	ctx, cancel := handlerContext()
	defer cancel()

	if _, err := h.deps.Store.EnsureGuild(ctx, g.ID, g.Name); err != nil {
		return fmt.Errorf("ensure guild %s: %w", g.ID, err)
	}
	logger.WithFields(logrus.Fields{"guild": g.ID, "members": g.MemberCount}).
		Info("🏠 Servidor disponible: "+g.Name, "Guild")
	return nil
}

// onGuildDelete only logs; the stored config is kept in case the bot returns
func (h *Handlers) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) error {
	if g.Guild == nil {
		return nil
	}
	if g.Unavailable {
		logger.Warn("Servidor no disponible temporalmente: "+g.ID, "Guild")
		return nil
	}
	name := g.ID
	if g.BeforeDelete != nil && g.BeforeDelete.Name != "" {
		name = g.BeforeDelete.Name
	}
	logger.Info("👋 Eliminado del servidor: "+name, "Guild")
	return nil
}
