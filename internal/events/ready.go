package events

import (
	"fmt"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// Status is the presence shown once connected
func Status(guilds int) string {
	return fmt.Sprintf("%d servers | /help", guilds)
}

// onReady runs once, the first time the bot successfully connects
func (h *Handlers) onReady(s *discordgo.Session, r *discordgo.Ready) error {
	h.client.SetReady(true)
	if r.User != nil {
		logger.Success(fmt.Sprintf("✅ Bot conectado: %s", r.User.String()), "Ready")
	}
	logger.Info(fmt.Sprintf("📊 Conectado a %d servidores", len(r.Guilds)), "Ready")

	if h.deps.Output != nil {
		if err := h.deps.Output.SetStatus(Status(len(r.Guilds))); err != nil {
			logger.Error(fmt.Sprintf("Error estableciendo estado: %v", err), "Ready")
		} else {
			logger.Debug("Estado del bot establecido correctamente", "Ready")
		}
	}

	if h.deps.DeployCommands {
		if _, err := h.client.CommandHandler.Deploy(h.deps.DeployGuildID); err != nil {
			return fmt.Errorf("deploy commands: %w", err)
		}
	}
	return nil
}

// onReconnect marks the client ready again after a new session
func (h *Handlers) onReconnect(s *discordgo.Session, r *discordgo.Ready) error {
	h.client.SetReady(true)
	return nil
}

func (h *Handlers) onResumed(s *discordgo.Session, r *discordgo.Resumed) error {
	h.client.SetReady(true)
	logger.Info("🔄 Sesión del gateway reanudada", "Ready")
	return nil
}

func (h *Handlers) onDisconnect(s *discordgo.Session, d *discordgo.Disconnect) error {
	h.client.SetReady(false)
	logger.Warn("⚠️ Desconectado del gateway", "Ready")
	return nil
}
