package web

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
)

// BotStatus is what the routes need from the Discord client
type BotStatus interface {
	IsReady() bool
	GuildCount() int
	Uptime() time.Duration
	BotUser() *discordgo.User
	Latency() time.Duration
}

// StoreStatus is what the routes need from the database
type StoreStatus interface {
	Ping(ctx context.Context) error
	Status(ctx context.Context) (string, bool)
}

// Info describes the running build
type Info struct {
	Name      string
	Version   string
	StartedAt time.Time
}

type api struct {
	bot   BotStatus
	store StoreStatus
	info  Info
}

// SetupAPIRoutes mounts / and the /api group
func (s *Server) SetupAPIRoutes(bot BotStatus, store StoreStatus, info Info) {
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	h := &api{bot: bot, store: store, info: info}

	s.GET("/", h.index)

	group := s.Group("/api")
	{
		group.GET("/health", h.health)
		group.GET("/status", h.status)
		group.GET("/bot", h.botInfo)
	}
}

func (h *api) uptime() time.Duration {
	return time.Since(h.info.StartedAt).Truncate(time.Second)
}

func (h *api) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    h.info.Name,
		"version": h.info.Version,
		"uptime":  h.uptime().String(),
	})
}

// health returns 503 unless the gateway is ready and the store answers
func (h *api) health(c *gin.Context) {
	ready := h.bot != nil && h.bot.IsReady()

	database := "ok"
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if h.store == nil {
		database = "unavailable"
	} else if err := h.store.Ping(ctx); err != nil {
		database = "unavailable"
	}

	status, code := "healthy", http.StatusOK
	if !ready || database != "ok" {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":         status,
		"uptime_seconds": int64(h.uptime().Seconds()),
		"gateway_ready":  ready,
		"database":       database,
	})
}

func (h *api) status(c *gin.Context) {
	dbStatus, dbOnline := "🔴 | Desconectado", false
	if h.store != nil {
		dbStatus, dbOnline = h.store.Status(c.Request.Context())
	}

	botOnline := h.bot != nil && h.bot.IsReady()

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"database": gin.H{
			"status":   dbStatus,
			"isOnline": dbOnline,
		},
		"bot": gin.H{
			"isOnline": botOnline,
		},
	})
}

func (h *api) botInfo(c *gin.Context) {
	if h.bot == nil || !h.bot.IsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Bot Offline",
			"message": "The bot is not available right now.",
		})
		return
	}

	user := h.bot.BotUser()
	if user == nil {
		user = &discordgo.User{}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"avatar":    user.Avatar,
		"guilds":    h.bot.GuildCount(),
		"latencyMs": h.bot.Latency().Milliseconds(),
		"uptime":    h.bot.Uptime().Truncate(time.Second).String(),
		"isReady":   true,
	})
}
