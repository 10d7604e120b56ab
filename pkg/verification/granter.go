package verification

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// SessionGranter grants roles through a discordgo session
type SessionGranter struct {
	Session *discordgo.Session
}

func (g SessionGranter) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return g.Session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}
