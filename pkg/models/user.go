package models

import "time"

// UserRecord guarda el progreso de un usuario dentro de un servidor
type UserRecord struct {
	UserID    string    `json:"userId"`
	GuildID   string    `json:"guildId"`
	XP        int64     `json:"xp"`
	Level     int64     `json:"level"`
	Balance   int64     `json:"balance"`
	Bank      int64     `json:"bank"`
	Messages  int64     `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LevelFor computes floor(xp / xpPerLevel), clamped at zero.
func LevelFor(xp, xpPerLevel int64) int64 {
	if xp <= 0 || xpPerLevel <= 0 {
		return 0
	}
	return xp / xpPerLevel
}
