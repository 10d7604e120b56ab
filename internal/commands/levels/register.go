// Package levels provides /rank and /leaderboard
package levels

import (
	"context"

	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/models"
)

// Category groups these commands in /help
const Category = "levels"

// LeaderboardSize is how many members /leaderboard shows
const LeaderboardSize = 10

// Store is what the level commands read
type Store interface {
	GetUserRecord(ctx context.Context, userID, guildID string) (*models.UserRecord, error)
	TopUsers(ctx context.Context, guildID string, limit int) ([]models.UserRecord, error)
}

// Register registers the level commands
func Register(client *discord.ExtendedClient, store Store, engine *leveling.Engine) error {
	for _, cmd := range []*discord.Command{
		createRankCommand(store, engine),
		createLeaderboardCommand(store),
	} {
		if err := client.CommandHandler.RegisterCommand(cmd.GuildOnly()); err != nil {
			return err
		}
	}
	return nil
}
