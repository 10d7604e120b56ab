// Package utils provides the general purpose commands
package utils

import (
	"github.com/PancyStudios/SentinelGo/pkg/discord"
)

// Category groups these commands in /help
const Category = "utility"

// Register registers /ping, /help and /stats
func Register(client *discord.ExtendedClient) error {
	for _, cmd := range []*discord.Command{
		createPingCommand(),
		createHelpCommand(),
		createStatsCommand(),
	} {
		if err := client.CommandHandler.RegisterCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}
