// Package commands wires every command category into the client.
// Commands are organized in subdirectories by category.
package commands

import (
	"fmt"

	"github.com/PancyStudios/SentinelGo/internal/commands/admin"
	"github.com/PancyStudios/SentinelGo/internal/commands/levels"
	"github.com/PancyStudios/SentinelGo/internal/commands/mod"
	"github.com/PancyStudios/SentinelGo/internal/commands/utils"
	"github.com/PancyStudios/SentinelGo/internal/commands/verify"
	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/PancyStudios/SentinelGo/pkg/verification"
)

// Deps are the services the commands run against
type Deps struct {
	Store        *database.Store
	Discord      admin.Discord
	Moderation   *moderation.Service
	Verification *verification.Manager
	Leveling     *leveling.Engine
}

// RegisterAll registers every command with the client
func RegisterAll(client *discord.ExtendedClient, deps Deps) error {
	steps := []struct {
		name     string
		register func() error
	}{
		{mod.Category, func() error { return mod.Register(client, deps.Moderation) }},
		{admin.Category, func() error { return admin.Register(client, deps.Store, deps.Discord) }},
		{verify.Category, func() error { return verify.Register(client, deps.Verification) }},
		{levels.Category, func() error { return levels.Register(client, deps.Store, deps.Leveling) }},
		{utils.Category, func() error { return utils.Register(client) }},
	}
	for _, step := range steps {
		if err := step.register(); err != nil {
			return fmt.Errorf("register %s commands: %w", step.name, err)
		}
	}
	return nil
}
