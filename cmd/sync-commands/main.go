// Package main provides a utility to sync Discord slash commands.
// This removes stale commands from Discord and ensures only currently-defined commands are registered.
//
// Usage:
//
//	go run ./cmd/sync-commands [options]
//
// Options:
//
//	-list           List all registered commands (global or guild)
//	-clean          Remove all commands without registering new ones
//	-guild <id>     Target a specific guild instead of global commands
//	-sync           Sync commands (bulk overwrite with the current set) - default behavior
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/PancyStudios/SentinelGo/internal/commands"
	"github.com/PancyStudios/SentinelGo/pkg/config"
	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/PancyStudios/SentinelGo/pkg/verification"
)

func main() {
	// Parse command line flags
	listCmd := flag.Bool("list", false, "List all registered commands")
	cleanCmd := flag.Bool("clean", false, "Remove all commands without registering new ones")
	guildID := flag.String("guild", "", "Target a specific guild (leave empty for global)")
	syncCmd := flag.Bool("sync", false, "Sync commands (bulk overwrite with the current set)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	log.SetLevel(cfg.LogLevel)
	defer log.Close()

	logger.System("Iniciando utilidad de sincronización de comandos...", "SyncCommands")

	// Initialize Discord client
	client, err := discord.NewClient(cfg.BotToken, discord.Options{
		AppID:      cfg.ClientID,
		DevGuildID: cfg.DevGuildID,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "SyncCommands")
		os.Exit(1)
	}

	// Open connection to Discord so the application id is known
	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Error connecting to Discord: %v", err), "SyncCommands")
		os.Exit(1)
	}
	defer client.Session.Close()

	logger.Success("Conectado a Discord", "SyncCommands")

	// Register commands to know what we should have. Nothing is dispatched,
	// so the services run against a throwaway in-memory store.
	if err := registerDefinitions(client); err != nil {
		logger.Critical(fmt.Sprintf("Error registrando comandos: %v", err), "SyncCommands")
		os.Exit(1)
	}

	// Execute the requested action
	switch {
	case *listCmd:
		err = listCommands(client, *guildID)
	case *cleanCmd:
		err = cleanCommands(client, *guildID)
	case *syncCmd:
		err = syncCommands(client, *guildID)
	default:
		err = syncCommands(client, *guildID)
	}
	if err != nil {
		logger.Error(err.Error(), "SyncCommands")
		os.Exit(1)
	}

	logger.Success("Operación completada exitosamente", "SyncCommands")
}

func registerDefinitions(client *discord.ExtendedClient) error {
	ctx := context.Background()
	store, err := database.Open(ctx, ":memory:")
	if err != nil {
		return err
	}
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	return commands.RegisterAll(client, commands.Deps{
		Store:        store,
		Discord:      client.Session,
		Moderation:   moderation.NewService(store, moderation.NewSessionGateway(client.Session), moderation.Config{}),
		Verification: verification.NewManager(store, verification.SessionGranter{Session: client.Session}, 0),
		Leveling:     leveling.NewEngine(store, leveling.Config{}),
	})
}

// listCommands lists all commands registered with Discord
func listCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("📋 Listando comandos registrados...", "SyncCommands")
	if guildID != "" {
		logger.Info(fmt.Sprintf("Obteniendo comandos del servidor: %s", guildID), "SyncCommands")
	} else {
		logger.Info("Obteniendo comandos globales", "SyncCommands")
	}

	cmds, err := client.CommandHandler.List(guildID)
	if err != nil {
		return fmt.Errorf("error obteniendo comandos: %w", err)
	}

	if len(cmds) == 0 {
		logger.Info("No hay comandos registrados", "SyncCommands")
		return nil
	}

	logger.Info(fmt.Sprintf("Comandos encontrados: %d", len(cmds)), "SyncCommands")
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), "SyncCommands")
	}
	return nil
}

// cleanCommands removes all commands from Discord
func cleanCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🧹 Eliminando todos los comandos...", "SyncCommands")
	if err := client.CommandHandler.Clear(guildID); err != nil {
		return fmt.Errorf("error eliminando comandos: %w", err)
	}
	logger.Success("✅ Todos los comandos han sido eliminados", "SyncCommands")
	return nil
}

// syncCommands overwrites the deployed set with the current definitions;
// anything no longer defined disappears.
func syncCommands(client *discord.ExtendedClient, guildID string) error {
	logger.Info("🔄 Sincronizando comandos...", "SyncCommands")
	created, err := client.CommandHandler.Deploy(guildID)
	if err != nil {
		return fmt.Errorf("error sincronizando comandos: %w", err)
	}
	logger.Success(fmt.Sprintf("✅ %d comandos sincronizados correctamente", len(created)), "SyncCommands")
	return nil
}
