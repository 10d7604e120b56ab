// Package main is the entry point for the Sentinel bot.
// It initializes all systems and starts the Discord bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PancyStudios/SentinelGo/internal/commands"
	"github.com/PancyStudios/SentinelGo/internal/events"
	"github.com/PancyStudios/SentinelGo/pkg/config"
	"github.com/PancyStudios/SentinelGo/pkg/database"
	"github.com/PancyStudios/SentinelGo/pkg/discord"
	"github.com/PancyStudios/SentinelGo/pkg/errors"
	"github.com/PancyStudios/SentinelGo/pkg/leveling"
	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/PancyStudios/SentinelGo/pkg/moderation"
	"github.com/PancyStudios/SentinelGo/pkg/mqtt"
	"github.com/PancyStudios/SentinelGo/pkg/verification"
	"github.com/PancyStudios/SentinelGo/pkg/web"
	"golang.org/x/sync/errgroup"
)

const botName = "Sentinel"

func main() {
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

	logger.System(fmt.Sprintf("Iniciando %s %s (%s)...", botName, config.Version, cfg.Environment), "Main")
	logger.Info(fmt.Sprintf("Directorio de trabajo: %s", getCurrentDir()), "Main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize error handler; a critical error shuts everything down
	errors.Init(cfg.ErrorWebhook, stop)
	defer errors.Get().Stop()

	// Initialize database
	store, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error abriendo la base de datos: %v", err), "Main")
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		logger.Critical(fmt.Sprintf("Error aplicando migraciones: %v", err), "Main")
		os.Exit(1)
	}

	// Initialize Discord client
	client, err := discord.NewClient(cfg.BotToken, discord.Options{
		AppID:           cfg.ClientID,
		OwnerID:         cfg.OwnerID,
		DevGuildID:      cfg.DevGuildID,
		DefaultCooldown: cfg.CommandCooldown,
	})
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), "Main")
		os.Exit(1)
	}

	var (
		modOpts    []moderation.Option
		verifyOpts []verification.ManagerOption
	)

	// Initialize MQTT
	if cfg.MQTTHost != "" {
		clientID := "sentinel"
		if !cfg.IsProd() {
			clientID = "sentinel_canary"
		}
		bridge := mqtt.NewBridge(mqtt.Options{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			Username: cfg.MQTTUser,
			Password: cfg.MQTTPassword,
			ClientID: clientID,
		})
		defer bridge.Destroy()

		if err := bridge.ServeGuildConfig(store, 5*time.Second); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo exponer la configuración por MQTT: %v", err), "Main")
		}
		modOpts = append(modOpts, moderation.WithPublisher(bridge))
		verifyOpts = append(verifyOpts, verification.WithPublisher(bridge))
	} else {
		logger.Info("MQTT desactivado (MQTT_HOST vacío)", "Main")
	}

	modService := moderation.NewService(store, moderation.NewSessionGateway(client.Session), moderation.Config{
		MaxWarnings:     cfg.MaxWarnings,
		ReasonMaxLength: cfg.ReasonMaxLength,
	}, modOpts...)
	verifier := verification.NewManager(store, verification.SessionGranter{Session: client.Session}, cfg.VerificationTimeout, verifyOpts...)
	engine := leveling.NewEngine(store, leveling.Config{
		XPMin:      cfg.XPMin,
		XPMax:      cfg.XPMax,
		XPPerLevel: cfg.XPPerLevel,
	})

	// Register commands
	if err := commands.RegisterAll(client, commands.Deps{
		Store:        store,
		Discord:      client.Session,
		Moderation:   modService,
		Verification: verifier,
		Leveling:     engine,
	}); err != nil {
		logger.Critical(fmt.Sprintf("Error registrando comandos: %v", err), "Main")
		os.Exit(1)
	}

	// Register events. Outside production the commands go to the dev guild
	// so changes show up immediately.
	deployGuild := ""
	if !cfg.IsProd() {
		deployGuild = cfg.DevGuildID
	}
	events.RegisterAll(client, events.Deps{
		Store:          store,
		Output:         events.SessionOutput{Session: client.Session},
		Leveling:       engine,
		DeployCommands: cfg.RegisterCommandsOnStart,
		DeployGuildID:  deployGuild,
	})

	// Initialize web server
	server := web.NewServer(web.Options{WebhookURL: cfg.LogsWebServerHook})
	info := web.Info{Name: botName, Version: config.Version, StartedAt: time.Now()}
	server.SetupAPIRoutes(client, store, info)
	if cfg.DashboardEnabled() {
		server.SetupDashboard(web.DashboardConfig{
			ClientID:      cfg.ClientID,
			ClientSecret:  cfg.DashboardClientSecret,
			RedirectURL:   cfg.DashboardRedirectURL,
			OwnerID:       cfg.OwnerID,
			SessionSecret: cfg.SessionSecret,
		}, client, store, info)
		logger.Info("Dashboard habilitado en /dashboard", "Main")
	}

	// Start the bot
	if err := client.Start(); err != nil {
		logger.Critical(fmt.Sprintf("Error starting Discord client: %v", err), "Main")
		os.Exit(1)
	}
	defer func() {
		if err := client.Stop(); err != nil {
			logger.Error(fmt.Sprintf("Error cerrando la sesión de Discord: %v", err), "Main")
		}
	}()

	logger.Success(botName+" iniciado correctamente!", "Main")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg.Port)
	})
	g.Go(func() error {
		web.KeepAlive(gctx, cfg.KeepAliveURL, web.KeepAliveInterval)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("Error en el servidor web: %v", err), "Main")
	}

	logger.System("Apagando "+botName+"...", "Main")
}

// getCurrentDir returns the current working directory
func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "unknown"
	}
	return dir
}
