// Package config provides configuration management for the bot.
// Values come from defaults, an optional YAML file, a .env file and the
// process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	BotToken   string `yaml:"discord_token"`
	ClientID   string `yaml:"discord_client_id"`
	DevGuildID string `yaml:"dev_guild_id"`
	OwnerID    string `yaml:"owner_id"`

	// Database
	DatabasePath string `yaml:"database_path"`

	// MQTT
	MQTTHost     string `yaml:"mqtt_host"`
	MQTTPort     string `yaml:"mqtt_port"`
	MQTTUser     string `yaml:"mqtt_user"`
	MQTTPassword string `yaml:"mqtt_password"`

	// Web Server
	Port                  string `yaml:"port"`
	DashboardClientSecret string `yaml:"dashboard_client_secret"`
	DashboardRedirectURL  string `yaml:"dashboard_redirect_url"`
	SessionSecret         string `yaml:"session_secret"`
	KeepAliveURL          string `yaml:"keepalive_url"`

	// Environment
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// Webhooks
	ErrorWebhook      string `yaml:"error_webhook"`
	LogsWebhook       string `yaml:"logs_webhook"`
	LogsWebServerHook string `yaml:"logs_web_webhook"`

	// Features
	MaxWarnings             int           `yaml:"max_warnings"`
	XPPerLevel              int64         `yaml:"xp_per_level"`
	XPMin                   int64         `yaml:"xp_min"`
	XPMax                   int64         `yaml:"xp_max"`
	VerificationTimeout     time.Duration `yaml:"verification_timeout"`
	CommandCooldown         time.Duration `yaml:"command_cooldown"`
	ReasonMaxLength         int           `yaml:"reason_max_length"`
	RegisterCommandsOnStart bool          `yaml:"register_commands_on_start"`
}

var (
	Version   = "Dev-Local"
	BuildTime = "Hoy"
)

// MissingValueError reports a required value that was not configured.
type MissingValueError struct {
	Key string
}

func (e *MissingValueError) Error() string {
	return "missing required configuration value: " + e.Key
}

var (
	cfg     *Config
	cfgErr  error
	cfgOnce sync.Once
)

// resetForTesting resets the configuration for testing purposes.
// This function should only be called from test code.
func resetForTesting() {
	cfg = nil
	cfgErr = nil
	cfgOnce = sync.Once{}
}

// Defaults returns a Config populated with default values only.
func Defaults() *Config {
	return &Config{
		DatabasePath:        "./data/sentinel.db",
		MQTTPort:            "1883",
		Port:                "8000",
		Environment:         "dev",
		LogLevel:            "debug",
		MaxWarnings:         3,
		XPPerLevel:          100,
		XPMin:               15,
		XPMax:               25,
		VerificationTimeout: 30 * time.Second,
		CommandCooldown:     3 * time.Second,
		ReasonMaxLength:     512,
	}
}

func loadConfig() {
	// Load .env file if it exists (ignoring error if it doesn't)
	_ = godotenv.Load()

	c := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := c.loadFile(path); err != nil {
			cfgErr = err
			return
		}
	}

	c.applyEnv()
	cfg = c
}

// loadFile overlays a YAML file on top of the current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Discord
	c.BotToken = getEnv("DISCORD_TOKEN", c.BotToken)
	c.ClientID = getEnv("DISCORD_CLIENT_ID", c.ClientID)
	c.DevGuildID = getEnv("DEV_GUILD_ID", c.DevGuildID)
	c.OwnerID = getEnv("OWNER_ID", c.OwnerID)

	// Database
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)

	// MQTT
	c.MQTTHost = getEnv("MQTT_HOST", c.MQTTHost)
	c.MQTTPort = getEnv("MQTT_PORT", c.MQTTPort)
	c.MQTTUser = getEnv("MQTT_USER", c.MQTTUser)
	c.MQTTPassword = getEnv("MQTT_PASSWORD", c.MQTTPassword)

	// Web Server
	c.Port = getEnv("PORT", c.Port)
	c.DashboardClientSecret = getEnv("DASHBOARD_CLIENT_SECRET", c.DashboardClientSecret)
	c.DashboardRedirectURL = getEnv("DASHBOARD_REDIRECT_URL", c.DashboardRedirectURL)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.KeepAliveURL = getEnv("KEEPALIVE_URL", c.KeepAliveURL)

	// Environment
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	// Webhooks
	c.ErrorWebhook = getEnv("ERROR_WEBHOOK", c.ErrorWebhook)
	c.LogsWebhook = getEnv("LOGS_WEBHOOK", c.LogsWebhook)
	c.LogsWebServerHook = getEnv("LOGS_WEB_WEBHOOK", c.LogsWebServerHook)

	// Features
	c.MaxWarnings = getEnvInt("MAX_WARNINGS", c.MaxWarnings)
	c.XPPerLevel = int64(getEnvInt("XP_PER_LEVEL", int(c.XPPerLevel)))
	c.XPMin = int64(getEnvInt("XP_MIN", int(c.XPMin)))
	c.XPMax = int64(getEnvInt("XP_MAX", int(c.XPMax)))
	c.VerificationTimeout = getEnvDuration("VERIFICATION_TIMEOUT", c.VerificationTimeout)
	c.CommandCooldown = getEnvDuration("COMMAND_COOLDOWN", c.CommandCooldown)
	c.ReasonMaxLength = getEnvInt("REASON_MAX_LENGTH", c.ReasonMaxLength)
	c.RegisterCommandsOnStart = getEnvBool("REGISTER_COMMANDS_ON_START", c.RegisterCommandsOnStart)
}

// Load initializes the configuration from the environment and validates it
func Load() (*Config, error) {
	cfgOnce.Do(loadConfig)
	if cfgErr != nil {
		return nil, cfgErr
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Get returns the current configuration without validating it
func Get() *Config {
	cfgOnce.Do(loadConfig)
	if cfg == nil {
		return Defaults()
	}
	return cfg
}

// Validate reports the first missing or inconsistent value.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return &MissingValueError{Key: "DISCORD_TOKEN"}
	}
	if c.DashboardClientSecret != "" {
		if c.ClientID == "" {
			return &MissingValueError{Key: "DISCORD_CLIENT_ID"}
		}
		if c.OwnerID == "" {
			return &MissingValueError{Key: "OWNER_ID"}
		}
	}
	if c.XPPerLevel <= 0 {
		return errors.New("XP_PER_LEVEL must be positive")
	}
	if c.XPMin < 0 || c.XPMax < c.XPMin {
		return fmt.Errorf("invalid XP range %d-%d", c.XPMin, c.XPMax)
	}
	if c.MaxWarnings <= 0 {
		return errors.New("MAX_WARNINGS must be positive")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

// IsProd returns true if the environment is production
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// DashboardEnabled reports whether the OAuth2 dashboard can be served.
func (c *Config) DashboardEnabled() bool {
	return c.DashboardClientSecret != "" && c.ClientID != ""
}
