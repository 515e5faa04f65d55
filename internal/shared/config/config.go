package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BusConfig sizes the event bus worker pool.
type BusConfig struct {
	Workers   int
	QueueSize int
}

// PostgresConfig points at the permission database. An empty URL selects the
// in-memory store.
type PostgresConfig struct {
	URL string
}

// TelegramConfig enables the remote console. An empty token disables it.
// OwnerID, when set, is granted every rocket.permissions node at startup so
// that /p can be used before any grant exists.
type TelegramConfig struct {
	Token          string
	AdminChatID    int64
	OwnerID        int64
	WorkerPoolSize int
}

// Enabled reports whether the Telegram console should be started.
func (c TelegramConfig) Enabled() bool { return c.Token != "" }

// PluginsConfig selects which registered plugins are loaded.
type PluginsConfig struct {
	Disabled []string
}

// Config holds all configuration for the application.
type Config struct {
	AppEnv   string
	LogLevel string
	Bus      BusConfig
	Postgres PostgresConfig
	Telegram TelegramConfig
	Plugins  PluginsConfig
}

// envBindings maps viper keys to environment variable names.
var envBindings = map[string]string{
	"app.env":                   "APP_ENV",
	"log.level":                 "LOG_LEVEL",
	"bus.workers":               "BUS_WORKERS",
	"bus.queue_size":            "BUS_QUEUE_SIZE",
	"postgres.url":              "DATABASE_URL",
	"telegram.token":            "TELEGRAM_TOKEN",
	"telegram.admin_chat_id":    "TELEGRAM_ADMIN_CHAT_ID",
	"telegram.owner_id":         "TELEGRAM_OWNER_ID",
	"telegram.worker_pool_size": "TELEGRAM_WORKERS",
	"plugins.disabled":          "PLUGINS_DISABLED",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// 1. Load .env file into the process environment
	if err := godotenv.Load(); err != nil {
		// If the file just doesn't exist, that's fine in prod.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	// 2. Explicitly bind viper keys to env var names
	v := viper.New()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	// 3. Set defaults
	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("bus.workers", 4)
	v.SetDefault("bus.queue_size", 256)
	v.SetDefault("telegram.worker_pool_size", 2)

	// 4. Get values
	cfg := Config{
		AppEnv:   v.GetString("app.env"),
		LogLevel: v.GetString("log.level"),
		Bus: BusConfig{
			Workers:   v.GetInt("bus.workers"),
			QueueSize: v.GetInt("bus.queue_size"),
		},
		Postgres: PostgresConfig{
			URL: v.GetString("postgres.url"),
		},
		Telegram: TelegramConfig{
			Token:          v.GetString("telegram.token"),
			AdminChatID:    v.GetInt64("telegram.admin_chat_id"),
			OwnerID:        v.GetInt64("telegram.owner_id"),
			WorkerPoolSize: v.GetInt("telegram.worker_pool_size"),
		},
		Plugins: PluginsConfig{
			Disabled: splitList(v.GetString("plugins.disabled")),
		},
	}

	// 5. Validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Bus.Workers <= 0 {
		return fmt.Errorf("BUS_WORKERS must be positive, got %d", c.Bus.Workers)
	}
	if c.Bus.QueueSize < 0 {
		return fmt.Errorf("BUS_QUEUE_SIZE must not be negative, got %d", c.Bus.QueueSize)
	}
	if c.Telegram.Enabled() {
		if c.Telegram.AdminChatID == 0 {
			return errors.New("TELEGRAM_ADMIN_CHAT_ID is required when TELEGRAM_TOKEN is set")
		}
		if c.Telegram.WorkerPoolSize <= 0 {
			return fmt.Errorf("TELEGRAM_WORKERS must be positive, got %d", c.Telegram.WorkerPoolSize)
		}
	}
	return nil
}

// IsDev reports whether human-readable logging should be used.
func (c *Config) IsDev() bool { return c.AppEnv == "dev" || c.AppEnv == "development" }

// splitList splits a comma separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
