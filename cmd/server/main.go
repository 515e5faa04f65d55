package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/husheng0/Rocket/internal/runtime"
	"github.com/husheng0/Rocket/internal/shared/config"
	"github.com/husheng0/Rocket/internal/shared/logger"

	// Built-in plugins register themselves in init().
	_ "github.com/husheng0/Rocket/internal/plugins/audit"
	_ "github.com/husheng0/Rocket/internal/plugins/guard"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.IsDev(), cfg.LogLevel)
	baseLogger.Info().Msg("Logger initialized")

	// 3. Print loaded config
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Int("bus_workers", cfg.Bus.Workers).
		Int("bus_queue_size", cfg.Bus.QueueSize).
		Bool("postgres", cfg.Postgres.URL != "").
		Bool("telegram", cfg.Telegram.Enabled()).
		Strs("plugins_disabled", cfg.Plugins.Disabled).
		Msg("Configuration loaded")

	// 4. Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Build and run
	rt, err := runtime.New(ctx, cfg, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize runtime")
	}

	if err := rt.Run(ctx); err != nil {
		baseLogger.Error().Err(err).Msg("Runtime stopped with errors")
		os.Exit(1)
	}
	baseLogger.Info().Msg("Bye")
}
