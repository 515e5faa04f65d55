package commands

import (
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

// PluginLister is the part of the plugin host commands need.
type PluginLister interface {
	Plugins() []string
}

// Deps are the collaborators handed to every command constructor.
type Deps struct {
	Permissions ports.PermissionProvider
	Plugins     PluginLister
	Bot         ports.BotClientPort
}

// --- Define types for handler "constructors" ---
// This allows us to pass dependencies from the runtime

type CommandHandlerConstructor func(Deps, *zerolog.Logger) ports.CommandHandler

// CommandRegistrar receives built handlers, usually the Telegram router.
type CommandRegistrar interface {
	RegisterCommandHandler(handler ports.CommandHandler)
}

var commandRegistry []CommandHandlerConstructor

// RegisterCommand is called by handlers in their init() function
func RegisterCommand(constructor CommandHandlerConstructor) {
	commandRegistry = append(commandRegistry, constructor)
}

// RegisterAllHandlers builds all registered handlers and passes them to the
// router.
func RegisterAllHandlers(router CommandRegistrar, deps Deps, baseLogger *zerolog.Logger) {
	log := baseLogger.With().Str("component", "command_registry").Logger()

	for _, constructor := range commandRegistry {
		handler := constructor(deps, baseLogger)
		router.RegisterCommandHandler(handler)
	}
	log.Info().Int("commands", len(commandRegistry)).Msg("Registered remote commands")
}
