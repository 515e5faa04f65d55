package commands

import (
	"context"
	"strings"

	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

func init() {
	RegisterCommand(NewPluginsHandler)
}

// pluginsHandler is the /plugins command.
type pluginsHandler struct {
	log     zerolog.Logger
	plugins PluginLister
	bot     ports.BotClientPort
}

// NewPluginsHandler creates a new handler for the /plugins command.
func NewPluginsHandler(deps Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &pluginsHandler{
		log:     baseLogger.With().Str("component", "plugins_handler").Logger(),
		plugins: deps.Plugins,
		bot:     deps.Bot,
	}
}

func (h *pluginsHandler) Command() string     { return "plugins" }
func (h *pluginsHandler) Description() string { return "List loaded plugins" }

func (h *pluginsHandler) Handle(ctx context.Context, update *ports.BotUpdate) error {
	names := h.plugins.Plugins()
	h.log.Debug().Int("loaded", len(names)).Msg("Listing plugins")
	text := "No plugins loaded."
	if len(names) > 0 {
		text = "Loaded plugins: " + strings.Join(names, ", ")
	}
	return h.bot.SendMessage(ctx, ports.SendMessageParams{ChatID: update.ChatID, Text: text})
}
