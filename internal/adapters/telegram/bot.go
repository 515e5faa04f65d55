package telegram

import (
	"context"

	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/husheng0/Rocket/internal/shared/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Bot wires the API connection, client, console, router and server of the
// admin bot.
type Bot struct {
	api     *tgbotapi.BotAPI
	client  ports.BotClientPort
	console *Console
	router  *Router
	cfg     config.TelegramConfig
	log     zerolog.Logger
}

// NewBot connects to the Bot API. Commands can be registered on Router
// before Run is called.
func NewBot(cfg config.TelegramConfig, debug bool, baseLogger *zerolog.Logger) (*Bot, error) {
	log := baseLogger.With().Str("bot", "admin").Logger()

	// 1. Create API
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	log.Info().Str("username", api.Self.UserName).Msg("Bot API connected")

	// 2. Create Client (Adapter)
	client := NewClient(api, &log)

	return &Bot{
		api:     api,
		client:  client,
		console: NewConsole(client, cfg.AdminChatID),
		router:  NewRouter(client, cfg.AdminChatID, &log),
		cfg:     cfg,
		log:     log,
	}, nil
}

func (b *Bot) Client() ports.BotClientPort { return b.client }
func (b *Bot) Console() *Console           { return b.console }
func (b *Bot) Router() *Router             { return b.router }

// Run publishes the command menu and polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.client.SetMenuCommands(ctx, b.router.MenuCommands()); err != nil {
		b.log.Warn().Err(err).Msg("Could not set menu commands")
	}

	server := NewBotServer(b.api, b.router, b.cfg.WorkerPoolSize, &b.log)
	return server.Start(ctx)
}
