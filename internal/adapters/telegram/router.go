package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/husheng0/Rocket/internal/core/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Router routes admin chat commands to the registered handlers. Updates from
// any other chat are dropped.
type Router struct {
	log             zerolog.Logger
	botClient       ports.BotClientPort
	adminChatID     int64
	mu              sync.RWMutex
	commandHandlers map[string]ports.CommandHandler
}

// NewRouter creates a new router for the admin chat.
func NewRouter(botClient ports.BotClientPort, adminChatID int64, baseLogger *zerolog.Logger) *Router {
	return &Router{
		log:             baseLogger.With().Str("component", "tg_router").Logger(),
		botClient:       botClient,
		adminChatID:     adminChatID,
		commandHandlers: make(map[string]ports.CommandHandler),
	}
}

// RegisterCommandHandler adds a command to the router.
func (r *Router) RegisterCommandHandler(handler ports.CommandHandler) {
	cmd := strings.ToLower(handler.Command())
	r.mu.Lock()
	r.commandHandlers[cmd] = handler
	r.mu.Unlock()
	r.log.Info().Str("command", cmd).Msg("Registered new command handler")
}

// MenuCommands returns command names and descriptions for the bot menu.
func (r *Router) MenuCommands() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	menu := make(map[string]string, len(r.commandHandlers))
	for cmd, h := range r.commandHandlers {
		menu[cmd] = h.Description()
	}
	return menu
}

// HandleUpdate is the main entry point for a new update from Telegram.
func (r *Router) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	// 1. Convert to our generic BotUpdate
	botUpdate, isSupported := r.parseUpdate(update)
	if !isSupported {
		r.log.Debug().Int("update_id", update.UpdateID).Msg("Received unsupported update type")
		return
	}

	// 2. Add logger context
	ctxLogger := r.log.With().
		Int64("user_id", botUpdate.UserID).
		Int64("chat_id", botUpdate.ChatID).
		Logger()
	ctx = ctxLogger.WithContext(ctx)

	// 3. Only the admin chat may issue commands
	if botUpdate.ChatID != r.adminChatID {
		ctxLogger.Warn().Str("command", botUpdate.Command).Msg("Ignoring update from non-admin chat")
		return
	}

	if botUpdate.Command == "" {
		ctxLogger.Debug().Msg("Ignoring non-command message")
		return
	}

	// 4. Route the command
	r.mu.RLock()
	handler, ok := r.commandHandlers[botUpdate.Command]
	r.mu.RUnlock()
	if !ok {
		ctxLogger.Info().Str("command", botUpdate.Command).Msg("Unknown command")
		r.reply(ctx, botUpdate.ChatID, fmt.Sprintf("Unknown command /%s", botUpdate.Command))
		return
	}

	ctxLogger.Info().Str("handler", botUpdate.Command).Strs("args", botUpdate.Args).Msg("Routing to command handler")
	if err := handler.Handle(ctx, botUpdate); err != nil {
		ctxLogger.Error().Err(err).Msg("Command handler failed")
		r.reply(ctx, botUpdate.ChatID, "An internal error occurred.")
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.botClient.SendMessage(ctx, ports.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		r.log.Error().Err(err).Msg("Failed to send reply")
	}
}

// parseUpdate converts a tgbotapi.Update into our internal, simplified struct.
func (r *Router) parseUpdate(update *tgbotapi.Update) (*ports.BotUpdate, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}

	botUpdate := &ports.BotUpdate{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Text:      msg.Text,
		Command:   strings.ToLower(msg.Command()),
		Args:      strings.Fields(msg.CommandArguments()),
	}
	if msg.From != nil {
		botUpdate.UserID = msg.From.ID
		botUpdate.UserName = msg.From.UserName
	}
	return botUpdate, true
}
