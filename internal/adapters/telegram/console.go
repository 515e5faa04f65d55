package telegram

import (
	"context"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
)

// Console mirrors console output into the admin chat.
type Console struct {
	client ports.BotClientPort
	chatID int64
}

var _ ports.ConsolePort = (*Console)(nil)

// NewConsole creates a console writing to chatID.
func NewConsole(client ports.BotClientPort, chatID int64) *Console {
	return &Console{client: client, chatID: chatID}
}

func (c *Console) SendMessage(ctx context.Context, text string, color domain.Color) error {
	return c.client.SendMessage(ctx, ports.SendMessageParams{
		ChatID: c.chatID,
		Text:   marker(color) + text,
	})
}

// marker stands in for the color, which Telegram cannot render.
func marker(color domain.Color) string {
	switch color {
	case domain.ColorRed:
		return "🔴 "
	case domain.ColorYellow:
		return "🟡 "
	case domain.ColorGreen, domain.ColorDarkGreen:
		return "🟢 "
	case domain.ColorGray:
		return "⚪ "
	default:
		return ""
	}
}
