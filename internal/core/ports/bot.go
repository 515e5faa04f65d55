package ports

import (
	"context"
)

// SendMessageParams holds all possible options for sending a message.
type SendMessageParams struct {
	ChatID    int64
	Text      string
	ParseMode string // e.g., "MarkdownV2" or "HTML"
}

// BotClientPort defines the interface for *sending* messages.
type BotClientPort interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	SetMenuCommands(ctx context.Context, commands map[string]string) error
}

// BotUpdate represents a simplified, generic update.
type BotUpdate struct {
	MessageID int
	ChatID    int64
	UserID    int64
	UserName  string
	Text      string
	Command   string
	Args      []string
}

// CommandHandler defines the interface for a remote console command.
type CommandHandler interface {
	// Command returns the command string without the "/" (e.g., "p")
	Command() string
	// Description is shown in the bot menu.
	Description() string
	// Handle processes the update.
	Handle(ctx context.Context, update *BotUpdate) error
}
