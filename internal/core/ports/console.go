package ports

import (
	"context"

	"github.com/husheng0/Rocket/internal/core/domain"
)

// ConsolePort receives user-facing text. The color is a hint; sinks that
// cannot render it map it to a severity.
type ConsolePort interface {
	SendMessage(ctx context.Context, text string, color domain.Color) error
}
