package console

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

// LogConsole writes console messages to the structured log. Colors become
// log levels.
type LogConsole struct {
	log zerolog.Logger
}

var _ ports.ConsolePort = (*LogConsole)(nil)

func NewLogConsole(baseLogger *zerolog.Logger) *LogConsole {
	return &LogConsole{log: baseLogger.With().Str("component", "console").Logger()}
}

func (c *LogConsole) SendMessage(ctx context.Context, text string, color domain.Color) error {
	c.log.WithLevel(levelOf(color)).Str("color", color.String()).Msg(text)
	return nil
}

func levelOf(color domain.Color) zerolog.Level {
	switch color {
	case domain.ColorRed:
		return zerolog.ErrorLevel
	case domain.ColorYellow:
		return zerolog.WarnLevel
	case domain.ColorGray:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Multi sends every message to all sinks, even when some of them fail.
type Multi []ports.ConsolePort

var _ ports.ConsolePort = Multi(nil)

func (m Multi) SendMessage(ctx context.Context, text string, color domain.Color) error {
	var result *multierror.Error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.SendMessage(ctx, text, color); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
