// Package audit reports permission and plugin activity to the console.
package audit

import (
	"context"
	"fmt"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/husheng0/Rocket/internal/plugin"
	"github.com/rs/zerolog"
)

const Name = "audit"

func init() {
	plugin.Register(Name, func() plugin.Plugin { return New() })
}

// Plugin observes events with ignoreCancelled set, so it also sees changes
// another listener vetoed.
type Plugin struct {
	plugin.Identity
	console ports.ConsolePort
	log     *zerolog.Logger
}

func New() *Plugin {
	return &Plugin{Identity: plugin.NewIdentity(Name)}
}

func (p *Plugin) Load(ctx context.Context, env ports.PluginEnv) error {
	p.console = env.Console
	p.log = env.Logger

	if _, err := ports.SubscribeTyped(env.Bus, p, p.onPermissionChange, true); err != nil {
		return err
	}
	if _, err := ports.SubscribeTyped(env.Bus, p, p.onReload, true); err != nil {
		return err
	}
	if _, err := ports.SubscribeTyped(env.Bus, p, p.onPluginLoaded, true); err != nil {
		return err
	}
	if _, err := ports.SubscribeTyped(env.Bus, p, p.onPluginUnloaded, true); err != nil {
		return err
	}
	return nil
}

func (p *Plugin) Unload(ctx context.Context) error { return nil }

func (p *Plugin) onPermissionChange(ctx context.Context, emitter ports.Emitter, ev *domain.PermissionChangeEvent) error {
	text := fmt.Sprintf("%s: %s %q for %s", emitter.Name(), ev.Action, ev.Permission, ev.Target)
	color := domain.ColorGreen
	if ev.IsCancelled() {
		text += " (cancelled)"
		color = domain.ColorYellow
	}
	return p.write(ctx, text, color)
}

func (p *Plugin) onReload(ctx context.Context, emitter ports.Emitter, ev *domain.PermissionsReloadedEvent) error {
	return p.write(ctx, fmt.Sprintf("Permissions reloaded: %d groups, %d players", ev.Groups, ev.Players), domain.ColorGray)
}

func (p *Plugin) onPluginLoaded(ctx context.Context, emitter ports.Emitter, ev *domain.PluginLoadedEvent) error {
	return p.write(ctx, "Plugin loaded: "+ev.Plugin, domain.ColorDarkGreen)
}

func (p *Plugin) onPluginUnloaded(ctx context.Context, emitter ports.Emitter, ev *domain.PluginUnloadedEvent) error {
	return p.write(ctx, "Plugin unloaded: "+ev.Plugin, domain.ColorGray)
}

func (p *Plugin) write(ctx context.Context, text string, color domain.Color) error {
	if p.console == nil {
		p.log.Info().Msg(text)
		return nil
	}
	return p.console.SendMessage(ctx, "[audit] "+text, color)
}
