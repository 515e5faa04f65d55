// Package guard vetoes removal of protected permissions.
package guard

import (
	"context"
	"fmt"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/husheng0/Rocket/internal/plugin"
	"github.com/rs/zerolog"
)

const Name = "guard"

// Protected lists the permissions that cannot be removed at runtime. Grants
// below them are protected too.
var Protected = []string{"rocket.permissions.managepermissions"}

func init() {
	plugin.Register(Name, func() plugin.Plugin { return New() })
}

type Plugin struct {
	plugin.Identity
	log *zerolog.Logger
}

func New() *Plugin {
	return &Plugin{Identity: plugin.NewIdentity(Name)}
}

// Load binds by event name rather than type. Name-keyed bindings run first,
// so the veto is in place before type-keyed observers see the event.
func (p *Plugin) Load(ctx context.Context, env ports.PluginEnv) error {
	p.log = env.Logger
	key := domain.NameKey(domain.TypeKey[*domain.PermissionChangeEvent]().Name)
	_, err := env.Bus.Subscribe(p, key, p.onPermissionChange, false)
	return err
}

func (p *Plugin) Unload(ctx context.Context) error { return nil }

func (p *Plugin) onPermissionChange(ctx context.Context, emitter ports.Emitter, event domain.Event) error {
	ev, ok := event.(*domain.PermissionChangeEvent)
	if !ok {
		return fmt.Errorf("%w: got %T", ports.ErrEventTypeMismatch, event)
	}
	if ev.Action != domain.ChangeRemove || !IsProtected(ev.Permission) {
		return nil
	}

	ev.Cancel()
	p.log.Warn().
		Str("by", emitter.Name()).
		Str("target", ev.Target.String()).
		Str("permission", ev.Permission).
		Msg("Blocked removal of protected permission")
	return nil
}

// IsProtected reports whether perm is, or lies below, a protected permission.
func IsProtected(perm string) bool {
	for _, protected := range Protected {
		if domain.PermissionCovers(protected, perm) {
			return true
		}
	}
	return false
}
