package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

var (
	// ErrChangeCancelled is returned when a listener cancelled the change event.
	ErrChangeCancelled = errors.New("permission change cancelled by a listener")
	// ErrInvalidPermission is returned for empty or blank permission names.
	ErrInvalidPermission = errors.New("invalid permission")
)

// Provider serves permission checks from an in-memory snapshot and routes
// changes through the event bus before persisting them.
type Provider struct {
	repo     ports.PermissionRepository
	bus      ports.EventManager
	snapshot atomic.Pointer[domain.PermissionSet]
	log      zerolog.Logger
}

var _ ports.PermissionProvider = (*Provider)(nil)

// NewProvider creates a provider with an empty snapshot. Call Reload to fill it.
func NewProvider(repo ports.PermissionRepository, bus ports.EventManager, baseLogger *zerolog.Logger) *Provider {
	p := &Provider{
		repo: repo,
		bus:  bus,
		log:  baseLogger.With().Str("component", "permissions").Logger(),
	}
	p.snapshot.Store(domain.NewPermissionSet())
	return p
}

// Name identifies the provider as an event emitter.
func (p *Provider) Name() string { return "permissions" }

// Reload replaces the snapshot with the repository contents and announces it
// asynchronously.
func (p *Provider) Reload(ctx context.Context) error {
	set, err := p.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("could not load permissions: %w", err)
	}
	p.snapshot.Store(set)

	p.log.Info().Int("groups", len(set.Groups)).Int("players", len(set.Players)).Msg("Permissions reloaded")
	if err := p.bus.Emit(ctx, p, domain.NewPermissionsReloadedEvent(set)); err != nil {
		p.log.Warn().Err(err).Msg("Could not emit reload event")
	}
	return nil
}

// HasPermission checks the current snapshot.
func (p *Provider) HasPermission(playerID, perm string) bool {
	return p.snapshot.Load().Has(playerID, perm)
}

// Snapshot returns the current permission set. Callers must not modify it.
func (p *Provider) Snapshot() *domain.PermissionSet {
	return p.snapshot.Load()
}

// AddPermission grants perm to target unless a listener cancels the change.
func (p *Provider) AddPermission(ctx context.Context, emitter ports.Emitter, target domain.PermissionTarget, perm string) (bool, error) {
	return p.change(ctx, emitter, domain.ChangeAdd, target, perm)
}

// RemovePermission revokes perm from target unless a listener cancels the change.
func (p *Provider) RemovePermission(ctx context.Context, emitter ports.Emitter, target domain.PermissionTarget, perm string) (bool, error) {
	return p.change(ctx, emitter, domain.ChangeRemove, target, perm)
}

// AddPlayerToGroup makes playerID a member of group and refreshes the snapshot.
func (p *Provider) AddPlayerToGroup(ctx context.Context, playerID, group string) (bool, error) {
	group = strings.TrimSpace(group)
	if playerID == "" || group == "" {
		return false, ErrInvalidPermission
	}
	added, err := p.repo.AddPlayerToGroup(ctx, playerID, group)
	if err != nil {
		return false, fmt.Errorf("could not add %s to group %q: %w", playerID, group, err)
	}
	if !added {
		return false, nil
	}
	return true, p.refresh(ctx)
}

func (p *Provider) refresh(ctx context.Context) error {
	set, err := p.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("snapshot refresh failed: %w", err)
	}
	p.snapshot.Store(set)
	return nil
}

func (p *Provider) change(ctx context.Context, emitter ports.Emitter, action domain.ChangeAction, target domain.PermissionTarget, perm string) (bool, error) {
	perm = strings.TrimSpace(perm)
	if perm == "" {
		return false, ErrInvalidPermission
	}
	if emitter == nil {
		emitter = p
	}

	ev := domain.NewPermissionChangeEvent(action, target, perm)
	if err := p.bus.Emit(ctx, emitter, ev); err != nil {
		return false, fmt.Errorf("could not emit permission change: %w", err)
	}
	if ev.IsCancelled() {
		p.log.Info().
			Str("action", string(action)).
			Str("target", target.String()).
			Str("permission", perm).
			Str("by", emitter.Name()).
			Msg("Permission change cancelled")
		return false, ErrChangeCancelled
	}

	var (
		changed bool
		err     error
	)
	switch action {
	case domain.ChangeAdd:
		changed, err = p.repo.AddPermission(ctx, target, perm)
	default:
		changed, err = p.repo.RemovePermission(ctx, target, perm)
	}
	if err != nil {
		return false, fmt.Errorf("could not %s permission %q for %s: %w", action, perm, target, err)
	}
	if !changed {
		return false, nil
	}

	return true, p.refresh(ctx)
}
