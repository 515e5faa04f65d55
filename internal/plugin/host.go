package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

type Plugin = ports.Plugin

var (
	ErrPluginLoaded   = errors.New("plugin already loaded")
	ErrPluginNotFound = errors.New("plugin not found")
)

// Host loads plugins and guarantees their subscriptions are removed when
// they unload.
type Host struct {
	env    ports.PluginEnv
	id     uuid.UUID
	mu     sync.Mutex
	loaded []Plugin
	log    zerolog.Logger
}

// NewHost creates a host handing env to every plugin it loads.
func NewHost(env ports.PluginEnv, baseLogger *zerolog.Logger) *Host {
	return &Host{
		env: env,
		id:  uuid.New(),
		log: baseLogger.With().Str("component", "plugin_host").Logger(),
	}
}

func (h *Host) Name() string          { return "plugin_host" }
func (h *Host) ListenerID() uuid.UUID { return h.id }

// Load loads p. If Load fails, whatever p subscribed so far is removed.
func (h *Host) Load(ctx context.Context, p Plugin) error {
	name := p.Name()

	h.mu.Lock()
	if h.indexOf(name) >= 0 {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginLoaded, name)
	}
	h.mu.Unlock()

	env := h.env
	log := h.log.With().Str("plugin", name).Logger()
	if h.env.Logger != nil {
		log = h.env.Logger.With().Str("plugin", name).Logger()
	}
	env.Logger = &log

	if err := p.Load(ctx, env); err != nil {
		h.env.Bus.UnsubscribeAll(p)
		h.log.Error().Err(err).Str("plugin", name).Msg("Plugin failed to load")
		return fmt.Errorf("load plugin %s: %w", name, err)
	}

	h.mu.Lock()
	if h.indexOf(name) >= 0 {
		h.mu.Unlock()
		h.env.Bus.UnsubscribeAll(p)
		return fmt.Errorf("%w: %s", ErrPluginLoaded, name)
	}
	h.loaded = append(h.loaded, p)
	h.mu.Unlock()

	h.log.Info().Str("plugin", name).Msg("Plugin loaded")
	h.emit(ctx, domain.NewPluginLoadedEvent(name))
	return nil
}

// Unload unloads the named plugin. Its subscriptions are removed even when
// its Unload returns an error.
func (h *Host) Unload(ctx context.Context, name string) error {
	name = strings.ToLower(name)

	h.mu.Lock()
	i := h.indexOf(name)
	if i < 0 {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	p := h.loaded[i]
	h.loaded = slices.Delete(h.loaded, i, i+1)
	h.mu.Unlock()

	err := p.Unload(ctx)
	removed := h.env.Bus.UnsubscribeAll(p)

	h.log.Info().Str("plugin", name).Int("bindings_removed", removed).Msg("Plugin unloaded")
	h.emit(ctx, domain.NewPluginUnloadedEvent(name))
	if err != nil {
		return fmt.Errorf("unload plugin %s: %w", name, err)
	}
	return nil
}

// LoadRegistered loads every registered plugin not listed in disabled. A
// failing plugin does not stop the others.
func (h *Host) LoadRegistered(ctx context.Context, disabled []string) error {
	var result *multierror.Error
	for _, name := range Registered() {
		if slices.Contains(disabled, name) {
			h.log.Info().Str("plugin", name).Msg("Plugin disabled by configuration")
			continue
		}
		constructor, _ := lookup(name)
		if err := h.Load(ctx, constructor()); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// UnloadAll unloads plugins in reverse load order.
func (h *Host) UnloadAll(ctx context.Context) error {
	names := h.Plugins()
	var result *multierror.Error
	for i := len(names) - 1; i >= 0; i-- {
		if err := h.Unload(ctx, names[i]); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Plugins returns the loaded plugin names in load order.
func (h *Host) Plugins() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, len(h.loaded))
	for i, p := range h.loaded {
		names[i] = p.Name()
	}
	return names
}

func (h *Host) indexOf(name string) int {
	return slices.IndexFunc(h.loaded, func(p Plugin) bool { return strings.EqualFold(p.Name(), name) })
}

func (h *Host) emit(ctx context.Context, ev domain.Event) {
	if err := h.env.Bus.Emit(ctx, h, ev); err != nil {
		h.log.Warn().Err(err).Str("event", domain.KeyOf(ev)).Msg("Could not emit plugin event")
	}
}
