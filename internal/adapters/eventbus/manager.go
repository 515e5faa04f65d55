package eventbus

import (
	"context"

	"github.com/google/uuid"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

// Manager is the event bus façade: a Registry plus a Dispatcher.
type Manager struct {
	registry   *Registry
	dispatcher *Dispatcher
	log        zerolog.Logger
}

var _ ports.EventManager = (*Manager)(nil) // Ensure compliance

// NewManager creates a started event bus.
func NewManager(baseLogger *zerolog.Logger, opts ...Option) *Manager {
	registry := NewRegistry()
	dispatcher := NewDispatcher(registry, baseLogger, opts...)
	// A fresh dispatcher cannot already be running.
	_ = dispatcher.Start()

	return &Manager{
		registry:   registry,
		dispatcher: dispatcher,
		log:        baseLogger.With().Str("component", "event_manager").Logger(),
	}
}

// Subscribe appends a handler for key, owned by owner.
func (m *Manager) Subscribe(owner ports.Listener, key domain.EventKey, handler ports.Handler, ignoreCancelled bool) (uuid.UUID, error) {
	if owner == nil {
		return uuid.Nil, ErrNilOwner
	}
	if handler == nil {
		return uuid.Nil, ErrNilHandler
	}

	b := &Binding{
		ID:              uuid.New(),
		Owner:           owner,
		Key:             key,
		Handler:         handler,
		IgnoreCancelled: ignoreCancelled,
	}
	m.registry.Add(b)

	m.log.Debug().
		Str("owner", owner.Name()).
		Str("key", key.String()).
		Str("binding_id", b.ID.String()).
		Bool("ignore_cancelled", ignoreCancelled).
		Msg("New handler subscribed")
	return b.ID, nil
}

// Unsubscribe removes one binding. Emissions already in flight keep it.
func (m *Manager) Unsubscribe(owner ports.Listener, key domain.EventKey, id uuid.UUID) bool {
	if owner == nil {
		return false
	}
	return m.registry.Remove(owner.ListenerID(), key.Name, id)
}

// UnsubscribeAll removes every binding of owner. Calling it again is harmless.
func (m *Manager) UnsubscribeAll(owner ports.Listener) int {
	if owner == nil {
		return 0
	}
	n := m.registry.RemoveOwner(owner.ListenerID())
	if n > 0 {
		m.log.Info().Str("owner", owner.Name()).Int("removed", n).Msg("Removed all handlers of owner")
	}
	return n
}

// Emit dispatches ev. Emitting to a key without bindings is not an error.
func (m *Manager) Emit(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
	return m.dispatcher.Dispatch(ctx, emitter, ev)
}

// HasFinished reports whether ev's emission completed. It is false for events
// that were never emitted.
func (m *Manager) HasFinished(ev domain.Event) bool {
	if isNilEvent(ev) {
		return false
	}
	return ev.Base().HasFinished()
}

// WaitFinished blocks until ev's emission completed or ctx is done.
func (m *Manager) WaitFinished(ctx context.Context, ev domain.Event) error {
	if isNilEvent(ev) {
		return ErrNilEvent
	}
	select {
	case <-ev.Base().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Registry exposes the underlying registry, mostly for inspection.
func (m *Manager) Registry() *Registry { return m.registry }

// Stats returns the dispatcher counters.
func (m *Manager) Stats() Stats { return m.dispatcher.Stats() }

// Stop stops accepting emissions and drains the async queue.
func (m *Manager) Stop(ctx context.Context) error {
	return m.dispatcher.Stop(ctx)
}
