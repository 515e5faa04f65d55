package ports

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/husheng0/Rocket/internal/core/domain"
)

// ErrEventTypeMismatch is returned by typed handlers that received an event of
// another Go type under their key.
var ErrEventTypeMismatch = errors.New("event type mismatch")

// Emitter is whoever emits an event. The bus only passes it to handlers.
type Emitter interface {
	Name() string
}

// Listener owns subscriptions. Its ID is used to remove them in bulk.
type Listener interface {
	ListenerID() uuid.UUID
	Name() string
}

// Handler is invoked for every matching emission.
// A returned error (or a panic) is logged and does not stop the dispatch.
type Handler func(ctx context.Context, emitter Emitter, event domain.Event) error

// EventManager is the in-process pub/sub bus
type EventManager interface {
	// Subscribe appends a binding under key and returns its ID.
	// With ignoreCancelled the handler also runs for cancelled events.
	Subscribe(owner Listener, key domain.EventKey, handler Handler, ignoreCancelled bool) (uuid.UUID, error)

	// Unsubscribe removes the binding with the given ID. It returns false if
	// nothing matched.
	Unsubscribe(owner Listener, key domain.EventKey, id uuid.UUID) bool

	// UnsubscribeAll removes every binding owned by owner and returns how many.
	UnsubscribeAll(owner Listener) int

	// Emit dispatches ev according to its execution target.
	Emit(ctx context.Context, emitter Emitter, ev domain.Event) error

	// HasFinished reports whether the emission of ev completed.
	HasFinished(ev domain.Event) bool

	// WaitFinished blocks until ev finished or ctx is done.
	WaitFinished(ctx context.Context, ev domain.Event) error
}

// SubscribeTyped subscribes a handler for the event type T.
func SubscribeTyped[T domain.Event](
	m EventManager,
	owner Listener,
	handler func(ctx context.Context, emitter Emitter, ev T) error,
	ignoreCancelled bool,
) (uuid.UUID, error) {
	return m.Subscribe(owner, domain.TypeKey[T](), func(ctx context.Context, emitter Emitter, ev domain.Event) error {
		typed, ok := ev.(T)
		if !ok {
			return fmt.Errorf("%w: want %s, got %T", ErrEventTypeMismatch, reflect.TypeFor[T](), ev)
		}
		return handler(ctx, emitter, typed)
	}, ignoreCancelled)
}
