package domain

import (
	"sync/atomic"
)

// ExecutionTarget decides how an event is dispatched.
// It is fixed when the event is constructed.
type ExecutionTarget int

const (
	// ExecutionSync runs every handler in the emitting goroutine.
	ExecutionSync ExecutionTarget = iota
	// ExecutionAsync hands the handlers to the bus worker pool.
	ExecutionAsync
)

func (t ExecutionTarget) String() string {
	switch t {
	case ExecutionSync:
		return "sync"
	case ExecutionAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Event is anything that can be emitted on the event bus.
// Concrete events embed *EventBase, which provides every method.
type Event interface {
	// Name returns an explicit event name, or "" to use the type's name.
	Name() string
	ExecutionTarget() ExecutionTarget
	IsCancelled() bool
	// Cancel marks the event as cancelled. There is no way back.
	Cancel()
	Base() *EventBase
}

// EventBase carries the cancellation and completion state shared by all events.
type EventBase struct {
	name      string
	target    ExecutionTarget
	cancelled atomic.Bool
	emitted   atomic.Bool
	finished  atomic.Bool
	done      chan struct{}
}

// NewEventBase creates the state for an event dispatched with the given target.
func NewEventBase(target ExecutionTarget) *EventBase {
	return &EventBase{
		target: target,
		done:   make(chan struct{}),
	}
}

// NewNamedEventBase is like NewEventBase but pins the event name, so the
// event is routed by name instead of by its Go type.
func NewNamedEventBase(name string, target ExecutionTarget) *EventBase {
	b := NewEventBase(target)
	b.name = name
	return b
}

func (b *EventBase) Name() string                     { return b.name }
func (b *EventBase) ExecutionTarget() ExecutionTarget { return b.target }
func (b *EventBase) IsCancelled() bool                { return b.cancelled.Load() }
func (b *EventBase) Cancel()                          { b.cancelled.Store(true) }
func (b *EventBase) Base() *EventBase                 { return b }

// HasFinished reports whether every handler of the emission has returned.
func (b *EventBase) HasFinished() bool { return b.finished.Load() }

// Done is closed when the emission finishes.
func (b *EventBase) Done() <-chan struct{} { return b.done }

// MarkEmitted claims the event for an emission. It returns false if the
// event was already emitted once.
func (b *EventBase) MarkEmitted() bool {
	return b.emitted.CompareAndSwap(false, true)
}

// MarkFinished is called by the dispatcher once the emission completed.
// Only the first call has an effect.
func (b *EventBase) MarkFinished() {
	if b.finished.CompareAndSwap(false, true) {
		close(b.done)
	}
}

// NamedEvent is an event addressed purely by name, with a free-form payload.
type NamedEvent struct {
	*EventBase
	Payload map[string]any
}

// NewNamedEvent creates an event routed by name.
func NewNamedEvent(name string, target ExecutionTarget, payload map[string]any) *NamedEvent {
	return &NamedEvent{
		EventBase: NewNamedEventBase(name, target),
		Payload:   payload,
	}
}
