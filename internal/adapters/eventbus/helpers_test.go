package eventbus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
)

// testListener is a plain owner identity.
type testListener struct {
	id   uuid.UUID
	name string
}

func newTestListener(name string) *testListener {
	return &testListener{id: uuid.New(), name: name}
}

func (l *testListener) ListenerID() uuid.UUID { return l.id }
func (l *testListener) Name() string          { return l.name }

type testEmitter struct{}

func (testEmitter) Name() string { return "test_emitter" }

// TestEvent routes under the name "test".
type TestEvent struct {
	*domain.EventBase
	ValueChanged bool
}

func newTestEvent(target domain.ExecutionTarget) *TestEvent {
	return &TestEvent{EventBase: domain.NewEventBase(target)}
}

// OtherEvent routes under the name "other".
type OtherEvent struct {
	*domain.EventBase
}

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	nopLogger := zerolog.Nop()
	m := NewManager(&nopLogger, opts...)
	t.Cleanup(func() { _ = m.Stop(context.Background()) })
	return m
}

// recorder returns a handler appending label to calls.
func recorder(calls *[]string, label string) ports.Handler {
	return func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		*calls = append(*calls, label)
		return nil
	}
}
