package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emitAndWait emits and waits for completion with a bounded timeout.
func emitAndWait(t *testing.T, m *Manager, ev domain.Event) {
	t.Helper()
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.WaitFinished(ctx, ev))
}

func TestManager_SyncEventingWithType(t *testing.T) {
	m := newManager(t)
	_, err := ports.SubscribeTyped(m, newTestListener("plugin"), func(ctx context.Context, emitter ports.Emitter, ev *TestEvent) error {
		ev.ValueChanged = true
		return nil
	}, false)
	require.NoError(t, err)

	ev := newTestEvent(domain.ExecutionSync)
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))

	assert.True(t, ev.ValueChanged, "the subscription callback did not get called")
	assert.True(t, m.HasFinished(ev))
}

func TestManager_SyncEventingWithName(t *testing.T) {
	m := newManager(t)
	_, err := m.Subscribe(newTestListener("plugin"), domain.NameKey("test"), func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		ev.(*TestEvent).ValueChanged = true
		return nil
	}, false)
	require.NoError(t, err)

	ev := newTestEvent(domain.ExecutionSync)
	require.False(t, ev.IsCancelled())
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))

	assert.True(t, ev.ValueChanged)
	assert.True(t, m.HasFinished(ev))
}

func TestManager_CancelledBeforeEmit_WithoutIgnore(t *testing.T) {
	m := newManager(t)
	_, err := ports.SubscribeTyped(m, newTestListener("plugin"), func(ctx context.Context, emitter ports.Emitter, ev *TestEvent) error {
		ev.ValueChanged = true
		return nil
	}, false)
	require.NoError(t, err)

	ev := newTestEvent(domain.ExecutionSync)
	ev.Cancel()
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))

	assert.False(t, ev.ValueChanged, "the callback was called on a cancelled event")
	assert.True(t, m.HasFinished(ev))
}

func TestManager_CancelledBeforeEmit_WithIgnore(t *testing.T) {
	m := newManager(t)
	_, err := ports.SubscribeTyped(m, newTestListener("plugin"), func(ctx context.Context, emitter ports.Emitter, ev *TestEvent) error {
		ev.ValueChanged = true
		return nil
	}, true)
	require.NoError(t, err)

	ev := newTestEvent(domain.ExecutionSync)
	ev.Cancel()
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))

	assert.True(t, ev.ValueChanged, "the callback ignores cancellation but was not called")
}

func TestManager_CancellationSkipsOnlyNonIgnoring(t *testing.T) {
	m := newManager(t)
	owner := newTestListener("plugin")
	var calls []string

	_, err := m.Subscribe(owner, domain.NameKey("test"), func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		calls = append(calls, "h1")
		ev.Cancel()
		return nil
	}, false)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("test"), recorder(&calls, "h2"), true)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("test"), recorder(&calls, "h3"), false)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("test"), recorder(&calls, "h4"), true)
	require.NoError(t, err)

	ev := newTestEvent(domain.ExecutionSync)
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))

	assert.Equal(t, []string{"h1", "h2", "h4"}, calls)
	assert.True(t, ev.IsCancelled())
	assert.Equal(t, uint64(1), m.Stats().Skipped)
}

func TestManager_AsyncEmitReturnsBeforeFinished(t *testing.T) {
	m := newManager(t)
	release := make(chan struct{})
	var ran bool

	_, err := m.Subscribe(newTestListener("plugin"), domain.NameKey("test"), func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		<-release
		ran = true
		return nil
	}, false)
	require.NoError(t, err)

	ev := newTestEvent(domain.ExecutionAsync)
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))
	assert.False(t, m.HasFinished(ev))

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.WaitFinished(ctx, ev))
	assert.True(t, m.HasFinished(ev))
	assert.True(t, ran)
}

func TestManager_NilEvents(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	for _, ev := range []domain.Event{nil, &TestEvent{}, (*TestEvent)(nil)} {
		assert.ErrorIs(t, m.Emit(ctx, testEmitter{}, ev), ErrNilEvent)
		assert.False(t, m.HasFinished(ev))
		assert.ErrorIs(t, m.WaitFinished(ctx, ev), ErrNilEvent)
	}
}

func TestManager_AsyncRunsInSnapshotOrder(t *testing.T) {
	m := newManager(t, WithWorkers(4))
	owner := newTestListener("plugin")
	var calls []string
	for _, label := range []string{"a", "b", "c", "d"} {
		_, err := m.Subscribe(owner, domain.NameKey("test"), recorder(&calls, label), false)
		require.NoError(t, err)
	}

	emitAndWait(t, m, newTestEvent(domain.ExecutionAsync))

	assert.Equal(t, []string{"a", "b", "c", "d"}, calls)
}

func TestManager_WaitFinished_Timeout(t *testing.T) {
	m := newManager(t)
	ev := newTestEvent(domain.ExecutionAsync)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.WaitFinished(ctx, ev)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, m.HasFinished(ev), "a never emitted event is never finished")
}

func TestManager_UnsubscribeMidDispatch(t *testing.T) {
	m := newManager(t)
	owner := newTestListener("plugin")
	var calls []string
	var victim uuid.UUID

	_, err := m.Subscribe(owner, domain.NameKey("test"), func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		calls = append(calls, "remover")
		m.Unsubscribe(owner, domain.NameKey("test"), victim)
		return nil
	}, false)
	require.NoError(t, err)
	victim, err = m.Subscribe(owner, domain.NameKey("test"), recorder(&calls, "victim"), false)
	require.NoError(t, err)

	emitAndWait(t, m, newTestEvent(domain.ExecutionSync))
	assert.Equal(t, []string{"remover", "victim"}, calls)

	calls = nil
	emitAndWait(t, m, newTestEvent(domain.ExecutionSync))
	assert.Equal(t, []string{"remover"}, calls)
}

func TestManager_Unsubscribe_UnknownIsNoop(t *testing.T) {
	m := newManager(t)
	owner := newTestListener("plugin")

	assert.False(t, m.Unsubscribe(owner, domain.NameKey("test"), uuid.New()))
	assert.False(t, m.Unsubscribe(nil, domain.NameKey("test"), uuid.New()))
}

func TestManager_UnsubscribeAll(t *testing.T) {
	m := newManager(t)
	owner := newTestListener("plugin")
	survivor := newTestListener("survivor")
	var calls []string

	_, err := m.Subscribe(owner, domain.NameKey("test"), recorder(&calls, "owner-test"), false)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("other"), recorder(&calls, "owner-other"), true)
	require.NoError(t, err)
	_, err = m.Subscribe(survivor, domain.NameKey("test"), recorder(&calls, "survivor"), false)
	require.NoError(t, err)

	assert.Equal(t, 2, m.UnsubscribeAll(owner))
	assert.Equal(t, 0, m.UnsubscribeAll(owner))

	emitAndWait(t, m, newTestEvent(domain.ExecutionSync))
	emitAndWait(t, m, &OtherEvent{EventBase: domain.NewEventBase(domain.ExecutionSync)})
	assert.Equal(t, []string{"survivor"}, calls)
}

func TestManager_DuplicateSubscriptionsFireIndependently(t *testing.T) {
	m := newManager(t)
	owner := newTestListener("plugin")
	var calls []string
	handler := recorder(&calls, "dup")

	id1, err := m.Subscribe(owner, domain.NameKey("test"), handler, false)
	require.NoError(t, err)
	id2, err := m.Subscribe(owner, domain.NameKey("test"), handler, false)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	emitAndWait(t, m, newTestEvent(domain.ExecutionSync))
	assert.Equal(t, []string{"dup", "dup"}, calls)
}

func TestManager_FaultingHandlerIsIsolated(t *testing.T) {
	var mu sync.Mutex
	var faults []*HandlerFault
	m := newManager(t, WithFaultReporter(func(f *HandlerFault) {
		mu.Lock()
		defer mu.Unlock()
		faults = append(faults, f)
	}))
	owner := newTestListener("plugin")
	var calls []string
	boom := errors.New("boom")

	_, err := m.Subscribe(owner, domain.NameKey("test"), func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		return boom
	}, false)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("test"), func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		panic("kaboom")
	}, false)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("test"), recorder(&calls, "after"), false)
	require.NoError(t, err)

	for _, target := range []domain.ExecutionTarget{domain.ExecutionSync, domain.ExecutionAsync} {
		calls = nil
		ev := newTestEvent(target)
		emitAndWait(t, m, ev)
		assert.Equal(t, []string{"after"}, calls, target.String())
		assert.True(t, m.HasFinished(ev), target.String())
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, faults, 4)
	assert.ErrorIs(t, faults[0], boom)
	assert.Equal(t, "test", faults[0].Key)
	assert.Equal(t, owner.id, faults[0].OwnerID)
	assert.True(t, faults[1].Panicked)
	assert.NotEmpty(t, faults[1].Stack)
	assert.Equal(t, uint64(4), m.Stats().Faulted)
}

func TestManager_TypeAndNameKeysMeet(t *testing.T) {
	m := newManager(t)
	owner := newTestListener("plugin")
	var calls []string

	_, err := ports.SubscribeTyped(m, owner, func(ctx context.Context, emitter ports.Emitter, ev *TestEvent) error {
		calls = append(calls, "typed")
		return nil
	}, false)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("Test"), recorder(&calls, "named"), false)
	require.NoError(t, err)

	// Routed by type.
	emitAndWait(t, m, newTestEvent(domain.ExecutionSync))
	assert.Equal(t, []string{"named", "typed"}, calls)

	// Routed by name: an explicitly named TestEvent reaches both as well.
	calls = nil
	named := &TestEvent{EventBase: domain.NewNamedEventBase("TEST", domain.ExecutionSync)}
	emitAndWait(t, m, named)
	assert.Equal(t, []string{"named", "typed"}, calls)
}

func TestManager_TypedHandlerRejectsForeignType(t *testing.T) {
	var faults []*HandlerFault
	m := newManager(t, WithFaultReporter(func(f *HandlerFault) { faults = append(faults, f) }))
	var typedCalled bool

	_, err := ports.SubscribeTyped(m, newTestListener("plugin"), func(ctx context.Context, emitter ports.Emitter, ev *TestEvent) error {
		typedCalled = true
		return nil
	}, false)
	require.NoError(t, err)

	ev := domain.NewNamedEvent("test", domain.ExecutionSync, map[string]any{"k": "v"})
	emitAndWait(t, m, ev)

	assert.False(t, typedCalled)
	require.Len(t, faults, 1)
	assert.ErrorIs(t, faults[0], ports.ErrEventTypeMismatch)
}

func TestManager_EmitWithoutBindingsFinishes(t *testing.T) {
	m := newManager(t)

	syncEv := newTestEvent(domain.ExecutionSync)
	require.NoError(t, m.Emit(context.Background(), testEmitter{}, syncEv))
	assert.True(t, m.HasFinished(syncEv))

	emitAndWait(t, m, newTestEvent(domain.ExecutionAsync))
}

func TestManager_EmitTwiceIsRejected(t *testing.T) {
	m := newManager(t)
	ev := newTestEvent(domain.ExecutionSync)

	require.NoError(t, m.Emit(context.Background(), testEmitter{}, ev))
	assert.ErrorIs(t, m.Emit(context.Background(), testEmitter{}, ev), ErrEventReused)
	assert.True(t, m.HasFinished(ev))
}

func TestManager_RecursiveSyncEmit(t *testing.T) {
	m := newManager(t)
	owner := newTestListener("plugin")
	inner := &OtherEvent{EventBase: domain.NewEventBase(domain.ExecutionSync)}
	var calls []string

	_, err := m.Subscribe(owner, domain.NameKey("test"), func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error {
		calls = append(calls, "outer")
		return m.Emit(ctx, emitter, inner)
	}, false)
	require.NoError(t, err)
	_, err = m.Subscribe(owner, domain.NameKey("other"), recorder(&calls, "inner"), false)
	require.NoError(t, err)

	emitAndWait(t, m, newTestEvent(domain.ExecutionSync))

	assert.Equal(t, []string{"outer", "inner"}, calls)
	assert.True(t, m.HasFinished(inner))
}

func TestManager_SubscribeValidation(t *testing.T) {
	m := newManager(t)

	_, err := m.Subscribe(nil, domain.NameKey("test"), recorder(new([]string), "x"), false)
	assert.ErrorIs(t, err, ErrNilOwner)

	_, err = m.Subscribe(newTestListener("plugin"), domain.NameKey("test"), nil, false)
	assert.ErrorIs(t, err, ErrNilHandler)
}

func TestManager_EmitAfterStop(t *testing.T) {
	m := newManager(t)
	require.NoError(t, m.Stop(context.Background()))

	assert.ErrorIs(t, m.Emit(context.Background(), testEmitter{}, newTestEvent(domain.ExecutionSync)), ErrNotRunning)
	assert.ErrorIs(t, m.Emit(context.Background(), testEmitter{}, newTestEvent(domain.ExecutionAsync)), ErrNotRunning)
	assert.ErrorIs(t, m.Stop(context.Background()), ErrNotRunning)
}
