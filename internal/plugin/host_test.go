package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/husheng0/Rocket/internal/adapters/eventbus"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPlugin subscribes to two keys on load.
type testPlugin struct {
	Identity
	loadErr   error
	unloadErr error
	unloads   *[]string
}

func (p *testPlugin) Load(ctx context.Context, env ports.PluginEnv) error {
	noop := func(ctx context.Context, emitter ports.Emitter, ev domain.Event) error { return nil }
	if _, err := env.Bus.Subscribe(p, domain.NameKey("chat"), noop, false); err != nil {
		return err
	}
	if _, err := env.Bus.Subscribe(p, domain.TypeKey[*domain.PermissionChangeEvent](), noop, true); err != nil {
		return err
	}
	return p.loadErr
}

func (p *testPlugin) Unload(ctx context.Context) error {
	if p.unloads != nil {
		*p.unloads = append(*p.unloads, p.Name())
	}
	return p.unloadErr
}

func newTestPlugin(name string) *testPlugin {
	return &testPlugin{Identity: NewIdentity(name)}
}

func setup(t *testing.T) (*Host, *eventbus.Manager) {
	t.Helper()
	nopLogger := zerolog.Nop()
	bus := eventbus.NewManager(&nopLogger)
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	host := NewHost(ports.PluginEnv{Bus: bus, Logger: &nopLogger}, &nopLogger)
	return host, bus
}

// registerOnce keeps repeated test runs from hitting the duplicate panic.
func registerOnce(name string, c Constructor) {
	if _, ok := lookup(name); !ok {
		Register(name, c)
	}
}

func TestHost_LoadEmitsEvent(t *testing.T) {
	host, bus := setup(t)
	ctx := context.Background()

	var loaded []string
	observer := NewIdentity("observer")
	_, err := ports.SubscribeTyped(bus, observer, func(ctx context.Context, emitter ports.Emitter, ev *domain.PluginLoadedEvent) error {
		assert.Equal(t, "plugin_host", emitter.Name())
		loaded = append(loaded, ev.Plugin)
		return nil
	}, false)
	require.NoError(t, err)

	require.NoError(t, host.Load(ctx, newTestPlugin("Alpha")))

	assert.Equal(t, []string{"alpha"}, loaded)
	assert.Equal(t, []string{"alpha"}, host.Plugins())
	assert.Equal(t, 3, bus.Registry().Count())
}

func TestHost_LoadDuplicate(t *testing.T) {
	host, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, host.Load(ctx, newTestPlugin("alpha")))
	assert.ErrorIs(t, host.Load(ctx, newTestPlugin("alpha")), ErrPluginLoaded)
}

func TestHost_FailedLoadRemovesSubscriptions(t *testing.T) {
	host, bus := setup(t)

	p := newTestPlugin("broken")
	p.loadErr = errors.New("missing config")

	err := host.Load(context.Background(), p)
	assert.ErrorContains(t, err, "missing config")
	assert.Zero(t, bus.Registry().Count())
	assert.Empty(t, host.Plugins())
}

func TestHost_UnloadRemovesSubscriptions(t *testing.T) {
	host, bus := setup(t)
	ctx := context.Background()

	var unloaded []string
	observer := NewIdentity("observer")
	_, err := ports.SubscribeTyped(bus, observer, func(ctx context.Context, emitter ports.Emitter, ev *domain.PluginUnloadedEvent) error {
		unloaded = append(unloaded, ev.Plugin)
		return nil
	}, false)
	require.NoError(t, err)

	p := newTestPlugin("alpha")
	p.unloadErr = errors.New("flush failed")
	require.NoError(t, host.Load(ctx, p))
	require.Equal(t, 3, bus.Registry().Count())

	err = host.Unload(ctx, "ALPHA")
	assert.ErrorContains(t, err, "flush failed")
	assert.Equal(t, 1, bus.Registry().Count(), "only the observer binding remains")
	assert.Equal(t, []string{"alpha"}, unloaded)
	assert.Empty(t, host.Plugins())

	assert.ErrorIs(t, host.Unload(ctx, "alpha"), ErrPluginNotFound)
}

func TestHost_UnloadAllReverseOrder(t *testing.T) {
	host, bus := setup(t)
	ctx := context.Background()

	var unloads []string
	for _, name := range []string{"a", "b", "c"} {
		p := newTestPlugin(name)
		p.unloads = &unloads
		if name == "b" {
			p.unloadErr = errors.New("b failed")
		}
		require.NoError(t, host.Load(ctx, p))
	}

	err := host.UnloadAll(ctx)
	assert.ErrorContains(t, err, "b failed")
	assert.Equal(t, []string{"c", "b", "a"}, unloads)
	assert.Zero(t, bus.Registry().Count())
	assert.Empty(t, host.Plugins())
}

func TestHost_LoadRegistered(t *testing.T) {
	host, _ := setup(t)

	registerOnce("host_test_enabled", func() Plugin { return newTestPlugin("host_test_enabled") })
	registerOnce("host_test_disabled", func() Plugin { return newTestPlugin("host_test_disabled") })
	registerOnce("host_test_failing", func() Plugin {
		p := newTestPlugin("host_test_failing")
		p.loadErr = errors.New("nope")
		return p
	})

	err := host.LoadRegistered(context.Background(), []string{"host_test_disabled"})
	assert.ErrorContains(t, err, "nope")
	assert.Contains(t, host.Plugins(), "host_test_enabled")
	assert.NotContains(t, host.Plugins(), "host_test_disabled")
	assert.NotContains(t, host.Plugins(), "host_test_failing")
	assert.Contains(t, Registered(), "host_test_disabled")
}

func TestRegister_DuplicatePanics(t *testing.T) {
	registerOnce("host_test_dup", func() Plugin { return newTestPlugin("host_test_dup") })
	assert.Panics(t, func() {
		Register("HOST_TEST_DUP", func() Plugin { return newTestPlugin("host_test_dup") })
	})
}

func TestNewIdentity(t *testing.T) {
	a, b := NewIdentity("Audit"), NewIdentity("audit")

	assert.Equal(t, "audit", a.Name())
	assert.NotEqual(t, a.ListenerID(), b.ListenerID())
}
