package ports

import (
	"context"

	"github.com/rs/zerolog"
)

// PluginEnv is what the host hands to a plugin when loading it.
type PluginEnv struct {
	Bus         EventManager
	Console     ConsolePort
	Permissions PermissionProvider
	Logger      *zerolog.Logger
}

// Plugin is a component loaded into the runtime. Its subscriptions are owned
// by its Listener identity and removed by the host when it unloads.
type Plugin interface {
	Listener
	Load(ctx context.Context, env PluginEnv) error
	Unload(ctx context.Context) error
}
