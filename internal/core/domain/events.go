package domain

// ChangeAction is the kind of permission change being made.
type ChangeAction string

const (
	ChangeAdd    ChangeAction = "add"
	ChangeRemove ChangeAction = "remove"
)

// PermissionChangeEvent is emitted synchronously before a permission is added
// or removed. Cancelling it prevents the change.
type PermissionChangeEvent struct {
	*EventBase
	Action     ChangeAction
	Target     PermissionTarget
	Permission string
}

func NewPermissionChangeEvent(action ChangeAction, target PermissionTarget, perm string) *PermissionChangeEvent {
	return &PermissionChangeEvent{
		EventBase:  NewEventBase(ExecutionSync),
		Action:     action,
		Target:     target,
		Permission: perm,
	}
}

// PermissionsReloadedEvent is emitted asynchronously after the permission
// store was reloaded.
type PermissionsReloadedEvent struct {
	*EventBase
	Groups  int
	Players int
}

func NewPermissionsReloadedEvent(set *PermissionSet) *PermissionsReloadedEvent {
	return &PermissionsReloadedEvent{
		EventBase: NewEventBase(ExecutionAsync),
		Groups:    len(set.Groups),
		Players:   len(set.Players),
	}
}

// PluginLoadedEvent is emitted after a plugin finished loading.
type PluginLoadedEvent struct {
	*EventBase
	Plugin string
}

func NewPluginLoadedEvent(plugin string) *PluginLoadedEvent {
	return &PluginLoadedEvent{EventBase: NewEventBase(ExecutionSync), Plugin: plugin}
}

// PluginUnloadedEvent is emitted after a plugin was unloaded and its
// subscriptions removed.
type PluginUnloadedEvent struct {
	*EventBase
	Plugin string
}

func NewPluginUnloadedEvent(plugin string) *PluginUnloadedEvent {
	return &PluginUnloadedEvent{EventBase: NewEventBase(ExecutionSync), Plugin: plugin}
}
