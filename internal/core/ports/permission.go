package ports

import (
	"context"

	"github.com/husheng0/Rocket/internal/core/domain"
)

// PermissionRepository defines the persistence operations for permissions.
type PermissionRepository interface {
	// Load reads the whole store into a snapshot.
	Load(ctx context.Context) (*domain.PermissionSet, error)

	// AddPermission grants perm. It returns false if it was already granted.
	AddPermission(ctx context.Context, target domain.PermissionTarget, perm string) (bool, error)

	// RemovePermission revokes perm. It returns false if it was not granted.
	RemovePermission(ctx context.Context, target domain.PermissionTarget, perm string) (bool, error)

	// AddPlayerToGroup records a membership, creating the group if needed.
	AddPlayerToGroup(ctx context.Context, playerID, group string) (bool, error)
}

// PermissionProvider answers permission checks and applies changes.
type PermissionProvider interface {
	Reload(ctx context.Context) error
	HasPermission(playerID, perm string) bool
	AddPermission(ctx context.Context, emitter Emitter, target domain.PermissionTarget, perm string) (bool, error)
	RemovePermission(ctx context.Context, emitter Emitter, target domain.PermissionTarget, perm string) (bool, error)
	AddPlayerToGroup(ctx context.Context, playerID, group string) (bool, error)
}
