package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
)

// PermissionRepository keeps permissions in process memory. It is used when
// no database is configured.
type PermissionRepository struct {
	mu  sync.RWMutex
	set *domain.PermissionSet
}

var _ ports.PermissionRepository = (*PermissionRepository)(nil)

// NewPermissionRepository creates a store seeded with a copy of seed. A nil
// seed yields a store holding only an empty default group.
func NewPermissionRepository(seed *domain.PermissionSet) *PermissionRepository {
	set := clone(seed)
	if _, ok := set.Groups[domain.DefaultGroup]; !ok {
		set.Groups[domain.DefaultGroup] = &domain.PermissionGroup{Name: domain.DefaultGroup}
	}
	return &PermissionRepository{set: set}
}

func (r *PermissionRepository) Load(ctx context.Context) (*domain.PermissionSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.set), nil
}

func (r *PermissionRepository) AddPermission(ctx context.Context, target domain.PermissionTarget, perm string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grants := r.grants(target, true)
	if containsFold(*grants, perm) {
		return false, nil
	}
	*grants = append(*grants, perm)
	return true, nil
}

func (r *PermissionRepository) RemovePermission(ctx context.Context, target domain.PermissionTarget, perm string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	grants := r.grants(target, false)
	if grants == nil {
		return false, nil
	}
	i := slices.IndexFunc(*grants, func(p string) bool { return strings.EqualFold(p, perm) })
	if i < 0 {
		return false, nil
	}
	*grants = slices.Delete(*grants, i, i+1)
	return true, nil
}

func (r *PermissionRepository) AddPlayerToGroup(ctx context.Context, playerID, group string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	group = strings.ToLower(group)
	if _, ok := r.set.Groups[group]; !ok {
		r.set.Groups[group] = &domain.PermissionGroup{Name: group}
	}
	p, ok := r.set.Players[playerID]
	if !ok {
		p = &domain.PlayerPermissions{PlayerID: playerID}
		r.set.Players[playerID] = p
	}
	if containsFold(p.Groups, group) {
		return false, nil
	}
	p.Groups = append(p.Groups, group)
	return true, nil
}

// grants returns the grant slice of target, creating the entry if create is set.
func (r *PermissionRepository) grants(target domain.PermissionTarget, create bool) *[]string {
	switch target.Kind {
	case domain.TargetGroup:
		name := strings.ToLower(target.ID)
		g, ok := r.set.Groups[name]
		if !ok {
			if !create {
				return nil
			}
			g = &domain.PermissionGroup{Name: name}
			r.set.Groups[name] = g
		}
		return &g.Permissions
	default:
		p, ok := r.set.Players[target.ID]
		if !ok {
			if !create {
				return nil
			}
			p = &domain.PlayerPermissions{PlayerID: target.ID}
			r.set.Players[target.ID] = p
		}
		return &p.Permissions
	}
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(p string) bool { return strings.EqualFold(p, s) })
}

func clone(src *domain.PermissionSet) *domain.PermissionSet {
	dst := domain.NewPermissionSet()
	if src == nil {
		return dst
	}
	for name, g := range src.Groups {
		dst.Groups[strings.ToLower(name)] = &domain.PermissionGroup{
			Name:        g.Name,
			Priority:    g.Priority,
			Permissions: slices.Clone(g.Permissions),
		}
	}
	for id, p := range src.Players {
		dst.Players[id] = &domain.PlayerPermissions{
			PlayerID:    p.PlayerID,
			Groups:      slices.Clone(p.Groups),
			Permissions: slices.Clone(p.Permissions),
		}
	}
	return dst
}
