package domain

import (
	"strings"
)

// TargetKind tells whether a permission is granted to a player or a group.
type TargetKind string

const (
	TargetPlayer TargetKind = "player"
	TargetGroup  TargetKind = "group"
)

// DefaultGroup is implicitly applied to every player.
const DefaultGroup = "default"

// PermissionTarget identifies who a permission change applies to.
type PermissionTarget struct {
	Kind TargetKind
	ID   string
}

func (t PermissionTarget) String() string { return string(t.Kind) + ":" + t.ID }

// ParseTargetKind accepts "player", "group" and their one-letter forms.
func ParseTargetKind(s string) (TargetKind, bool) {
	switch strings.ToLower(s) {
	case "p", "player":
		return TargetPlayer, true
	case "g", "group":
		return TargetGroup, true
	default:
		return "", false
	}
}

// PermissionGroup is a named set of permissions.
type PermissionGroup struct {
	Name        string
	Priority    int
	Permissions []string
}

// PlayerPermissions holds the direct grants and memberships of one player.
type PlayerPermissions struct {
	PlayerID    string
	Groups      []string
	Permissions []string
}

// PermissionSet is an immutable snapshot of the whole permission store.
type PermissionSet struct {
	Groups  map[string]*PermissionGroup
	Players map[string]*PlayerPermissions
}

// NewPermissionSet returns an empty set.
func NewPermissionSet() *PermissionSet {
	return &PermissionSet{
		Groups:  make(map[string]*PermissionGroup),
		Players: make(map[string]*PlayerPermissions),
	}
}

// Has reports whether the player holds perm, directly, through a group, or
// through the default group.
func (s *PermissionSet) Has(playerID, perm string) bool {
	if s == nil {
		return false
	}
	var grants []string
	groups := []string{DefaultGroup}
	if p, ok := s.Players[playerID]; ok {
		grants = append(grants, p.Permissions...)
		groups = append(groups, p.Groups...)
	}
	for _, name := range groups {
		if g, ok := s.Groups[strings.ToLower(name)]; ok {
			grants = append(grants, g.Permissions...)
		}
	}
	for _, grant := range grants {
		if PermissionCovers(grant, perm) {
			return true
		}
	}
	return false
}

// PermissionCovers reports whether a granted permission covers the requested
// one. "*" covers everything and "a.b" covers "a.b" and "a.b.c".
func PermissionCovers(granted, requested string) bool {
	granted = strings.ToLower(granted)
	requested = strings.ToLower(requested)
	if granted == "*" || granted == requested {
		return true
	}
	return strings.HasPrefix(requested, granted+".")
}
