package postgres

import (
	"context"
	"strings"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type permissionRepository struct {
	db  *DB
	log zerolog.Logger
}

var _ ports.PermissionRepository = (*permissionRepository)(nil) // Ensure compliance

// NewPermissionRepository creates a repository backed by the permission tables.
func NewPermissionRepository(db *DB, baseLogger *zerolog.Logger) ports.PermissionRepository {
	return &permissionRepository{
		db:  db,
		log: baseLogger.With().Str("component", "permission_repo").Logger(),
	}
}

// Load reads groups, memberships and grants into one snapshot.
func (r *permissionRepository) Load(ctx context.Context) (*domain.PermissionSet, error) {
	set := domain.NewPermissionSet()

	rows, err := r.db.pool.Query(ctx, `SELECT name, priority FROM permission_groups ORDER BY priority DESC, name`)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to query groups")
		return nil, err
	}
	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.PermissionGroup, error) {
		var g domain.PermissionGroup
		err := row.Scan(&g.Name, &g.Priority)
		return &g, err
	})
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to scan group row")
		return nil, err
	}
	for _, g := range groups {
		set.Groups[g.Name] = g
	}

	rows, err = r.db.pool.Query(ctx, `SELECT player_id, group_name FROM player_groups ORDER BY player_id, group_name`)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to query memberships")
		return nil, err
	}
	var playerID, groupName string
	_, err = pgx.ForEachRow(rows, []any{&playerID, &groupName}, func() error {
		p := player(set, playerID)
		p.Groups = append(p.Groups, groupName)
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to scan membership row")
		return nil, err
	}

	rows, err = r.db.pool.Query(ctx, `SELECT target_kind, target_id, permission FROM permission_grants ORDER BY granted_at, permission`)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to query grants")
		return nil, err
	}
	var kind, targetID, perm string
	_, err = pgx.ForEachRow(rows, []any{&kind, &targetID, &perm}, func() error {
		switch domain.TargetKind(kind) {
		case domain.TargetGroup:
			g, ok := set.Groups[targetID]
			if !ok {
				g = &domain.PermissionGroup{Name: targetID}
				set.Groups[targetID] = g
			}
			g.Permissions = append(g.Permissions, perm)
		case domain.TargetPlayer:
			p := player(set, targetID)
			p.Permissions = append(p.Permissions, perm)
		default:
			r.log.Warn().Str("target_kind", kind).Str("target_id", targetID).Msg("Skipping grant with unknown target kind")
		}
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to scan grant row")
		return nil, err
	}

	return set, nil
}

// AddPermission inserts a grant. Group grants create the group on demand.
func (r *permissionRepository) AddPermission(ctx context.Context, target domain.PermissionTarget, perm string) (bool, error) {
	id, perm := normalize(target, perm)

	var added bool
	err := pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		if target.Kind == domain.TargetGroup {
			if _, err := tx.Exec(ctx, `INSERT INTO permission_groups (name) VALUES ($1) ON CONFLICT DO NOTHING`, id); err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO permission_grants (target_kind, target_id, permission)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, string(target.Kind), id, perm)
		if err != nil {
			return err
		}
		added = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Str("target", target.String()).Str("permission", perm).Msg("Failed to add permission")
		return false, err
	}
	return added, nil
}

// RemovePermission deletes a grant.
func (r *permissionRepository) RemovePermission(ctx context.Context, target domain.PermissionTarget, perm string) (bool, error) {
	id, perm := normalize(target, perm)

	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM permission_grants
		WHERE target_kind = $1 AND target_id = $2 AND permission = $3
	`, string(target.Kind), id, perm)
	if err != nil {
		r.log.Error().Err(err).Str("target", target.String()).Str("permission", perm).Msg("Failed to remove permission")
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// AddPlayerToGroup records a membership. It returns false if it already existed.
func (r *permissionRepository) AddPlayerToGroup(ctx context.Context, playerID, group string) (bool, error) {
	group = strings.ToLower(group)

	var added bool
	err := pgx.BeginFunc(ctx, r.db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO permission_groups (name) VALUES ($1) ON CONFLICT DO NOTHING`, group); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `INSERT INTO player_groups (player_id, group_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, playerID, group)
		if err != nil {
			return err
		}
		added = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		r.log.Error().Err(err).Str("player_id", playerID).Str("group", group).Msg("Failed to add player to group")
		return false, err
	}
	return added, nil
}

func normalize(target domain.PermissionTarget, perm string) (string, string) {
	id := target.ID
	if target.Kind == domain.TargetGroup {
		id = strings.ToLower(id)
	}
	return id, strings.ToLower(strings.TrimSpace(perm))
}

func player(set *domain.PermissionSet, id string) *domain.PlayerPermissions {
	p, ok := set.Players[id]
	if !ok {
		p = &domain.PlayerPermissions{PlayerID: id}
		set.Players[id] = p
	}
	return p
}
