package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/husheng0/Rocket/internal/permissions"
	"github.com/rs/zerolog"
)

func init() {
	RegisterCommand(NewPermissionHandler)
}

const permissionUsage = "Usage:\n" +
	"/p reload\n" +
	"/p add <player|group> <id> <permission>\n" +
	"/p remove <player|group> <id> <permission>\n" +
	"/p group <player> <group>"

// Permissions the caller of /p must hold.
const (
	permManagePermissions = "rocket.permissions.managepermissions"
	permManagePlayers     = "rocket.permissions.manageplayers"
	permManageGroups      = "rocket.permissions.managegroups"
)

// permissionHandler is the /p command.
type permissionHandler struct {
	log         zerolog.Logger
	permissions ports.PermissionProvider
	bot         ports.BotClientPort
}

// NewPermissionHandler creates a new handler for the /p command.
func NewPermissionHandler(deps Deps, baseLogger *zerolog.Logger) ports.CommandHandler {
	return &permissionHandler{
		log:         baseLogger.With().Str("component", "permission_handler").Logger(),
		permissions: deps.Permissions,
		bot:         deps.Bot,
	}
}

func (h *permissionHandler) Command() string     { return "p" }
func (h *permissionHandler) Description() string { return "Reload or change permissions" }

// Handle processes /p with its sub-command.
func (h *permissionHandler) Handle(ctx context.Context, update *ports.BotUpdate) error {
	if len(update.Args) == 0 {
		return h.reply(ctx, update.ChatID, permissionUsage)
	}

	switch strings.ToLower(update.Args[0]) {
	case "reload":
		if !h.allowed(update, permManagePermissions+".reload") {
			return h.deny(ctx, update, "You don't have permission to reload permissions.")
		}
		if err := h.permissions.Reload(ctx); err != nil {
			return err
		}
		return h.reply(ctx, update.ChatID, "Permissions reloaded.")

	case "add", "remove":
		return h.change(ctx, update)

	case "group":
		if len(update.Args) != 3 {
			return h.reply(ctx, update.ChatID, permissionUsage)
		}
		playerID, group := update.Args[1], update.Args[2]
		if !h.allowed(update, permManagePlayers) || !h.allowed(update, permManageGroups+"."+group) {
			return h.deny(ctx, update, "You don't have permission to manage this group.")
		}
		added, err := h.permissions.AddPlayerToGroup(ctx, playerID, group)
		if err != nil {
			return err
		}
		if !added {
			return h.reply(ctx, update.ChatID, fmt.Sprintf("Player %s is already in group %s.", playerID, group))
		}
		return h.reply(ctx, update.ChatID, fmt.Sprintf("Added player %s to group %s.", playerID, group))

	default:
		return h.reply(ctx, update.ChatID, permissionUsage)
	}
}

func (h *permissionHandler) change(ctx context.Context, update *ports.BotUpdate) error {
	if len(update.Args) != 4 {
		return h.reply(ctx, update.ChatID, permissionUsage)
	}
	kind, ok := domain.ParseTargetKind(update.Args[1])
	if !ok {
		return h.reply(ctx, update.ChatID, fmt.Sprintf("Unknown target %q, expected player or group.", update.Args[1]))
	}
	target := domain.PermissionTarget{Kind: kind, ID: update.Args[2]}
	perm := update.Args[3]
	action := strings.ToLower(update.Args[0])

	if !h.allowed(update, permManagePermissions+"."+action) {
		return h.deny(ctx, update, fmt.Sprintf("You don't have permission to %s permissions.", action))
	}
	if kind == domain.TargetGroup && !h.allowed(update, permManageGroups+"."+target.ID) {
		return h.deny(ctx, update, "You don't have permission to manage this group.")
	}
	if kind == domain.TargetPlayer && !h.allowed(update, permManagePlayers) {
		return h.deny(ctx, update, "You don't have permission to manage permissions of players.")
	}

	emitter := adminEmitter{name: update.UserName, id: update.UserID}
	var (
		changed bool
		err     error
	)
	if action == "add" {
		changed, err = h.permissions.AddPermission(ctx, emitter, target, perm)
	} else {
		changed, err = h.permissions.RemovePermission(ctx, emitter, target, perm)
	}

	h.log.Info().
		Str("by", emitter.Name()).
		Str("action", action).
		Str("target", target.String()).
		Str("permission", perm).
		Bool("changed", changed).
		AnErr("result", err).
		Msg("Permission command")

	switch {
	case errors.Is(err, permissions.ErrChangeCancelled):
		return h.reply(ctx, update.ChatID, fmt.Sprintf("Change of %s for %s was cancelled.", perm, target))
	case errors.Is(err, permissions.ErrInvalidPermission):
		return h.reply(ctx, update.ChatID, permissionUsage)
	case err != nil:
		return err
	case !changed && action == "add":
		return h.reply(ctx, update.ChatID, fmt.Sprintf("%s already has %s.", target, perm))
	case !changed:
		return h.reply(ctx, update.ChatID, fmt.Sprintf("%s does not have %s.", target, perm))
	case action == "add":
		return h.reply(ctx, update.ChatID, fmt.Sprintf("Granted %s to %s.", perm, target))
	default:
		return h.reply(ctx, update.ChatID, fmt.Sprintf("Revoked %s from %s.", perm, target))
	}
}

// allowed checks perm against the Telegram user id of the caller.
func (h *permissionHandler) allowed(update *ports.BotUpdate, perm string) bool {
	return h.permissions.HasPermission(strconv.FormatInt(update.UserID, 10), perm)
}

func (h *permissionHandler) deny(ctx context.Context, update *ports.BotUpdate, text string) error {
	h.log.Warn().
		Int64("user_id", update.UserID).
		Strs("args", update.Args).
		Msg("Permission command denied")
	return h.reply(ctx, update.ChatID, text)
}

func (h *permissionHandler) reply(ctx context.Context, chatID int64, text string) error {
	return h.bot.SendMessage(ctx, ports.SendMessageParams{ChatID: chatID, Text: text})
}

// adminEmitter names the Telegram admin behind a change.
type adminEmitter struct {
	name string
	id   int64
}

func (e adminEmitter) Name() string {
	if e.name != "" {
		return "telegram:@" + e.name
	}
	return fmt.Sprintf("telegram:%d", e.id)
}
