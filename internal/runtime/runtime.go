package runtime

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/husheng0/Rocket/internal/adapters/console"
	"github.com/husheng0/Rocket/internal/adapters/eventbus"
	"github.com/husheng0/Rocket/internal/adapters/memory"
	"github.com/husheng0/Rocket/internal/adapters/postgres"
	"github.com/husheng0/Rocket/internal/adapters/telegram"
	"github.com/husheng0/Rocket/internal/commands"
	"github.com/husheng0/Rocket/internal/core/domain"
	"github.com/husheng0/Rocket/internal/core/ports"
	"github.com/husheng0/Rocket/internal/permissions"
	"github.com/husheng0/Rocket/internal/plugin"
	"github.com/husheng0/Rocket/internal/shared/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds plugin unloading and draining the event bus.
const ShutdownTimeout = 10 * time.Second

// OwnerPermission is granted to the configured Telegram owner at startup.
const OwnerPermission = "rocket.permissions"

// Runtime owns every long-lived component of the server.
type Runtime struct {
	cfg         *config.Config
	baseLogger  *zerolog.Logger
	log         zerolog.Logger
	bus         *eventbus.Manager
	db          *postgres.DB
	permissions *permissions.Provider
	console     ports.ConsolePort
	host        *plugin.Host
	bot         *telegram.Bot
}

// New builds the runtime and loads the registered plugins.
func New(ctx context.Context, cfg *config.Config, baseLogger *zerolog.Logger) (*Runtime, error) {
	r := &Runtime{
		cfg:        cfg,
		baseLogger: baseLogger,
		log:        baseLogger.With().Str("component", "runtime").Logger(),
	}

	// 1. Event bus
	r.bus = eventbus.NewManager(baseLogger,
		eventbus.WithWorkers(cfg.Bus.Workers),
		eventbus.WithQueueSize(cfg.Bus.QueueSize),
		eventbus.WithFaultReporter(r.reportFault),
	)

	// 2. Permission store
	var repo ports.PermissionRepository
	if cfg.Postgres.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Postgres.URL, baseLogger)
		if err != nil {
			return nil, r.abort(fmt.Errorf("could not connect to database: %w", err))
		}
		r.db = db
		if err := db.Migrate(ctx); err != nil {
			return nil, r.abort(err)
		}
		repo = postgres.NewPermissionRepository(db, baseLogger)
	} else {
		r.log.Warn().Msg("DATABASE_URL not set, permissions are kept in memory")
		repo = memory.NewPermissionRepository(nil)
	}

	if cfg.Telegram.OwnerID != 0 {
		owner := domain.PermissionTarget{Kind: domain.TargetPlayer, ID: strconv.FormatInt(cfg.Telegram.OwnerID, 10)}
		if _, err := repo.AddPermission(ctx, owner, OwnerPermission); err != nil {
			return nil, r.abort(fmt.Errorf("could not grant owner permissions: %w", err))
		}
	}

	// 3. Permissions
	r.permissions = permissions.NewProvider(repo, r.bus, baseLogger)
	if err := r.permissions.Reload(ctx); err != nil {
		return nil, r.abort(err)
	}

	// 4. Console, optionally mirrored to Telegram
	sinks := console.Multi{console.NewLogConsole(baseLogger)}
	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(cfg.Telegram, cfg.IsDev(), baseLogger)
		if err != nil {
			return nil, r.abort(fmt.Errorf("could not connect to telegram: %w", err))
		}
		r.bot = bot
		sinks = append(sinks, bot.Console())
	}
	r.console = sinks

	// 5. Plugins
	r.host = plugin.NewHost(ports.PluginEnv{
		Bus:         r.bus,
		Console:     r.console,
		Permissions: r.permissions,
		Logger:      baseLogger,
	}, baseLogger)
	if err := r.host.LoadRegistered(ctx, cfg.Plugins.Disabled); err != nil {
		r.log.Error().Err(err).Msg("Some plugins failed to load")
	}

	// 6. Remote commands
	if r.bot != nil {
		commands.RegisterAllHandlers(r.bot.Router(), commands.Deps{
			Permissions: r.permissions,
			Plugins:     r.host,
			Bot:         r.bot.Client(),
		}, baseLogger)
	}

	r.log.Info().Strs("plugins", r.host.Plugins()).Msg("Runtime initialized")
	return r, nil
}

// Run blocks until ctx is cancelled or a server fails, then shuts down.
func (r *Runtime) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if r.bot != nil {
		g.Go(func() error { return r.bot.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	r.log.Info().Msg("Runtime started")
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if runErr != nil {
		result = multierror.Append(result, runErr)
	}
	if err := r.shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// shutdown unloads plugins, drains the bus and closes the database.
func (r *Runtime) shutdown(ctx context.Context) error {
	r.log.Info().Msg("Shutting down")

	var result *multierror.Error
	if r.host != nil {
		if err := r.host.UnloadAll(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := r.bus.Stop(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("event bus: %w", err))
	}
	if r.db != nil {
		r.db.Close()
	}

	stats := r.bus.Stats()
	r.log.Info().
		Uint64("emitted", stats.Emitted).
		Uint64("invoked", stats.Invoked).
		Uint64("faulted", stats.Faulted).
		Msg("Shutdown complete")
	return result.ErrorOrNil()
}

// abort releases what New built so far.
func (r *Runtime) abort(err error) error {
	if r.db != nil {
		r.db.Close()
	}
	_ = r.bus.Stop(context.Background())
	return err
}

// reportFault mirrors handler faults to the console.
func (r *Runtime) reportFault(fault *eventbus.HandlerFault) {
	if r.console == nil {
		return
	}
	text := fmt.Sprintf("Handler of %s failed on %s: %v", fault.OwnerName, fault.Key, fault.Err)
	if err := r.console.SendMessage(context.Background(), text, domain.ColorRed); err != nil {
		r.log.Warn().Err(err).Str("owner", fault.OwnerName).Msg("Could not report handler fault to console")
	}
}

func (r *Runtime) Bus() *eventbus.Manager             { return r.bus }
func (r *Runtime) Host() *plugin.Host                 { return r.host }
func (r *Runtime) Permissions() *permissions.Provider { return r.permissions }
func (r *Runtime) Console() ports.ConsolePort         { return r.console }
