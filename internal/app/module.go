package app

import (
	"context"

	"github.com/csh-platform/hubchat/internal/archive"
	"github.com/csh-platform/hubchat/internal/bus"
	"github.com/csh-platform/hubchat/internal/config"
	"github.com/csh-platform/hubchat/internal/convo"
	"github.com/csh-platform/hubchat/internal/lock"
	"github.com/csh-platform/hubchat/internal/logging"
	"github.com/csh-platform/hubchat/internal/platform"
	"github.com/csh-platform/hubchat/internal/session"
	"github.com/csh-platform/hubchat/internal/status"
	intsync "github.com/csh-platform/hubchat/internal/sync"
	"github.com/csh-platform/hubchat/internal/transport"
	"github.com/csh-platform/hubchat/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	GatewayURL  string // optional override; empty = use config
	APIBaseURL  string // optional override; empty = use config
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("hubchat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideConfig,
			provideLock,
			provideIdentity,
			provideArchive,
			provideMessageStore,
			provideDirectory,
			provideActiveTracker,
			provideEventHandler,
			provideGateway,
			provideEngine,
			providePlatformClient,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		// Missing config is fine; fall back to defaults.
		cfg = &config.Config{
			GatewayURL: config.DefaultGatewayURL,
			APIBaseURL: config.DefaultAPIBaseURL,
		}
	}
	if p.GatewayURL != "" {
		cfg.GatewayURL = p.GatewayURL
	}
	if p.APIBaseURL != "" {
		cfg.APIBaseURL = p.APIBaseURL
	}
	return cfg, nil
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideIdentity(p Params) (*session.Identity, error) {
	return session.LoadIdentity(session.CredentialsPath(p.SessionName))
}

func provideArchive(p Params, logger *zap.Logger) (*archive.DB, error) {
	dbPath := session.ArchiveDBPath(p.SessionName)
	db, err := archive.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("archive initialized", zap.String("path", dbPath))
	return db, nil
}

func provideMessageStore() *convo.MessageStore {
	return convo.NewMessageStore()
}

func provideDirectory(id *session.Identity) *convo.Directory {
	return convo.NewDirectory(id.UserID)
}

func provideActiveTracker() *convo.ActiveTracker {
	return convo.NewActiveTracker()
}

func provideEventHandler(b *bus.Bus, logger *zap.Logger) *transport.EventHandler {
	return transport.NewEventHandler(b, logger)
}

func provideGateway(cfg *config.Config, id *session.Identity, machine *status.Machine, handler *transport.EventHandler, b *bus.Bus, logger *zap.Logger) *transport.Gateway {
	return transport.NewGateway(cfg.GatewayURL, id.UserID, machine, handler, b, logger)
}

func provideEngine(id *session.Identity, store *convo.MessageStore, dir *convo.Directory, active *convo.ActiveTracker, gw *transport.Gateway, db *archive.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(id, store, dir, active, gw, db, b, logger)
}

func providePlatformClient(cfg *config.Config, id *session.Identity) *platform.Client {
	return platform.NewClient(cfg.APIBaseURL, id.Token)
}

func provideTUI(engine *intsync.Engine, db *archive.DB, b *bus.Bus, id *session.Identity, p Params) *tui.App {
	return tui.NewApp(engine, db, b, id, p.SessionName)
}

func registerLifecycle(lc fx.Lifecycle, engine *intsync.Engine, gw *transport.Gateway, client *platform.Client, db *archive.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Engine first so the net.connected from the gateway's initial
			// dial is not missed.
			engine.Start(context.Background())
			gw.Start(context.Background())

			// Seed the directory from the platform API in the background;
			// the UI starts empty and fills in when this lands.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), platform.FetchTimeout)
				defer cancel()
				peers, err := client.FetchPeers(ctx)
				if err != nil {
					logger.Warn("peer fetch failed", zap.Error(err))
					return
				}
				engine.SeedPeers(peers)
				logger.Info("directory seeded", zap.Int("peers", len(peers)))
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			gw.Stop()
			engine.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing archive", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
