package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/openlegis/openlegis-backend/internal/clients/redis"
	"github.com/openlegis/openlegis-backend/internal/data/db"
	apphttp "github.com/openlegis/openlegis-backend/internal/http"
	"github.com/openlegis/openlegis-backend/internal/pkg/logger"
	"github.com/openlegis/openlegis-backend/internal/services"
	"github.com/openlegis/openlegis-backend/internal/temporalx"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Clients  Clients
	Repos    Repos
	Services Services
	Handlers Handlers
	Server   *apphttp.Server
	Temporal temporalsdkclient.Client
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if cfg.AutoMigrate {
		if err := pg.AutoMigrateAll(); err != nil {
			log.Sync()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	theDB := pg.DB()

	clients, err := wireClients(cfg, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("wire clients: %w", err)
	}

	rp := wireRepos(theDB, log)

	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init temporal client: %w", err)
	}
	var launcher services.Launcher
	if tc != nil {
		l, err := temporalx.NewLauncher(tc, log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init launcher: %w", err)
		}
		launcher = l
	}

	svcs := wireServices(theDB, cfg, clients, rp, launcher, log)
	hs := wireHandlers(rp, svcs, log)

	srv := apphttp.NewServer(apphttp.RouterConfig{
		Log:           log,
		HealthHandler: hs.Health,
		IngestHandler: hs.Ingest,
		BillHandler:   hs.Bill,
	})

	return &App{
		Log:      log,
		Cfg:      cfg,
		DB:       theDB,
		Clients:  clients,
		Repos:    rp,
		Services: svcs,
		Handlers: hs,
		Server:   srv,
		Temporal: tc,
	}, nil
}

// Run serves the API until ctx is canceled, then drains in-flight requests.
// Schedule registration and the run event forwarder are best effort; the
// API stays up without them.
func (a *App) Run(ctx context.Context) error {
	if a.Temporal != nil && a.Cfg.SchedulesConfigPath != "" {
		specs, err := temporalx.LoadSchedules(a.Cfg.SchedulesConfigPath)
		if err != nil {
			return fmt.Errorf("load schedules: %w", err)
		}
		if err := temporalx.EnsureSchedules(ctx, a.Temporal, specs, a.Log); err != nil {
			a.Log.Warn("schedule registration failed", "error", err)
		}
	}

	if a.Clients.RunBus != nil {
		go func() {
			err := a.Clients.RunBus.StartForwarder(ctx, func(ev redis.RunEvent) {
				a.Log.Info("ingest run finished",
					"run_id", ev.RunID,
					"source_kind", ev.SourceKind,
					"status", ev.Status,
					"applied", ev.Applied,
					"failed", ev.Failed)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.Log.Warn("run event forwarder stopped", "error", err)
			}
		}()
	}

	httpSrv := &nethttp.Server{
		Addr:    ":" + a.Cfg.Port,
		Handler: a.Server.Engine,
	}
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server listening", "port", a.Cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		a.Log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func (a *App) Close() {
	if a.Temporal != nil {
		a.Temporal.Close()
	}
	if a.Clients.RunBus != nil {
		if err := a.Clients.RunBus.Close(); err != nil {
			a.Log.Warn("run bus close failed", "error", err)
		}
	}
	a.Log.Sync()
}
