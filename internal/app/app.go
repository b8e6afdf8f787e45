package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/identity-backend/internal/data/db"
	apphttp "github.com/yungbote/identity-backend/internal/http"
	"github.com/yungbote/identity-backend/internal/observability"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

const serviceName = "identity-backend"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

// New opens the store, migrates it and wires every layer. The HTTP server is
// built but not started.
func New(ctx context.Context, log *logger.Logger, cfg Config, version string) (*App, error) {
	a := &App{Log: log, Cfg: cfg}

	shutdown, err := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Version:     version,
		Exporter:    cfg.Otel.Exporter,
		SampleRatio: cfg.Otel.SampleRatio,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     cfg.Otel.Headers,
		Insecure:    cfg.Otel.Insecure,
	})
	if err != nil {
		return nil, err
	}
	a.otelShutdown = shutdown

	theDB, err := db.Open(log, cfg.DB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.DB = theDB
	if err := db.AutoMigrateAll(theDB); err != nil {
		a.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	a.Metrics = observability.New()
	if err := a.Metrics.RegisterDBStats(theDB, cfg.DB.Driver); err != nil {
		log.Warn("db stats collector not registered", "error", err)
	}

	clients, err := wireClients(ctx, log, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Clients = clients

	a.Repos = wireRepos(theDB, log)
	a.Services = wireServices(theDB, log, cfg, a.Repos, a.Clients, a.Metrics)
	a.Server = wireServer(log, cfg, wireHandlers(log, theDB, a.Services), a.Metrics)
	return a, nil
}

// Run serves HTTP until ctx is cancelled or a listener fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartServer(gctx, a.Log, a.Cfg.Metrics.Addr)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis, a.Cfg.Metrics.RedisInterval)
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Server.Addr())
		return a.Server.Run(gctx)
	})
	err := g.Wait()
	a.Log.Info("HTTP server stopped")
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		if err := db.Close(a.DB); err != nil {
			a.Log.Warn("store close failed", "error", err)
		}
		a.DB = nil
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
