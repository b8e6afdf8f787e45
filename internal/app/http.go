package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/yungbote/identity-backend/internal/http"
	httpH "github.com/yungbote/identity-backend/internal/http/handlers"
	"github.com/yungbote/identity-backend/internal/observability"
	"github.com/yungbote/identity-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Identity *httpH.IdentityHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(storePinger(db)),
		Identity: httpH.NewIdentityHandler(services.Identity),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.ServerConfig{
		Addr:              cfg.HTTP.Addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.HTTP.ShutdownTimeout,
	}, apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		HealthHandler:   handlers.Health,
		IdentityHandler: handlers.Identity,
	})
}

func storePinger(db *gorm.DB) httpH.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
