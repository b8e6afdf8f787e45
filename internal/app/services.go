package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/identity-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/observability"
	"github.com/yungbote/identity-backend/internal/platform/logger"
	"github.com/yungbote/identity-backend/internal/services"
)

type Services struct {
	Identity services.IdentityService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	base := aggregates.BaseDeps{
		DB:  db,
		Log: log,
		Runner: aggregates.NewGormTxRunnerWithOptions(db, aggregates.TxOptions{
			Isolation:   domainagg.IdentityAggregateContract.Isolation,
			LockTimeout: cfg.LockTimeout,
		}),
		Hooks: aggregates.NewObservabilityHooks(metrics),
	}
	identity := aggregates.NewIdentityAggregate(aggregates.IdentityAggregateDeps{
		Base:     base,
		Contacts: reposet.Contact,
		Events:   reposet.LinkEvent,
		Policy:   cfg.SecondaryFields,
	})
	integrity := aggregates.NewIntegrityChecker(base, reposet.Contact, 0)

	return Services{
		Identity: services.NewIdentityService(
			log,
			identity,
			reposet.LinkEvent,
			integrity,
			clients.Locker,
			metrics,
			services.RetryPolicy{MaxAttempts: cfg.MaxAttempts, Backoff: cfg.RetryBackoff},
		),
	}
}
