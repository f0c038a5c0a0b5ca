package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/data/aggregates"
	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/services"
)

type Services struct {
	Locker   ledger.Locker
	Accounts services.AccountService
	Ledger   services.LedgerService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, repos Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	ceiling, err := cfg.MaxOperationAmount()
	if err != nil {
		return Services{}, err
	}

	var locker ledger.Locker
	if clients.Redis != nil {
		locker = services.NewRedisAccountLocker(clients.Redis, log, metrics, services.RedisLockOptions{
			Expiry: cfg.LockExpiry(),
		})
		log.Info("Account locks backed by redis", "addr", cfg.Redis.Addr)
	} else {
		locker = services.NewLocalAccountLocker(metrics)
	}

	agg := aggregates.NewLedgerAggregate(aggregates.LedgerAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:          db,
			Log:         log,
			Hooks:       aggregates.NewObservabilityHooks(metrics),
			MaxAttempts: cfg.Ledger.CASRetries,
		},
		Accounts: repos.Accounts,
	})

	return Services{
		Locker:   locker,
		Accounts: services.NewAccountService(log, repos.Accounts, locker),
		Ledger: services.NewLedgerService(log, repos.Accounts, agg, locker, metrics, services.LedgerConfig{
			MaxOperationAmount: ceiling,
		}),
	}, nil
}
