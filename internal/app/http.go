package app

import (
	"github.com/yungbote/ledger-backend/internal/data/db"
	"github.com/yungbote/ledger-backend/internal/http"
	httpH "github.com/yungbote/ledger-backend/internal/http/handlers"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/platform/ratelimit"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Account *httpH.AccountHandler
	Ledger  *httpH.LedgerHandler
}

func wireHandlers(log *logger.Logger, cfg Config, dbSvc *db.Service, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(cfg.Environment, dbSvc.Ping),
		Account: httpH.NewAccountHandler(services.Accounts),
		Ledger:  httpH.NewLedgerHandler(services.Ledger),
	}
}

// wireRateLimiter shares counters through Redis when it is configured and
// keeps them in process otherwise.
func wireRateLimiter(log *logger.Logger, cfg Config, clients Clients) ratelimit.Limiter {
	if !cfg.HTTP.RateLimitEnabled {
		log.Info("Rate limiting disabled")
		return nil
	}
	opts := ratelimit.Options{Max: cfg.HTTP.RateLimitMax, Window: cfg.RateLimitWindow()}
	local := ratelimit.NewLocalLimiter(opts)
	if clients.Redis == nil {
		log.Info("Rate limiting in process", "max", opts.Max, "window", opts.Window.String())
		return local
	}
	log.Info("Rate limiting via redis", "max", opts.Max, "window", opts.Window.String())
	return ratelimit.WithFallback(ratelimit.NewRedisLimiter(clients.Redis, opts), local, func(err error) {
		log.Warn("redis rate limit failed, using local counters", "error", err)
	})
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics, limiter ratelimit.Limiter) *http.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimiter:    limiter,
		HealthHandler:  handlers.Health,
		AccountHandler: handlers.Account,
		LedgerHandler:  handlers.Ledger,
	})
}
