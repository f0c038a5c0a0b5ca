package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/ledger-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ledger-backend/internal/http/middleware"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/platform/ratelimit"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string
	// RateLimiter caps /api requests per client IP; nil disables it.
	RateLimiter ratelimit.Limiter

	AccountHandler *httpH.AccountHandler
	LedgerHandler  *httpH.LedgerHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.SecurityHeaders())
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api", httpMW.RateLimit(cfg.RateLimiter, cfg.Log))
	{
		// Accounts
		if cfg.AccountHandler != nil {
			api.GET("/accounts", cfg.AccountHandler.List)
			api.POST("/accounts", cfg.AccountHandler.Create)
			api.GET("/accounts/:id", cfg.AccountHandler.Get)
			api.PUT("/accounts/:id", cfg.AccountHandler.Update)
			api.DELETE("/accounts/:id", cfg.AccountHandler.Delete)
		}

		// Ledger operations
		if cfg.LedgerHandler != nil {
			api.POST("/accounts/:id/deposit", cfg.LedgerHandler.Deposit)
			api.POST("/accounts/:id/withdraw", cfg.LedgerHandler.Withdraw)
			api.GET("/accounts/:id/balance", cfg.LedgerHandler.Balance)
			api.POST("/accounts/:id/transfer/:destination_id", cfg.LedgerHandler.Transfer)
		}
	}

	return r
}
