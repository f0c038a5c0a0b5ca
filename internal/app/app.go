package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/ledger-backend/internal/http"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *http.Server
	Metrics  *observability.Metrics

	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log.Info("Configuration loaded", "environment", cfg.Environment, "db_driver", cfg.Database.Driver)

	shutdownOtel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:      cfg.Otel.Enabled,
		ServiceName:  cfg.Otel.ServiceName,
		Environment:  cfg.Environment,
		Version:      cfg.Otel.Version,
		SampleRatio:  cfg.Otel.SampleRatio,
		OTLPEndpoint: cfg.Otel.OTLPEndpoint,
		OTLPHeaders:  observability.ParseHeaders(cfg.Otel.OTLPHeaders),
		OTLPInsecure: cfg.Otel.OTLPInsecure,
	})
	metrics := observability.Init(log, cfg.Metrics.Enabled)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(clients.DB.DB(), log)
	serviceset, err := wireServices(clients.DB.DB(), log, cfg, clients, reposet, metrics)
	if err != nil {
		clients.Close()
		_ = shutdownOtel(context.Background())
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, cfg, clients.DB, serviceset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       wireServer(log, cfg, handlerset, metrics, wireRateLimiter(log, cfg, clients)),
		Metrics:      metrics,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Start launches the background stat collectors.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.Metrics == nil {
		return
	}
	a.Metrics.StartDBCollector(ctx, a.Log, a.Clients.DB.DB(), 15*time.Second)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis, 15*time.Second)
	}
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(ctx, addr)
}

// RunMetrics serves the metrics endpoint until ctx is cancelled. It returns
// nil at once when metrics are disabled.
func (a *App) RunMetrics(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Metrics.Serve(ctx, a.Log, a.Cfg.Metrics.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
