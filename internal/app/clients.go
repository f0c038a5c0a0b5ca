package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/ledger-backend/internal/data/db"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type Clients struct {
	DB    *db.Service
	Redis *redis.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	dbSvc, err := db.Open(db.Config{
		Driver:           cfg.Database.Driver,
		PostgresHost:     cfg.Database.Host,
		PostgresPort:     cfg.Database.Port,
		PostgresUser:     cfg.Database.User,
		PostgresPassword: cfg.Database.Password,
		PostgresName:     cfg.Database.Name,
		PostgresSSLMode:  cfg.Database.SSLMode,
		SQLitePath:       cfg.Database.SQLitePath,
		StatementTimeout: cfg.StatementTimeout(),
	}, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(dbSvc.DB()); err != nil {
		_ = dbSvc.Close()
		return Clients{}, fmt.Errorf("automigrate: %w", err)
	}

	// Redis is optional; without it account locks are process-local.
	var rdb *redis.Client
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			_ = dbSvc.Close()
			return Clients{}, fmt.Errorf("redis ping: %w", err)
		}
	}

	return Clients{DB: dbSvc, Redis: rdb}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
