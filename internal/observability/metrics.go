package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	ledgerOps      *CounterVec
	ledgerLatency  *HistogramVec
	ledgerAmount   *CounterVec
	lockWait       *HistogramVec
	lockFailures   *CounterVec
	aggregateOps   *CounterVec
	aggregateTime  *HistogramVec
	aggregateCAS   *CounterVec
	aggregateRetry *CounterVec

	dbPool    *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge

	collectors []collector
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics registry. It returns nil when
// metrics are disabled; every method is safe on a nil receiver.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func New() *Metrics {
	latency := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	m := &Metrics{
		apiRequests: NewCounterVec("ledger_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("ledger_api_request_duration_seconds", "API request latency in seconds by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("ledger_api_inflight_requests", "In-flight API requests."),

		ledgerOps:     NewCounterVec("ledger_operations_total", "Ledger operations by operation/outcome.", []string{"operation", "outcome"}),
		ledgerLatency: NewHistogramVec("ledger_operation_duration_seconds", "Ledger operation latency in seconds.", []string{"operation", "outcome"}, latency),
		ledgerAmount:  NewCounterVec("ledger_amount_moved_total", "Sum of committed amounts by operation.", []string{"operation"}),
		lockWait:      NewHistogramVec("ledger_account_lock_wait_seconds", "Time spent acquiring account locks.", []string{"backend"}, latency),
		lockFailures:  NewCounterVec("ledger_account_lock_failures_total", "Failed account lock acquisitions.", []string{"backend"}),

		aggregateOps:   NewCounterVec("ledger_aggregate_operations_total", "Aggregate writes by operation/status.", []string{"operation", "status"}),
		aggregateTime:  NewHistogramVec("ledger_aggregate_operation_duration_seconds", "Aggregate write latency in seconds.", []string{"operation", "status"}, latency),
		aggregateCAS:   NewCounterVec("ledger_aggregate_conflicts_total", "Optimistic version conflicts by operation.", []string{"operation"}),
		aggregateRetry: NewCounterVec("ledger_aggregate_retries_total", "Aggregate write retries by operation.", []string{"operation"}),

		dbPool:    NewGaugeVec("ledger_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp:   NewGauge("ledger_redis_up", "Whether the lock redis answered the last ping."),
		redisPing: NewGauge("ledger_redis_ping_seconds", "Latency of the last redis ping."),
	}
	m.collectors = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.ledgerOps, m.ledgerLatency, m.ledgerAmount, m.lockWait, m.lockFailures,
		m.aggregateOps, m.aggregateTime, m.aggregateCAS, m.aggregateRetry,
		m.dbPool, m.redisUp, m.redisPing,
	}
	return m
}

// Serve exposes /metrics on addr until ctx is cancelled. A nil registry or
// an empty addr returns immediately.
func (m *Metrics) Serve(ctx context.Context, log *logger.Logger, addr string) error {
	if m == nil {
		return nil
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	if log != nil {
		log.Info("Metrics listening", "addr", addr)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics shutdown: %w", err)
		}
		return nil
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) ApiInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveLedgerOperation records one service-level ledger call. amount is
// only added to the moved total on success.
func (m *Metrics) ObserveLedgerOperation(operation, outcome string, amount float64, dur time.Duration) {
	if m == nil {
		return
	}
	m.ledgerOps.Inc(operation, outcome)
	m.ledgerLatency.Observe(dur.Seconds(), operation, outcome)
	if outcome == "success" && amount > 0 {
		m.ledgerAmount.Add(amount, operation)
	}
}

func (m *Metrics) ObserveLockWait(backend string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	m.lockWait.Observe(dur.Seconds(), backend)
	if err != nil {
		m.lockFailures.Inc(backend)
	}
}

func (m *Metrics) ObserveAggregateOperation(operation, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.Inc(operation, status)
	m.aggregateTime.Observe(dur.Seconds(), operation, status)
}

func (m *Metrics) IncAggregateConflict(operation string) {
	if m != nil {
		m.aggregateCAS.Inc(operation)
	}
}

func (m *Metrics) IncAggregateRetry(operation string) {
	if m != nil {
		m.aggregateRetry.Inc(operation)
	}
}

// CollectDBStats samples the pool once.
func (m *Metrics) CollectDBStats(db *gorm.DB) error {
	if m == nil || db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	stats := sqlDB.Stats()
	m.dbPool.Set(float64(stats.OpenConnections), "open_connections")
	m.dbPool.Set(float64(stats.InUse), "in_use")
	m.dbPool.Set(float64(stats.Idle), "idle")
	m.dbPool.Set(float64(stats.WaitCount), "wait_count")
	m.dbPool.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	m.dbPool.Set(float64(stats.MaxOpenConnections), "max_open_connections")
	return nil
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	go m.every(ctx, interval, func() {
		if err := m.CollectDBStats(db); err != nil && log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
	})
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	go m.every(ctx, interval, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

func (m *Metrics) every(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// LedgerOperations returns the recorded count for operation/outcome.
func (m *Metrics) LedgerOperations(operation, outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.ledgerOps.Value(operation, outcome)
}
