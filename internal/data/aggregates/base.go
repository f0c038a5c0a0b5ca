package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

// DefaultMaxAttempts bounds how often a write is re-run after a conflict.
const DefaultMaxAttempts = 3

type BaseDeps struct {
	DB          *gorm.DB
	Log         *logger.Logger
	Runner      TxRunner
	Hooks       Hooks
	CASGuard    CASGuard
	MaxAttempts int
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = DefaultMaxAttempts
	}
	return d
}

// executeWrite runs fn in a transaction, re-running the whole transaction on
// conflicts and transient lock errors until MaxAttempts is reached.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}

	var err error
	for attempt := 1; attempt <= deps.MaxAttempts; attempt++ {
		err = deps.Runner.InTx(ctx, fn)
		if err == nil || !IsRetryable(err) {
			break
		}
		if isConflict(err) {
			deps.Hooks.IncConflict(op)
		}
		if attempt == deps.MaxAttempts || ctx.Err() != nil {
			break
		}
		deps.Hooks.IncRetry(op)
		if deps.Log != nil {
			deps.Log.Debug("retrying aggregate write", "op", op, "attempt", attempt, "error", err)
		}
	}
	mapped := MapError(op, err)
	deps.Hooks.ObserveOperation(op, aggregateErrorStatus(mapped), time.Since(start))
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(ledger.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(ledger.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
