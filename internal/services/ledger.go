package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/ledger-backend/internal/data/aggregates"
	"github.com/yungbote/ledger-backend/internal/data/repos/accounts"
	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

// DefaultMaxOperationAmount is the per-operation ceiling when none is configured.
var DefaultMaxOperationAmount = decimal.NewFromInt(1_000_000)

type LedgerService interface {
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*ledger.Account, error)
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*ledger.Account, error)
	Transfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal) (*ledger.TransferResult, error)
	GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error)
}

type LedgerConfig struct {
	MaxOperationAmount decimal.Decimal
}

type ledgerService struct {
	log      *logger.Logger
	accounts accounts.AccountRepo
	agg      ledger.Aggregate
	locker   ledger.Locker
	metrics  *observability.Metrics
	ceiling  decimal.Decimal
}

func NewLedgerService(
	log *logger.Logger,
	accountRepo accounts.AccountRepo,
	agg ledger.Aggregate,
	locker ledger.Locker,
	metrics *observability.Metrics,
	cfg LedgerConfig,
) LedgerService {
	ceiling := cfg.MaxOperationAmount
	if !ceiling.IsPositive() {
		ceiling = DefaultMaxOperationAmount
	}
	if locker == nil {
		locker = NewLocalAccountLocker(metrics)
	}
	return &ledgerService{
		log:      log.With("service", "LedgerService"),
		accounts: accountRepo,
		agg:      agg,
		locker:   locker,
		metrics:  metrics,
		ceiling:  ceiling,
	}
}

func (s *ledgerService) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*ledger.Account, error) {
	return s.mutate(ctx, "deposit", accountID, amount, func(a *ledger.Account) error {
		_, err := a.Deposit(amount)
		return err
	})
}

func (s *ledgerService) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*ledger.Account, error) {
	return s.mutate(ctx, "withdraw", accountID, amount, func(a *ledger.Account) error {
		_, err := a.Withdraw(amount)
		return err
	})
}

func (s *ledgerService) mutate(ctx context.Context, op string, accountID int64, amount decimal.Decimal, fn func(*ledger.Account) error) (acc *ledger.Account, err error) {
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "LedgerService."+op, trace.WithAttributes(
		attribute.Int64("ledger.account_id", accountID),
	))
	defer func() { s.finish(ctx, span, op, amount, start, err) }()

	if err = s.validateAmount(op, amount); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("ledger.amount", amount.StringFixed(ledger.AmountScale)))
	err = s.locker.WithAccounts(ctx, []int64{accountID}, func(ctx context.Context) error {
		out, mErr := s.agg.MutateBalance(ctx, accountID, fn)
		acc = out
		return mErr
	})
	if err != nil {
		return nil, s.translate("ledger."+op, err)
	}
	s.log.Info(op+" committed",
		"account_id", accountID,
		"amount", amount.StringFixed(ledger.AmountScale),
		"balance", acc.Balance.StringFixed(ledger.AmountScale),
		"request_id", ctxutil.RequestID(ctx),
	)
	return acc, nil
}

func (s *ledgerService) Transfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal) (res *ledger.TransferResult, err error) {
	const op = "transfer"
	start := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "LedgerService.transfer", trace.WithAttributes(
		attribute.Int64("ledger.source_id", sourceID),
		attribute.Int64("ledger.destination_id", destinationID),
	))
	defer func() { s.finish(ctx, span, op, amount, start, err) }()

	if sourceID == destinationID {
		return nil, ledger.NewError(ledger.CodeInvalidOperation, "ledger.transfer", "source and destination must differ", nil)
	}
	if err = s.validateAmount(op, amount); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("ledger.amount", amount.StringFixed(ledger.AmountScale)))
	err = s.locker.WithAccounts(ctx, []int64{sourceID, destinationID}, func(ctx context.Context) error {
		out, tErr := s.agg.ApplyTransfer(ctx, sourceID, destinationID, amount)
		res = out
		return tErr
	})
	if err != nil {
		return nil, s.translate("ledger.transfer", err)
	}
	s.log.Info("transfer committed",
		"source_id", sourceID,
		"destination_id", destinationID,
		"amount", amount.StringFixed(ledger.AmountScale),
		"request_id", ctxutil.RequestID(ctx),
	)
	return res, nil
}

func (s *ledgerService) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	ctx, span := observability.Tracer().Start(ctx, "LedgerService.get_balance", trace.WithAttributes(
		attribute.Int64("ledger.account_id", accountID),
	))
	defer span.End()

	acc, err := s.accounts.GetByID(dbctx.Context{Ctx: ctx}, accountID)
	if err != nil {
		err = s.translate("ledger.get_balance", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ledger.CodeOf(err)))
		return decimal.Zero, err
	}
	if acc == nil {
		return decimal.Zero, ledger.NewError(ledger.CodeNotFound, "ledger.get_balance", "account not found", nil)
	}
	return acc.Balance, nil
}

func (s *ledgerService) validateAmount(op string, amount decimal.Decimal) error {
	if err := ledger.ValidateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(s.ceiling) {
		return ledger.NewError(ledger.CodeInvalidAmount, "ledger."+op,
			"amount exceeds the per-operation limit of "+s.ceiling.StringFixed(ledger.AmountScale), nil)
	}
	return nil
}

// translate keeps the five ledger kinds and folds everything else into a
// storage failure.
func (s *ledgerService) translate(op string, err error) error {
	mapped := aggregates.MapError(op, err)
	switch ledger.CodeOf(mapped) {
	case ledger.CodeNotFound, ledger.CodeInvalidAmount, ledger.CodeInsufficientFunds,
		ledger.CodeInvalidOperation, ledger.CodeStorageFailure:
		return mapped
	default:
		return ledger.Wrap(ledger.CodeStorageFailure, op, err)
	}
}

func (s *ledgerService) finish(ctx context.Context, span trace.Span, op string, amount decimal.Decimal, start time.Time, err error) {
	defer span.End()
	outcome := "success"
	// Rejected amounts may be unbounded literals; only validated ones are measured.
	var observed float64
	if err == nil {
		observed = amount.InexactFloat64()
	}
	if err != nil {
		outcome = string(ledger.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if outcome == string(ledger.CodeStorageFailure) {
			s.log.Error(op+" failed", "error", err, "request_id", ctxutil.RequestID(ctx))
		} else {
			s.log.Warn(op+" rejected", "code", outcome, "error", err.Error(), "request_id", ctxutil.RequestID(ctx))
		}
	}
	s.metrics.ObserveLedgerOperation(op, outcome, observed, time.Since(start))
}
