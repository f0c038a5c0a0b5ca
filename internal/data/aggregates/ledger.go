package aggregates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/ledger-backend/internal/data/repos/accounts"
	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
)

const accountsTable = "accounts"

type LedgerAggregateDeps struct {
	Base     BaseDeps
	Accounts accounts.AccountRepo
}

type LedgerAggregate struct {
	deps LedgerAggregateDeps
}

var _ ledger.Aggregate = (*LedgerAggregate)(nil)

func NewLedgerAggregate(deps LedgerAggregateDeps) *LedgerAggregate {
	deps.Base = deps.Base.withDefaults()
	return &LedgerAggregate{deps: deps}
}

func (a *LedgerAggregate) MutateBalance(ctx context.Context, accountID int64, fn func(*ledger.Account) error) (*ledger.Account, error) {
	const op = "ledger.mutate_balance"
	if fn == nil {
		return nil, ledger.NewError(ledger.CodeInvalidOperation, op, "mutation is required", nil)
	}
	var out *ledger.Account
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		acc, err := a.load(dbc, op, accountID)
		if err != nil {
			return err
		}
		if err := fn(acc); err != nil {
			return err
		}
		if err := a.writeBalance(dbc, acc); err != nil {
			return err
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyTransfer debits source and credits destination in one transaction.
// Neither balance changes unless both writes commit.
func (a *LedgerAggregate) ApplyTransfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal) (*ledger.TransferResult, error) {
	const op = "ledger.apply_transfer"
	if sourceID == destinationID {
		return nil, ledger.NewError(ledger.CodeInvalidOperation, op, "source and destination must differ", nil)
	}
	if err := ledger.ValidateAmount(amount); err != nil {
		return nil, err
	}
	var out *ledger.TransferResult
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		src, dst, err := a.loadPair(dbc, op, sourceID, destinationID)
		if err != nil {
			return err
		}
		if _, err := src.Withdraw(amount); err != nil {
			return err
		}
		if _, err := dst.Deposit(amount); err != nil {
			return err
		}
		if err := a.writeBalance(dbc, src); err != nil {
			return err
		}
		if err := a.writeBalance(dbc, dst); err != nil {
			return err
		}
		out = &ledger.TransferResult{Source: src, Destination: dst, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *LedgerAggregate) load(dbc dbctx.Context, op string, id int64) (*ledger.Account, error) {
	acc, err := a.deps.Accounts.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ledger.NewError(ledger.CodeNotFound, op, "account not found", nil)
	}
	return acc, nil
}

// loadPair reads both transfer legs in one query.
func (a *LedgerAggregate) loadPair(dbc dbctx.Context, op string, sourceID, destinationID int64) (*ledger.Account, *ledger.Account, error) {
	rows, err := a.deps.Accounts.GetByIDs(dbc, []int64{sourceID, destinationID})
	if err != nil {
		return nil, nil, err
	}
	var src, dst *ledger.Account
	for _, row := range rows {
		switch row.ID {
		case sourceID:
			src = row
		case destinationID:
			dst = row
		}
	}
	if src == nil {
		return nil, nil, ledger.NewError(ledger.CodeNotFound, op, "source account not found", nil)
	}
	if dst == nil {
		return nil, nil, ledger.NewError(ledger.CodeNotFound, op, "destination account not found", nil)
	}
	return src, dst, nil
}

func (a *LedgerAggregate) writeBalance(dbc dbctx.Context, acc *ledger.Account) error {
	now := time.Now().UTC()
	ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, accountsTable, acc.ID, acc.Version, map[string]any{
		"balance":    acc.Balance,
		"version":    acc.Version + 1,
		"updated_at": now,
	})
	if err != nil {
		return err
	}
	if err := RequireCASSuccess(ok, "account balance changed concurrently"); err != nil {
		return err
	}
	acc.Version++
	acc.UpdatedAt = now
	return nil
}
