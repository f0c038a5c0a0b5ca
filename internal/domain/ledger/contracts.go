package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Aggregate owns every balance write. Each method runs in one database
// transaction and either commits all of its writes or none.
//
// Failures are *Error with codes CodeNotFound, CodeInvalidAmount,
// CodeInsufficientFunds, CodeInvalidOperation or CodeStorageFailure.
type Aggregate interface {
	// MutateBalance loads the account, applies fn and persists the new balance
	// guarded by the account version.
	MutateBalance(ctx context.Context, accountID int64, fn func(*Account) error) (*Account, error)

	// ApplyTransfer withdraws from source and deposits into destination as
	// one atomic unit.
	ApplyTransfer(ctx context.Context, sourceID, destinationID int64, amount decimal.Decimal) (*TransferResult, error)
}

// Locker serializes work on a set of accounts.
type Locker interface {
	WithAccounts(ctx context.Context, accountIDs []int64, fn func(ctx context.Context) error) error
}
