package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
)

// SeedAccount inserts an account with the given opening balance, bypassing
// the ledger so tests can start from arbitrary states.
func SeedAccount(tb testing.TB, ctx context.Context, tx *gorm.DB, email, balance string) *ledger.Account {
	tb.Helper()
	acc := ledger.NewAccount("Seed "+email, email)
	acc.Balance = decimal.RequireFromString(balance)
	acc.Version = 1
	if err := tx.WithContext(ctx).Create(acc).Error; err != nil {
		tb.Fatalf("seed account: %v", err)
	}
	return acc
}
