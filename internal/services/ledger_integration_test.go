package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/ledger-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/ledger-backend/internal/data/repos/accounts"
	repotest "github.com/yungbote/ledger-backend/internal/data/repos/testutil"
	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/observability"
)

type engine struct {
	db       *gorm.DB
	repo     accounts.AccountRepo
	ledger   LedgerService
	accounts AccountService
	hooks    *aggtest.HooksRecorder
	metrics  *observability.Metrics
}

func newEngine(t *testing.T, runner aggregates.TxRunner) *engine {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	repo := accounts.NewAccountRepo(db, log)
	hooks := &aggtest.HooksRecorder{}
	metrics := observability.New()
	agg := aggregates.NewLedgerAggregate(aggregates.LedgerAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db, Log: log, Runner: runner, Hooks: hooks},
		Accounts: repo,
	})
	locker := NewLocalAccountLocker(metrics)
	return &engine{
		db:       db,
		repo:     repo,
		ledger:   NewLedgerService(log, repo, agg, locker, metrics, LedgerConfig{}),
		accounts: NewAccountService(log, repo, locker),
		hooks:    hooks,
		metrics:  metrics,
	}
}

func (e *engine) open(t *testing.T, email, initial string) *ledger.Account {
	t.Helper()
	acc, err := e.accounts.Create(context.Background(), "Holder "+email, email)
	require.NoError(t, err)
	if initial != "0" {
		acc, err = e.ledger.Deposit(context.Background(), acc.ID, dec(initial))
		require.NoError(t, err)
	}
	return acc
}

func (e *engine) balance(t *testing.T, id int64) string {
	t.Helper()
	bal, err := e.ledger.GetBalance(context.Background(), id)
	require.NoError(t, err)
	return bal.StringFixed(2)
}

func TestEngineDepositThenWithdrawIsIdentity(t *testing.T) {
	e := newEngine(t, nil)
	acc := e.open(t, "identity@example.com", "42.42")

	_, err := e.ledger.Deposit(context.Background(), acc.ID, dec("17.58"))
	require.NoError(t, err)
	_, err = e.ledger.Withdraw(context.Background(), acc.ID, dec("17.58"))
	require.NoError(t, err)
	assert.Equal(t, "42.42", e.balance(t, acc.ID))
}

func TestEngineRejectedOperationsLeaveBalance(t *testing.T) {
	e := newEngine(t, nil)
	acc := e.open(t, "reject@example.com", "50")
	ctx := context.Background()

	_, err := e.ledger.Deposit(ctx, acc.ID, dec("0"))
	assert.True(t, ledger.IsCode(err, ledger.CodeInvalidAmount))
	_, err = e.ledger.Deposit(ctx, acc.ID, dec("-5"))
	assert.True(t, ledger.IsCode(err, ledger.CodeInvalidAmount))
	_, err = e.ledger.Withdraw(ctx, acc.ID, dec("80"))
	assert.True(t, ledger.IsCode(err, ledger.CodeInsufficientFunds))
	assert.Equal(t, "50.00", e.balance(t, acc.ID))

	_, err = e.ledger.GetBalance(ctx, acc.ID+500)
	assert.True(t, ledger.IsCode(err, ledger.CodeNotFound))
	_, err = e.ledger.Deposit(ctx, acc.ID+500, dec("1"))
	assert.True(t, ledger.IsCode(err, ledger.CodeNotFound))
}

func TestEngineTransferConservesValue(t *testing.T) {
	e := newEngine(t, nil)
	a := e.open(t, "conserve-a@example.com", "100")
	b := e.open(t, "conserve-b@example.com", "0")

	res, err := e.ledger.Transfer(context.Background(), a.ID, b.ID, dec("30"))
	require.NoError(t, err)
	assert.Equal(t, "70.00", res.Source.Balance.StringFixed(2))
	assert.Equal(t, "30.00", res.Destination.Balance.StringFixed(2))
	assert.Equal(t, "70.00", e.balance(t, a.ID))
	assert.Equal(t, "30.00", e.balance(t, b.ID))

	_, err = e.ledger.Transfer(context.Background(), a.ID, a.ID, dec("1"))
	assert.True(t, ledger.IsCode(err, ledger.CodeInvalidOperation))
}

func TestEngineFailedCommitRollsBackBothLegs(t *testing.T) {
	injected := errors.New("injected commit failure")
	runner := &aggtest.InjectedTxRunner{}
	e := newEngine(t, runner)
	runner.Delegate = aggregates.NewGormTxRunner(e.db)

	a := e.open(t, "commit-a@example.com", "100")
	b := e.open(t, "commit-b@example.com", "5")

	runner.FailCommit = injected
	_, err := e.ledger.Transfer(context.Background(), a.ID, b.ID, dec("30"))
	assert.True(t, ledger.IsCode(err, ledger.CodeStorageFailure), "got %v", err)
	assert.ErrorIs(t, err, injected)
	runner.FailCommit = nil

	assert.Equal(t, "100.00", e.balance(t, a.ID))
	assert.Equal(t, "5.00", e.balance(t, b.ID))
	assert.Equal(t, []string{"storage_failure"}, e.hooks.Statuses("ledger.apply_transfer"))
}

func TestEngineConcurrentWithdrawalsExactlyOneWins(t *testing.T) {
	e := newEngine(t, nil)
	acc := e.open(t, "race@example.com", "100")

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := e.ledger.Withdraw(context.Background(), acc.ID, dec("60"))
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case ledger.IsCode(err, ledger.CodeInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, "40.00", e.balance(t, acc.ID))
}

func TestEngineConcurrentDepositsAllApply(t *testing.T) {
	e := newEngine(t, nil)
	acc := e.open(t, "deposits@example.com", "0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ledger.Deposit(context.Background(), acc.ID, dec("1.10"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, "55.00", e.balance(t, acc.ID))
	assert.Equal(t, float64(50), e.metrics.LedgerOperations("deposit", "success"))
}

func TestEngineOpposingTransfersDoNotDeadlock(t *testing.T) {
	e := newEngine(t, nil)
	a := e.open(t, "pair-a@example.com", "300")
	b := e.open(t, "pair-b@example.com", "300")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = e.ledger.Transfer(context.Background(), a.ID, b.ID, dec("4"))
		}()
		go func() {
			defer wg.Done()
			_, _ = e.ledger.Transfer(context.Background(), b.ID, a.ID, dec("2.50"))
		}()
	}
	wg.Wait()

	total := dec(e.balance(t, a.ID)).Add(dec(e.balance(t, b.ID)))
	assert.Equal(t, "600.00", total.StringFixed(2))
}
