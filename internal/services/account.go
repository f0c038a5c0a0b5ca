package services

import (
	"context"
	"strings"

	"github.com/yungbote/ledger-backend/internal/data/aggregates"
	"github.com/yungbote/ledger-backend/internal/data/repos/accounts"
	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type AccountService interface {
	List(ctx context.Context) ([]*ledger.Account, error)
	Get(ctx context.Context, id int64) (*ledger.Account, error)
	Create(ctx context.Context, name, email string) (*ledger.Account, error)
	// Update changes the provided fields; nil means unchanged.
	Update(ctx context.Context, id int64, name, email *string) (*ledger.Account, error)
	Delete(ctx context.Context, id int64) error
}

type accountService struct {
	log      *logger.Logger
	accounts accounts.AccountRepo
	locker   ledger.Locker
}

func NewAccountService(log *logger.Logger, accountRepo accounts.AccountRepo, locker ledger.Locker) AccountService {
	if locker == nil {
		locker = NewLocalAccountLocker(nil)
	}
	return &accountService{
		log:      log.With("service", "AccountService"),
		accounts: accountRepo,
		locker:   locker,
	}
}

func (s *accountService) List(ctx context.Context) ([]*ledger.Account, error) {
	rows, err := s.accounts.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, aggregates.MapError("accounts.list", err)
	}
	return rows, nil
}

func (s *accountService) Get(ctx context.Context, id int64) (*ledger.Account, error) {
	acc, err := s.accounts.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, aggregates.MapError("accounts.get", err)
	}
	if acc == nil {
		return nil, ledger.NewError(ledger.CodeNotFound, "accounts.get", "account not found", nil)
	}
	return acc, nil
}

func (s *accountService) Create(ctx context.Context, name, email string) (*ledger.Account, error) {
	const op = "accounts.create"
	acc := ledger.NewAccount(name, email)
	if !acc.ValidateName() {
		return nil, ledger.NewError(ledger.CodeValidation, op, "name must have at least 3 characters", nil)
	}
	if !acc.ValidateEmail() {
		return nil, ledger.NewError(ledger.CodeValidation, op, "invalid email", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := s.accounts.GetByEmail(dbc, acc.Email)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if existing != nil {
		return nil, ledger.NewError(ledger.CodeConflict, op, "email already registered", nil)
	}
	created, err := s.accounts.Create(dbc, acc)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	s.log.Info("account created", "account_id", created.ID, "email", created.Email, "request_id", ctxutil.RequestID(ctx))
	return created, nil
}

func (s *accountService) Update(ctx context.Context, id int64, name, email *string) (*ledger.Account, error) {
	const op = "accounts.update"
	if name == nil && email == nil {
		return nil, ledger.NewError(ledger.CodeValidation, op, "no data to update", nil)
	}
	in := accounts.ProfileUpdate{}
	if name != nil {
		n := strings.TrimSpace(*name)
		if !ledger.ValidName(n) {
			return nil, ledger.NewError(ledger.CodeValidation, op, "name must have at least 3 characters", nil)
		}
		in.Name = &n
	}
	if email != nil {
		e := strings.TrimSpace(*email)
		if !ledger.ValidEmail(e) {
			return nil, ledger.NewError(ledger.CodeValidation, op, "invalid email", nil)
		}
		in.Email = &e
	}

	dbc := dbctx.Context{Ctx: ctx}
	current, err := s.accounts.GetByID(dbc, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if current == nil {
		return nil, ledger.NewError(ledger.CodeNotFound, op, "account not found", nil)
	}
	if in.Email != nil && *in.Email != current.Email {
		other, err := s.accounts.GetByEmail(dbc, *in.Email)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}
		if other != nil && other.ID != id {
			return nil, ledger.NewError(ledger.CodeConflict, op, "email already in use by another account", nil)
		}
	}
	updated, err := s.accounts.UpdateProfile(dbc, id, in)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if updated == nil {
		return nil, ledger.NewError(ledger.CodeNotFound, op, "account not found", nil)
	}
	s.log.Info("account updated", "account_id", id, "request_id", ctxutil.RequestID(ctx))
	return updated, nil
}

// Delete holds the account lock so no ledger operation is mid-flight on it.
func (s *accountService) Delete(ctx context.Context, id int64) error {
	const op = "accounts.delete"
	return s.locker.WithAccounts(ctx, []int64{id}, func(ctx context.Context) error {
		ok, err := s.accounts.Delete(dbctx.Context{Ctx: ctx}, id)
		if err != nil {
			return aggregates.MapError(op, err)
		}
		if !ok {
			return ledger.NewError(ledger.CodeNotFound, op, "account not found", nil)
		}
		s.log.Info("account deleted", "account_id", id, "request_id", ctxutil.RequestID(ctx))
		return nil
	})
}
