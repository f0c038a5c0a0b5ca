package accounts

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

// ProfileUpdate carries the optional identity fields of an account update.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

func (p ProfileUpdate) Empty() bool { return p.Name == nil && p.Email == nil }

// AccountRepo is the persistence contract for accounts. Lookups return
// (nil, nil) when the row does not exist.
type AccountRepo interface {
	List(dbc dbctx.Context) ([]*ledger.Account, error)
	GetByID(dbc dbctx.Context, id int64) (*ledger.Account, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*ledger.Account, error)
	GetByEmail(dbc dbctx.Context, email string) (*ledger.Account, error)
	Create(dbc dbctx.Context, account *ledger.Account) (*ledger.Account, error)
	UpdateProfile(dbc dbctx.Context, id int64, in ProfileUpdate) (*ledger.Account, error)
	UpdateBalance(dbc dbctx.Context, id int64, newBalance decimal.Decimal) (*ledger.Account, error)
	Delete(dbc dbctx.Context, id int64) (bool, error)
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	return &accountRepo{db: db, log: baseLog.With("repo", "AccountRepo")}
}

func (r *accountRepo) List(dbc dbctx.Context) ([]*ledger.Account, error) {
	var out []*ledger.Account
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) GetByID(dbc dbctx.Context, id int64) (*ledger.Account, error) {
	if id <= 0 {
		return nil, nil
	}
	var row ledger.Account
	err := dbc.DB(r.db).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *accountRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*ledger.Account, error) {
	var out []*ledger.Account
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *accountRepo) GetByEmail(dbc dbctx.Context, email string) (*ledger.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	var row ledger.Account
	err := dbc.DB(r.db).Where("email = ?", email).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *accountRepo) Create(dbc dbctx.Context, account *ledger.Account) (*ledger.Account, error) {
	if account == nil {
		return nil, errors.New("account is nil")
	}
	now := time.Now().UTC()
	account.ID = 0
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now
	if err := dbc.DB(r.db).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepo) UpdateProfile(dbc dbctx.Context, id int64, in ProfileUpdate) (*ledger.Account, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		updates["email"] = strings.TrimSpace(*in.Email)
	}
	res := dbc.DB(r.db).Model(&ledger.Account{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(dbc, id)
}

// UpdateBalance overwrites the balance and returns the refreshed row.
// Callers that need compare-and-set semantics go through the ledger aggregate.
func (r *accountRepo) UpdateBalance(dbc dbctx.Context, id int64, newBalance decimal.Decimal) (*ledger.Account, error) {
	res := dbc.DB(r.db).Model(&ledger.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    newBalance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(dbc, id)
}

func (r *accountRepo) Delete(dbc dbctx.Context, id int64) (bool, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&ledger.Account{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
