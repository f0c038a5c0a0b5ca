package ledger

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits money carries.
const AmountScale = 2

// MinNameLength is the shortest accepted account name.
const MinNameLength = 3

// MaxIntegerDigits bounds the integer part of an amount to what a
// decimal(20,2) column holds.
const MaxIntegerDigits = 18

// maxFractionExponent bounds how far right of the decimal point a literal may
// reach before it is refused outright.
const maxFractionExponent = 18

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Account is a client account holding a non-negative balance.
type Account struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"column:name;not null" json:"name"`
	Email     string          `gorm:"column:email;not null;uniqueIndex:idx_accounts_email" json:"email"`
	Balance   decimal.Decimal `gorm:"column:balance;type:decimal(20,2);not null;default:0;check:chk_accounts_balance_non_negative,balance >= 0" json:"balance"`
	Version   int64           `gorm:"column:version;not null;default:1" json:"-"`
	CreatedAt time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// NewAccount returns an unsaved account with a zero balance.
func NewAccount(name, email string) *Account {
	return &Account{
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Balance: decimal.Zero,
	}
}

// Deposit adds amount and returns the new balance.
func (a *Account) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return a.Balance, err
	}
	a.Balance = a.Balance.Add(amount)
	return a.Balance, nil
}

// Withdraw subtracts amount and returns the new balance.
// The balance is left untouched when amount exceeds it.
func (a *Account) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateAmount(amount); err != nil {
		return a.Balance, err
	}
	if amount.GreaterThan(a.Balance) {
		return a.Balance, NewError(CodeInsufficientFunds, "account.withdraw", "insufficient funds", nil)
	}
	a.Balance = a.Balance.Sub(amount)
	return a.Balance, nil
}

func (a *Account) ValidateEmail() bool {
	return ValidEmail(a.Email)
}

func (a *Account) ValidateName() bool {
	return ValidName(a.Name)
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidName(name string) bool {
	return len([]rune(strings.TrimSpace(name))) >= MinNameLength
}

// AmountInRange reports whether amount's magnitude fits a stored balance.
// It reads only the exponent and coefficient length so that literals like
// 1e20000000 are refused before any rounding or formatting touches them.
func AmountInRange(amount decimal.Decimal) bool {
	exp := int(amount.Exponent())
	if exp < -maxFractionExponent || exp > MaxIntegerDigits {
		return false
	}
	return amount.NumDigits()+exp <= MaxIntegerDigits
}

// ValidateAmount rejects non-positive amounts, amounts finer than a cent and
// amounts too large to store.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewError(CodeInvalidAmount, "amount", "amount must be greater than zero", nil)
	}
	if !AmountInRange(amount) {
		return NewError(CodeInvalidAmount, "amount", "amount is out of range", nil)
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return NewError(CodeInvalidAmount, "amount", "amount has more than two decimal places", nil)
	}
	return nil
}

// TransferResult carries both accounts after a committed transfer.
type TransferResult struct {
	Source      *Account
	Destination *Account
	Amount      decimal.Decimal
}
