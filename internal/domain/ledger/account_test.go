package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDepositThenWithdrawRestoresBalance(t *testing.T) {
	a := &Account{Balance: dec("42.10")}
	if _, err := a.Deposit(dec("17.35")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := a.Withdraw(dec("17.35")); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !a.Balance.Equal(dec("42.10")) {
		t.Fatalf("expected 42.10, got %s", a.Balance)
	}
}

func TestDepositRejectsNonPositiveAmounts(t *testing.T) {
	for _, amt := range []string{"0", "-5", "-0.01"} {
		a := &Account{Balance: dec("10")}
		_, err := a.Deposit(dec(amt))
		if !IsCode(err, CodeInvalidAmount) {
			t.Fatalf("deposit(%s): expected invalid_amount, got %v", amt, err)
		}
		if !a.Balance.Equal(dec("10")) {
			t.Fatalf("deposit(%s) changed balance to %s", amt, a.Balance)
		}
	}
}

func TestAmountFinerThanCentIsInvalid(t *testing.T) {
	a := &Account{Balance: dec("10")}
	if _, err := a.Deposit(dec("0.001")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid_amount, got %v", err)
	}
	if err := ValidateAmount(dec("0.10")); err != nil {
		t.Fatalf("0.10 should be valid: %v", err)
	}
}

func TestAmountOutOfRangeIsInvalid(t *testing.T) {
	for _, amt := range []string{"1e20000000", "1e-20000000", "1e18", "1234567890123456789", "0.0000000000000000001"} {
		if AmountInRange(dec(amt)) {
			t.Fatalf("%s should be out of range", amt)
		}
		if err := ValidateAmount(dec(amt)); !IsCode(err, CodeInvalidAmount) {
			t.Fatalf("ValidateAmount(%s): expected invalid_amount, got %v", amt, err)
		}
	}
	for _, amt := range []string{"999999999999999999.99", "0.01", "1.5e3"} {
		if err := ValidateAmount(dec(amt)); err != nil {
			t.Fatalf("%s should be valid: %v", amt, err)
		}
	}
}

func TestWithdrawOverdraw(t *testing.T) {
	a := &Account{Balance: dec("50")}
	bal, err := a.Withdraw(dec("80"))
	if !IsCode(err, CodeInsufficientFunds) {
		t.Fatalf("expected insufficient_funds, got %v", err)
	}
	if !bal.Equal(dec("50")) || !a.Balance.Equal(dec("50")) {
		t.Fatalf("balance changed on overdraw: %s", a.Balance)
	}
}

func TestWithdrawExactBalance(t *testing.T) {
	a := &Account{Balance: dec("50")}
	bal, err := a.Withdraw(dec("50"))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !bal.IsZero() {
		t.Fatalf("expected zero, got %s", bal)
	}
}

func TestWithdrawRejectsNonPositive(t *testing.T) {
	a := &Account{Balance: dec("50")}
	if _, err := a.Withdraw(dec("0")); !IsCode(err, CodeInvalidAmount) {
		t.Fatalf("expected invalid_amount, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	cases := map[string]bool{
		"ana@example.com":  true,
		"a.b@c.io":         true,
		"no-at.example":    false,
		"two@@example.com": false,
		"space @x.com":     false,
		"missing@tld":      false,
		"":                 false,
	}
	for email, want := range cases {
		a := NewAccount("Ana", email)
		if got := a.ValidateEmail(); got != want {
			t.Fatalf("ValidateEmail(%q)=%v want %v", email, got, want)
		}
	}
}

func TestValidateName(t *testing.T) {
	if NewAccount("  Al ", "x@y.z").ValidateName() {
		t.Fatalf("two letter name should be rejected")
	}
	if !NewAccount("Ana", "x@y.z").ValidateName() {
		t.Fatalf("three letter name should be accepted")
	}
}

func TestNewAccountStartsAtZero(t *testing.T) {
	a := NewAccount(" Ana Souza ", " ana@example.com ")
	if !a.Balance.IsZero() {
		t.Fatalf("expected zero balance")
	}
	if a.Name != "Ana Souza" || a.Email != "ana@example.com" {
		t.Fatalf("expected trimmed fields, got %q %q", a.Name, a.Email)
	}
}
