package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
)

// ErrConflict indicates an optimistic version conflict.
var ErrConflict = errors.New("aggregate conflict")

// ConflictError tags an error as a version conflict.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// MapError maps infrastructure failures into ledger error codes.
// Errors that already carry a ledger code pass through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if ledger.CodeOf(err) != "" {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ledger.Wrap(ledger.CodeNotFound, op, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ledger.NewError(ledger.CodeConflict, op, "email already registered", err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return ledger.NewError(ledger.CodeInsufficientFunds, op, "balance cannot become negative", err)
	case errors.Is(err, ErrConflict):
		return ledger.NewError(ledger.CodeStorageFailure, op, "concurrent modification not resolved", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ledger.NewError(ledger.CodeStorageFailure, op, "storage call interrupted", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return ledger.NewError(ledger.CodeConflict, op, "email already registered", err) // unique_violation
		case "23514":
			return ledger.NewError(ledger.CodeInsufficientFunds, op, "balance cannot become negative", err) // check_violation
		}
	}
	return ledger.Wrap(ledger.CodeStorageFailure, op, err)
}

// IsRetryable reports whether re-running the whole transaction may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "40001", "40P01", "55P03": // serialization/deadlock/lock_not_available
			return true
		}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
