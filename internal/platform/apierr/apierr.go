package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var statusByCode = map[ledger.Code]int{
	ledger.CodeNotFound:          http.StatusNotFound,
	ledger.CodeInvalidAmount:     http.StatusBadRequest,
	ledger.CodeInsufficientFunds: http.StatusUnprocessableEntity,
	ledger.CodeInvalidOperation:  http.StatusBadRequest,
	ledger.CodeValidation:        http.StatusBadRequest,
	ledger.CodeConflict:          http.StatusConflict,
	ledger.CodeStorageFailure:    http.StatusInternalServerError,
}

// FromError converts err into an API error. Storage failures and untagged
// errors are reported with a generic message.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := ledger.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok || !code.Public() {
		return New(http.StatusInternalServerError, string(ledger.CodeStorageFailure), errors.New("internal storage failure"))
	}
	var le *ledger.Error
	errors.As(err, &le)
	msg := le.Message
	if msg == "" {
		msg = string(code)
	}
	return New(status, string(code), errors.New(msg))
}
