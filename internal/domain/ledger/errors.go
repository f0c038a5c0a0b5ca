package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Code is the closed set of failure kinds surfaced by ledger operations.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeInvalidAmount     Code = "invalid_amount"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeInvalidOperation  Code = "invalid_operation"
	CodeStorageFailure    Code = "storage_failure"

	// Account management only.
	CodeValidation Code = "validation"
	CodeConflict   Code = "conflict"
)

// Sentinels for errors.Is; matching is by code only.
var (
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrInvalidAmount     = &Error{Code: CodeInvalidAmount}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds}
	ErrInvalidOperation  = &Error{Code: CodeInvalidOperation}
	ErrStorageFailure    = &Error{Code: CodeStorageFailure}
	ErrValidation        = &Error{Code: CodeValidation}
	ErrConflict          = &Error{Code: CodeConflict}
)

// Error is the canonical ledger error.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// NewError builds a ledger error with explicit code + operation.
func NewError(code Code, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates err with a code, keeping it as the cause.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the outermost ledger code, or "".
func CodeOf(err error) Code {
	var le *Error
	if !errors.As(err, &le) {
		return ""
	}
	return le.Code
}

// Public reports whether the code's message is safe to show to callers.
func (c Code) Public() bool {
	return c != CodeStorageFailure && c != ""
}
