package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/platform/apierr"
)

var errInvalidID = errors.New("id must be a positive integer")

// parseID reads a positive integer path parameter.
func parseID(c *gin.Context, name string) (int64, error) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apierr.New(http.StatusBadRequest, "invalid_id", errInvalidID)
	}
	return id, nil
}

type amountRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

var (
	errAmountNotNumber  = errors.New("amount must be a number")
	errAmountOutOfRange = errors.New("amount is out of range")
)

// bindAmount accepts {"amount": 10.5} or {"amount": "10.50"}.
func bindAmount(c *gin.Context) (decimal.Decimal, error) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		return decimal.Zero, apierr.New(http.StatusBadRequest, string(ledger.CodeInvalidAmount), errAmountNotNumber)
	}
	if !ledger.AmountInRange(*req.Amount) {
		return decimal.Zero, apierr.New(http.StatusBadRequest, string(ledger.CodeInvalidAmount), errAmountOutOfRange)
	}
	return *req.Amount, nil
}

type AccountResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAccountResponse(a *ledger.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Balance:   a.Balance.StringFixed(ledger.AmountScale),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
