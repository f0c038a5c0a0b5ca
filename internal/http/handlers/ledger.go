package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/http/response"
	"github.com/yungbote/ledger-backend/internal/services"
)

type LedgerHandler struct {
	ledger services.LedgerService
}

func NewLedgerHandler(ledgerService services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledgerService}
}

// POST /accounts/:id/deposit
// body: { "amount": 100.50 }
func (h *LedgerHandler) Deposit(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	amount, err := bindAmount(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	acc, err := h.ledger.Deposit(c.Request.Context(), id, amount)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"account": toAccountResponse(acc),
		"amount":  amount.StringFixed(ledger.AmountScale),
	})
}

// POST /accounts/:id/withdraw
// body: { "amount": 100.50 }
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	amount, err := bindAmount(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	acc, err := h.ledger.Withdraw(c.Request.Context(), id, amount)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"account": toAccountResponse(acc),
		"amount":  amount.StringFixed(ledger.AmountScale),
	})
}

// GET /accounts/:id/balance
func (h *LedgerHandler) Balance(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	bal, err := h.ledger.GetBalance(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"account_id": id,
		"balance":    bal.StringFixed(ledger.AmountScale),
	})
}

// POST /accounts/:id/transfer/:destination_id
// body: { "amount": 100.50 }
func (h *LedgerHandler) Transfer(c *gin.Context) {
	sourceID, err := parseID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	destinationID, err := parseID(c, "destination_id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	amount, err := bindAmount(c)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	res, err := h.ledger.Transfer(c.Request.Context(), sourceID, destinationID, amount)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"source":      toAccountResponse(res.Source),
		"destination": toAccountResponse(res.Destination),
		"amount":      res.Amount.StringFixed(ledger.AmountScale),
	})
}
