package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
	"github.com/yungbote/ledger-backend/internal/http/response"
	"github.com/yungbote/ledger-backend/internal/platform/apierr"
	"github.com/yungbote/ledger-backend/internal/services"
)

type AccountHandler struct {
	accounts services.AccountService
}

func NewAccountHandler(accounts services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	list, err := h.accounts.List(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	out := make([]AccountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	response.RespondOK(c, gin.H{"accounts": out, "count": len(out)})
}

// GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	acc, err := h.accounts.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"account": toAccountResponse(acc)})
}

// POST /accounts
// body: { "name": "...", "email": "..." }
func (h *AccountHandler) Create(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, invalidBody(err))
		return
	}
	acc, err := h.accounts.Create(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"account": toAccountResponse(acc)})
}

// PUT /accounts/:id
// body: { "name"?: "...", "email"?: "..." }
func (h *AccountHandler) Update(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondAPIError(c, invalidBody(err))
		return
	}
	acc, err := h.accounts.Update(c.Request.Context(), id, req.Name, req.Email)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"account": toAccountResponse(acc)})
}

// DELETE /accounts/:id
func (h *AccountHandler) Delete(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

var errInvalidBody = errors.New("invalid request body")

func invalidBody(err error) error {
	return apierr.New(http.StatusBadRequest, string(ledger.CodeValidation), fmt.Errorf("%w: %v", errInvalidBody, err))
}
