package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ledger-backend/internal/domain/ledger"
)

func TestRespondAPIErrorUsesLedgerCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondAPIError(c, ledger.NewError(ledger.CodeInsufficientFunds, "ledger.withdraw", "insufficient funds", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "insufficient_funds", env.Error.Code)
	assert.Equal(t, "insufficient funds", env.Error.Message)
	assert.Len(t, c.Errors, 1)
}

func TestRespondAPIErrorHidesStorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	RespondAPIError(c, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, rec.Body.String(), "storage_failure")
}
