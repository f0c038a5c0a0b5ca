package http

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ledger-backend/internal/data/aggregates"
	"github.com/yungbote/ledger-backend/internal/data/repos/accounts"
	repotest "github.com/yungbote/ledger-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/ledger-backend/internal/http/handlers"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/ratelimit"
	"github.com/yungbote/ledger-backend/internal/services"
)

func newTestRouter(t *testing.T) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	return newLimitedTestRouter(t, nil)
}

func newLimitedTestRouter(t *testing.T, limiter ratelimit.Limiter) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := repotest.DB(t)
	log := repotest.Logger(t)
	metrics := observability.New()
	repo := accounts.NewAccountRepo(db, log)
	agg := aggregates.NewLedgerAggregate(aggregates.LedgerAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db, Log: log, Hooks: aggregates.NewObservabilityHooks(metrics)},
		Accounts: repo,
	})
	locker := services.NewLocalAccountLocker(metrics)
	r := NewRouter(RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    "ledger-test",
		RateLimiter:    limiter,
		AccountHandler: httpH.NewAccountHandler(services.NewAccountService(log, repo, locker)),
		LedgerHandler:  httpH.NewLedgerHandler(services.NewLedgerService(log, repo, agg, locker, metrics, services.LedgerConfig{})),
		HealthHandler:  httpH.NewHealthHandler("test", nil),
	})
	return r, metrics
}

func call(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createAccount(t *testing.T, r *gin.Engine, name, email string) int64 {
	t.Helper()
	rec := call(r, stdhttp.MethodPost, "/api/accounts", `{"name":"`+name+`","email":"`+email+`"}`)
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Account struct {
			ID int64 `json:"id"`
		} `json:"account"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Account.ID
}

func balanceOf(t *testing.T, r *gin.Engine, id int64) string {
	t.Helper()
	rec := call(r, stdhttp.MethodGet, "/api/accounts/"+itoa(id)+"/balance", "")
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Balance
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestRouterLedgerFlow(t *testing.T) {
	r, metrics := newTestRouter(t)

	ana := createAccount(t, r, "Ana Lima", "ana@example.com")
	bruno := createAccount(t, r, "Bruno Reis", "bruno@example.com")

	rec := call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(ana)+"/deposit", `{"amount": "100.00"}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	rec = call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(ana)+"/transfer/"+itoa(bruno), `{"amount": 30.25}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "69.75", balanceOf(t, r, ana))
	assert.Equal(t, "30.25", balanceOf(t, r, bruno))

	rec = call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(bruno)+"/withdraw", `{"amount": 31}`)
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "30.25", balanceOf(t, r, bruno))

	rec = call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(ana)+"/transfer/"+itoa(ana), `{"amount": 1}`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_operation")

	rec = call(r, stdhttp.MethodPost, "/api/accounts/999/deposit", `{"amount": 1}`)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)

	rec = call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(ana)+"/deposit", `{"amount": 1000001}`)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_amount")

	assert.Equal(t, float64(1), metrics.LedgerOperations("transfer", "success"))

	var out strings.Builder
	require.NoError(t, metrics.WritePrometheus(&out))
	assert.Contains(t, out.String(), `route="/api/accounts/:id/transfer/:destination_id"`)
}

func TestRouterConcurrentTransfersConserveTotal(t *testing.T) {
	r, _ := newTestRouter(t)
	a := createAccount(t, r, "Carla Souza", "carla@example.com")
	b := createAccount(t, r, "Diego Alves", "diego@example.com")
	require.Equal(t, stdhttp.StatusOK, call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(a)+"/deposit", `{"amount": 500}`).Code)
	require.Equal(t, stdhttp.StatusOK, call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(b)+"/deposit", `{"amount": 500}`).Code)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(a)+"/transfer/"+itoa(b), `{"amount": 7}`)
		}()
		go func() {
			defer wg.Done()
			call(r, stdhttp.MethodPost, "/api/accounts/"+itoa(b)+"/transfer/"+itoa(a), `{"amount": 3}`)
		}()
	}
	wg.Wait()

	assert.Equal(t, "420.00", balanceOf(t, r, a))
	assert.Equal(t, "580.00", balanceOf(t, r, b))
}

func TestRouterAccountLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)
	id := createAccount(t, r, "Eva Prado", "eva@example.com")

	rec := call(r, stdhttp.MethodPost, "/api/accounts", `{"name":"Eva Two","email":"eva@example.com"}`)
	assert.Equal(t, stdhttp.StatusConflict, rec.Code)

	rec = call(r, stdhttp.MethodPut, "/api/accounts/"+itoa(id), `{"name":"Eva Prado Lima"}`)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Eva Prado Lima")

	rec = call(r, stdhttp.MethodDelete, "/api/accounts/"+itoa(id), "")
	assert.Equal(t, stdhttp.StatusNoContent, rec.Code)

	rec = call(r, stdhttp.MethodGet, "/api/accounts/"+itoa(id), "")
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)

	rec = call(r, stdhttp.MethodGet, "/healthcheck", "")
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouterRateLimitsAPIPerClient(t *testing.T) {
	r, _ := newLimitedTestRouter(t, ratelimit.NewLocalLimiter(ratelimit.Options{Max: 3, Window: time.Minute}))

	for i := 0; i < 3; i++ {
		rec := call(r, stdhttp.MethodGet, "/api/accounts", "")
		require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	}
	rec := call(r, stdhttp.MethodGet, "/api/accounts", "")
	require.Equal(t, stdhttp.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limited")
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	health := call(r, stdhttp.MethodGet, "/healthcheck", "")
	assert.NotEqual(t, stdhttp.StatusTooManyRequests, health.Code, "health checks are not limited")
	assert.Equal(t, "nosniff", health.Header().Get("X-Content-Type-Options"))
}
