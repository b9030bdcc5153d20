package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appadjustment "github.com/xiebiao/stockledger/internal/application/adjustment"
	appalert "github.com/xiebiao/stockledger/internal/application/alert"
	"github.com/xiebiao/stockledger/internal/application/ledger"
	"github.com/xiebiao/stockledger/internal/domain/alert"
	"github.com/xiebiao/stockledger/internal/infrastructure/config"
	"github.com/xiebiao/stockledger/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/stockledger/internal/interface/http/dto"
	"github.com/xiebiao/stockledger/internal/interface/http/handler"
	"github.com/xiebiao/stockledger/pkg/metrics"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type page[T any] struct {
	List  []T   `json:"list"`
	Total int64 `json:"total"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	metrics.InitMetrics()

	logger := zaptest.NewLogger(t)
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	alerts := memory.NewAlertRepository(store)

	ledgerSvc := ledger.NewService(
		memory.NewTxManager(store),
		products,
		memory.NewReservationRepository(store),
		memory.NewAuditRepository(store),
		alert.NewEngine(alerts, alert.DefaultPolicy()),
		nil,
		logger,
		ledger.DefaultConfig(),
	)

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: "test"},
		Tracing: config.TracingConfig{ServiceName: "stock-ledger-test"},
	}
	return New(cfg, logger,
		handler.NewLedgerHandler(ledgerSvc),
		handler.NewAdjustmentHandler(appadjustment.NewService(memory.NewAdjustmentRepository(store), products, ledgerSvc, logger)),
		handler.NewAlertHandler(appalert.NewService(alerts, logger)),
	)
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}, operator string) envelope {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if operator != "" {
		req.Header.Set("X-Operator", operator)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v), string(env.Data))
	return v
}

func TestRouter_ReserveRaisesLowStockAlert(t *testing.T) {
	r := newTestRouter(t)

	env := do(t, r, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"id":               1,
		"sku":              "SKU-1",
		"physical_stock":   100,
		"reorder_point":    20,
		"reorder_quantity": 50,
	}, "")
	require.Equal(t, 0, env.Code, env.Message)

	env = do(t, r, http.MethodPost, "/api/v1/products/1/reservations", map[string]interface{}{
		"order_id": "ORD-1",
		"quantity": 85,
	}, "checkout")
	require.Equal(t, 0, env.Code, env.Message)

	res := decode[dto.LedgerResultResponse](t, env)
	assert.Equal(t, 15, res.Product.AvailableStock)
	assert.Equal(t, "low_stock", res.Product.Status)
	require.NotNil(t, res.AuditLog)
	assert.Equal(t, "order_reservation", res.AuditLog.Operation)
	assert.Equal(t, "checkout", res.AuditLog.PerformedBy)
	require.Len(t, res.AlertsRaised, 1)
	assert.Equal(t, 50, res.AlertsRaised[0].SuggestedReorderQuantity)

	env = do(t, r, http.MethodGet, "/api/v1/alerts?product_id=1&status=active", nil, "")
	require.Equal(t, 0, env.Code)
	alerts := decode[page[dto.AlertResponse]](t, env)
	assert.Equal(t, int64(1), alerts.Total)

	env = do(t, r, http.MethodGet, "/api/v1/products/1/reconcile", nil, "")
	report := decode[ledger.ReconcileReport](t, env)
	assert.True(t, report.Consistent)
}

func TestRouter_BusinessErrorsUseEnvelope(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/v1/products", map[string]interface{}{"id": 1, "physical_stock": 5}, "")

	env := do(t, r, http.MethodPost, "/api/v1/products/1/reservations", map[string]interface{}{
		"order_id": "ORD-1",
		"quantity": 6,
	}, "")
	assert.Equal(t, 40001, env.Code)
	assert.Empty(t, env.Data)

	env = do(t, r, http.MethodPost, "/api/v1/products", map[string]interface{}{"id": 1}, "")
	assert.Equal(t, 40009, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/products/9", nil, "")
	assert.Equal(t, 40401, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/products/abc", nil, "")
	assert.Equal(t, 40900, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/products/1/reservations", map[string]interface{}{"quantity": 1}, "")
	assert.Equal(t, 40901, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/products/1/reservations/ORD-404/cancel", nil, "")
	assert.Equal(t, 40404, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/products/1/validate?quantity=3", nil, "")
	require.Equal(t, 0, env.Code)
	check := decode[ledger.StockCheck](t, env)
	assert.True(t, check.Sufficient)
	assert.Equal(t, 5, check.Available)
}

func TestRouter_AdjustmentRequiresOperator(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/v1/products", map[string]interface{}{"id": 1, "physical_stock": 10}, "")

	body := map[string]interface{}{
		"product_id":      1,
		"adjustment_type": "increase",
		"reason_code":     "received",
		"quantity":        5,
	}
	env := do(t, r, http.MethodPost, "/api/v1/adjustments", body, "")
	assert.Equal(t, 40900, env.Code)

	env = do(t, r, http.MethodPost, "/api/v1/adjustments", body, "alice")
	require.Equal(t, 0, env.Code, env.Message)
	adj := decode[dto.AdjustmentResponse](t, env)
	assert.Equal(t, "pending", adj.Status)
	assert.Equal(t, "alice", adj.RequestedBy)

	env = do(t, r, http.MethodPost, "/api/v1/adjustments/1/decision", map[string]interface{}{"decision": "approved"}, "bob")
	require.Equal(t, 0, env.Code, env.Message)
	d := decode[dto.DecisionResponse](t, env)
	assert.Equal(t, "approved", d.Adjustment.Status)
	require.NotNil(t, d.Ledger)
	assert.Equal(t, 15, d.Ledger.Product.PhysicalStock)
	assert.Equal(t, "manual_adjustment", d.Ledger.AuditLog.Operation)

	env = do(t, r, http.MethodPost, "/api/v1/adjustments/1/decision", map[string]interface{}{"decision": "rejected"}, "bob")
	assert.Equal(t, 40012, env.Code)

	env = do(t, r, http.MethodGet, "/api/v1/audit-logs?product_id=1&operation=manual_adjustment", nil, "")
	logs := decode[page[dto.AuditLogResponse]](t, env)
	assert.Equal(t, int64(1), logs.Total)
}

func TestRouter_ExpireWithoutDeadlineIsNoop(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/v1/products", map[string]interface{}{"id": 1, "physical_stock": 10}, "")
	do(t, r, http.MethodPost, "/api/v1/products/1/reservations", map[string]interface{}{"order_id": "ORD-1", "quantity": 2}, "")

	env := do(t, r, http.MethodPost, "/api/v1/reservations/1/expire", nil, "")
	require.Equal(t, 0, env.Code, env.Message)
	res := decode[dto.ExpireResponse](t, env)
	assert.False(t, res.Expired)
	assert.Nil(t, res.Result)

	env = do(t, r, http.MethodGet, "/api/v1/reservations/due", nil, "")
	require.Equal(t, 0, env.Code)
	assert.Equal(t, "[]", string(env.Data))
}

func TestRouter_PingAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	env := do(t, r, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, 0, env.Code)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
