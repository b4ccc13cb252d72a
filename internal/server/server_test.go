package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/backup"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	customerrepo "github.com/smallbiznis/orderdesk/internal/customer/repository"
	customerservice "github.com/smallbiznis/orderdesk/internal/customer/service"
	"github.com/smallbiznis/orderdesk/internal/kvstore"
	"github.com/smallbiznis/orderdesk/internal/observability"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/order/legacy"
	orderrepo "github.com/smallbiznis/orderdesk/internal/order/repository"
	orderservice "github.com/smallbiznis/orderdesk/internal/order/service"
	"github.com/smallbiznis/orderdesk/internal/slip"
	taxservice "github.com/smallbiznis/orderdesk/internal/tax/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := kvstore.NewRedisStore(client, "test")
	calc := taxservice.NewCalculator()
	normalizer := legacy.NewNormalizer(calc)
	orders := orderrepo.New(store, normalizer)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	m := metrics.NewNop()
	profile := config.NewStaticStoreProfileHolder(config.DefaultStoreProfile())

	orderSvc := orderservice.New(orderservice.Params{Repo: orders, Calc: calc, Log: log, GenID: node, Clock: fake, Metrics: m})
	srv := NewServer(ServerParams{
		Gin:      NewEngine(observability.Config{}, nil),
		Cfg:      config.Config{},
		Log:      log,
		OrderSvc: orderSvc,
		CustomerSvc: customerservice.New(customerservice.Params{
			Log: log, GenID: node, Clock: fake, Repo: customerrepo.Provide(store), Orders: orders,
		}),
		SlipSvc: slip.NewService(slip.Params{Orders: orderSvc, Calc: calc, Profile: profile, Log: log, Metrics: m}),
		BackupSvc: backup.New(backup.Params{
			Repo: orders, Normalizer: normalizer, GenID: node, Clock: fake, Log: log, Metrics: m,
		}),
		Profile: profile,
	})
	return srv.Engine()
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorPayload   `json:"error"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

const orderBody = `{
	"receptionDate": "2024-05-01",
	"customerName": "Yamada",
	"phoneNumber": "0193-00-0000",
	"products": [
		{"name": "Apple", "quantity": "2", "unitPrice": "100", "taxTreatment": "inclusive", "taxRatePercent": "8"},
		{"name": "Box", "quantity": 1, "unitPrice": 500, "taxTreatment": "exclusive", "taxRatePercent": 10}
	]
}`

func createOrder(t *testing.T, r http.Handler) string {
	t.Helper()
	resp := do(t, r, http.MethodPost, "/api/orders", orderBody)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var order struct {
		ID         string `json:"id"`
		GrandTotal int64  `json:"grandTotal"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &order))
	assert.Equal(t, int64(750), order.GrandTotal)
	return order.ID
}

func TestHealth(t *testing.T) {
	r := newTestServer(t)
	resp := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-Id"))
}

func TestPreviewOrder(t *testing.T) {
	r := newTestServer(t)
	resp := do(t, r, http.MethodPost, "/api/orders/preview", `{"products":[
		{"name":"Gum","quantity":1,"unitPrice":15,"taxTreatment":"exclusive","taxRatePercent":10},
		{"name":"Candy","quantity":1,"unitPrice":15,"taxTreatment":"exclusive","taxRatePercent":10}]}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var preview struct {
		Totals struct {
			Tax10      int64 `json:"tax10"`
			GrandTotal int64 `json:"grandTotal"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &preview))
	assert.Equal(t, int64(3), preview.Totals.Tax10)
	assert.Equal(t, int64(33), preview.Totals.GrandTotal)
}

func TestCreateOrder_Validation(t *testing.T) {
	r := newTestServer(t)

	resp := do(t, r, http.MethodPost, "/api/orders", `{"customerName":" ","products":[{"name":"A","quantity":1,"unitPrice":1}]}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Type)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, ValidationError{Field: "customer_name", Code: "invalid_customer_name", Message: "お客様氏名を入力してください"}, env.Error.Errors[0])

	resp = do(t, r, http.MethodPost, "/api/orders", `{"customerName":"A","products":[]}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_products", decode(t, resp).Error.Errors[0].Code)

	resp = do(t, r, http.MethodPost, "/api/orders", `not json`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_request", decode(t, resp).Error.Errors[0].Code)
}

func TestOrderLifecycle(t *testing.T) {
	r := newTestServer(t)
	id := createOrder(t, r)

	resp := do(t, r, http.MethodGet, "/api/orders/"+id, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, r, http.MethodPut, "/api/orders/"+id, strings.Replace(orderBody, "Yamada", "Suzuki", 1))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Suzuki")

	resp = do(t, r, http.MethodPut, "/api/orders/424242", orderBody)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = do(t, r, http.MethodPut, "/api/orders/abc", orderBody)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, r, http.MethodPost, "/api/orders/"+id+"/toggle-status", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"processed"`)

	resp = do(t, r, http.MethodGet, "/api/orders?status=processed&search=suz", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &listed))
	assert.Len(t, listed, 1)

	resp = do(t, r, http.MethodGet, "/api/orders?status=done", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, r, http.MethodGet, "/api/orders/summary", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"products":"Apple, Box"`)

	resp = do(t, r, http.MethodDelete, "/api/orders/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(t, r, http.MethodGet, "/api/orders/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "not_found", decode(t, resp).Error.Type)
}

func TestSlipHTML(t *testing.T) {
	r := newTestServer(t)
	id := createOrder(t, r)

	resp := do(t, r, http.MethodGet, "/api/orders/"+id+"/slip.html?download=1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="slip-`+id+`-yamada.html"`, resp.Header().Get("Content-Disposition"))
	assert.Contains(t, resp.Body.String(), "合計　¥750")

	resp = do(t, r, http.MethodGet, "/api/orders/1/slip.html", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestBackupRoundTrip(t *testing.T) {
	r := newTestServer(t)
	id := createOrder(t, r)

	resp := do(t, r, http.MethodGet, "/api/backup/export", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, `attachment; filename="order-backup-2024-05-01.json"`, resp.Header().Get("Content-Disposition"))
	exported := resp.Body.String()
	assert.Contains(t, exported, id)

	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/orders/"+id, "").Code)

	resp = do(t, r, http.MethodPost, "/api/backup/import", exported)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.JSONEq(t, `{"imported":1}`, string(decode(t, resp).Data))
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/orders/"+id, "").Code)

	resp = do(t, r, http.MethodPost, "/api/backup/import", `{"not":"an array"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_backup", decode(t, resp).Error.Errors[0].Code)
}

func TestCustomers(t *testing.T) {
	r := newTestServer(t)
	createOrder(t, r)

	resp := do(t, r, http.MethodPost, "/api/customers", `{"name":"やまだ","phone":"0193","normalizeName":true}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	var created struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(decode(t, resp).Data, &created))
	assert.Equal(t, "ヤマダ 様", created.Name)

	resp = do(t, r, http.MethodPut, "/api/customers/"+created.ID, `{"name":"ヤマダ 花子 様"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = do(t, r, http.MethodGet, "/api/customers?search=花子", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), created.ID)

	resp = do(t, r, http.MethodPost, "/api/customers", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, r, http.MethodGet, "/api/customers/directory?sort_by=date&order=desc", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"name":"Yamada"`)

	resp = do(t, r, http.MethodGet, "/api/customers/directory?sort_by=phone", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, r, http.MethodGet, "/api/customers/prefill?name=Yamada", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"phoneNumber":"0193-00-0000"`)

	resp = do(t, r, http.MethodGet, "/api/customers/prefill?name=Nobody", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, r, http.MethodPost, "/api/customers/normalize-name", `{"name":"すずき"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"name":"スズキ 様"}`, string(decode(t, resp).Data))

	resp = do(t, r, http.MethodDelete, "/api/customers/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestStoreProfile(t *testing.T) {
	r := newTestServer(t)
	resp := do(t, r, http.MethodGet, "/api/profile", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"slipTitle":"ご注文承り書（お客様控え）"`)
	assert.NotContains(t, resp.Body.String(), "fontPath")
}

func TestMapError(t *testing.T) {
	status, payload := mapError(kvstore.ErrBusy)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "service_unavailable", payload.Type)

	status, _ = mapError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)

	errType, code := classifyErrorForLog(slip.ErrUnsupportedFormat)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "unsupported_format", code)
}
