package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	productApp "github.com/davicafu/inventorylab/internal/product/application"
	productHttp "github.com/davicafu/inventorylab/internal/product/infra/inbound/http"
	"github.com/davicafu/inventorylab/internal/product/infra/outbound/eventstore"
	idemStore "github.com/davicafu/inventorylab/internal/product/infra/outbound/idempotency"
	"github.com/davicafu/inventorylab/tests/mocks"
)

// commandResponse define el contrato de las respuestas 202 de escritura.
type commandResponse struct {
	Message   string `json:"message"`
	ProductID string `json:"product_id"`
	Version   int    `json:"version"`
}

type commandTestEnv struct {
	router    *gin.Engine
	es        *productApp.EventSourcingHandler
	publisher *mocks.CapturePublisher
}

func newCommandTestEnv(t *testing.T) *commandTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	store := eventstore.NewInMemoryEventStore()
	publisher := mocks.NewCapturePublisher()
	es := productApp.NewEventSourcingHandler(store, publisher, 1, time.Millisecond, log)

	commandHandler := productApp.NewProductCommandHandler(es, log)
	dispatcher := productApp.NewCommandDispatcher()
	require.NoError(t, productApp.RegisterProductHandlers(dispatcher, commandHandler))

	idempotencySvc := productApp.NewIdempotencyService(idemStore.NewInMemoryStore(0, 0), log)

	router := gin.New()
	productHttp.RegisterCommandRoutes(router, productHttp.NewCommandHandler(dispatcher, es, log),
		productHttp.IdempotencyMiddleware(idempotencySvc, log))
	productHttp.RegisterAdminRoutes(router, productHttp.NewAdminHandler(store, es, idempotencySvc, nil, nil, log))

	return &commandTestEnv{router: router, es: es, publisher: publisher}
}

func (e *commandTestEnv) do(t *testing.T, method, path, idempotencyKey string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *commandTestEnv) createProduct(t *testing.T, key string) commandResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/products", key, gin.H{
		"name":           "Teclado",
		"category":       "peripherals",
		"price":          79.99,
		"store_id":       "store-001",
		"initial_amount": 10,
	}, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp commandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ProductID)
	return resp
}

func TestCreateProduct_HTTPContract(t *testing.T) {
	env := newCommandTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/products", "key-1", gin.H{
		"name":           "Teclado",
		"store_id":       "store-001",
		"initial_amount": 10,
	}, nil)

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "1", w.Header().Get("ETag"))

	var resp commandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Version)

	// ✅ El evento salió al broker
	published := env.publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "stock-events", published[0].Topic)
	assert.Equal(t, resp.ProductID, published[0].Envelope.AggregateID)
}

func TestCreateProduct_RetryConMismaClave(t *testing.T) {
	env := newCommandTestEnv(t)

	first := env.createProduct(t, "key-1")
	second := env.do(t, http.MethodPost, "/v1/products", "key-1", gin.H{
		"name":     "Teclado",
		"store_id": "store-001",
	}, nil)

	require.Equal(t, http.StatusAccepted, second.Code)
	var resp commandResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))

	// ✅ Mismo product_id: el reintento no creó un segundo agregado
	assert.Equal(t, first.ProductID, resp.ProductID)
	assert.Len(t, env.publisher.Published(), 1)
}

func TestCreateProduct_CamposObligatorios(t *testing.T) {
	env := newCommandTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/products", "key-1", gin.H{"price": 5.0}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStock_HTTPContract(t *testing.T) {
	env := newCommandTestEnv(t)
	created := env.createProduct(t, "key-create")

	w := env.do(t, http.MethodPut, fmt.Sprintf("/v1/products/%s/stock", created.ProductID), "key-update", gin.H{
		"operation": "purchase",
		"amount":    3,
		"reason":    "pedido #42",
	}, nil)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "2", w.Header().Get("ETag"))

	var resp commandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Version)
}

func TestUpdateStock_ProductoInexistente(t *testing.T) {
	env := newCommandTestEnv(t)

	w := env.do(t, http.MethodPut, "/v1/products/0f8fad5b-d9cb-469f-a165-70867728950e/stock", "key-1", gin.H{
		"operation": "restock",
		"amount":    5,
	}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStock_StockInsuficiente(t *testing.T) {
	env := newCommandTestEnv(t)
	created := env.createProduct(t, "key-create")

	w := env.do(t, http.MethodPut, fmt.Sprintf("/v1/products/%s/stock", created.ProductID), "key-1", gin.H{
		"operation": "purchase",
		"amount":    100,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// ✅ El rechazo no avanzó la versión del stream
	version := env.do(t, http.MethodPut, fmt.Sprintf("/v1/products/%s/stock", created.ProductID), "key-2", gin.H{
		"operation": "purchase",
		"amount":    1,
	}, nil)
	var resp commandResponse
	require.NoError(t, json.Unmarshal(version.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Version)
}

func TestUpdateStock_IfMatchObsoleto(t *testing.T) {
	env := newCommandTestEnv(t)
	created := env.createProduct(t, "key-create")

	w := env.do(t, http.MethodPut, fmt.Sprintf("/v1/products/%s/stock", created.ProductID), "key-1", gin.H{
		"operation": "restock",
		"amount":    5,
	}, map[string]string{"If-Match": "99"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminEndpoints_HTTPContract(t *testing.T) {
	env := newCommandTestEnv(t)
	created := env.createProduct(t, "key-create")

	// GET /v1/events con filtro por agregado
	w := env.do(t, http.MethodGet, "/v1/events?aggregate_id="+created.ProductID, "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var eventsResp struct {
		Total  int               `json:"total"`
		Events []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eventsResp))
	assert.Equal(t, 1, eventsResp.Total)

	// GET /v1/events/aggregates
	w = env.do(t, http.MethodGet, "/v1/events/aggregates", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var aggResp struct {
		AggregateIDs []string `json:"aggregate_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &aggResp))
	assert.Equal(t, []string{created.ProductID}, aggResp.AggregateIDs)

	// POST /v1/projections/rebuild republica el log completo
	env.publisher.Messages = nil
	w = env.do(t, http.MethodPost, "/v1/projections/rebuild", "key-rebuild", nil, nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Len(t, env.publisher.Published(), 1)

	// GET /v1/idempotency/:key expone el registro terminal
	w = env.do(t, http.MethodGet, "/v1/idempotency/key-create", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var idemResp struct {
		Status     string `json:"status"`
		HTTPStatus int    `json:"http_status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &idemResp))
	assert.Equal(t, "succeeded", idemResp.Status)
	assert.Equal(t, http.StatusAccepted, idemResp.HTTPStatus)

	// GET /v1/dlt vacío cuando todo se publicó
	w = env.do(t, http.MethodGet, "/v1/dlt", "", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dltResp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dltResp))
	assert.Equal(t, 0, dltResp.Count)
}
