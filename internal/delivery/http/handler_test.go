package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/catalog"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/store"
)

type brokenCatalog struct{}

func (brokenCatalog) ListProducts(context.Context) ([]entity.Product, error) {
	return nil, &catalog.FetchError{Op: "list products", StatusCode: http.StatusServiceUnavailable}
}

func (brokenCatalog) GetProduct(context.Context, int) (entity.Product, error) {
	return entity.Product{}, &catalog.FetchError{Op: "get product", Err: errors.New("timeout")}
}

func newServer(t *testing.T, products repository.ProductCatalog, orders repository.OrderRepository) http.Handler {
	t.Helper()
	st := store.New()
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	mux := http.NewServeMux()
	NewHandler(service.NewCartService(st, products), service.NewOrderService(st, orders)).RegisterRoutes(mux)
	return RequestID(EnableCORS(mux))
}

func newTestCatalog() repository.ProductCatalog {
	return catalog.NewStatic([]entity.Product{
		{ID: 4, Title: "Handmade Fresh Table", Price: 687, Images: []string{}},
		{ID: 9, Title: "Classic Red Jogger Sweatpants", Price: 98.99, Images: []string{}},
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHandler_CartFlow(t *testing.T) {
	h := newServer(t, newTestCatalog(), nil)

	rec := do(t, h, http.MethodPost, "/api/cart/items", `{"productId":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/cart/items", `{"productId":9}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPatch, "/api/cart/items/9", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[service.CartView](t, rec)
	assert.Equal(t, 4, cart.NumberOfItems)
	assert.Equal(t, 983.97, cart.Subtotal)

	rec = do(t, h, http.MethodDelete, "/api/cart/items/4", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decode[service.CartView](t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 9, cart.Items[0].ID)
	assert.Equal(t, 3, cart.Items[0].CartQuantity)

	rec = do(t, h, http.MethodDelete, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"numberOfItems":0,"subtotal":0}`, rec.Body.String())
}

func TestHandler_CheckoutFlow(t *testing.T) {
	orders := memory.NewOrderRepository()
	h := newServer(t, newTestCatalog(), orders)

	rec := do(t, h, http.MethodPost, "/api/orders", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	do(t, h, http.MethodPost, "/api/cart/items", `{"productId":4}`)
	rec = do(t, h, http.MethodPost, "/api/orders", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[entity.OrderSummary](t, rec)
	assert.Equal(t, entity.OrderStatusOrdered, order.Status)
	assert.Equal(t, 687.0, order.TotalAmount)

	rec = do(t, h, http.MethodGet, "/api/cart", "")
	assert.Equal(t, 0, decode[service.CartView](t, rec).NumberOfItems)

	rec = do(t, h, http.MethodGet, "/api/orders/"+order.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[service.OrderDetail](t, rec)
	assert.Equal(t, order.ID, detail.ID)
	assert.Equal(t, entity.OrderSteps(), detail.Steps)

	rec = do(t, h, http.MethodGet, "/api/orders", "")
	assert.Len(t, decode[[]entity.OrderSummary](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/orders/recent?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]entity.OrderSummary](t, rec))

	rec = do(t, h, http.MethodDelete, "/api/orders", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/orders/"+order.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		catalog repository.ProductCatalog
		method  string
		path    string
		body    string
		want    int
	}{
		{name: "unknown product", catalog: newTestCatalog(), method: http.MethodGet, path: "/api/products/404", want: http.StatusNotFound},
		{name: "bad product id", catalog: newTestCatalog(), method: http.MethodGet, path: "/api/products/abc", want: http.StatusBadRequest},
		{name: "add unknown product", catalog: newTestCatalog(), method: http.MethodPost, path: "/api/cart/items", body: `{"productId":404}`, want: http.StatusNotFound},
		{name: "add malformed body", catalog: newTestCatalog(), method: http.MethodPost, path: "/api/cart/items", body: `{`, want: http.StatusBadRequest},
		{name: "negative quantity", catalog: newTestCatalog(), method: http.MethodPatch, path: "/api/cart/items/4", body: `{"quantity":-2}`, want: http.StatusBadRequest},
		{name: "missing quantity", catalog: newTestCatalog(), method: http.MethodPatch, path: "/api/cart/items/4", body: `{}`, want: http.StatusBadRequest},
		{name: "catalog down", catalog: brokenCatalog{}, method: http.MethodGet, path: "/api/products", want: http.StatusBadGateway},
		{name: "catalog timeout on add", catalog: brokenCatalog{}, method: http.MethodPost, path: "/api/cart/items", body: `{"productId":4}`, want: http.StatusBadGateway},
		{name: "projection disabled", catalog: newTestCatalog(), method: http.MethodGet, path: "/api/orders/recent", want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, tt.catalog, nil)
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_Middleware(t *testing.T) {
	h := newServer(t, newTestCatalog(), nil)

	rec := do(t, h, http.MethodOptions, "/api/cart", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", rec.Header().Get(requestIDHeader))
}
