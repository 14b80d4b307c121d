package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/catalog"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for the application.
type Handler struct {
	cartSvc  *service.CartService
	orderSvc *service.OrderService
}

func NewHandler(cartSvc *service.CartService, orderSvc *service.OrderService) *Handler {
	return &Handler{
		cartSvc:  cartSvc,
		orderSvc: orderSvc,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.handleGetProducts)
	mux.HandleFunc("GET /api/products/{id}", h.handleGetProduct)

	mux.HandleFunc("GET /api/cart", h.handleGetCart)
	mux.HandleFunc("DELETE /api/cart", h.handleClearCart)
	mux.HandleFunc("POST /api/cart/items", h.handleAddToCart)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.handleUpdateQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.handleRemoveFromCart)

	mux.HandleFunc("POST /api/orders", h.handleCheckout)
	mux.HandleFunc("GET /api/orders", h.handleGetOrders)
	mux.HandleFunc("DELETE /api/orders", h.handleClearOrders)
	mux.HandleFunc("GET /api/orders/recent", h.handleGetRecentOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.handleGetOrder)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (h *Handler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.cartSvc.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, "Failed to get products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.cartSvc.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartSvc.GetCart(r.Context()))
}

type AddToCartRequest struct {
	ProductID int `json:"productId"`
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID <= 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cart, err := h.cartSvc.AddProduct(r.Context(), req.ProductID)
	if err != nil {
		writeError(w, r, "Failed to add to cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	cart, err := h.cartSvc.UpdateQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		writeError(w, r, "Failed to update cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cart, err := h.cartSvc.RemoveItem(r.Context(), id)
	if err != nil {
		writeError(w, r, "Failed to remove cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.cartSvc.ClearCart(r.Context())
	if err != nil {
		writeError(w, r, "Failed to clear cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.Checkout(r.Context())
	if err != nil {
		writeError(w, r, "Failed to place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orderSvc.GetOrders(r.Context()))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "Failed to get order", err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleClearOrders(w http.ResponseWriter, r *http.Request) {
	if err := h.orderSvc.ClearOrders(r.Context()); err != nil {
		writeError(w, r, "Failed to clear orders", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetRecentOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	orders, err := h.orderSvc.GetRecentOrders(r.Context(), limit)
	if err != nil {
		writeError(w, r, "Failed to get recent orders", err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := http.StatusInternalServerError
	var fetchErr *catalog.FetchError
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrEmptyCart):
		status = http.StatusConflict
	case errors.Is(err, service.ErrProjectionDisabled):
		status = http.StatusServiceUnavailable
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), msg, "err", err, "request_id", w.Header().Get(requestIDHeader))
	} else {
		slog.InfoContext(r.Context(), msg, "err", err, "status", status)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

const requestIDHeader = "X-Request-ID"

// RequestID echoes or assigns a request id.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// EnableCORS is a middleware to allow the React frontend to connect.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
