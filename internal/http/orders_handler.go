package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	timeout time.Duration
}

func NewOrdersHandler(timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{timeout: timeout}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := stateFrom(r.Context())
	orders, err := st.Services.Orders.ListMine(ctx)
	if err != nil {
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders/{order_code}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	code := chi.URLParam(r, "order_code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_code", "order_code is required")
		return
	}

	st := stateFrom(r.Context())
	order, err := st.Services.Orders.Get(ctx, code)
	if err != nil {
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}
