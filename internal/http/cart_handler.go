package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type CartHandler struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewCartHandler(timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		timeout: timeout,
		logger:  logger,
	}
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	Items      []domain.CartItem `json:"items"`
	Count      int               `json:"count"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	Staged     bool              `json:"staged,omitempty"`
	Message    string            `json:"message,omitempty"`
}

func cartView(store *cart.Store, res cart.Result) CartResponseDTO {
	return CartResponseDTO{
		Items:      store.Items(),
		Count:      store.Count(),
		TotalPrice: store.TotalPrice(),
		Staged:     res.Staged,
		Message:    res.Message,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := stateFrom(r.Context())
	if err := st.Cart.Load(ctx); err != nil {
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cartView(st.Cart, cart.Result{OK: true}))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req cart.AddInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	st := stateFrom(r.Context())
	res := st.Cart.Add(ctx, req)
	if !res.OK {
		handleAPIError(w, res.Err)
		return
	}

	status := http.StatusCreated
	if res.Staged {
		status = http.StatusAccepted
	}
	respondJSON(w, status, cartView(st.Cart, res))
}

// PUT /api/v1/cart/items/{item_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID := chi.URLParam(r, "item_id")
	if itemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	st := stateFrom(r.Context())
	res := st.Cart.UpdateQuantity(ctx, itemID, req.Quantity)
	if !res.OK {
		handleAPIError(w, res.Err)
		return
	}

	respondJSON(w, http.StatusOK, cartView(st.Cart, res))
}

// DELETE /api/v1/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := stateFrom(r.Context())
	res := st.Cart.Remove(ctx, chi.URLParam(r, "item_id"))
	if !res.OK {
		handleAPIError(w, res.Err)
		return
	}

	respondJSON(w, http.StatusOK, cartView(st.Cart, res))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := stateFrom(r.Context())
	res := st.Cart.Clear(ctx)
	if !res.OK {
		handleAPIError(w, res.Err)
		return
	}

	respondJSON(w, http.StatusOK, cartView(st.Cart, res))
}
