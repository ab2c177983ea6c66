package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CheckoutHandler struct {
	reconciler *checkout.Reconciler
	timeout    time.Duration
	logger     *slog.Logger
}

func NewCheckoutHandler(reconciler *checkout.Reconciler, timeout time.Duration, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		reconciler: reconciler,
		timeout:    timeout,
		logger:     logger,
	}
}

type CheckoutRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	st := stateFrom(r.Context())
	redirect, err := st.Checkout.Submit(ctx, req.ShippingAddress)
	if err != nil {
		h.logger.WarnContext(ctx, "checkout failed", "session_id", st.ID, "error", err, "request_id", getRequestID(r.Context()))
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, redirect)
}

// GET /payment/result
// The gateway redirects here. Only a logged-in visitor's return is reconciled.
func (h *CheckoutHandler) PaymentResult(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := stateFrom(r.Context())
	ret := checkout.ParseReturn(r.URL.Query())
	res := h.reconciler.Handle(ctx, ret, st.Target(ctx))
	if res.LoginRequired {
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "log in to complete your payment",
			Code:    "login_required",
			Details: res,
		})
		return
	}

	if res.Outcome == domain.OutcomeSuccess && !res.Duplicate {
		if err := st.Cart.Load(ctx); err != nil {
			h.logger.WarnContext(ctx, "cart reload after payment failed", "session_id", st.ID, "error", err)
		}
	}

	respondJSON(w, http.StatusOK, res)
}
