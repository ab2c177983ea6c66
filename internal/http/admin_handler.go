package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/ledger"
	"github.com/go-chi/chi/v5"
)

// PaymentsLedger is the read side of the reconciliation ledger.
type PaymentsLedger interface {
	List(ctx context.Context, limit int) ([]ledger.Record, error)
}

type AdminHandler struct {
	payments PaymentsLedger
	timeout  time.Duration
}

func NewAdminHandler(payments PaymentsLedger, timeout time.Duration) *AdminHandler {
	return &AdminHandler{payments: payments, timeout: timeout}
}

type UpdateRoleRequestDTO struct {
	Role string `json:"role"`
}

// GET /api/v1/admin/orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := stateFrom(r.Context()).Services.Orders.AdminList(ctx)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/admin/accounts
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	accounts, err := stateFrom(r.Context()).Services.Accounts.AdminList(ctx)
	if err != nil {
		handleAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

// PUT /api/v1/admin/accounts/{account_id}/role
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	accountID, err := strconv.ParseInt(chi.URLParam(r, "account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_account_id", "account_id must be a positive integer")
		return
	}

	var req UpdateRoleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		respondError(w, http.StatusBadRequest, "invalid_role", "role is required")
		return
	}

	if err := stateFrom(r.Context()).Services.Accounts.UpdateRole(ctx, accountID, role); err != nil {
		handleAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/admin/payments
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.payments == nil {
		respondError(w, http.StatusServiceUnavailable, "ledger_disabled", "payment ledger is not configured")
		return
	}

	records, err := h.payments.List(ctx, positiveInt(r.URL.Query().Get("limit")))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, records)
}
