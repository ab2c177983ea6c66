package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleAPIError converts a backend or domain error into the JSON error envelope.
func handleAPIError(w http.ResponseWriter, err error) {
	var (
		validation *checkout.ValidationError
		apiErr     *api.Error
	)

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "shipping address is incomplete",
			Code:    "validation_failed",
			Details: validation.Fields,
		})
		return
	case errors.Is(err, api.ErrSessionExpired):
		respondError(w, http.StatusUnauthorized, "session_expired", api.ErrSessionExpired.Error())
		return
	case errors.Is(err, checkout.ErrNothingToPurchase):
		respondError(w, http.StatusUnprocessableEntity, "nothing_to_purchase", err.Error())
		return
	case errors.Is(err, checkout.ErrMissingPaymentURL):
		respondError(w, http.StatusBadGateway, "missing_payment_url", "payment could not be started, please try again")
		return
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	case errors.Is(err, cart.ErrUnknownItem):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
		return
	case !errors.As(err, &apiErr):
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	var (
		httpStatus int
		code       string
	)
	switch apiErr.Status {
	case 0:
		httpStatus = http.StatusBadGateway
		code = "upstream_unreachable"
	case http.StatusBadRequest:
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case http.StatusUnauthorized:
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case http.StatusForbidden:
		httpStatus = http.StatusForbidden
		code = "permission_denied"
	case http.StatusNotFound:
		httpStatus = http.StatusNotFound
		code = "not_found"
	case http.StatusConflict:
		httpStatus = http.StatusConflict
		code = "conflict"
	case http.StatusUnprocessableEntity:
		httpStatus = http.StatusUnprocessableEntity
		code = "validation_failed"
	case http.StatusTooManyRequests:
		httpStatus = http.StatusTooManyRequests
		code = "rate_limit_exceeded"
	case http.StatusServiceUnavailable:
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	default:
		if apiErr.Status >= http.StatusInternalServerError {
			httpStatus = http.StatusBadGateway
			code = "upstream_error"
		} else {
			httpStatus = apiErr.Status
			code = "request_failed"
		}
	}

	resp := ErrorResponse{Error: apiErr.Message, Code: code}
	if len(apiErr.Data) > 0 {
		resp.Details = apiErr.Data
	}
	respondJSON(w, httpStatus, resp)
}
