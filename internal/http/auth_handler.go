package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/backend"
)

type AuthHandler struct {
	registry     *app.Registry
	sessionTTL   time.Duration
	cookieSecure bool
	timeout      time.Duration
	logger       *slog.Logger
}

func NewAuthHandler(registry *app.Registry, sessionTTL time.Duration, cookieSecure bool, timeout time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		registry:     registry,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
		timeout:      timeout,
		logger:       logger,
	}
}

type LoginResponseDTO struct {
	Authenticated bool   `json:"authenticated"`
	Role          string `json:"role,omitempty"`
	CartMessage   string `json:"cart_message,omitempty"`
}

type ForgotPasswordRequestDTO struct {
	Email string `json:"email"`
}

type ResetPasswordRequestDTO struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type MessageResponseDTO struct {
	Message string `json:"message"`
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req backend.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_credentials", "email and password are required")
		return
	}

	st := stateFrom(r.Context())
	tokens, role, err := st.Services.Auth.Login(ctx, req)
	if err != nil {
		handleAPIError(w, err)
		return
	}

	// a logged-in visitor never keeps the id they browsed with anonymously
	fresh, err := h.registry.Rotate(ctx, st)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to rotate session", "session_id", st.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	setSessionCookie(w, fresh.ID, h.sessionTTL, h.cookieSecure)
	st = fresh
	if err := st.Session.SaveTokens(ctx, tokens); err != nil {
		h.logger.ErrorContext(ctx, "failed to store tokens", "session_id", st.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if role == "" {
		if account, errMe := st.Services.Accounts.Me(ctx); errMe == nil {
			role = account.Role
		} else {
			h.logger.WarnContext(ctx, "account lookup after login failed", "session_id", st.ID, "error", errMe)
		}
	}
	if role != "" {
		if err := st.Session.SetRole(ctx, role); err != nil {
			h.logger.WarnContext(ctx, "failed to store role", "session_id", st.ID, "error", err)
		}
	}

	resp := LoginResponseDTO{Authenticated: true, Role: role}
	if err := st.Cart.PromotePending(ctx); err != nil {
		h.logger.WarnContext(ctx, "pending cart promotion incomplete", "session_id", st.ID, "error", err)
		resp.CartMessage = "some items could not be added to your cart"
	}

	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req backend.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" || strings.TrimSpace(req.FullName) == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "email, password and full name are required")
		return
	}

	st := stateFrom(r.Context())
	if err := st.Services.Auth.Register(ctx, req); err != nil {
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, MessageResponseDTO{Message: "account created"})
}

// POST /api/v1/auth/logout
// Always succeeds locally; the upstream revoke is best-effort.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := stateFrom(r.Context())
	if tokens, err := st.Session.Tokens(ctx); err == nil && tokens.RefreshToken != "" {
		if errLogout := st.Services.Auth.Logout(ctx, tokens.RefreshToken); errLogout != nil {
			h.logger.WarnContext(ctx, "upstream logout failed", "session_id", st.ID, "error", errLogout)
		}
	}
	if err := st.Session.Destroy(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to destroy session", "session_id", st.ID, "error", err)
	}
	h.registry.Forget(st.ID)
	clearSessionCookie(w, h.cookieSecure)

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ForgotPasswordRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "email is required")
		return
	}

	st := stateFrom(r.Context())
	token, err := st.Services.Auth.ForgotPassword(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		handleAPIError(w, err)
		return
	}
	if token != "" {
		if err := st.Session.SetResetToken(ctx, token); err != nil {
			h.logger.WarnContext(ctx, "failed to store reset token", "session_id", st.ID, "error", err)
		}
	}

	respondJSON(w, http.StatusAccepted, MessageResponseDTO{Message: "if the account exists, reset instructions were sent"})
}

// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ResetPasswordRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_argument", "password is required")
		return
	}

	st := stateFrom(r.Context())
	token := strings.TrimSpace(req.Token)
	if token == "" {
		stored, err := st.Session.ResetToken(ctx)
		if err != nil {
			handleAPIError(w, err)
			return
		}
		token = stored
	}
	if token == "" {
		respondError(w, http.StatusBadRequest, "missing_reset_token", "reset token is required")
		return
	}

	if err := st.Services.Auth.ResetPassword(ctx, token, req.Password); err != nil {
		handleAPIError(w, err)
		return
	}
	if err := st.Session.ClearResetToken(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to clear reset token", "session_id", st.ID, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
