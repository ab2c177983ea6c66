package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

const authPath = "/auth"

type AuthAPI struct {
	c Caller
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
}

// Login returns the issued token pair and the role, read from the body or the access token claims.
func (a *AuthAPI) Login(ctx context.Context, creds Credentials) (domain.TokenPair, string, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodPost, authPath+"/login", creds, &raw); err != nil {
		return domain.TokenPair{}, "", err
	}
	return api.DecodeTokens(raw)
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) error {
	return a.c.Do(ctx, http.MethodPost, authPath+"/register", req, nil)
}

func (a *AuthAPI) Logout(ctx context.Context, refreshToken string) error {
	return a.c.Do(ctx, http.MethodPost, authPath+"/logout", map[string]string{"refreshToken": refreshToken}, nil)
}

type resetTokenResponse struct {
	Token      string `json:"token"`
	ResetToken string `json:"resetToken"`
}

// ForgotPassword requests a reset. Some deployments echo the reset token back; it is returned when present.
func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (string, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodPost, authPath+"/forgot-password", map[string]string{"email": email}, &raw); err != nil {
		return "", err
	}
	var resp resetTokenResponse
	if len(raw) == 0 || DecodeObject(raw, &resp) != nil {
		return "", nil
	}
	if resp.ResetToken != "" {
		return resp.ResetToken, nil
	}
	return resp.Token, nil
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (a *AuthAPI) ResetPassword(ctx context.Context, token, password string) error {
	return a.c.Do(ctx, http.MethodPost, authPath+"/reset-password", resetPasswordRequest{Token: token, NewPassword: password}, nil)
}
