package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// TokenStore holds the tokens of one session. SessionID keys refresh coordination.
type TokenStore interface {
	SessionID() string
	Tokens(ctx context.Context) (domain.TokenPair, error)
	SaveTokens(ctx context.Context, tokens domain.TokenPair) error
	ClearTokens(ctx context.Context) error
}

var ErrNoTokens = errors.New("response carries no access token")

// Claims are the fields the storefront reads from an access token.
// Signatures are verified by the backend, never here.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims reads the claims of a JWT without verifying it.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenExpired reports whether token is a JWT whose exp is at or before now.
// Opaque tokens are treated as live; the backend answers 401 for them.
func TokenExpired(token string, now time.Time) bool {
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// DecodeTokens extracts a token pair from an auth response.
// Both camelCase and snake_case field names are accepted, optionally nested under "data".
func DecodeTokens(body []byte) (domain.TokenPair, string, error) {
	type payload struct {
		AccessToken       string `json:"accessToken"`
		AccessTokenSnake  string `json:"access_token"`
		Token             string `json:"token"`
		RefreshToken      string `json:"refreshToken"`
		RefreshTokenSnake string `json:"refresh_token"`
		Role              string `json:"role"`
	}
	var envelope struct {
		payload
		Data *payload `json:"data"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(body), &envelope); err != nil {
		return domain.TokenPair{}, "", err
	}

	p := envelope.payload
	if envelope.Data != nil {
		p = *envelope.Data
	}
	pair := domain.TokenPair{
		AccessToken:  firstNonEmpty(p.AccessToken, p.AccessTokenSnake, p.Token),
		RefreshToken: firstNonEmpty(p.RefreshToken, p.RefreshTokenSnake),
	}
	if pair.AccessToken == "" {
		return domain.TokenPair{}, "", ErrNoTokens
	}
	role := p.Role
	if role == "" {
		if claims, err := ParseClaims(pair.AccessToken); err == nil {
			role = claims.Role
		}
	}
	return pair, role, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
