package storage

import (
	"context"
	"errors"
)

// Keys kept per visitor session.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyRole         = "role"
	KeyResetToken   = "reset_token"
	KeyPendingCart  = "pending_cart"
)

var ErrNotFound = errors.New("storage key not found")

// Storage is the server-side replacement for the browser's local storage, partitioned by session id.
type Storage interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
	Destroy(ctx context.Context, sessionID string) error
}
