package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Scoped binds a Storage to a single session.
type Scoped struct {
	store     Storage
	sessionID string
}

func NewScoped(store Storage, sessionID string) *Scoped {
	return &Scoped{store: store, sessionID: sessionID}
}

func (s *Scoped) SessionID() string {
	return s.sessionID
}

func (s *Scoped) Tokens(ctx context.Context) (domain.TokenPair, error) {
	access, err := s.optional(ctx, KeyAccessToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.optional(ctx, KeyRefreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Scoped) SaveTokens(ctx context.Context, tokens domain.TokenPair) error {
	if err := s.store.Set(ctx, s.sessionID, KeyAccessToken, tokens.AccessToken); err != nil {
		return err
	}
	if tokens.RefreshToken == "" {
		return nil
	}
	return s.store.Set(ctx, s.sessionID, KeyRefreshToken, tokens.RefreshToken)
}

// ClearTokens drops the token pair together with the cached role.
func (s *Scoped) ClearTokens(ctx context.Context) error {
	return s.store.Delete(ctx, s.sessionID, KeyAccessToken, KeyRefreshToken, KeyRole)
}

func (s *Scoped) Role(ctx context.Context) (string, error) {
	return s.optional(ctx, KeyRole)
}

func (s *Scoped) SetRole(ctx context.Context, role string) error {
	return s.store.Set(ctx, s.sessionID, KeyRole, role)
}

func (s *Scoped) ResetToken(ctx context.Context) (string, error) {
	return s.optional(ctx, KeyResetToken)
}

func (s *Scoped) SetResetToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, s.sessionID, KeyResetToken, token)
}

func (s *Scoped) ClearResetToken(ctx context.Context) error {
	return s.store.Delete(ctx, s.sessionID, KeyResetToken)
}

func (s *Scoped) LoadPending(ctx context.Context) ([]domain.PendingCartEntry, error) {
	raw, err := s.optional(ctx, KeyPendingCart)
	if err != nil || raw == "" {
		return nil, err
	}
	var entries []domain.PendingCartEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("unmarshal pending cart failed: %w", err)
	}
	return entries, nil
}

func (s *Scoped) SavePending(ctx context.Context, entries []domain.PendingCartEntry) error {
	if len(entries) == 0 {
		return s.ClearPending(ctx)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal pending cart failed: %w", err)
	}
	return s.store.Set(ctx, s.sessionID, KeyPendingCart, string(data))
}

func (s *Scoped) ClearPending(ctx context.Context) error {
	return s.store.Delete(ctx, s.sessionID, KeyPendingCart)
}

// Destroy removes everything stored for the session.
func (s *Scoped) Destroy(ctx context.Context) error {
	return s.store.Destroy(ctx, s.sessionID)
}

func (s *Scoped) optional(ctx context.Context, key string) (string, error) {
	value, err := s.store.Get(ctx, s.sessionID, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}
