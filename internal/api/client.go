package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Client is a session-bound view of the Backend.
// It attaches the session's bearer token and refreshes it at most once at a time.
type Client struct {
	backend *Backend
	tokens  TokenStore
	now     func() time.Time
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Authenticated reports whether the session holds an access token.
func (c *Client) Authenticated(ctx context.Context) bool {
	tokens, err := c.tokens.Tokens(ctx)
	return err == nil && tokens.AccessToken != ""
}

// Do sends a JSON request and decodes a JSON response into out (which may be nil or *json.RawMessage).
// A 401 on an authenticated request triggers one refresh and one replay.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = data
	}

	tokens, err := c.tokens.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	access := tokens.AccessToken
	if access != "" && tokens.RefreshToken != "" && TokenExpired(access, c.now()) {
		if access, err = c.refresh(ctx, access); err != nil {
			return err
		}
	}

	r, err := c.backend.send(ctx, method, path, body, access)
	if err != nil {
		return err
	}

	if r.status == http.StatusUnauthorized && access != "" {
		if access, err = c.refresh(ctx, access); err != nil {
			return err
		}
		if r, err = c.backend.send(ctx, method, path, body, access); err != nil {
			return err
		}
	}

	if r.status >= http.StatusBadRequest {
		return newError(r.status, r.body)
	}
	if out == nil || len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// refresh exchanges the refresh token for a new pair. Concurrent callers share one exchange and
// all receive its result; a caller whose token was already rotated gets the current one directly.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := c.backend.refreshes.Do("refresh:"+c.tokens.SessionID(), func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)

		tokens, err := c.tokens.Tokens(ctx)
		if err != nil {
			return "", fmt.Errorf("load tokens: %w", err)
		}
		if tokens.AccessToken != "" && tokens.AccessToken != stale && !TokenExpired(tokens.AccessToken, c.now()) {
			return tokens.AccessToken, nil
		}
		if tokens.RefreshToken == "" {
			c.dropTokens(ctx)
			return "", ErrSessionExpired
		}

		pair, err := c.exchange(ctx, tokens.RefreshToken)
		if err != nil {
			c.backend.logger.WarnContext(ctx, "token refresh failed", "error", err)
			c.dropTokens(ctx)
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		if pair.RefreshToken == "" {
			pair.RefreshToken = tokens.RefreshToken
		}
		if err := c.tokens.SaveTokens(ctx, pair); err != nil {
			return "", fmt.Errorf("save tokens: %w", err)
		}
		return pair.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) exchange(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return domain.TokenPair{}, err
	}
	r, err := c.backend.send(ctx, http.MethodPost, c.backend.refreshPath, body, "")
	if err != nil {
		return domain.TokenPair{}, err
	}
	if r.status >= http.StatusBadRequest {
		return domain.TokenPair{}, newError(r.status, r.body)
	}
	pair, _, err := DecodeTokens(r.body)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	return pair, nil
}

func (c *Client) dropTokens(ctx context.Context) {
	if err := c.tokens.ClearTokens(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.backend.logger.ErrorContext(ctx, "failed to clear tokens", "error", err)
	}
}
