package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

const maxResponseBody = 4 << 20 // 4MB

type BackendConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RefreshPath    string
	MaxFailures    uint32
	BreakerTimeout time.Duration
	Transport      http.RoundTripper
}

// Backend is the process-wide connection to the marketplace REST API.
// Sessions talk to it through their own Client.
type Backend struct {
	baseURL     string
	refreshPath string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[*reply]
	refreshes   singleflight.Group // keyed by session id
	logger      *slog.Logger
}

type reply struct {
	status int
	body   []byte
}

func NewBackend(cfg BackendConfig, logger *slog.Logger) *Backend {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RefreshPath == "" {
		cfg.RefreshPath = "/auth/refresh"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	b := &Backend{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		refreshPath: cfg.RefreshPath,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		logger: logger,
	}

	maxFailures := cfg.MaxFailures
	b.breaker = gobreaker.NewCircuitBreaker[*reply](gobreaker.Settings{
		Name:    "marketplace-api",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return b
}

// NewClient returns a client that authenticates with the tokens held by store.
// Clients of the same session share one refresh in flight.
func (b *Backend) NewClient(store TokenStore) *Client {
	return &Client{
		backend: b,
		tokens:  store,
		now:     time.Now,
	}
}

// send performs one HTTP exchange. 5xx and transport errors count against the breaker.
func (b *Backend) send(ctx context.Context, method, path string, body []byte, token string) (*reply, error) {
	r, err := b.breaker.Execute(func() (*reply, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := b.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &Error{Message: err.Error()}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return nil, &Error{Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
		}

		r := &reply{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			return r, newError(resp.StatusCode, data)
		}
		return r, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.WarnContext(ctx, "backend call rejected by circuit breaker", "method", method, "path", path)
		return nil, &Error{Status: http.StatusServiceUnavailable, Message: ErrBackendUnavailable.Error()}
	}
	if err != nil {
		b.logger.ErrorContext(ctx, "backend call failed", "method", method, "path", path, "error", err)
		return nil, err
	}
	return r, nil
}
