package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/idempotency"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type marketItem struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// fakeMarketplace is a minimal marketplace REST API for one shopper.
type fakeMarketplace struct {
	mu            sync.Mutex
	items         map[int64]*marketItem
	nextID        int64
	role          string
	statusUpdates []string
	commissions   []string
	clears        int
	checkouts     int
	paymentURL    string
}

func newFakeMarketplace() *fakeMarketplace {
	return &fakeMarketplace{
		items:      map[int64]*marketItem{},
		nextID:     100,
		role:       "customer",
		paymentURL: "https://pay.example/A1",
	}
}

func (m *fakeMarketplace) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer access-1"
}

func (m *fakeMarketplace) routes() http.Handler {
	r := chi.NewRouter()
	write := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if !m.authorized(r) {
				write(w, http.StatusUnauthorized, map[string]string{"message": "unauthorized"})
				return
			}
			next(w, r)
		}
	}

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			write(w, http.StatusUnauthorized, map[string]string{"message": "invalid email or password"})
			return
		}
		write(w, http.StatusOK, map[string]string{"accessToken": "access-1", "refreshToken": "refresh-1"})
	})
	r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/accounts/me", auth(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		write(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 7, "email": "a@b.c", "role": m.role}})
	}))
	r.Get("/products", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{"items": []map[string]any{{"id": 1, "name": "Clay cup", "price": 120000}}})
	})
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusNotFound, map[string]string{"message": "product not found"})
	})

	r.Get("/cart", auth(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		rows := make([]marketItem, 0, len(m.items))
		for id := int64(101); id <= m.nextID; id++ {
			if it, ok := m.items[id]; ok {
				rows = append(rows, *it)
			}
		}
		write(w, http.StatusOK, map[string]any{"data": map[string]any{"items": rows}})
	}))
	r.Post("/cart/items", auth(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ProductID int64 `json:"productId"`
			Quantity  int   `json:"quantity"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, it := range m.items {
			if it.ProductID == body.ProductID {
				it.Quantity += body.Quantity
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		m.nextID++
		m.items[m.nextID] = &marketItem{ID: m.nextID, ProductID: body.ProductID, Quantity: body.Quantity, Price: 50000}
		w.WriteHeader(http.StatusCreated)
	}))
	r.Delete("/cart", auth(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.clears++
		m.items = map[int64]*marketItem{}
		w.WriteHeader(http.StatusNoContent)
	}))
	r.Delete("/cart/items/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.items, id)
		w.WriteHeader(http.StatusNoContent)
	}))

	r.Post("/orders/checkout", auth(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.checkouts++
		write(w, http.StatusCreated, map[string]string{"orderCode": "A1", "paymentUrl": m.paymentURL})
	}))
	r.Put("/orders/{code}/status", auth(func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Status string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		m.mu.Lock()
		defer m.mu.Unlock()
		m.statusUpdates = append(m.statusUpdates, chi.URLParam(r, "code")+":"+body.Status)
		w.WriteHeader(http.StatusNoContent)
	}))
	r.Post("/orders/{code}/commission", auth(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.commissions = append(m.commissions, chi.URLParam(r, "code"))
		w.WriteHeader(http.StatusNoContent)
	}))
	r.Get("/admin/orders", auth(func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, []map[string]any{{"orderCode": "A1", "status": "PAID"}})
	}))
	return r
}

type storefront struct {
	server *httptest.Server
	client *http.Client
	market *fakeMarketplace
}

func setupStorefront(t *testing.T, payments PaymentsLedger) *storefront {
	t.Helper()
	market := newFakeMarketplace()
	upstream := httptest.NewServer(market.routes())
	t.Cleanup(upstream.Close)

	backendAPI := api.NewBackend(api.BackendConfig{BaseURL: upstream.URL, Timeout: 5 * time.Second}, logger.Discard())
	registry := app.NewRegistry(storage.NewMemoryStorage(), backendAPI, app.Config{PublicBaseURL: "https://shop.example"}, logger.Discard())
	t.Cleanup(func() { registry.Close() })

	router := NewRouter(RouterConfig{
		Registry:           registry,
		Reconciler:         checkout.NewReconciler(idempotency.NewMemory(time.Hour), nil, logger.Discard()),
		Payments:           payments,
		Logger:             logger.Discard(),
		RequestTimeout:     5 * time.Second,
		SessionTTL:         time.Hour,
		MaxRequestBodySize: 1 << 20,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &storefront{server: server, client: &http.Client{Jar: jar}, market: market}
}

func (s *storefront) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out), fmt.Sprintf("%s %s", method, path))
	}
	return resp.StatusCode
}

func (s *storefront) login(t *testing.T) {
	t.Helper()
	status := s.do(t, http.MethodPost, "/api/v1/auth/login", `{"email":"a@b.c","password":"secret"}`, nil)
	require.Equal(t, http.StatusOK, status)
}

// visitor returns a second browser against the same storefront, with its own cookie jar.
func (s *storefront) visitor(t *testing.T) *storefront {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &storefront{server: s.server, client: &http.Client{Jar: jar}, market: s.market}
}

func (s *storefront) sessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(s.server.URL)
	require.NoError(t, err)
	for _, c := range s.client.Jar.Cookies(u) {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	return ""
}
