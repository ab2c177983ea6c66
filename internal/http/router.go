package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	Registry           *app.Registry
	Reconciler         *checkout.Reconciler
	Payments           PaymentsLedger
	RateLimiter        *RateLimiter
	Logger             *slog.Logger
	RequestTimeout     time.Duration
	SessionTTL         time.Duration
	CookieSecure       bool
	CORSOrigins        []string
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	cartHandler := NewCartHandler(cfg.RequestTimeout, cfg.Logger)
	checkoutHandler := NewCheckoutHandler(cfg.Reconciler, cfg.RequestTimeout, cfg.Logger)
	authHandler := NewAuthHandler(cfg.Registry, cfg.SessionTTL, cfg.CookieSecure, cfg.RequestTimeout, cfg.Logger)
	productHandler := NewProductHandler(cfg.RequestTimeout)
	ordersHandler := NewOrdersHandler(cfg.RequestTimeout)
	forumHandler := NewForumHandler(cfg.RequestTimeout)
	adminHandler := NewAdminHandler(cfg.Payments, cfg.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           600,
		}))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Registry, cfg.SessionTTL, cfg.CookieSecure))

		r.Get("/payment/result", checkoutHandler.PaymentResult)

		r.Route("/api/v1", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", authHandler.Login)
				r.Post("/register", authHandler.Register)
				r.Post("/logout", authHandler.Logout)
				r.Post("/forgot-password", authHandler.ForgotPassword)
				r.Post("/reset-password", authHandler.ResetPassword)
			})

			r.Get("/products", productHandler.ListProducts)
			r.Get("/products/{id}", productHandler.GetProduct)
			r.Get("/categories", productHandler.ListCategories)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{item_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{item_id}", cartHandler.RemoveItem)
			})

			r.Route("/forum/threads", func(r chi.Router) {
				r.Get("/", forumHandler.ListThreads)
				r.Get("/{thread_id}", forumHandler.GetThread)
				r.Get("/{thread_id}/posts", forumHandler.ListPosts)
				r.With(RequireAuth).Post("/", forumHandler.CreateThread)
				r.With(RequireAuth).Post("/{thread_id}/posts", forumHandler.CreatePost)
			})

			r.Group(func(r chi.Router) {
				r.Use(RequireAuth)
				r.Post("/checkout", checkoutHandler.InitiateCheckout)
				r.Get("/orders", ordersHandler.ListOrders)
				r.Get("/orders/{order_code}", ordersHandler.GetOrder)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAuth)
				r.Use(RequireRole(domain.RoleAdmin))
				r.Get("/orders", adminHandler.ListOrders)
				r.Get("/accounts", adminHandler.ListAccounts)
				r.Put("/accounts/{account_id}/role", adminHandler.UpdateRole)
				r.Get("/payments", adminHandler.ListPayments)
			})
		})
	})

	return r
}
