package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/idempotency"
	"github.com/fjod/go_cart/storefront/internal/ledger"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	log.Info("storefront starting", "port", cfg.HTTPPort, "storage", cfg.Storage, "api_base_url", cfg.APIBaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session storage
	var (
		sessions    storage.Storage
		redisClient *redis.Client
	)
	switch cfg.Storage {
	case config.StorageRedis:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errPing := redisClient.Ping(pingCtx).Err()
		cancel()
		if errPing != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, errPing)
		}
		sessions = storage.NewRedisStorage(redisClient, cfg.SessionTTL)
		log.Info("connected to redis", "addr", cfg.RedisAddr)
	default:
		sessions = storage.NewMemoryStorage()
		log.Warn("using in-memory session storage, sessions are lost on restart")
	}

	backendAPI := api.NewBackend(api.BackendConfig{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.APITimeout,
		MaxFailures: cfg.BreakerMaxFailures,
	}, log)

	// Processed payment set: durable ledger first, then redis, then process memory
	var (
		processed idempotency.ProcessedSet
		payments  h.PaymentsLedger
		sweepers  []app.Sweeper
	)
	switch {
	case cfg.LedgerDriver != "":
		l, errOpen := ledger.Open(ctx, cfg.LedgerDriver, cfg.LedgerDSN)
		if errOpen != nil {
			return fmt.Errorf("open payment ledger: %w", errOpen)
		}
		defer l.Close()
		processed = l
		payments = l
		log.Info("payment ledger ready", "driver", cfg.LedgerDriver)
	case redisClient != nil:
		processed = idempotency.NewRedis(redisClient, idempotency.DefaultTTL)
	default:
		mem := idempotency.NewMemory(idempotency.DefaultTTL)
		processed = mem
		sweepers = append(sweepers, mem)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(log, cfg.KafkaBrokers...)
		defer kp.Close()
		publisher = kp
		log.Info("publishing payment events", "brokers", cfg.KafkaBrokers, "topic", events.TopicPaymentResults)
	}

	var limiter *h.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = h.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		sweepers = append(sweepers, limiter)
	}

	registry := app.NewRegistry(sessions, backendAPI, app.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		Sweepers:      sweepers,
	}, log)
	defer registry.Close()

	router := h.NewRouter(h.RouterConfig{
		Registry:           registry,
		Reconciler:         checkout.NewReconciler(processed, publisher, log),
		Payments:           payments,
		RateLimiter:        limiter,
		Logger:             log,
		RequestTimeout:     cfg.RequestTimeout,
		SessionTTL:         cfg.SessionTTL,
		CookieSecure:       cfg.CookieSecure,
		CORSOrigins:        cfg.CORSOrigins,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
