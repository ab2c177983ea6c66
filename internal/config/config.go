// Package config reads storefront settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	HTTPPort           string
	APIBaseURL         string
	APITimeout         time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	Storage       string
	RedisAddr     string
	RedisPassword string
	SessionTTL    time.Duration

	LedgerDriver string
	LedgerDSN    string
	KafkaBrokers []string

	PublicBaseURL  string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	LogLevel       string

	BreakerMaxFailures uint32
	CookieSecure       bool
}

// Load reads the environment. A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		APIBaseURL:         getEnv("API_BASE_URL", "http://localhost:8081/api"),
		APITimeout:         getDuration("API_TIMEOUT", 15*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB
		Storage:            strings.ToLower(getEnv("STORAGE", StorageRedis)),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		SessionTTL:         getDuration("SESSION_TTL", 24*time.Hour),
		LedgerDriver:       getEnv("LEDGER_DRIVER", ""),
		LedgerDSN:          getEnv("LEDGER_DSN", ""),
		KafkaBrokers:       getList("KAFKA_BROKERS"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		CORSOrigins:        getList("CORS_ORIGINS"),
		RateLimitRPS:       getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 20),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		BreakerMaxFailures: uint32(getInt("BREAKER_MAX_FAILURES", 5)),
		CookieSecure:       getBool("COOKIE_SECURE", false),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.Storage != StorageRedis && c.Storage != StorageMemory {
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageRedis, StorageMemory, c.Storage)
	}
	if (c.LedgerDriver == "") != (c.LedgerDSN == "") {
		return errors.New("LEDGER_DRIVER and LEDGER_DSN must be set together")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
