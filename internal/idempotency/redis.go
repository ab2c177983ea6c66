package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// claimScript sets the key when it is absent or when a success supersedes a recorded non-success.
var claimScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false or (ARGV[1] == ARGV[3] and current ~= ARGV[3]) then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0
`)

// releaseScript deletes the key only while it still holds the given outcome.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Claim(ctx context.Context, key string, outcome domain.PaymentOutcome) (bool, error) {
	keys := []string{processedKey(key)}
	n, err := claimScript.Run(ctx, r.client, keys, outcome.String(), r.ttl.Milliseconds(), domain.OutcomeSuccess.String()).Int()
	if err != nil {
		return false, fmt.Errorf("redis claim failed: %w", err)
	}
	return n == 1, nil
}

func (r *Redis) Release(ctx context.Context, key string, outcome domain.PaymentOutcome) error {
	if err := releaseScript.Run(ctx, r.client, []string{processedKey(key)}, outcome.String()).Err(); err != nil {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}

func processedKey(orderCode string) string {
	return fmt.Sprintf("payment:processed:%s", orderCode)
}
