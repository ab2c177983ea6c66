package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisStorage on top of it
func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStorage(client, 30*time.Minute)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisGet_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.HSet(sessionKey("s1"), KeyRole, "admin")

	value, err := store.Get(context.Background(), "s1", KeyRole)
	require.NoError(t, err)
	assert.Equal(t, "admin", value)
}

func TestRedisGet_Missing(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "nobody", KeyRole)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSet_WithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	err := store.Set(context.Background(), "s2", KeyAccessToken, "token")
	require.NoError(t, err)

	assert.Equal(t, "token", mr.HGet(sessionKey("s2"), KeyAccessToken))
	ttl := mr.TTL(sessionKey("s2"))
	assert.True(t, ttl >= 30*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 35*time.Minute, "TTL should be base + max jitter")
}

func TestRedisDelete_Keys(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s3", KeyAccessToken, "a"))
	require.NoError(t, store.Set(ctx, "s3", KeyRole, "customer"))

	require.NoError(t, store.Delete(ctx, "s3", KeyAccessToken))

	assert.Equal(t, "", mr.HGet(sessionKey("s3"), KeyAccessToken))
	assert.Equal(t, "customer", mr.HGet(sessionKey("s3"), KeyRole))
}

func TestRedisDestroy(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s4", KeyRole, "customer"))
	require.NoError(t, store.Destroy(ctx, "s4"))

	assert.False(t, mr.Exists(sessionKey("s4")))
}

func TestSessionKey_Format(t *testing.T) {
	assert.Equal(t, "session:abc", sessionKey("abc"))
}
