package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestMemory_ClaimOnce(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	first, err := m.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)
	second, err := m.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)
	other, err := m.Claim(ctx, "B2", domain.OutcomeFailed)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, other)
}

func TestMemory_ExpiredKeyCanBeClaimedAgain(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := m.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = m.Claim(ctx, "A1", domain.OutcomeSuccess)
	assert.True(t, ok)
}

func TestMemory_Sweep(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Claim(ctx, "old", domain.OutcomeSuccess)
	now = now.Add(30 * time.Second)
	m.Claim(ctx, "new", domain.OutcomeSuccess)
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestMemory_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	m := NewMemory(time.Hour)
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.Claim(context.Background(), "A1", domain.OutcomeSuccess); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRedis_ClaimOnce(t *testing.T) {
	mr, client := setupTestRedis(t)
	set := NewRedis(client, time.Hour)
	ctx := context.Background()

	first, err := set.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)
	second, err := set.Claim(ctx, "A1", domain.OutcomeCancelled)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	stored, err := mr.Get("payment:processed:A1")
	require.NoError(t, err)
	assert.Equal(t, "success", stored)
	assert.Equal(t, time.Hour, mr.TTL("payment:processed:A1"))
}

func TestRedis_ExpiryReleasesKey(t *testing.T) {
	mr, client := setupTestRedis(t)
	set := NewRedis(client, time.Minute)
	ctx := context.Background()

	ok, err := set.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = set.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_ConnectionError(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	_, err := NewRedis(client, time.Minute).Claim(context.Background(), "A1", domain.OutcomeSuccess)
	assert.Error(t, err)
}

func TestClaim_SuccessSupersedesEarlierNonSuccess(t *testing.T) {
	_, client := setupTestRedis(t)
	sets := map[string]ProcessedSet{
		"memory": NewMemory(time.Hour),
		"redis":  NewRedis(client, time.Hour),
	}

	for name, set := range sets {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := set.Claim(ctx, "A1", domain.OutcomeFailed)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = set.Claim(ctx, "A1", domain.OutcomeCancelled)
			require.NoError(t, err)
			assert.False(t, ok, "a non-success never replaces a recorded outcome")

			ok, err = set.Claim(ctx, "A1", domain.OutcomeSuccess)
			require.NoError(t, err)
			assert.True(t, ok, "success replaces a recorded failure")

			ok, err = set.Claim(ctx, "A1", domain.OutcomeSuccess)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = set.Claim(ctx, "A1", domain.OutcomeFailed)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRelease_AllowsRetry(t *testing.T) {
	_, client := setupTestRedis(t)
	sets := map[string]ProcessedSet{
		"memory": NewMemory(time.Hour),
		"redis":  NewRedis(client, time.Hour),
	}

	for name, set := range sets {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := set.Claim(ctx, "R1", domain.OutcomeSuccess)
			require.NoError(t, err)
			require.True(t, ok)

			// a release for another outcome leaves the claim in place
			require.NoError(t, set.Release(ctx, "R1", domain.OutcomeFailed))
			ok, err = set.Claim(ctx, "R1", domain.OutcomeSuccess)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, set.Release(ctx, "R1", domain.OutcomeSuccess))
			ok, err = set.Claim(ctx, "R1", domain.OutcomeSuccess)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestRedis_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	_, client := setupTestRedis(t)
	set := NewRedis(client, time.Hour)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := set.Claim(context.Background(), "A1", domain.OutcomeSuccess); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

var (
	_ ProcessedSet = (*Memory)(nil)
	_ ProcessedSet = (*Redis)(nil)
)
