package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *Ledger {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	l, err := Open(ctx, DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestPostgres_ClaimGetList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	l := setupPostgres(t)
	ctx := context.Background()

	ok, err := l.Claim(ctx, "A1", domain.OutcomeCancelled)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Claim(ctx, "A1", domain.OutcomeFailed)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.True(t, ok, "success replaces the recorded cancellation")

	ok, err = l.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err := l.Get(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, rec.Outcome)

	require.NoError(t, l.Release(ctx, "A1", domain.OutcomeSuccess))
	_, err = l.Get(ctx, "A1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Claim(ctx, "A1", domain.OutcomeSuccess)
	require.NoError(t, err)

	list, err := l.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
