// Package idempotency records which payment returns have already been reconciled.
package idempotency

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const DefaultTTL = 24 * time.Hour

// ProcessedSet claims keys exactly once per outcome class.
// Claim reports true for the first caller of a key, and for a success arriving after a
// recorded non-success (see PaymentOutcome.Supersedes). Release drops a claim still held
// with outcome so a later return can act again.
type ProcessedSet interface {
	Claim(ctx context.Context, key string, outcome domain.PaymentOutcome) (bool, error)
	Release(ctx context.Context, key string, outcome domain.PaymentOutcome) error
}
