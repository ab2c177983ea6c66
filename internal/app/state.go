// Package app holds the per-visitor object graph and the registry that owns it.
package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/storage"
)

// State is everything bound to one visitor session.
type State struct {
	ID       string
	Session  *storage.Scoped
	Client   *api.Client
	Services *backend.Services
	Cart     *cart.Store
	Checkout *checkout.Flow

	lastUsed atomic.Int64 // unix nanos
	active   atomic.Int32 // requests in flight
}

// Target is the reconciliation target for this visitor.
func (s *State) Target(ctx context.Context) checkout.Target {
	return checkout.Target{
		SessionID:     s.ID,
		Authenticated: s.Client.Authenticated(ctx),
		Orders:        s.Services.Orders,
		Cart:          s.Services.Cart,
		Pending:       s.Session,
	}
}

func (s *State) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

func (s *State) busy() bool {
	return s.active.Load() > 0
}

func (s *State) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}
