package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/google/uuid"
)

const (
	// DefaultIdleTTL is how long an unused State stays in memory.
	DefaultIdleTTL = 30 * time.Minute

	DefaultCleanupInterval = time.Minute
)

// Sweeper is periodic housekeeping run from the registry's cleanup loop.
type Sweeper interface {
	Sweep() int
}

type Config struct {
	PublicBaseURL   string
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	Sweepers        []Sweeper
}

// Registry creates States on demand and evicts idle ones.
// Session data itself lives in Storage and outlives eviction.
type Registry struct {
	mu     sync.Mutex
	states map[string]*State

	store   storage.Storage
	backend *api.Backend
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	stopCleanup chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func NewRegistry(store storage.Storage, backendAPI *api.Backend, cfg Config, logger *slog.Logger) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	r := &Registry{
		states:      make(map[string]*State),
		store:       store,
		backend:     backendAPI,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	r.wg.Add(1)
	go r.cleanupLoop()

	return r
}

// Open returns the State for sessionID, building it on first use.
func (r *Registry) Open(sessionID string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked(sessionID)
}

func (r *Registry) openLocked(sessionID string) *State {
	st, ok := r.states[sessionID]
	if !ok {
		st = r.build(sessionID)
		r.states[sessionID] = st
	}
	st.touch(r.now())
	return st
}

// Acquire opens the State for the duration of one request. A State is never evicted
// while a request holds it; release must be called when the request ends.
func (r *Registry) Acquire(sessionID string) (st *State, release func()) {
	r.mu.Lock()
	st = r.openLocked(sessionID)
	st.active.Add(1)
	r.mu.Unlock()

	var once sync.Once
	return st, func() {
		once.Do(func() {
			st.touch(r.now())
			st.active.Add(-1)
		})
	}
}

// Rotate moves the visitor onto a fresh session id, carrying the pending cart across.
// The old session's storage is destroyed and its State forgotten.
func (r *Registry) Rotate(ctx context.Context, old *State) (*State, error) {
	pending, err := old.Session.LoadPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pending cart: %w", err)
	}

	fresh := r.Open(uuid.NewString())
	if len(pending) > 0 {
		if errSave := fresh.Session.SavePending(ctx, pending); errSave != nil {
			r.Forget(fresh.ID)
			return nil, fmt.Errorf("move pending cart: %w", errSave)
		}
	}

	if errDestroy := old.Session.Destroy(ctx); errDestroy != nil {
		r.logger.WarnContext(ctx, "failed to destroy rotated session", "session_id", old.ID, "error", errDestroy)
	}
	r.Forget(old.ID)
	return fresh, nil
}

func (r *Registry) build(sessionID string) *State {
	session := storage.NewScoped(r.store, sessionID)
	client := r.backend.NewClient(session)
	services := backend.NewServices(client)
	logger := r.logger.With("session_id", sessionID)
	cartStore := cart.NewStore(services.Cart, session, client, logger)

	return &State{
		ID:       sessionID,
		Session:  session,
		Client:   client,
		Services: services,
		Cart:     cartStore,
		Checkout: checkout.NewFlow(services.Accounts, services.Orders, cartStore, r.cfg.PublicBaseURL, logger),
	}
}

// Forget drops the in-memory State, e.g. after logout.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	delete(r.states, sessionID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *Registry) cleanupLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stopCleanup:
			return
		}
	}
}

func (r *Registry) cleanup() {
	if n := r.evictIdle(); n > 0 {
		r.logger.Debug("evicted idle sessions", "count", n)
	}
	for _, s := range r.cfg.Sweepers {
		if n := s.Sweep(); n > 0 {
			r.logger.Debug("swept expired entries", "count", n)
		}
	}
}

func (r *Registry) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for id, st := range r.states {
		if !st.busy() && st.idleSince(now) >= r.cfg.IdleTTL {
			delete(r.states, id)
			evicted++
		}
	}
	return evicted
}

// Close stops the cleanup loop and drops every State.
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		close(r.stopCleanup)
		r.wg.Wait()

		r.mu.Lock()
		r.states = make(map[string]*State)
		r.mu.Unlock()
	})
	return nil
}
