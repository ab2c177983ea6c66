// Package cart keeps one visitor's cart snapshot in step with the marketplace cart.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product id must be positive")
	ErrUnknownItem     = errors.New("cart item not found")
)

// Backend is the slice of the cart endpoints the store needs.
type Backend interface {
	GetCart(ctx context.Context) (json.RawMessage, error)
	AddItem(ctx context.Context, productID int64, quantity int) error
	UpdateItem(ctx context.Context, itemID int64, quantity int) error
	RemoveItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

// PendingStore persists items added while the visitor is anonymous.
type PendingStore interface {
	LoadPending(ctx context.Context) ([]domain.PendingCartEntry, error)
	SavePending(ctx context.Context, entries []domain.PendingCartEntry) error
	ClearPending(ctx context.Context) error
}

type Session interface {
	Authenticated(ctx context.Context) bool
}

type AddInput struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// Result reports a mutation outcome as data; failures never surface as panics.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Staged  bool   `json:"staged,omitempty"`
	Err     error  `json:"-"`
}

func failed(err error) Result {
	return Result{Message: messageOf(err), Err: err}
}

type Store struct {
	api     Backend
	pending PendingStore
	session Session
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex // guards items and lastErr
	items   []domain.CartItem
	lastErr string

	pendingMu sync.Mutex // serializes read-modify-write of pending entries
}

func NewStore(api Backend, pending PendingStore, session Session, logger *slog.Logger) *Store {
	return &Store{
		api:     api,
		pending: pending,
		session: session,
		logger:  logger,
		now:     time.Now,
		items:   []domain.CartItem{},
	}
}

// Load replaces the snapshot with the server cart, or with pending entries for anonymous visitors.
// On failure the snapshot is emptied and the message kept for LastError.
func (s *Store) Load(ctx context.Context) error {
	var (
		items []domain.CartItem
		err   error
	)
	if s.session.Authenticated(ctx) {
		items, err = s.fetchServer(ctx)
	} else {
		items, err = s.fetchPending(ctx)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "cart load failed", "error", err)
		s.replace([]domain.CartItem{}, messageOf(err))
		return err
	}
	s.replace(items, "")
	return nil
}

func (s *Store) fetchServer(ctx context.Context) ([]domain.CartItem, error) {
	raw, errGet := s.api.GetCart(ctx)
	if errGet != nil {
		return nil, errGet
	}
	items, shape, errDecode := backend.DecodeCartItems(raw)
	if errDecode != nil {
		return nil, fmt.Errorf("decode cart (%s): %w", shape, errDecode)
	}
	return items, nil
}

func (s *Store) fetchPending(ctx context.Context) ([]domain.CartItem, error) {
	entries, err := s.pending.LoadPending(ctx)
	if err != nil {
		return nil, err
	}
	return entriesToItems(entries), nil
}

// Add forwards to the server and reloads, or stages the item locally when the visitor is anonymous.
func (s *Store) Add(ctx context.Context, in AddInput) Result {
	if in.Quantity < 1 {
		return failed(ErrInvalidQuantity)
	}
	if in.ProductID <= 0 {
		return failed(ErrInvalidProduct)
	}

	if !s.session.Authenticated(ctx) {
		if err := s.stage(ctx, in); err != nil {
			s.logger.WarnContext(ctx, "stage cart item failed", "product_id", in.ProductID, "error", err)
			return failed(err)
		}
		return Result{OK: true, Staged: true}
	}

	if errAdd := s.api.AddItem(ctx, in.ProductID, in.Quantity); errAdd != nil {
		s.logger.WarnContext(ctx, "add cart item failed", "product_id", in.ProductID, "error", errAdd)
		return failed(errAdd)
	}
	return s.reload(ctx)
}

func (s *Store) stage(ctx context.Context, in AddInput) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	entries, err := s.pending.LoadPending(ctx)
	if err != nil {
		return err
	}

	merged := false
	for i := range entries {
		if entries[i].ProductID == in.ProductID {
			entries[i].Quantity += in.Quantity
			merged = true
			break
		}
	}
	if !merged {
		entries = append(entries, domain.PendingCartEntry{
			CartItem: domain.CartItem{
				ID:        domain.NewTemporaryID(),
				ProductID: in.ProductID,
				UnitPrice: in.UnitPrice,
				Quantity:  in.Quantity,
				Name:      in.Name,
				Image:     in.Image,
				Category:  in.Category,
			},
			AddedAt: s.now(),
		})
	}

	if err := s.pending.SavePending(ctx, entries); err != nil {
		return err
	}
	s.replace(entriesToItems(entries), "")
	return nil
}

// UpdateQuantity sets an item's quantity; anything below one removes the item.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) Result {
	if quantity < 1 {
		return s.Remove(ctx, itemID)
	}

	item := domain.CartItem{ID: itemID}
	if item.IsTemporary() {
		return s.editPending(ctx, itemID, func(e *domain.PendingCartEntry) bool {
			e.Quantity = quantity
			return true
		})
	}
	id, ok := item.NumericID()
	if !ok {
		return failed(ErrUnknownItem)
	}
	if errUpdate := s.api.UpdateItem(ctx, id, quantity); errUpdate != nil {
		s.logger.WarnContext(ctx, "update cart item failed", "item_id", itemID, "error", errUpdate)
		return failed(errUpdate)
	}
	return s.reload(ctx)
}

func (s *Store) Remove(ctx context.Context, itemID string) Result {
	item := domain.CartItem{ID: itemID}
	if item.IsTemporary() {
		return s.editPending(ctx, itemID, func(*domain.PendingCartEntry) bool { return false })
	}
	id, ok := item.NumericID()
	if !ok {
		return failed(ErrUnknownItem)
	}
	if errRemove := s.api.RemoveItem(ctx, id); errRemove != nil {
		s.logger.WarnContext(ctx, "remove cart item failed", "item_id", itemID, "error", errRemove)
		return failed(errRemove)
	}
	return s.reload(ctx)
}

// editPending applies fn to the pending entry with itemID; fn returning false drops the entry.
func (s *Store) editPending(ctx context.Context, itemID string, fn func(*domain.PendingCartEntry) bool) Result {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	entries, err := s.pending.LoadPending(ctx)
	if err != nil {
		return failed(err)
	}

	found := false
	kept := entries[:0]
	for i := range entries {
		if entries[i].ID != itemID {
			kept = append(kept, entries[i])
			continue
		}
		found = true
		if fn(&entries[i]) {
			kept = append(kept, entries[i])
		}
	}
	if !found {
		return failed(ErrUnknownItem)
	}
	if err := s.pending.SavePending(ctx, kept); err != nil {
		return failed(err)
	}
	s.replace(entriesToItems(kept), "")
	return Result{OK: true, Staged: true}
}

// Clear empties the cart with the bulk endpoint only.
func (s *Store) Clear(ctx context.Context) Result {
	if !s.session.Authenticated(ctx) {
		s.pendingMu.Lock()
		err := s.pending.ClearPending(ctx)
		s.pendingMu.Unlock()
		if err != nil {
			return failed(err)
		}
		s.replace([]domain.CartItem{}, "")
		return Result{OK: true, Staged: true}
	}

	if errClear := s.api.ClearCart(ctx); errClear != nil {
		s.logger.WarnContext(ctx, "clear cart failed", "error", errClear)
		return failed(errClear)
	}
	return s.reload(ctx)
}

// PromotePending pushes every staged entry to the server cart after login.
// Entries the server rejects stay pending; the rest are dropped from session storage.
func (s *Store) PromotePending(ctx context.Context) error {
	s.pendingMu.Lock()
	entries, err := s.pending.LoadPending(ctx)
	if err != nil {
		s.pendingMu.Unlock()
		return err
	}

	var (
		remaining []domain.PendingCartEntry
		errs      []error
	)
	for _, e := range entries {
		if errAdd := s.api.AddItem(ctx, e.ProductID, e.Quantity); errAdd != nil {
			s.logger.WarnContext(ctx, "promote pending item failed", "product_id", e.ProductID, "error", errAdd)
			remaining = append(remaining, e)
			errs = append(errs, fmt.Errorf("product %d: %w", e.ProductID, errAdd))
		}
	}
	errSave := s.pending.SavePending(ctx, remaining)
	s.pendingMu.Unlock()

	if errSave != nil {
		errs = append(errs, errSave)
	}
	if errLoad := s.Load(ctx); errLoad != nil {
		errs = append(errs, errLoad)
	}
	return errors.Join(errs...)
}

func (s *Store) reload(ctx context.Context) Result {
	if err := s.Load(ctx); err != nil {
		return failed(err)
	}
	return Result{OK: true}
}

// Items returns a copy of the current snapshot.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Unacknowledged lists items the server has not assigned an id to yet.
func (s *Store) Unacknowledged(ctx context.Context) ([]domain.CartItem, error) {
	seen := make(map[string]struct{})
	var out []domain.CartItem
	for _, it := range s.Items() {
		if it.IsTemporary() {
			seen[it.ID] = struct{}{}
			out = append(out, it)
		}
	}

	entries, err := s.pending.LoadPending(ctx)
	if err != nil {
		return out, err
	}
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e.CartItem)
	}
	return out, nil
}

func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) replace(items []domain.CartItem, lastErr string) {
	s.mu.Lock()
	s.items = items
	s.lastErr = lastErr
	s.mu.Unlock()
}

func entriesToItems(entries []domain.PendingCartEntry) []domain.CartItem {
	items := make([]domain.CartItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.CartItem)
	}
	return items
}

func messageOf(err error) string {
	if errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrInvalidProduct) || errors.Is(err, ErrUnknownItem) {
		return err.Error()
	}
	return api.MessageOf(err)
}
