// Package checkout turns a cart into a hosted payment redirect and reconciles the gateway's answer.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ReturnPath is where the gateway sends the visitor back to.
const ReturnPath = "/payment/result"

type Accounts interface {
	Me(ctx context.Context) (domain.Account, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (backend.CheckoutSession, error)
}

// Cart is the visitor's cart as the flow needs it.
type Cart interface {
	Unacknowledged(ctx context.Context) ([]domain.CartItem, error)
	PromotePending(ctx context.Context) error
	Load(ctx context.Context) error
	Items() []domain.CartItem
}

type Redirect struct {
	OrderCode  string `json:"order_code"`
	PaymentURL string `json:"payment_url"`
}

type Flow struct {
	accounts   Accounts
	orders     OrderCreator
	cart       Cart
	successURL string
	cancelURL  string
	logger     *slog.Logger
}

// NewFlow builds the return URLs from publicBaseURL, the externally visible origin of the storefront.
func NewFlow(accounts Accounts, orders OrderCreator, cart Cart, publicBaseURL string, logger *slog.Logger) *Flow {
	base := strings.TrimRight(publicBaseURL, "/")
	return &Flow{
		accounts:   accounts,
		orders:     orders,
		cart:       cart,
		successURL: base + ReturnPath,
		cancelURL:  base + ReturnPath + "?cancel=true",
		logger:     logger,
	}
}

// Submit validates the address, syncs unacknowledged items, creates the order and returns where to send the visitor.
func (f *Flow) Submit(ctx context.Context, addr domain.ShippingAddress) (Redirect, error) {
	if errs := ValidateAddress(addr); len(errs) > 0 {
		return Redirect{}, &ValidationError{Fields: errs}
	}

	account, err := f.accounts.Me(ctx)
	if err != nil {
		return Redirect{}, fmt.Errorf("load account: %w", err)
	}

	if err := f.syncUnacknowledged(ctx); err != nil {
		return Redirect{}, err
	}

	if err := f.cart.Load(ctx); err != nil {
		return Redirect{}, fmt.Errorf("reload cart: %w", err)
	}
	ids := purchasableIDs(f.cart.Items())
	if len(ids) == 0 {
		return Redirect{}, ErrNothingToPurchase
	}

	session, err := f.orders.CreateOrder(ctx, backend.CreateOrderRequest{
		AccountID:       account.ID,
		CartItemIDs:     ids,
		ShippingAddress: normalizeAddress(addr),
		SuccessURL:      f.successURL,
		CancelURL:       f.cancelURL,
	})
	if err != nil {
		return Redirect{}, fmt.Errorf("create order: %w", err)
	}
	if session.PaymentURL == "" {
		f.logger.ErrorContext(ctx, "order created without payment url", "order_code", session.OrderCode)
		return Redirect{}, ErrMissingPaymentURL
	}

	f.logger.InfoContext(ctx, "checkout started", "order_code", session.OrderCode, "items", len(ids), "account_id", account.ID)
	return Redirect{OrderCode: session.OrderCode, PaymentURL: session.PaymentURL}, nil
}

func (f *Flow) syncUnacknowledged(ctx context.Context) error {
	pending, err := f.cart.Unacknowledged(ctx)
	if err != nil {
		return fmt.Errorf("read unacknowledged items: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	if err := f.cart.PromotePending(ctx); err != nil {
		return fmt.Errorf("sync cart items: %w", err)
	}
	return nil
}

func purchasableIDs(items []domain.CartItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if id, ok := it.NumericID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
