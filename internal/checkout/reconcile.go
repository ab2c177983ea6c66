package checkout

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/idempotency"
)

type OrderUpdater interface {
	UpdateStatus(ctx context.Context, orderCode, status string) error
	CalculateCommission(ctx context.Context, orderCode string) error
}

type CartClearer interface {
	ClearCart(ctx context.Context) error
	GetCart(ctx context.Context) (json.RawMessage, error)
	RemoveItem(ctx context.Context, itemID int64) error
}

type PendingClearer interface {
	ClearPending(ctx context.Context) error
}

// Target is the visitor-scoped side of a reconciliation: whose order and cart to touch.
// Only authenticated targets are reconciled.
type Target struct {
	SessionID     string
	Authenticated bool
	Orders        OrderUpdater
	Cart          CartClearer
	Pending       PendingClearer
}

// Result is the terminal outcome shown to the visitor. LoginRequired means the return
// reached an anonymous session and nothing was done.
type Result struct {
	Outcome       domain.PaymentOutcome `json:"outcome"`
	OrderCode     string                `json:"order_code,omitempty"`
	Duplicate     bool                  `json:"duplicate"`
	LoginRequired bool                  `json:"login_required,omitempty"`
}

// Reconciler applies a gateway return to the backend at most once per order code, except that
// a success still applies after an earlier failed or cancelled return. A failed status update
// releases the claim. Backend failures are logged and swallowed.
type Reconciler struct {
	processed idempotency.ProcessedSet
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewReconciler(processed idempotency.ProcessedSet, publisher events.Publisher, logger *slog.Logger) *Reconciler {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Reconciler{processed: processed, publisher: publisher, logger: logger, now: time.Now}
}

func (r *Reconciler) Handle(ctx context.Context, ret domain.PaymentReturn, t Target) Result {
	outcome := ResolveOutcome(ret)
	res := Result{Outcome: outcome, OrderCode: ret.OrderCode}
	if ret.OrderCode == "" {
		r.logger.WarnContext(ctx, "payment return without order code", "outcome", outcome)
		return res
	}

	log := r.logger.With("order_code", ret.OrderCode, "outcome", outcome)

	// anonymous returns never take the claim
	if !t.Authenticated {
		log.WarnContext(ctx, "payment return on anonymous session, not reconciled", "session_id", t.SessionID)
		res.LoginRequired = true
		return res
	}

	first, err := r.processed.Claim(ctx, ret.OrderCode, outcome)
	if err != nil {
		log.ErrorContext(ctx, "processed set unavailable, reconciling anyway", "error", err)
		first = true
	}
	if !first {
		log.InfoContext(ctx, "payment return already reconciled")
		res.Duplicate = true
		return res
	}

	if errUpdate := t.Orders.UpdateStatus(ctx, ret.OrderCode, outcome.OrderStatus()); errUpdate != nil {
		log.WarnContext(ctx, "order status update failed, releasing claim", "error", errUpdate)
		if errRelease := r.processed.Release(ctx, ret.OrderCode, outcome); errRelease != nil {
			log.ErrorContext(ctx, "claim release failed", "error", errRelease)
		}
		return res
	}

	if outcome == domain.OutcomeSuccess {
		if errCommission := t.Orders.CalculateCommission(ctx, ret.OrderCode); errCommission != nil {
			log.WarnContext(ctx, "commission calculation failed", "error", errCommission)
		}
		r.clearCart(ctx, log, t.Cart)
		if t.Pending != nil {
			if errPending := t.Pending.ClearPending(ctx); errPending != nil {
				log.WarnContext(ctx, "pending cart cleanup failed", "error", errPending)
			}
		}
	}

	event := events.PaymentEvent{
		OrderCode:     ret.OrderCode,
		Outcome:       outcome.String(),
		OrderStatus:   outcome.OrderStatus(),
		GatewayStatus: string(ret.Status),
		GatewayCode:   ret.Code,
		SessionID:     t.SessionID,
		OccurredAt:    r.now().UTC(),
	}
	if errPublish := r.publisher.Publish(ctx, event); errPublish != nil {
		log.WarnContext(ctx, "payment event publish failed", "error", errPublish)
	}

	log.InfoContext(ctx, "payment return reconciled")
	return res
}

// clearCart tries the bulk endpoint and falls back to deleting items one by one.
func (r *Reconciler) clearCart(ctx context.Context, log *slog.Logger, c CartClearer) {
	errClear := c.ClearCart(ctx)
	if errClear == nil {
		return
	}
	log.WarnContext(ctx, "bulk cart clear failed, removing items individually", "error", errClear)

	raw, errGet := c.GetCart(ctx)
	if errGet != nil {
		log.WarnContext(ctx, "cart fetch for item removal failed", "error", errGet)
		return
	}
	items, _, errDecode := backend.DecodeCartItems(raw)
	if errDecode != nil {
		log.WarnContext(ctx, "cart decode for item removal failed", "error", errDecode)
		return
	}
	for _, it := range items {
		id, ok := it.NumericID()
		if !ok {
			continue
		}
		if errRemove := c.RemoveItem(ctx, id); errRemove != nil {
			log.WarnContext(ctx, "cart item removal failed", "item_id", id, "error", errRemove)
		}
	}
}
