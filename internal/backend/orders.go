package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const ordersPath = "/orders"

type OrdersAPI struct {
	c Caller
}

type CreateOrderRequest struct {
	AccountID       int64                  `json:"accountId"`
	CartItemIDs     []int64                `json:"cartItemIds"`
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	SuccessURL      string                 `json:"returnUrl"`
	CancelURL       string                 `json:"cancelUrl"`
}

// CheckoutSession is what the backend hands back for a new order.
// PaymentURL may be empty; callers must treat that as a failure.
type CheckoutSession struct {
	OrderCode  string
	PaymentURL string
}

type checkoutResponse struct {
	OrderCode   json.RawMessage `json:"orderCode"`
	PaymentURL  string          `json:"paymentUrl"`
	CheckoutURL string          `json:"checkoutUrl"`
}

func (a *OrdersAPI) CreateOrder(ctx context.Context, req CreateOrderRequest) (CheckoutSession, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodPost, ordersPath+"/checkout", req, &raw); err != nil {
		return CheckoutSession{}, err
	}
	var resp checkoutResponse
	if err := DecodeObject(raw, &resp); err != nil {
		return CheckoutSession{}, fmt.Errorf("create order: %w", err)
	}
	session := CheckoutSession{OrderCode: scalar(resp.OrderCode), PaymentURL: resp.PaymentURL}
	if session.PaymentURL == "" {
		session.PaymentURL = resp.CheckoutURL
	}
	return session, nil
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (a *OrdersAPI) UpdateStatus(ctx context.Context, orderCode, status string) error {
	return a.c.Do(ctx, http.MethodPut, pathCode(ordersPath, orderCode, "/status"), updateStatusRequest{Status: status}, nil)
}

func (a *OrdersAPI) CalculateCommission(ctx context.Context, orderCode string) error {
	return a.c.Do(ctx, http.MethodPost, pathCode(ordersPath, orderCode, "/commission"), nil, nil)
}

func (a *OrdersAPI) ListMine(ctx context.Context) ([]domain.Order, error) {
	return fetchList[domain.Order](ctx, a.c, ordersPath+"/my")
}

func (a *OrdersAPI) Get(ctx context.Context, orderCode string) (domain.Order, error) {
	return fetchObject[domain.Order](ctx, a.c, pathCode(ordersPath, orderCode, ""))
}

func (a *OrdersAPI) AdminList(ctx context.Context) ([]domain.Order, error) {
	return fetchList[domain.Order](ctx, a.c, "/admin/orders")
}
