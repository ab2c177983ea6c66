// Package backend maps storefront actions onto the marketplace REST endpoints.
package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// Caller performs one JSON request against the marketplace API.
// *api.Client satisfies it.
type Caller interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

// Services groups the per-resource modules around a single Caller.
type Services struct {
	Cart     *CartAPI
	Orders   *OrdersAPI
	Products *ProductsAPI
	Accounts *AccountsAPI
	Forum    *ForumAPI
	Auth     *AuthAPI
}

func NewServices(c Caller) *Services {
	return &Services{
		Cart:     &CartAPI{c: c},
		Orders:   &OrdersAPI{c: c},
		Products: &ProductsAPI{c: c},
		Accounts: &AccountsAPI{c: c},
		Forum:    &ForumAPI{c: c},
		Auth:     &AuthAPI{c: c},
	}
}

func pathID(prefix string, id int64, suffix string) string {
	return prefix + "/" + strconv.FormatInt(id, 10) + suffix
}

func pathCode(prefix, code, suffix string) string {
	return prefix + "/" + url.PathEscape(code) + suffix
}

// fetchList performs a GET and normalizes the list payload, whatever wrapper it came in.
func fetchList[T any](ctx context.Context, c Caller, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	items, _, err := DecodeList[T](raw)
	return items, err
}

func fetchObject[T any](ctx context.Context, c Caller, path string) (T, error) {
	var (
		raw json.RawMessage
		out T
	)
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return out, err
	}
	err := DecodeObject(raw, &out)
	return out, err
}
