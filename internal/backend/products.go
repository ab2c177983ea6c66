package backend

import (
	"context"
	"net/url"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ProductsAPI struct {
	c Caller
}

type ProductQuery struct {
	Category string
	Search   string
	Page     int
	Size     int
}

func (q ProductQuery) encode() string {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (a *ProductsAPI) List(ctx context.Context, q ProductQuery) ([]domain.Product, error) {
	return fetchList[domain.Product](ctx, a.c, "/products"+q.encode())
}

func (a *ProductsAPI) Get(ctx context.Context, id int64) (domain.Product, error) {
	return fetchObject[domain.Product](ctx, a.c, pathID("/products", id, ""))
}

func (a *ProductsAPI) Categories(ctx context.Context) ([]domain.Category, error) {
	return fetchList[domain.Category](ctx, a.c, "/categories")
}
