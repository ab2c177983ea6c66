package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/go-chi/chi/v5"
)

type ProductHandler struct {
	timeout time.Duration
}

func NewProductHandler(timeout time.Duration) *ProductHandler {
	return &ProductHandler{timeout: timeout}
}

// GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	query := backend.ProductQuery{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     positiveInt(q.Get("page")),
		Size:     positiveInt(q.Get("size")),
	}

	st := stateFrom(r.Context())
	products, err := st.Services.Products.List(ctx, query)
	if err != nil {
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, products)
}

// GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "id must be a positive integer")
		return
	}

	st := stateFrom(r.Context())
	product, err := st.Services.Products.Get(ctx, id)
	if err != nil {
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// GET /api/v1/categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := stateFrom(r.Context())
	categories, err := st.Services.Products.Categories(ctx)
	if err != nil {
		handleAPIError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, categories)
}

func positiveInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
