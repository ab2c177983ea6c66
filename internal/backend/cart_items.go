package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// rawCartItem accepts the field spellings the cart endpoint has been seen to use.
type rawCartItem struct {
	ID           json.RawMessage `json:"id"`
	CartItemID   json.RawMessage `json:"cartItemId"`
	ProductID    json.RawMessage `json:"productId"`
	ProductIDAlt json.RawMessage `json:"product_id"`
	Quantity     json.RawMessage `json:"quantity"`
	Price        json.RawMessage `json:"price"`
	Name         string          `json:"productName"`
	Image        string          `json:"image"`
	Product      *struct {
		ID            json.RawMessage `json:"id"`
		Name          string          `json:"name"`
		Price         json.RawMessage `json:"price"`
		DiscountPrice json.RawMessage `json:"discountPrice"`
		Image         string          `json:"image"`
		Category      string          `json:"category"`
	} `json:"product"`
}

// DecodeCartItems normalizes a cart payload in any supported shape.
// Items with a quantity below one are dropped.
func DecodeCartItems(raw []byte) ([]domain.CartItem, Shape, error) {
	rows, shape, err := DecodeList[rawCartItem](raw)
	if err != nil {
		return nil, shape, err
	}

	items := make([]domain.CartItem, 0, len(rows))
	for _, r := range rows {
		qty, ok := parseInt(r.Quantity)
		if !ok || qty < 1 {
			continue
		}
		item := domain.CartItem{
			ID:        firstID(r.ID, r.CartItemID),
			Quantity:  int(qty),
			UnitPrice: resolvePrice(r),
			Name:      r.Name,
			Image:     r.Image,
		}
		if pid, ok := parseInt(r.ProductID); ok {
			item.ProductID = pid
		} else if pid, ok := parseInt(r.ProductIDAlt); ok {
			item.ProductID = pid
		}
		if p := r.Product; p != nil {
			if item.ProductID == 0 {
				item.ProductID, _ = parseInt(p.ID)
			}
			if item.Name == "" {
				item.Name = p.Name
			}
			if item.Image == "" {
				item.Image = p.Image
			}
			item.Category = p.Category
		}
		items = append(items, item)
	}
	return items, shape, nil
}

// resolvePrice: flat price, then product.discountPrice, then product.price, else zero.
func resolvePrice(r rawCartItem) decimal.Decimal {
	if d, ok := parseDecimal(r.Price); ok {
		return d
	}
	if r.Product != nil {
		if d, ok := parseDecimal(r.Product.DiscountPrice); ok {
			return d
		}
		if d, ok := parseDecimal(r.Product.Price); ok {
			return d
		}
	}
	return decimal.Zero
}

func firstID(candidates ...json.RawMessage) string {
	for _, c := range candidates {
		if s := scalar(c); s != "" {
			return s
		}
	}
	return ""
}

// scalar returns a JSON number or string as text; anything else is empty.
func scalar(raw json.RawMessage) string {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return ""
	}
	if t[0] == '"' {
		var s string
		if json.Unmarshal(t, &s) != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	if t[0] == '-' || (t[0] >= '0' && t[0] <= '9') {
		return string(t)
	}
	return ""
}

func parseInt(raw json.RawMessage) (int64, bool) {
	s := scalar(raw)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	s := scalar(raw)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
