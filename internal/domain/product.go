package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Image         string           `json:"image"`
	Category      string           `json:"category"`
	Stock         int              `json:"stock"`
	ArtisanID     int64            `json:"artisanId"`
}

// EffectivePrice prefers the discount price when one is set.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() {
		return *p.DiscountPrice
	}
	return p.Price
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
