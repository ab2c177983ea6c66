package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

const cartPath = "/cart"

type CartAPI struct {
	c Caller
}

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the raw cart payload; DecodeCartItems turns it into items.
func (a *CartAPI) GetCart(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := a.c.Do(ctx, http.MethodGet, cartPath, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (a *CartAPI) AddItem(ctx context.Context, productID int64, quantity int) error {
	return a.c.Do(ctx, http.MethodPost, cartPath+"/items", addItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

func (a *CartAPI) UpdateItem(ctx context.Context, itemID int64, quantity int) error {
	return a.c.Do(ctx, http.MethodPut, pathID(cartPath+"/items", itemID, ""), updateItemRequest{Quantity: quantity}, nil)
}

func (a *CartAPI) RemoveItem(ctx context.Context, itemID int64) error {
	return a.c.Do(ctx, http.MethodDelete, pathID(cartPath+"/items", itemID, ""), nil, nil)
}

func (a *CartAPI) ClearCart(ctx context.Context) error {
	return a.c.Do(ctx, http.MethodDelete, cartPath, nil, nil)
}
