package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const temporaryIDPrefix = "temp-"

type CartItem struct {
	ID        string          `json:"id"`
	ProductID int64           `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	Category  string          `json:"category,omitempty"`
}

// PendingCartEntry is a cart item staged in session storage while the visitor is anonymous.
type PendingCartEntry struct {
	CartItem
	AddedAt time.Time `json:"added_at"`
}

// NewTemporaryID returns a client-side placeholder id for an item the server has not acknowledged.
func NewTemporaryID() string {
	return temporaryIDPrefix + uuid.NewString()
}

func (i CartItem) IsTemporary() bool {
	return strings.HasPrefix(i.ID, temporaryIDPrefix)
}

// NumericID returns the server-assigned id. Temporary and non-numeric ids report false.
func (i CartItem) NumericID() (int64, bool) {
	if i.IsTemporary() {
		return 0, false
	}
	id, err := strconv.ParseInt(i.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
