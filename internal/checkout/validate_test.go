package checkout

import (
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
)

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		RecipientName: "Lan Nguyen",
		Phone:         "0912345678",
		Street:        "12 Hang Bac",
		Ward:          "Hang Dao",
		District:      "Hoan Kiem",
		Province:      "Ha Noi",
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.ShippingAddress)
		want   FieldErrors
	}{
		{"valid", func(*domain.ShippingAddress) {}, FieldErrors{}},
		{"eleven digit phone", func(a *domain.ShippingAddress) { a.Phone = "09123456789" }, FieldErrors{}},
		{"blank recipient", func(a *domain.ShippingAddress) { a.RecipientName = "   " }, FieldErrors{"recipient_name": "recipient name is required"}},
		{"blank ward", func(a *domain.ShippingAddress) { a.Ward = "" }, FieldErrors{"ward": "ward is required"}},
		{"missing phone", func(a *domain.ShippingAddress) { a.Phone = "" }, FieldErrors{"phone": "phone number is required"}},
		{"short phone", func(a *domain.ShippingAddress) { a.Phone = "12345" }, FieldErrors{"phone": "phone number must be 10 or 11 digits"}},
		{"phone with letters", func(a *domain.ShippingAddress) { a.Phone = "09123abc78" }, FieldErrors{"phone": "phone number must be 10 or 11 digits"}},
		{"several blanks", func(a *domain.ShippingAddress) { a.Street, a.Province = "", "" }, FieldErrors{
			"street":   "street address is required",
			"province": "province is required",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := validAddress()
			tt.mutate(&addr)
			assert.Equal(t, tt.want, ValidateAddress(addr))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: FieldErrors{"ward": "x", "phone": "y"}}
	assert.Equal(t, "invalid shipping address: phone, ward", err.Error())
}
