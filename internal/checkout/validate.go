package checkout

import (
	"regexp"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

// ValidateAddress returns per-field messages; an empty result means the address is usable.
func ValidateAddress(addr domain.ShippingAddress) FieldErrors {
	errs := FieldErrors{}
	required := []struct {
		field, value, label string
	}{
		{"recipient_name", addr.RecipientName, "recipient name"},
		{"phone", addr.Phone, "phone number"},
		{"street", addr.Street, "street address"},
		{"ward", addr.Ward, "ward"},
		{"district", addr.District, "district"},
		{"province", addr.Province, "province"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.field] = r.label + " is required"
		}
	}
	if _, missing := errs["phone"]; !missing && !phonePattern.MatchString(strings.TrimSpace(addr.Phone)) {
		errs["phone"] = "phone number must be 10 or 11 digits"
	}
	return errs
}

func normalizeAddress(addr domain.ShippingAddress) domain.ShippingAddress {
	return domain.ShippingAddress{
		RecipientName: strings.TrimSpace(addr.RecipientName),
		Phone:         strings.TrimSpace(addr.Phone),
		Street:        strings.TrimSpace(addr.Street),
		Ward:          strings.TrimSpace(addr.Ward),
		District:      strings.TrimSpace(addr.District),
		Province:      strings.TrimSpace(addr.Province),
	}
}
