package checkout

import (
	"net/url"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ParseReturn reads the gateway redirect query.
func ParseReturn(q url.Values) domain.PaymentReturn {
	return domain.PaymentReturn{
		Code:      strings.TrimSpace(q.Get("code")),
		Status:    domain.ParseGatewayStatus(q.Get("status")),
		OrderCode: strings.TrimSpace(q.Get("orderCode")),
		Cancel:    parseFlag(q.Get("cancel")),
	}
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// ResolveOutcome: cancellation wins, then a paid status or success code, anything else failed.
func ResolveOutcome(ret domain.PaymentReturn) domain.PaymentOutcome {
	switch {
	case ret.Cancel || ret.Status == domain.GatewayStatusCancelled:
		return domain.OutcomeCancelled
	case ret.Status == domain.GatewayStatusPaid || ret.Code == domain.GatewaySuccessCode:
		return domain.OutcomeSuccess
	default:
		return domain.OutcomeFailed
	}
}
