package domain

import "strings"

// GatewayStatus is the textual status the hosted payment page reports back.
type GatewayStatus string

const (
	GatewayStatusPaid      GatewayStatus = "PAID"
	GatewayStatusCancelled GatewayStatus = "CANCELLED"
	GatewayStatusPending   GatewayStatus = "PENDING"
	GatewayStatusFailed    GatewayStatus = "FAILED"
)

// GatewaySuccessCode is the result code the gateway uses for a completed charge.
const GatewaySuccessCode = "00"

func ParseGatewayStatus(s string) GatewayStatus {
	return GatewayStatus(strings.ToUpper(strings.TrimSpace(s)))
}

type PaymentOutcome string

const (
	OutcomeSuccess   PaymentOutcome = "success"
	OutcomeCancelled PaymentOutcome = "cancelled"
	OutcomeFailed    PaymentOutcome = "failed"
)

// OrderStatus is the status the backend expects for the order after the outcome is known.
func (o PaymentOutcome) OrderStatus() string {
	switch o {
	case OutcomeSuccess:
		return string(GatewayStatusPaid)
	case OutcomeCancelled:
		return string(GatewayStatusCancelled)
	default:
		return string(GatewayStatusFailed)
	}
}

// Supersedes reports whether o may replace an already recorded outcome.
// Only a success overrides an earlier non-success.
func (o PaymentOutcome) Supersedes(recorded PaymentOutcome) bool {
	return o == OutcomeSuccess && recorded != OutcomeSuccess
}

func (o PaymentOutcome) String() string {
	return string(o)
}

// PaymentReturn carries the query parameters of the gateway redirect back into the storefront.
type PaymentReturn struct {
	Code      string
	Status    GatewayStatus
	OrderCode string
	Cancel    bool
}
