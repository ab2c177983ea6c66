package checkout

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNothingToPurchase = errors.New("cart has no items the server can check out")
	ErrMissingPaymentURL = errors.New("backend did not return a payment url")
)

// FieldErrors maps a shipping address field (json name) to its message.
type FieldErrors map[string]string

type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "invalid shipping address: " + strings.Join(keys, ", ")
}
