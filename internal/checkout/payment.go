package checkout

import (
	"errors"
	"fmt"

	"github.com/example/bakery-pos/internal/domain/customer"
)

type PaymentMethod string

const (
	Cash     PaymentMethod = "Cash"
	Card     PaymentMethod = "Card"
	Transfer PaymentMethod = "Transfer"
)

// DefaultPaymentMethod is selected when a session starts.
const DefaultPaymentMethod = Cash

var ErrUnsupportedPaymentMethod = errors.New("payment method not accepted in this flow")

// toggle order per flow
var flowMethods = map[customer.Flow][]PaymentMethod{
	customer.FlowInPerson: {Cash, Card, Transfer},
	customer.FlowOnline:   {Cash, Transfer},
}

// ParsePaymentMethod accepts the exact wire names.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case Cash, Card, Transfer:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// MethodsFor lists the methods a flow accepts in toggle order.
func MethodsFor(flow customer.Flow) []PaymentMethod {
	methods := flowMethods[flow]
	out := make([]PaymentMethod, len(methods))
	copy(out, methods)
	return out
}

// Accepts reports whether flow allows m.
func Accepts(flow customer.Flow, m PaymentMethod) bool {
	for _, allowed := range flowMethods[flow] {
		if allowed == m {
			return true
		}
	}
	return false
}

// NextPaymentMethod returns the method after current in the flow's toggle
// cycle. An unknown current method goes back to the default.
func NextPaymentMethod(flow customer.Flow, current PaymentMethod) PaymentMethod {
	methods := flowMethods[flow]
	for i, m := range methods {
		if m == current {
			return methods[(i+1)%len(methods)]
		}
	}
	return DefaultPaymentMethod
}
