package model

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// validNext lists every permitted transition and whether it needs an
// operator. Terminal states (shipped, cancelled, expired) have no entries.
var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusCreated: {
		OrderStatusPaid:      false,
		OrderStatusExpired:   false,
		OrderStatusCancelled: false,
	},
	OrderStatusPaid: {
		OrderStatusShipped:   true,
		OrderStatusCancelled: true, // exceptional refund path
	},
}

// IsValidTransition reports whether from→to is permitted. Self-transitions
// are valid no-ops.
func IsValidTransition(from, to OrderStatus) bool {
	if from == to {
		return true
	}
	_, ok := validNext[from][to]
	return ok
}

// RequiresOperator reports whether from→to needs elevated privilege.
func RequiresOperator(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s OrderStatus) IsTerminal() bool {
	return len(validNext[s]) == 0
}
