package domain

// OrderStatus is the lifecycle state stored on an order.
type OrderStatus string

// Order Statuses
const (
	OrderStatusUnshipped       OrderStatus = "UNSHIPPED"
	OrderStatusReadyToShip     OrderStatus = "READY TO SHIP"
	OrderStatusPickupScheduled OrderStatus = "PICKUP SCHEDULED"
	OrderStatusManifested      OrderStatus = "MANIFESTED"
	OrderStatusInTransit       OrderStatus = "IN TRANSIT"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRTO             OrderStatus = "RTO"
	OrderStatusLost            OrderStatus = "LOST"
)

// Payment Methods
const (
	PaymentMethodPrepaid = "Prepaid"
	PaymentMethodCOD     = "COD"
)

// Booking phases for carriers that book in two steps.
const (
	BookingPhaseNone         = ""
	BookingPhaseOrderCreated = "ORDER_CREATED"
	BookingPhaseAWBAssigned  = "AWB_ASSIGNED"
)

// Remittance Statuses
const (
	RemittanceStatusPendingDelivery        = "Pending Delivery"
	RemittanceStatusPendingRemittance      = "Delivered - Pending Remittance"
	RemittanceStatusReturnedToOrigin       = "Returned To Origin"
	RemittanceStatusCancelledAfterShipping = "Cancelled After Shipping"
	RemittanceStatusRemitted               = "Remitted"
)

// DefaultEarlyCODSetting is used when a user has no remittance preference on file.
const DefaultEarlyCODSetting = "Standard"

// Progress weight per status. Forward moves only, except the side exits which
// are accepted from any non-terminal state.
var statusWeights = map[OrderStatus]int{
	OrderStatusUnshipped:       10,
	OrderStatusReadyToShip:     20,
	OrderStatusPickupScheduled: 30,
	OrderStatusManifested:      40,
	OrderStatusInTransit:       50,
	OrderStatusDelivered:       60,
	OrderStatusRTO:             70,
	OrderStatusLost:            80,
	OrderStatusCancelled:       90,
}

// OrderStatuses lists every known status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusUnshipped,
	OrderStatusReadyToShip,
	OrderStatusPickupScheduled,
	OrderStatusManifested,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusRTO,
	OrderStatusLost,
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRTO, OrderStatusLost:
		return true
	}
	return false
}

// IsKnown reports whether s is one of the lifecycle statuses.
func (s OrderStatus) IsKnown() bool {
	_, ok := statusWeights[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
// Terminal states never move. CANCELLED, RTO and LOST are side exits that are
// reachable from any non-terminal state; everything else must move forward.
func CanTransition(from, to OrderStatus) bool {
	if from == to || from.IsTerminal() {
		return false
	}
	switch to {
	case OrderStatusCancelled, OrderStatusRTO, OrderStatusLost:
		return true
	}
	fw, okFrom := statusWeights[from]
	tw, okTo := statusWeights[to]
	if !okFrom || !okTo {
		return false
	}
	return tw > fw
}
