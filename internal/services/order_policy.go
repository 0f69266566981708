package services

import domain "github.com/AmolSonawane1026/order-service/internal/domain"

// OrderAction is something an actor may attempt on an existing order.
type OrderAction int

const (
	ActionView OrderAction = iota
	ActionUpdateStatus
	ActionCancel
)

// Can decides whether actor may perform action on order. Admins may view and
// update any order; sellers may view and update orders containing their items;
// only the owning customer may view their order or cancel it.
func Can(actor Actor, action OrderAction, order domain.Order) bool {
	if actor.ID == "" {
		return false
	}
	owner := order.CustomerID == actor.ID
	seller := order.ContainsSeller(actor.ID)

	switch action {
	case ActionView:
		return actor.IsAdmin() || owner || seller
	case ActionUpdateStatus:
		return actor.IsAdmin() || seller
	case ActionCancel:
		return owner
	default:
		return false
	}
}

var cancellableStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusPending:        true,
	domain.OrderStatusPaymentPending: true,
	domain.OrderStatusConfirmed:      true,
}

// Cancellable reports whether a customer may still cancel an order in status.
func Cancellable(status domain.OrderStatus) bool {
	return cancellableStatuses[status]
}
