package domain

import "time"

// OrderEventType names a lifecycle event published for downstream consumers.
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "order.created"
	OrderEventStatusChanged OrderEventType = "order.status_changed"
	OrderEventCancelled     OrderEventType = "order.cancelled"
)

// OrderEvent is the payload published on the order events topic.
type OrderEvent struct {
	Type           OrderEventType `json:"type"`
	OrderID        string         `json:"orderId"`
	OrderNumber    string         `json:"orderNumber"`
	CustomerID     string         `json:"customerId"`
	SellerIDs      []string       `json:"sellerIds,omitempty"`
	Status         OrderStatus    `json:"status"`
	PreviousStatus OrderStatus    `json:"previousStatus,omitempty"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus"`
	TotalAmount    int64          `json:"totalAmount"`
	Currency       string         `json:"currency"`
	OccurredAt     time.Time      `json:"occurredAt"`
}

// NewOrderEvent snapshots order for an event of the given type.
func NewOrderEvent(eventType OrderEventType, order Order, previous OrderStatus, at time.Time) OrderEvent {
	return OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID,
		SellerIDs:      append([]string(nil), order.SellerIDs...),
		Status:         order.Status,
		PreviousStatus: previous,
		PaymentMethod:  order.Payment.Method,
		PaymentStatus:  order.Payment.Status,
		TotalAmount:    order.TotalAmount,
		Currency:       order.Payment.Currency,
		OccurredAt:     at.UTC(),
	}
}
