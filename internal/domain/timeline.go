package domain

import (
	"fmt"
	"time"
)

var timelineMessages = map[OrderStatus]string{
	OrderStatusPending:        "Order placed",
	OrderStatusPaymentPending: "Awaiting payment",
	OrderStatusPaid:           "Payment received",
	OrderStatusConfirmed:      "Order confirmed",
	OrderStatusProcessing:     "Order is being processed",
	OrderStatusPacked:         "Order has been packed",
	OrderStatusShipped:        "Order has been shipped",
	OrderStatusOutForDelivery: "Order is out for delivery",
	OrderStatusDelivered:      "Order delivered successfully",
	OrderStatusCancelled:      "Order has been cancelled",
	OrderStatusReturned:       "Order has been returned",
	OrderStatusRefunded:       "Payment refunded",
}

// TimelineMessage returns the customer-facing message recorded for a status.
func TimelineMessage(status OrderStatus) string {
	if msg, ok := timelineMessages[status]; ok {
		return msg
	}
	return fmt.Sprintf("Order status: %s", status)
}

// AppendTimeline records a status change on the order. Existing entries are never touched.
func (o *Order) AppendTimeline(status OrderStatus, at time.Time) {
	o.Timeline = append(o.Timeline, TimelineEntry{
		Status:    status,
		Message:   TimelineMessage(status),
		Timestamp: at,
	})
}
